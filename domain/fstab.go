package domain

import "sort"

// FstabRecord is one /etc/fstab line (spec.md §4.5 "mount").
type FstabRecord struct {
	Spec    string
	Path    string // "none" for swap
	FsType  string
	Options string
	Freq    int
	Passno  int
	// Depth is the number of path separators in Path; used to order the
	// emitted file by mount-path depth (spec.md §4.7).
	Depth int
}

// FstabAccumulator collects fstab records across the whole action run so
// persist can emit them ordered by mount-path depth regardless of
// execution order.
type FstabAccumulator struct {
	records []FstabRecord
}

func NewFstabAccumulator() *FstabAccumulator { return &FstabAccumulator{} }

func (a *FstabAccumulator) Add(r FstabRecord) { a.records = append(a.records, r) }

// Records returns a copy of the accumulated records ordered by mount-path
// depth (shallowest first), tie-broken by insertion order for stability.
func (a *FstabAccumulator) Records() []FstabRecord {
	out := make([]FstabRecord, len(a.records))
	copy(out, a.records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Depth < out[j].Depth })
	return out
}

// CrypttabRecord is one /etc/crypttab line (spec.md §4.5 "dm_crypt").
type CrypttabRecord struct {
	DMName  string
	Volume  string
	KeySpec string // path to keyfile, "none" for prompt, or literal "/dev/urandom"/"/dev/random"
	Options string // defaults to "luks"
}

// CrypttabAccumulator collects crypttab records in execution order (one
// line per dm_crypt action, order doesn't carry semantic weight).
type CrypttabAccumulator struct {
	records []CrypttabRecord
}

func NewCrypttabAccumulator() *CrypttabAccumulator { return &CrypttabAccumulator{} }

func (a *CrypttabAccumulator) Add(r CrypttabRecord) { a.records = append(a.records, r) }

func (a *CrypttabAccumulator) Records() []CrypttabRecord {
	out := make([]CrypttabRecord, len(a.records))
	copy(out, a.records)
	return out
}
