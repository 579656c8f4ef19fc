package domain

import iradix "github.com/hashicorp/go-immutable-radix"

// childIndex keys every device by "<parent-kname>\x00<child-kname>" so a
// single WalkPrefix enumerates a device's children in kname order — the
// lookup the v2 partition diff (config.StalePartitions) needs, without
// an O(devices) scan per disk (probe/identity.go and holders/tree.go do
// their own direct map walks for the cases that only need one match;
// this index is for the cases that need "every child of X").
type childIndex struct {
	tree *iradix.Tree
}

func buildChildIndex(devices map[string]*BlockDevice) *childIndex {
	txn := iradix.New().Txn()
	for kname, dev := range devices {
		for _, parent := range dev.Parents {
			txn.Insert([]byte(parent+"\x00"+kname), dev)
		}
	}
	return &childIndex{tree: txn.Commit()}
}

// ChildrenOf returns every device whose Parents list includes parentKName,
// ordered by kname.
func (s *Snapshot) ChildrenOf(parentKName string) []*BlockDevice {
	if s.index == nil {
		s.index = buildChildIndex(s.Devices)
	}
	var out []*BlockDevice
	s.index.tree.Root().WalkPrefix([]byte(parentKName+"\x00"), func(_ []byte, v interface{}) bool {
		out = append(out, v.(*BlockDevice))
		return false
	})
	return out
}
