package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSize parses a curtin size string into a byte count (spec.md §4.2):
// a power-of-two-suffixed integer where B, k/K, M, G, T are all base-1024
// and "kB" is treated identically to "k" (curtin never uses SI-decimal
// suffixes despite the "B" spelling).
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Strip a trailing "B" that isn't itself the unit (e.g. "kB" -> "k").
	unit := s
	numEnd := len(s)
	for numEnd > 0 && !isDigit(s[numEnd-1]) {
		numEnd--
	}
	numPart := s[:numEnd]
	unit = s[numEnd:]

	if numPart == "" {
		return 0, fmt.Errorf("size %q has no numeric component", s)
	}

	val, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: invalid numeric component: %w", s, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("size %q: negative sizes are not allowed", s)
	}

	mult, err := unitMultiplier(unit)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", s, err)
	}

	return uint64(val * float64(mult)), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' || b == '.' }

func unitMultiplier(unit string) (uint64, error) {
	// Normalize "kB" == "k" == 1024 (spec.md §4.2 invariant).
	normalized := strings.TrimSuffix(unit, "B")
	switch normalized {
	case "":
		return 1, nil
	case "k", "K":
		return 1024, nil
	case "M":
		return 1024 * 1024, nil
	case "G":
		return 1024 * 1024 * 1024, nil
	case "T":
		return 1024 * 1024 * 1024 * 1024, nil
	default:
		return 0, fmt.Errorf("unrecognized size suffix %q", unit)
	}
}

// FormatSize renders a byte count back into the smallest whole curtin
// size string (MiB-rounded), used by executors that report a final size
// after a resize action.
func FormatSize(bytes uint64) string {
	const (
		ki = 1024
		mi = ki * 1024
		gi = mi * 1024
		ti = gi * 1024
	)
	switch {
	case bytes >= ti && bytes%ti == 0:
		return fmt.Sprintf("%dT", bytes/ti)
	case bytes >= gi && bytes%gi == 0:
		return fmt.Sprintf("%dG", bytes/gi)
	case bytes >= mi && bytes%mi == 0:
		return fmt.Sprintf("%dM", bytes/mi)
	case bytes >= ki && bytes%ki == 0:
		return fmt.Sprintf("%dK", bytes/ki)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}
