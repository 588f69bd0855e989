package domain

import (
	"strconv"
	"strings"
)

// CompareVersions orders two authority version strings. Versions are
// compared chunk by chunk, split on "." and "-"; chunks that are both
// numeric compare numerically ("10" > "2"), everything else compares
// lexicographically. A version with extra chunks orders after its prefix
// ("2025-07-01.1" > "2025-07-01").
//
// Returns -1 if a < b, 0 if equal, +1 if a > b.
func CompareVersions(a, b string) int {
	if a == b {
		return 0
	}

	ca := splitVersion(a)
	cb := splitVersion(b)

	for i := 0; i < len(ca) && i < len(cb); i++ {
		na, aNum := parseChunk(ca[i])
		nb, bNum := parseChunk(cb[i])

		var cmp int
		switch {
		case aNum && bNum:
			cmp = compareInts(na, nb)
		default:
			cmp = strings.Compare(ca[i], cb[i])
		}
		if cmp != 0 {
			return cmp
		}
	}

	return compareInts(int64(len(ca)), int64(len(cb)))
}

func splitVersion(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-'
	})
}

func parseChunk(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
