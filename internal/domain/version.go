package domain

import (
	"sort"
	"strconv"
	"strings"
)

// CompareVersions orders version strings in release order: dot-separated
// segments compare numerically when both sides are numeric ("1.10" after
// "1.9"), lexically otherwise, and a missing segment counts as zero
// ("1.0" equals "1.0.0").
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}

		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case errA == nil && sb == "":
			if na != 0 {
				return 1
			}
		case errB == nil && sa == "":
			if nb != 0 {
				return -1
			}
		default:
			if sa != sb {
				if sa < sb {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}

// SortVersions sorts version strings ascending in release order.
func SortVersions(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
}
