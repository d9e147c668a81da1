package domain

import "testing"

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.1", -1},
		{"1.1", "1.0", 1},
		{"1.0", "1.0", 0},
		{"1.9", "1.10", -1},
		{"1.0", "1.0.0", 0},
		{"1.0.1", "1.0", 1},
		{"2.0", "10.0", -1},
		{"1.0b", "1.0a", 1},
	}

	for _, c := range cases {
		got := CompareVersions(c.a, c.b)
		if got != c.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSortVersions(t *testing.T) {
	versions := []string{"1.10", "1.2", "1.0", "2.0", "1.9"}
	SortVersions(versions)

	want := []string{"1.0", "1.2", "1.9", "1.10", "2.0"}
	for i := range want {
		if versions[i] != want[i] {
			t.Fatalf("sorted[%d] = %q, want %q (full: %v)", i, versions[i], want[i], versions)
		}
	}
}
