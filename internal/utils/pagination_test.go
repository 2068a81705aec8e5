package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		{"x", 5, 5},
		{" 42", 7, 7},
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(0, 1, 50); got != 1 {
		t.Fatalf("Clamp low = %d", got)
	}
	if got := Clamp(80, 1, 50); got != 50 {
		t.Fatalf("Clamp high = %d", got)
	}
	if got := Clamp(7, 1, 50); got != 7 {
		t.Fatalf("Clamp mid = %d", got)
	}
	if got := Clamp(1.5, 0, 1); got != 1 {
		t.Fatalf("Clamp float = %v", got)
	}
}

func TestPageOffsetAndCount(t *testing.T) {
	offsets := []struct{ page, size, want int }{
		{1, 20, 0},
		{3, 20, 40},
		{0, 20, 0},
		{-2, 20, 0},
		{2, 0, 0},
	}
	for _, tc := range offsets {
		if got := PageOffset(tc.page, tc.size); got != tc.want {
			t.Fatalf("PageOffset(%d,%d) = %d; want %d", tc.page, tc.size, got, tc.want)
		}
	}

	counts := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tc := range counts {
		if got := PageCount(tc.total, tc.size); got != tc.want {
			t.Fatalf("PageCount(%d,%d) = %d; want %d", tc.total, tc.size, got, tc.want)
		}
	}
}
