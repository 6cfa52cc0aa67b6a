package pagination

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Params
		want Params
	}{
		{"defaults", Params{}, Params{Page: 1, Limit: DefaultLimit}},
		{"negative page", Params{Page: -3, Limit: 5}, Params{Page: 1, Limit: 5}},
		{"limit capped", Params{Page: 2, Limit: 500}, Params{Page: 2, Limit: MaxLimit}},
		{"passthrough", Params{Page: 4, Limit: 20}, Params{Page: 4, Limit: 20}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(); got != tc.want {
				t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 1, Limit: 10}).Offset(); got != 0 {
		t.Fatalf("page 1 offset = %d, want 0", got)
	}
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("page 3 offset = %d, want 20", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("zero params offset = %d, want 0", got)
	}
}

func TestPages(t *testing.T) {
	if got := Pages(0, 10); got != 0 {
		t.Fatalf("Pages(0, 10) = %d, want 0", got)
	}
	if got := Pages(10, 10); got != 1 {
		t.Fatalf("Pages(10, 10) = %d, want 1", got)
	}
	if got := Pages(11, 10); got != 2 {
		t.Fatalf("Pages(11, 10) = %d, want 2", got)
	}
}
