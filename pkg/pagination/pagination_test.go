package pagination

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   Params
		want Params
	}{
		{Params{}, Params{Page: 1, Limit: DefaultLimit}},
		{Params{Page: 3, Limit: 500}, Params{Page: 3, Limit: MaxLimit}},
		{Params{Page: -2, Limit: 5}, Params{Page: 1, Limit: 5}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Fatalf("Normalize(%+v) = %+v want %+v", tt.in, got, tt.want)
		}
	}
}

func TestOffsetAndTotalPages(t *testing.T) {
	if got := (Params{Page: 3, Limit: 20}).Offset(); got != 40 {
		t.Fatalf("expected offset 40 got %d", got)
	}
	if got := TotalPages(41, 20); got != 3 {
		t.Fatalf("expected 3 pages got %d", got)
	}
	if got := TotalPages(0, 20); got != 0 {
		t.Fatalf("expected 0 pages got %d", got)
	}
}
