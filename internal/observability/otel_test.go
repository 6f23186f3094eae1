package observability

import "testing"

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" authorization=Bearer abc , bad, x-team=buyers,empty= ")
	if len(got) != 2 || got["authorization"] != "Bearer abc" || got["x-team"] != "buyers" {
		t.Fatalf("unexpected headers: %#v", got)
	}
	if parseHeaders("  ") != nil {
		t.Fatalf("blank header list should be nil")
	}
}

func TestClampRatio(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0.25: 0.25, 3: 1}
	for in, want := range cases {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v): want=%v got=%v", in, want, got)
		}
	}
}
