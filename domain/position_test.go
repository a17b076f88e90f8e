package domain

import "testing"

func fp(v float64) *float64 { return &v }

func TestComputePositionMidpoint(t *testing.T) {
	cases := []struct {
		name          string
		before, after float64
		want          float64
	}{
		{"even gap", 10, 20, 15},
		{"odd gap floors", 10, 15, 12},
		{"adjacent integers collide low", 10, 11, 10},
		{"zero neighbors", 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputePosition(5, 2, fp(tc.before), fp(tc.after))
			if got != tc.want {
				t.Fatalf("ComputePosition(%v, %v) = %v, want %v", tc.before, tc.after, got, tc.want)
			}
		})
	}
}

func TestComputePositionMidpointStaysBetween(t *testing.T) {
	pairs := [][2]float64{{0, 10}, {10, 20}, {7, 40}, {100, 103}}
	for _, p := range pairs {
		got := ComputePosition(3, 1, fp(p[0]), fp(p[1]))
		if got < p[0] || got > p[1] {
			t.Fatalf("midpoint %v escapes [%v, %v]", got, p[0], p[1])
		}
	}
}

func TestComputePositionHead(t *testing.T) {
	if got := ComputePosition(3, 0, nil, fp(30)); got != 20 {
		t.Fatalf("head insert before 30 = %v, want 20", got)
	}
	// Never goes negative.
	if got := ComputePosition(3, 0, nil, fp(4)); got != 0 {
		t.Fatalf("head insert before 4 = %v, want 0", got)
	}
}

func TestComputePositionTail(t *testing.T) {
	if got := ComputePosition(3, 3, fp(10), nil); got != 20 {
		t.Fatalf("tail insert after 10 = %v, want 20", got)
	}
}

func TestComputePositionEmptyAndBulk(t *testing.T) {
	if got := ComputePosition(0, 0, nil, nil); got != 0 {
		t.Fatalf("empty list = %v, want 0", got)
	}
	if got := ComputePosition(4, 4, nil, nil); got != 40 {
		t.Fatalf("no-neighbor append to 4 items = %v, want 40", got)
	}
}
