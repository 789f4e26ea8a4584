package lib

import "testing"

func TestVectorDistances(t *testing.T) {
	a := Vec(1, 1)
	b := Vec(4, 5)

	if d := a.ManhattanDistance(b); d != 7 {
		t.Errorf("Expected Manhattan distance 7, got %d", d)
	}
	if d := a.ManhattanDistance(a); d != 0 {
		t.Errorf("Expected zero distance to self, got %d", d)
	}
	if d := a.EuclideanDistance(b); d != 5.0 {
		t.Errorf("Expected Euclidean distance 5, got %f", d)
	}
}

func TestVectorArithmetic(t *testing.T) {
	a := Vec(2, 3)
	b := Vec(-1, 4)

	if sum := a.Add(b); sum != Vec(1, 7) {
		t.Errorf("Expected (1,7), got %v", sum)
	}
	if diff := a.Sub(b); diff != Vec(3, -1) {
		t.Errorf("Expected (3,-1), got %v", diff)
	}
}

func TestDirectionTo(t *testing.T) {
	origin := Vec(2, 2)

	cases := []struct {
		target Vector
		want   Direction
	}{
		{Vec(2, 5), East},
		{Vec(2, 0), West},
		{Vec(5, 2), South},
		{Vec(0, 2), North},
		{Vec(3, 4), East},  // horizontal delta dominates
		{Vec(5, 3), South}, // vertical delta dominates
	}
	for _, tc := range cases {
		dir, ok := origin.DirectionTo(tc.target)
		if !ok {
			t.Fatalf("DirectionTo(%v) reported no direction", tc.target)
		}
		if dir != tc.want {
			t.Errorf("DirectionTo(%v) = %v, want %v", tc.target, dir, tc.want)
		}
	}

	if _, ok := origin.DirectionTo(origin); ok {
		t.Errorf("Expected no direction toward self")
	}
}

func TestVectorSet(t *testing.T) {
	s := NewVectorSet(Vec(1, 2), Vec(0, 0))
	s.Add(Vec(3, 3))

	if !s.Contains(Vec(1, 2)) {
		t.Errorf("Expected set to contain (1,2)")
	}
	if s.Contains(Vec(9, 9)) {
		t.Errorf("Did not expect (9,9) in set")
	}

	sorted := s.Sorted()
	want := []Vector{{0, 0}, {1, 2}, {3, 3}}
	if len(sorted) != len(want) {
		t.Fatalf("Expected %d positions, got %d", len(want), len(sorted))
	}
	for i := range want {
		if sorted[i] != want[i] {
			t.Errorf("Sorted[%d] = %v, want %v", i, sorted[i], want[i])
		}
	}

	s.Remove(Vec(1, 2))
	if s.Contains(Vec(1, 2)) {
		t.Errorf("Expected (1,2) removed")
	}
}
