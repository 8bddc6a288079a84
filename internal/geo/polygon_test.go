package geo

import (
	"math"
	"testing"
)

// containsReference is a brute-force even-odd check using the angle-sum
// method, kept independent of the production ray-casting code.
func containsReference(p Polygon, pt Coordinate) bool {
	if len(p) < 3 {
		return false
	}
	var angle float64
	for i := 0; i < len(p); i++ {
		a := p[i]
		b := p[(i+1)%len(p)]
		dy1, dx1 := a.Lat-pt.Lat, a.Lng-pt.Lng
		dy2, dx2 := b.Lat-pt.Lat, b.Lng-pt.Lng
		angle += math.Atan2(dx1*dy2-dy1*dx2, dx1*dx2+dy1*dy2)
	}
	return math.Abs(angle) > math.Pi
}

func square() Polygon {
	return Polygon{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
		{Lat: 10, Lng: 10},
		{Lat: 10, Lng: 0},
	}
}

// concave is an L-shape with a notch cut out of the upper right.
func concave() Polygon {
	return Polygon{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
		{Lat: 5, Lng: 10},
		{Lat: 5, Lng: 5},
		{Lat: 10, Lng: 5},
		{Lat: 10, Lng: 0},
	}
}

func TestContains_AgreesWithReference(t *testing.T) {
	polys := []Polygon{square(), concave()}

	for _, p := range polys {
		// sampling offsets chosen so no sample lands exactly on an edge,
		// where the even-odd rule makes no promise
		for lat := -1.95; lat <= 12; lat += 0.73 {
			for lng := -1.95; lng <= 12; lng += 0.73 {
				pt := Coordinate{Lat: lat, Lng: lng}
				got := p.Contains(pt)
				want := containsReference(p, pt)
				if got != want {
					t.Fatalf("Contains(%v) = %v, reference says %v (polygon %v)", pt, got, want, p)
				}
			}
		}
	}
}

func TestContains_Degenerate(t *testing.T) {
	cases := []Polygon{
		nil,
		{},
		{{Lat: 1, Lng: 1}},
		{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}},
	}
	for _, p := range cases {
		if p.Contains(Coordinate{Lat: 1, Lng: 1}) {
			t.Fatalf("incomplete polygon %v must contain nothing", p)
		}
	}
}

func TestCentroid_Square(t *testing.T) {
	got := square().Centroid()
	want := Coordinate{Lat: 5, Lng: 5}
	if got != want {
		t.Fatalf("centroid of square: got %v want %v", got, want)
	}
}

func TestCentroid_Empty(t *testing.T) {
	if got := (Polygon{}).Centroid(); got != (Coordinate{}) {
		t.Fatalf("empty polygon centroid must be the zero coordinate, got %v", got)
	}
}

func TestComplete(t *testing.T) {
	p := Polygon{}
	if p.Complete() {
		t.Fatal("empty polygon must not be complete")
	}
	p = p.Append(Coordinate{Lat: 1}).Append(Coordinate{Lat: 2})
	if p.Complete() {
		t.Fatal("two vertices must not be complete")
	}
	p = p.Append(Coordinate{Lat: 3})
	if !p.Complete() {
		t.Fatal("three vertices must be complete")
	}
}

func TestEditing_Pure(t *testing.T) {
	base := Polygon{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}

	grown := base.Append(Coordinate{Lat: 3, Lng: 3})
	if len(base) != 2 {
		t.Fatalf("Append mutated the receiver: %v", base)
	}
	if len(grown) != 3 {
		t.Fatalf("Append result has %d vertices, want 3", len(grown))
	}

	shrunk := grown.UndoLast()
	if len(grown) != 3 {
		t.Fatalf("UndoLast mutated the receiver: %v", grown)
	}
	if len(shrunk) != 2 || shrunk[1] != base[1] {
		t.Fatalf("UndoLast result wrong: %v", shrunk)
	}

	if len((Polygon{}).UndoLast()) != 0 {
		t.Fatal("UndoLast on empty polygon must stay empty")
	}
	if got := base.Clear(); len(got) != 0 {
		t.Fatalf("Clear() = %v, want empty polygon", got)
	}
	if len(base) != 2 {
		t.Fatalf("Clear mutated the receiver: %v", base)
	}
}
