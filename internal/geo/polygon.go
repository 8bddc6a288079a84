package geo

// Coordinate is a WGS84 point. Out-of-range values are accepted; containment
// over such polygons is undefined rather than an error.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is an ordered vertex sequence. Edges run between consecutive
// vertices, closing from the last back to the first. Fewer than 3 vertices is
// an editing state, never a usable area.
type Polygon []Coordinate

// MinVertices is the smallest vertex count a coverage area may be persisted
// or queried with.
const MinVertices = 3

// Complete reports whether p has enough vertices to form an area.
func (p Polygon) Complete() bool {
	return len(p) >= MinVertices
}

// Contains reports whether pt lies inside p using the even-odd rule over a
// ray cast in +lng direction. Incomplete polygons contain nothing. Points
// exactly on an edge may land on either side; callers must not rely on edge
// behavior.
func (p Polygon) Contains(pt Coordinate) bool {
	if !p.Complete() {
		return false
	}

	inside := false
	j := len(p) - 1
	for i := 0; i < len(p); i++ {
		vi, vj := p[i], p[j]
		if (vi.Lat > pt.Lat) != (vj.Lat > pt.Lat) {
			crossLng := (vj.Lng-vi.Lng)*(pt.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if pt.Lng < crossLng {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Centroid returns the arithmetic mean of the vertices. This is deliberately
// not the area-weighted centroid: it anchors a map marker, it does not
// measure the area. The empty polygon maps to (0,0), which callers must treat
// as "no anchor", never as a real location.
func (p Polygon) Centroid() Coordinate {
	if len(p) == 0 {
		return Coordinate{}
	}
	var sumLat, sumLng float64
	for _, v := range p {
		sumLat += v.Lat
		sumLng += v.Lng
	}
	n := float64(len(p))
	return Coordinate{Lat: sumLat / n, Lng: sumLng / n}
}

// Append returns a new polygon with pt added as the last vertex. The receiver
// is never mutated; a guide drawing an area works on successive values.
func (p Polygon) Append(pt Coordinate) Polygon {
	out := make(Polygon, len(p), len(p)+1)
	copy(out, p)
	return append(out, pt)
}

// UndoLast returns a new polygon without the most recently added vertex.
// Undoing an empty polygon is a no-op.
func (p Polygon) UndoLast() Polygon {
	if len(p) == 0 {
		return Polygon{}
	}
	out := make(Polygon, len(p)-1)
	copy(out, p[:len(p)-1])
	return out
}

// Clear returns the empty polygon.
func (p Polygon) Clear() Polygon {
	return Polygon{}
}
