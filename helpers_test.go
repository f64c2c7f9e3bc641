package qex

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// gridMesh triangulates an nx by ny planar grid of unit cells whose UVs
// equal positions, so every transition is the identity.
func gridMesh(t *testing.T, nx, ny int) (*TriMesh, []float64) {
	t.Helper()
	n := nx + 1
	var points []r3.Vector
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			points = append(points, r3.Vector{X: float64(i), Y: float64(j)})
		}
	}
	var faces [][3]int
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v00 := j*n + i
			v10 := v00 + 1
			v01 := v00 + n
			v11 := v01 + 1
			faces = append(faces, [3]int{v00, v10, v11}, [3]int{v00, v11, v01})
		}
	}
	m, err := NewTriMesh(points, faces)
	if err != nil {
		t.Fatalf("NewTriMesh: %v", err)
	}
	return m, identityUV(m)
}

// identityUV assigns every halfedge the position of its target vertex.
func identityUV(m *TriMesh) []float64 {
	uv := make([]float64, 2*m.HalfedgeCount())
	for h := HalfedgeID(0); int(h) < m.HalfedgeCount(); h++ {
		p := m.Point(m.ToVertex(h))
		uv[2*h] = p.X
		uv[2*h+1] = p.Y
	}
	return uv
}

// setFaceUV writes per-corner chart coordinates for one face.
func setFaceUV(m *TriMesh, uv []float64, f FaceID, corners map[VertexID]r2.Point) {
	for _, h := range m.FaceHalfedges(f) {
		p, ok := corners[m.ToVertex(h)]
		if !ok {
			panic("setFaceUV: face corner not covered")
		}
		uv[2*h] = p.X
		uv[2*h+1] = p.Y
	}
}

// edgeBetween finds the edge connecting two vertices.
func edgeBetween(t *testing.T, m *TriMesh, a, b VertexID) EdgeID {
	t.Helper()
	for e := EdgeID(0); int(e) < m.EdgeCount(); e++ {
		if !m.EdgeAlive(e) {
			continue
		}
		h := m.Halfedge(e, 0)
		if (m.FromVertex(h) == a && m.ToVertex(h) == b) ||
			(m.FromVertex(h) == b && m.ToVertex(h) == a) {
			return e
		}
	}
	t.Fatalf("no edge between %d and %d", a, b)
	return InvalidEdge
}

// cylinderMesh builds a closed ring of four unit squares, one square high.
// Squares 0..2 share one aligned chart; the fourth is rotated a quarter
// turn, so the seam transition between squares 3 and 0 is r=1 with zero
// translation and the transition between squares 2 and 3 is r=3.
//
// Vertices 0..3 are the bottom ring, 4..7 the top ring.
func cylinderMesh(t *testing.T) (*TriMesh, []float64) {
	t.Helper()
	var points []r3.Vector
	for k := 0; k < 4; k++ {
		a := float64(k) * math.Pi / 2
		points = append(points, r3.Vector{X: math.Cos(a), Y: math.Sin(a)})
	}
	for k := 0; k < 4; k++ {
		a := float64(k) * math.Pi / 2
		points = append(points, r3.Vector{X: math.Cos(a), Y: math.Sin(a), Z: 1})
	}

	var faces [][3]int
	for k := 0; k < 4; k++ {
		b0 := k
		b1 := (k + 1) % 4
		t1 := 4 + (k+1)%4
		t0 := 4 + k
		faces = append(faces, [3]int{b0, b1, t1}, [3]int{b0, t1, t0})
	}
	m, err := NewTriMesh(points, faces)
	if err != nil {
		t.Fatalf("NewTriMesh: %v", err)
	}

	uv := make([]float64, 2*m.HalfedgeCount())
	for k := 0; k < 3; k++ {
		corners := map[VertexID]r2.Point{
			VertexID(k):           {X: float64(k), Y: 0},
			VertexID((k + 1) % 4): {X: float64(k + 1), Y: 0},
			VertexID(4 + (k+1)%4): {X: float64(k + 1), Y: 1},
			VertexID(4 + k):       {X: float64(k), Y: 1},
		}
		setFaceUV(m, uv, FaceID(2*k), corners)
		setFaceUV(m, uv, FaceID(2*k+1), corners)
	}
	// The seam square carries the rotated chart.
	corners := map[VertexID]r2.Point{
		3: {X: 0, Y: 1},
		0: {X: 0, Y: 0},
		4: {X: 1, Y: 0},
		7: {X: 1, Y: 1},
	}
	setFaceUV(m, uv, 6, corners)
	setFaceUV(m, uv, 7, corners)
	return m, uv
}

// coneMesh builds an open disk of three unit squares around a center
// vertex, each square in its own chart rotated by a quarter turn against
// its neighbor. The center is a cone point of parametric valence 3.
//
// Vertex 0 is the center; vertices 1+2k and 2+2k are the two outer
// corners of square k.
func coneMesh(t *testing.T) (*TriMesh, []float64) {
	t.Helper()
	points := []r3.Vector{{}}
	for k := 0; k < 3; k++ {
		a0 := float64(k) * 2 * math.Pi / 3
		a1 := a0 + math.Pi/3
		points = append(points,
			r3.Vector{X: math.Cos(a0), Y: math.Sin(a0)},
			r3.Vector{X: math.Cos(a1), Y: math.Sin(a1)})
	}

	pk := func(k int) int { return 1 + 2*(k%3) }
	qk := func(k int) int { return 2 + 2*(k%3) }

	var faces [][3]int
	for k := 0; k < 3; k++ {
		faces = append(faces,
			[3]int{0, pk(k), qk(k)},
			[3]int{0, qk(k), pk(k + 1)})
	}
	m, err := NewTriMesh(points, faces)
	if err != nil {
		t.Fatalf("NewTriMesh: %v", err)
	}

	uv := make([]float64, 2*m.HalfedgeCount())
	for k := 0; k < 3; k++ {
		setFaceUV(m, uv, FaceID(2*k), map[VertexID]r2.Point{
			0:               {X: 0, Y: 0},
			VertexID(pk(k)): {X: 1, Y: 0},
			VertexID(qk(k)): {X: 1, Y: 1},
		})
		setFaceUV(m, uv, FaceID(2*k+1), map[VertexID]r2.Point{
			0:                   {X: 0, Y: 0},
			VertexID(qk(k)):     {X: 1, Y: 1},
			VertexID(pk(k + 1)): {X: 0, Y: 1},
		})
	}
	return m, uv
}

// needleSquareMesh is a unit square with an extra vertex (4) placed at the
// midpoint of the diagonal but parameterized onto the corner (1,0), so
// the two triangles touching edge 1-4 are UV needles and the edge itself
// parameterizes to a point.
func needleSquareMesh(t *testing.T) (*TriMesh, []float64) {
	t.Helper()
	points := []r3.Vector{
		{X: 0, Y: 0},
		{X: 1, Y: 0},
		{X: 1, Y: 1},
		{X: 0, Y: 1},
		{X: 0.5, Y: 0.5},
	}
	faces := [][3]int{
		{0, 1, 4},
		{1, 2, 4},
		{4, 2, 3},
		{0, 4, 3},
	}
	m, err := NewTriMesh(points, faces)
	if err != nil {
		t.Fatalf("NewTriMesh: %v", err)
	}

	chart := map[VertexID]r2.Point{
		0: {X: 0, Y: 0},
		1: {X: 1, Y: 0},
		2: {X: 1, Y: 1},
		3: {X: 0, Y: 1},
		4: {X: 1, Y: 0},
	}
	uv := make([]float64, 2*m.HalfedgeCount())
	for f := FaceID(0); int(f) < m.FaceCount(); f++ {
		setFaceUV(m, uv, f, chart)
	}
	return m, uv
}

func newTestExtraction(m *TriMesh, uv []float64) *extraction {
	ext := &extraction{m: m, uv: append([]float64(nil), uv...)}
	ext.tfs = extractTransitions(m, ext.uv)
	return ext
}
