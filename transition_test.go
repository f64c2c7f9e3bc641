package qex

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

func TestTransitionAlgebra(t *testing.T) {
	tfs := []tf{
		{},
		{r: 1},
		{r: 2, tu: 3, tv: -4},
		{r: 3, tu: -7, tv: 2},
		{r: 0, tu: 5, tv: 5},
	}

	for i, a := range tfs {
		if got := a.compose(a.inverse()); got != tfIdentity {
			t.Errorf("#%d: compose(a, a^-1) = %+v, want identity", i, got)
		}
		if got := a.inverse().compose(a); got != tfIdentity {
			t.Errorf("#%d: compose(a^-1, a) = %+v, want identity", i, got)
		}
		p := r2.Point{X: 2, Y: -3}
		if got := a.inverse().transformPoint(a.transformPoint(p)); got != p {
			t.Errorf("#%d: inverse does not undo transformPoint: %v", i, got)
		}
		for j, b := range tfs {
			// Composition acts like sequential application.
			want := a.transformPoint(b.transformPoint(p))
			if got := a.compose(b).transformPoint(p); got != want {
				t.Errorf("#%d,%d: (a.compose(b))(p) = %v, want %v", i, j, got, want)
			}
		}
	}

	quarter := tf{r: 1}
	if got := quarter.transformPoint(r2.Point{X: 1, Y: 0}); got != (r2.Point{X: 0, Y: 1}) {
		t.Errorf("quarter turn of +u = %v, want +v", got)
	}
}

func TestExtractTransitionsRotatedChart(t *testing.T) {
	// A unit square split into two triangles; the second triangle's chart
	// is the first one's rotated a quarter turn and shifted by (2, 3).
	points := []r3.Vector{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	faces := [][3]int{{0, 1, 3}, {1, 2, 3}}
	m, err := NewTriMesh(points, faces)
	if err != nil {
		t.Fatalf("NewTriMesh: %v", err)
	}

	want := tf{r: 1, tu: 2, tv: 3}
	uv := make([]float64, 2*m.HalfedgeCount())
	setFaceUV(m, uv, 0, map[VertexID]r2.Point{
		0: {X: 0, Y: 0}, 1: {X: 1, Y: 0}, 3: {X: 0, Y: 1},
	})
	setFaceUV(m, uv, 1, map[VertexID]r2.Point{
		1: want.transformPoint(r2.Point{X: 1, Y: 0}),
		2: want.transformPoint(r2.Point{X: 1, Y: 1}),
		3: want.transformPoint(r2.Point{X: 0, Y: 1}),
	})

	tfs := extractTransitions(m, uv)
	e := edgeBetween(t, m, 1, 3)
	got := tfs[e]
	// The stored transition is oriented from halfedge 0's face to
	// halfedge 1's face.
	if m.Face(m.Halfedge(e, 0)) != 0 {
		got = got.inverse()
	}
	if got != want {
		t.Errorf("diagonal transition = %+v, want %+v", got, want)
	}

	for eid := EdgeID(0); int(eid) < m.EdgeCount(); eid++ {
		if m.IsBoundaryEdge(eid) && tfs[eid] != tfIdentity {
			t.Errorf("boundary edge %d carries non-identity transition %+v", eid, tfs[eid])
		}
	}

	// Round-trip: the transition maps the shared edge's endpoints from
	// one chart onto the other exactly.
	ext := newTestExtraction(m, uv)
	h := m.Halfedge(e, 0)
	cross := ext.transitionHalfedge(h)
	l0 := uvPoint(h, uv)
	r0 := uvPoint(m.Prev(m.Opposite(h)), uv)
	if cross.transformPoint(l0) != r0 {
		t.Errorf("transition does not map %v onto %v", l0, r0)
	}
}

func TestExtractTransitionsCylinderSeam(t *testing.T) {
	m, uv := cylinderMesh(t)
	ext := newTestExtraction(m, uv)

	// Seam between the rotated square and square 0: r=1, zero shift.
	seam := edgeBetween(t, m, 0, 4)
	h := m.Halfedge(seam, 0)
	if f := m.Face(h); f != 6 && f != 7 {
		h = m.Opposite(h)
	}
	if got, want := ext.transitionHalfedge(h), (tf{r: 1}); got != want {
		t.Errorf("seam transition = %+v, want %+v", got, want)
	}

	// Square 2 to square 3: r=3 with translation (0, 4).
	e23 := edgeBetween(t, m, 3, 7)
	h = m.Halfedge(e23, 0)
	if f := m.Face(h); f != 4 && f != 5 {
		h = m.Opposite(h)
	}
	if got, want := ext.transitionHalfedge(h), (tf{r: 3, tu: 0, tv: 4}); got != want {
		t.Errorf("square 2|3 transition = %+v, want %+v", got, want)
	}

	// All other interior edges share one chart.
	for eid := EdgeID(0); int(eid) < m.EdgeCount(); eid++ {
		if eid == seam || eid == e23 || m.IsBoundaryEdge(eid) {
			continue
		}
		if ext.tfs[eid] != tfIdentity {
			t.Errorf("edge %d: transition %+v, want identity", eid, ext.tfs[eid])
		}
	}
}

func TestVertexTransitionConePoint(t *testing.T) {
	m, uv := coneMesh(t)
	ext := newTestExtraction(m, uv)

	vt := ext.vertexTransition(0)
	if vt.isIdentity() {
		t.Fatal("cone center ring transition should not be identity")
	}
	if vt.r != 1 && vt.r != 3 {
		t.Errorf("cone center rotation = %d, want a quarter turn", vt.r)
	}
	if vt.tu != 0 || vt.tv != 0 {
		t.Errorf("cone center translation = (%d, %d), want zero", vt.tu, vt.tv)
	}

	// Every regular interior vertex composes to the identity.
	gm, guv := gridMesh(t, 2, 2)
	gext := newTestExtraction(gm, guv)
	for v := VertexID(0); int(v) < gm.VertexCount(); v++ {
		if !gm.IsBoundaryVertex(v) {
			if got := gext.vertexTransition(v); !got.isIdentity() {
				t.Errorf("grid vertex %d ring transition = %+v, want identity", v, got)
			}
		}
	}
}
