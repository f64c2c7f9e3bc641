package qex

import (
	"testing"
)

func TestTriMeshTopology(t *testing.T) {
	m, _ := gridMesh(t, 2, 2)

	if err := m.checkMesh(); err != nil {
		t.Fatalf("checkMesh: %v", err)
	}
	if got, want := m.VertexCount(), 9; got != want {
		t.Errorf("VertexCount = %d, want %d", got, want)
	}
	if got, want := m.FaceCount(), 8; got != want {
		t.Errorf("FaceCount = %d, want %d", got, want)
	}
	// 9 vertices, 8 faces, Euler: E = V + F - 1 for a disk.
	if got, want := m.EdgeCount(), 16; got != want {
		t.Errorf("EdgeCount = %d, want %d", got, want)
	}

	for h := HalfedgeID(0); int(h) < m.HalfedgeCount(); h++ {
		if m.Opposite(m.Opposite(h)) != h {
			t.Fatalf("opposite involution broken at %d", h)
		}
		if m.Next(m.Prev(h)) != h {
			t.Fatalf("next(prev) broken at %d", h)
		}
		if m.FromVertex(m.Next(h)) != m.ToVertex(h) {
			t.Fatalf("next starts at wrong vertex at %d", h)
		}
	}

	// Center vertex is interior with valence 6 (grid diagonal split),
	// corners are boundary.
	center := VertexID(4)
	if m.IsBoundaryVertex(center) {
		t.Error("center vertex misreported as boundary")
	}
	if got := len(m.incomingHalfedges(center, false)); got != 6 {
		t.Errorf("center valence = %d, want 6", got)
	}
	if !m.IsBoundaryVertex(0) {
		t.Error("corner vertex not reported as boundary")
	}
}

func TestTriMeshCirculationOrders(t *testing.T) {
	m, _ := gridMesh(t, 2, 2)
	center := VertexID(4)

	cw := m.incomingHalfedges(center, false)
	ccw := m.incomingHalfedges(center, true)
	if len(cw) != len(ccw) {
		t.Fatalf("circulation lengths differ: %d vs %d", len(cw), len(ccw))
	}
	// Both start at the same halfedge and run in opposite cyclic order.
	if cw[0] != ccw[0] {
		t.Fatalf("circulations start at different halfedges")
	}
	n := len(cw)
	for i := 1; i < n; i++ {
		if cw[i] != ccw[n-i] {
			t.Errorf("position %d: CW %d vs reversed CCW %d", i, cw[i], ccw[n-i])
		}
	}

	// Rotating CW and then CCW returns to the starting halfedge: the two
	// rotations are inverses of each other.
	for i := 0; i < n; i++ {
		h := cw[i]
		if m.rotateInCCW(m.rotateInCW(h)) != h {
			t.Errorf("rotation round trip broken at %d", h)
		}
	}
}

func TestCollapse(t *testing.T) {
	m, uv := needleSquareMesh(t)
	if err := m.checkMesh(); err != nil {
		t.Fatalf("checkMesh: %v", err)
	}

	e := edgeBetween(t, m, 1, 4)
	h := m.Halfedge(e, 0)
	if !m.CollapseOK(h) {
		h = m.Halfedge(e, 1)
	}
	if !m.CollapseOK(h) {
		t.Fatal("expected the needle edge to be collapsible")
	}

	removed := m.FromVertex(h)
	kept := m.ToVertex(h)
	merged := m.Collapse(h)
	for _, pair := range merged {
		setUVPoint(pair[0], uv, uvPoint(pair[1], uv))
	}

	if err := m.checkMesh(); err != nil {
		t.Fatalf("checkMesh after collapse: %v", err)
	}
	if m.VertexAlive(removed) {
		t.Errorf("vertex %d should be deleted", removed)
	}
	if !m.VertexAlive(kept) {
		t.Errorf("vertex %d should survive", kept)
	}

	faces := 0
	for f := FaceID(0); int(f) < m.FaceCount(); f++ {
		if m.FaceAlive(f) {
			faces++
		}
	}
	if faces != 2 {
		t.Errorf("face count after collapse = %d, want 2", faces)
	}
	edges := 0
	for e := EdgeID(0); int(e) < m.EdgeCount(); e++ {
		if m.EdgeAlive(e) {
			edges++
		}
	}
	if edges != 5 {
		t.Errorf("edge count after collapse = %d, want 5", edges)
	}
}

func TestDecimatorCollapsesNeedles(t *testing.T) {
	m, uv := needleSquareMesh(t)
	dec := newDecimator(m, uv)
	if !dec.decimate() {
		t.Fatal("decimator should report a change")
	}
	if dec.decimate() {
		t.Fatal("second decimation should be a no-op")
	}
	if err := m.checkMesh(); err != nil {
		t.Fatalf("checkMesh after decimation: %v", err)
	}

	// No parametrically degenerate edges remain and all surviving faces
	// have a proper UV triangle.
	for e := EdgeID(0); int(e) < m.EdgeCount(); e++ {
		if m.EdgeAlive(e) && dec.isParametricallyDegenerate(e) {
			t.Errorf("edge %d still degenerate", e)
		}
	}
	ext := newTestExtraction(m, uv)
	for f := FaceID(0); int(f) < m.FaceCount(); f++ {
		if m.FaceAlive(f) && ext.triangleUV(f).isDegenerate() {
			t.Errorf("face %d still UV-degenerate", f)
		}
	}
}
