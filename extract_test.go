package qex

import (
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
)

func countFaces(pm *PolyMesh) int { return pm.FaceCount() }

// assertUnitQuad checks that a face's per-corner integer UVs form a closed
// axis-aligned polygon with unit-length sides in the face's reference
// chart.
func assertUnitQuad(t *testing.T, pm *PolyMesh, f FaceID) {
	t.Helper()
	hs := pm.FaceHalfedges(f)
	du, dv := 0, 0
	for i, h := range hs {
		u0, v0 := pm.HalfedgeUV(hs[(i+len(hs)-1)%len(hs)])
		u1, v1 := pm.HalfedgeUV(h)
		su, sv := u1-u0, v1-v0
		if abs(su)+abs(sv) != 1 {
			t.Errorf("face %d: side %d has UV step (%d, %d), want a unit axis step", f, i, su, sv)
		}
		du += su
		dv += sv
	}
	if du != 0 || dv != 0 {
		t.Errorf("face %d: UV cycle does not close: (%d, %d)", f, du, dv)
	}
}

func TestExtractUnitSquare(t *testing.T) {
	m, uv := gridMesh(t, 1, 1)
	ex := NewExtractor(m)
	pm, err := ex.Extract(uv, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := pm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got := len(pm.Vertices()); got != 4 {
		t.Errorf("vertices = %d, want 4", got)
	}
	if got := countFaces(pm); got != 1 {
		t.Errorf("faces = %d, want 1", got)
	}
	hs := pm.FaceHalfedges(0)
	if len(hs) != 4 {
		t.Fatalf("face has %d corners, want 4", len(hs))
	}
	assertUnitQuad(t, pm, 0)

	// The corners carry the identity chart's coordinates.
	seen := map[[2]int]bool{}
	for _, h := range hs {
		u, v := pm.HalfedgeUV(h)
		seen[[2]int{u, v}] = true
	}
	for _, want := range [][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		if !seen[want] {
			t.Errorf("missing corner UV %v; got %v", want, seen)
		}
	}
}

func TestExtractGrid4x4(t *testing.T) {
	m, uv := gridMesh(t, 4, 4)
	ex := NewExtractor(m)
	pm, err := ex.Extract(uv, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := pm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got := len(pm.Vertices()); got != 25 {
		t.Errorf("vertices = %d, want 25", got)
	}
	if got := countFaces(pm); got != 16 {
		t.Errorf("faces = %d, want 16", got)
	}
	for _, f := range pm.Faces() {
		if got := len(pm.FaceHalfedges(f)); got != 4 {
			t.Errorf("face %d has %d corners, want 4", f, got)
		}
		assertUnitQuad(t, pm, f)
	}

	rep := ex.Report()
	if rep.GridVertices != 25 {
		t.Errorf("report grid vertices = %d, want 25", rep.GridVertices)
	}
	if rep.UndesiredHoles != 0 {
		t.Errorf("undesired holes = %d, want 0", rep.UndesiredHoles)
	}
	if rep.DesiredHoles != 1 {
		t.Errorf("desired holes = %d, want 1", rep.DesiredHoles)
	}

	// Interior vertices have valence 4.
	interior := 0
	for _, v := range pm.Vertices() {
		if !pm.Tagged(v) {
			interior++
			if got := pm.Valence(v); got != 4 {
				t.Errorf("interior vertex %d valence = %d, want 4", v, got)
			}
		}
	}
	if interior != 9 {
		t.Errorf("interior vertices = %d, want 9", interior)
	}
}

func TestExtractCoarseCell(t *testing.T) {
	// One mesh square spanning three parameter units: lattice points land
	// strictly inside faces, on edges and on vertices, and every stub has
	// to be traced across triangle interiors.
	points := []r3.Vector{
		{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 3}, {X: 0, Y: 3},
	}
	faces := [][3]int{{0, 1, 3}, {1, 2, 3}}
	m, err := NewTriMesh(points, faces)
	if err != nil {
		t.Fatalf("NewTriMesh: %v", err)
	}
	uv := identityUV(m)

	ex := NewExtractor(m)
	pm, err := ex.Extract(uv, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := pm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// 4 corners + 8 boundary-edge points + 2 on the diagonal + 2 face
	// interior points.
	if got := len(pm.Vertices()); got != 16 {
		t.Errorf("vertices = %d, want 16", got)
	}
	if got := countFaces(pm); got != 9 {
		t.Errorf("faces = %d, want 9", got)
	}
	for _, f := range pm.Faces() {
		if got := len(pm.FaceHalfedges(f)); got != 4 {
			t.Errorf("face %d has %d corners, want 4", f, got)
		}
		assertUnitQuad(t, pm, f)
	}

	// The lattice structure survives the lift: every output vertex sits
	// on integer coordinates in the plane, up to the float solve in the
	// face mapping.
	for _, v := range pm.Vertices() {
		p := pm.Point(v)
		if math.Abs(p.X-math.Round(p.X)) > 1e-9 ||
			math.Abs(p.Y-math.Round(p.Y)) > 1e-9 || math.Abs(p.Z) > 1e-9 {
			t.Errorf("vertex %d lifted off the lattice: %v", v, p)
		}
	}
}

func TestExtractTracesThroughTriangleStrip(t *testing.T) {
	// A 1x2 rectangle fanned around a non-lattice center vertex. The quad
	// edge from (0,1) to (1,1) starts on one boundary edge, runs exactly
	// through the center vertex and crosses two triangles before reaching
	// its partner, so the strip walk and its collinearity tie-breaks all
	// fire.
	points := []r3.Vector{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 2}, {X: 0, Y: 2}, {X: 0.5, Y: 1},
	}
	faces := [][3]int{{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}}
	m, err := NewTriMesh(points, faces)
	if err != nil {
		t.Fatalf("NewTriMesh: %v", err)
	}
	uv := identityUV(m)

	ex := NewExtractor(m)
	pm, err := ex.Extract(uv, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := pm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// Four corners plus the two side midpoints; the center vertex is not
	// on the lattice and emits nothing.
	if got := len(pm.Vertices()); got != 6 {
		t.Errorf("vertices = %d, want 6", got)
	}
	if got := countFaces(pm); got != 2 {
		t.Errorf("faces = %d, want 2", got)
	}
	for _, f := range pm.Faces() {
		if got := len(pm.FaceHalfedges(f)); got != 4 {
			t.Errorf("face %d has %d corners, want 4", f, got)
		}
		assertUnitQuad(t, pm, f)
	}
}

func TestExtractCylinderSeam(t *testing.T) {
	m, uv := cylinderMesh(t)
	ex := NewExtractor(m)
	pm, err := ex.Extract(uv, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := pm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// Quads stitch across the rotated seam without duplicating vertices.
	if got := len(pm.Vertices()); got != 8 {
		t.Errorf("vertices = %d, want 8", got)
	}
	if got := countFaces(pm); got != 4 {
		t.Errorf("faces = %d, want 4", got)
	}
	for _, f := range pm.Faces() {
		if got := len(pm.FaceHalfedges(f)); got != 4 {
			t.Errorf("face %d has %d corners, want 4", f, got)
		}
		assertUnitQuad(t, pm, f)
	}
	for _, v := range pm.Vertices() {
		if !pm.Tagged(v) {
			t.Errorf("ring vertex %d should carry the boundary tag", v)
		}
	}
	if rep := ex.Report(); rep.DesiredHoles != 2 {
		t.Errorf("desired holes = %d, want 2 (top and bottom rings)", rep.DesiredHoles)
	}
}

func TestExtractConePoint(t *testing.T) {
	m, uv := coneMesh(t)
	ex := NewExtractor(m)
	pm, err := ex.Extract(uv, &ExtractOptions{
		ExternalValences: []int{3, 2, 2, 2, 2, 2, 2},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := pm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got := len(pm.Vertices()); got != 7 {
		t.Errorf("vertices = %d, want 7", got)
	}
	if got := countFaces(pm); got != 3 {
		t.Errorf("faces = %d, want 3", got)
	}
	for _, f := range pm.Faces() {
		if got := len(pm.FaceHalfedges(f)); got != 4 {
			t.Errorf("face %d has %d corners, want 4", f, got)
		}
		assertUnitQuad(t, pm, f)
	}

	// Grid vertices are emitted in mesh-vertex order, so the cone point
	// is output vertex 0. A parametric valence of 3 means exactly three
	// incident quad edges.
	if got := pm.Valence(0); got != 3 {
		t.Errorf("cone point valence = %d, want 3", got)
	}
	if pm.Tagged(0) {
		t.Error("interior cone point should not carry the boundary tag")
	}
}

func TestExtractConePointHeuristicValence(t *testing.T) {
	// Without external valences the angle heuristic must reach the same
	// result on this clean input.
	m, uv := coneMesh(t)
	ex := NewExtractor(m)
	pm, err := ex.Extract(uv, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := countFaces(pm); got != 3 {
		t.Errorf("faces = %d, want 3", got)
	}
	if got := pm.Valence(0); got != 3 {
		t.Errorf("cone point valence = %d, want 3", got)
	}
}

func TestExtractBoundaryDiskSnapping(t *testing.T) {
	m, uv := gridMesh(t, 2, 2)
	// Boundary coordinates are nearly integer; with the boundary edges
	// selected they snap, and the extraction sees an exact disk.
	for e := EdgeID(0); int(e) < m.EdgeCount(); e++ {
		if m.IsBoundaryEdge(e) {
			m.SetEdgeSelected(e, true)
			for i := 0; i < 2; i++ {
				h := m.Halfedge(e, i)
				uv[2*h] += 3e-5
				uv[2*h+1] -= 2e-5
			}
		}
	}

	ex := NewExtractor(m)
	pm, err := ex.Extract(uv, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := pm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got := len(pm.Vertices()); got != 9 {
		t.Errorf("vertices = %d, want 9", got)
	}
	if got := countFaces(pm); got != 4 {
		t.Errorf("faces = %d, want 4", got)
	}

	// Every boundary grid vertex carries the tag; exactly one desired
	// hole (the outer boundary), none undesired.
	tagged := 0
	for _, v := range pm.Vertices() {
		if pm.Tagged(v) {
			tagged++
		}
	}
	if tagged != 8 {
		t.Errorf("tagged vertices = %d, want 8", tagged)
	}
	rep := ex.Report()
	if rep.DesiredHoles != 1 || rep.UndesiredHoles != 0 {
		t.Errorf("holes = (%d desired, %d undesired), want (1, 0)",
			rep.DesiredHoles, rep.UndesiredHoles)
	}
}

func TestExtractDegenerateTriangleDecimated(t *testing.T) {
	m, uv := needleSquareMesh(t)
	ex := NewExtractor(m)
	pm, err := ex.Extract(uv, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := pm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	rep := ex.Report()
	if !rep.Decimated {
		t.Error("expected the needle edge to be decimated")
	}
	if rep.GridVertices != 4 {
		t.Errorf("grid vertices = %d, want 4", rep.GridVertices)
	}
	if got := countFaces(pm); got != 1 {
		t.Errorf("faces = %d, want 1", got)
	}
	if got := len(pm.FaceHalfedges(0)); got != 4 {
		t.Errorf("face has %d corners, want 4", got)
	}
	assertUnitQuad(t, pm, 0)
}

func TestConnectionInvariants(t *testing.T) {
	m, uv := gridMesh(t, 4, 4)
	ext := newTestExtraction(m, uv)
	ext.consistentTruncation()
	embedding := func(h HalfedgeID) r3.Vector { return m.Point(m.ToVertex(h)) }
	ext.generateVertices(embedding)
	ext.generateConnections()
	ext.tryConnectIncompleteGVertices()

	connected := 0
	for i := range ext.gvertices {
		gv := &ext.gvertices[i]
		for j := range gv.localEdges {
			le := &gv.localEdges[j]
			if le.state != stubConnected {
				continue
			}
			connected++
			peer := &ext.gvertices[le.connectedTo]
			ple := peer.localEdge(le.orientIdx)
			if ple.state != stubConnected {
				t.Fatalf("stub (%d,%d): peer (%d,%d) not connected", i, j, le.connectedTo, le.orientIdx)
			}
			if ple.connectedTo != i || gv.stubIndex(ple.orientIdx) != j {
				t.Fatalf("stub (%d,%d): reciprocity broken, peer points to (%d,%d)",
					i, j, ple.connectedTo, ple.orientIdx)
			}
			// Identity charts: nothing accumulates.
			if le.accumulatedTF != tfIdentity {
				t.Errorf("stub (%d,%d): accumulated transition %+v on an identity grid", i, j, le.accumulatedTF)
			}
		}
	}
	// 2 * number of quad-mesh edges: 40 horizontal/vertical unit edges.
	if connected != 80 {
		t.Errorf("connected stub count = %d, want 80", connected)
	}

	// Interior vertices seed exactly four stubs in cyclic CCW order.
	for i := range ext.gvertices {
		gv := &ext.gvertices[i]
		if gv.isBoundary || gv.kind != gvOnVertex {
			continue
		}
		if len(gv.localEdges) != 4 {
			t.Fatalf("interior grid vertex %d has %d stubs, want 4", i, len(gv.localEdges))
		}
		for j := 0; j < 4; j++ {
			dir := gv.localEdges[j].uvIntendedTo.Sub(gv.localEdges[j].uvFrom)
			next := gv.localEdges[(j+1)%4].uvIntendedTo.Sub(gv.localEdges[(j+1)%4].uvFrom)
			if orient2dVec(dir, next) != oriPositive {
				t.Errorf("grid vertex %d: stubs %d -> %d not CCW", i, j, (j+1)%4)
			}
		}
	}
}

func TestExtractRejectsBadUVLength(t *testing.T) {
	m, _ := gridMesh(t, 1, 1)
	ex := NewExtractor(m)
	if _, err := ex.Extract(make([]float64, 3), nil); err == nil {
		t.Fatal("expected an error for a mis-sized uv array")
	}
	if _, err := ex.Extract(identityUV(m), &ExtractOptions{ExternalValences: []int{1}}); err == nil {
		t.Fatal("expected an error for mis-sized external valences")
	}
}

func TestParametrizationStats(t *testing.T) {
	m, uv := needleSquareMesh(t)
	ex := NewExtractor(m)
	stats, err := ex.ParametrizationStats(uv)
	if err != nil {
		t.Fatalf("ParametrizationStats: %v", err)
	}
	if want := "# positive: 2"; !strings.Contains(stats, want) {
		t.Errorf("stats missing %q:\n%s", want, stats)
	}
	if want := "# needles: 2"; !strings.Contains(stats, want) {
		t.Errorf("stats missing %q:\n%s", want, stats)
	}
}
