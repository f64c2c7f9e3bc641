// SGI FREE SOFTWARE LICENSE B (Version 2.0, Sept. 18, 2008)
// Copyright (C) [dates of first publication] Silicon Graphics, Inc.
// All Rights Reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice including the dates of first publication and either this
// permission notice or a reference to http://oss.sgi.com/projects/FreeB/ shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED,
// INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A
// PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL SILICON GRAPHICS, INC.
// BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
// TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE
// OR OTHER DEALINGS IN THE SOFTWARE.
//
// Except as contained in this notice, the name of Silicon Graphics, Inc. shall not
// be used in advertising or otherwise to promote the sale, use or other dealings in
// this Software without prior written authorization from Silicon Graphics, Inc.

package qex

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

func assert(cond bool) {
	if !cond {
		panic("qex: assertion error")
	}
}

// Handle types. Handles are plain indices into the mesh arrays; they stay
// valid across deletions because deletion only flags an element, it never
// compacts the arrays.
type (
	VertexID   int
	HalfedgeID int
	EdgeID     int
	FaceID     int
)

const (
	InvalidVertex   VertexID   = -1
	InvalidHalfedge HalfedgeID = -1
	InvalidEdge     EdgeID     = -1
	InvalidFace     FaceID     = -1
)

// A TriMesh is a halfedge triangle mesh. The two halfedges of an edge are
// stored in adjacent slots, so opposite(h) == h^1 and edge(h) == h/2 hold
// by construction and never need fixing when the connectivity changes.
// Boundary halfedges carry no face; they are linked into boundary loops so
// next/prev are total functions, which is what lets one-ring circulation
// walk across holes without special cases.
type TriMesh struct {
	points []r3.Vector

	vertexHalfedge []HalfedgeID // outgoing; the boundary one if the vertex is on a boundary
	heTo           []VertexID
	heNext, hePrev []HalfedgeID
	heFace         []FaceID
	faceHalfedge   []HalfedgeID

	vertexDeleted []bool
	edgeDeleted   []bool
	faceDeleted   []bool

	edgeSelected []bool
	edgeFeature  []bool
}

// NewTriMesh builds the halfedge structure from an indexed triangle list.
// Triangles must be consistently wound; an edge shared by two faces in the
// same direction, or by more than two faces, is rejected as non-manifold.
func NewTriMesh(points []r3.Vector, faces [][3]int) (*TriMesh, error) {
	m := &TriMesh{
		points:         points,
		vertexHalfedge: make([]HalfedgeID, len(points)),
		faceHalfedge:   make([]HalfedgeID, len(faces)),
		vertexDeleted:  make([]bool, len(points)),
		faceDeleted:    make([]bool, len(faces)),
	}
	for i := range m.vertexHalfedge {
		m.vertexHalfedge[i] = InvalidHalfedge
	}

	type vpair struct{ a, b VertexID }
	edgeOf := make(map[vpair]EdgeID, len(faces)*3/2)

	halfedgeFromTo := func(f FaceID, from, to VertexID) (HalfedgeID, error) {
		key := vpair{from, to}
		if key.a > key.b {
			key.a, key.b = key.b, key.a
		}
		e, ok := edgeOf[key]
		if !ok {
			e = EdgeID(len(m.edgeDeleted))
			edgeOf[key] = e
			m.heTo = append(m.heTo, to, from)
			m.heNext = append(m.heNext, InvalidHalfedge, InvalidHalfedge)
			m.hePrev = append(m.hePrev, InvalidHalfedge, InvalidHalfedge)
			m.heFace = append(m.heFace, InvalidFace, InvalidFace)
			m.edgeDeleted = append(m.edgeDeleted, false)
			m.edgeSelected = append(m.edgeSelected, false)
			m.edgeFeature = append(m.edgeFeature, false)
			return m.Halfedge(e, 0), nil
		}
		h := m.Halfedge(e, 0)
		if m.heTo[h] != to {
			h = m.Halfedge(e, 1)
		}
		if m.heTo[h] != to {
			return InvalidHalfedge, errors.Errorf("qex: inconsistent edge %d-%d at face %d", from, to, f)
		}
		if m.heFace[h] != InvalidFace {
			return InvalidHalfedge, errors.Errorf("qex: non-manifold edge %d-%d at face %d", from, to, f)
		}
		return h, nil
	}

	for fi, tri := range faces {
		f := FaceID(fi)
		var hs [3]HalfedgeID
		for k := 0; k < 3; k++ {
			from, to := VertexID(tri[k]), VertexID(tri[(k+1)%3])
			if int(from) >= len(points) || int(to) >= len(points) || from < 0 || to < 0 {
				return nil, errors.Errorf("qex: face %d references vertex out of range", fi)
			}
			if from == to {
				return nil, errors.Errorf("qex: face %d has a repeated vertex", fi)
			}
			h, err := halfedgeFromTo(f, from, to)
			if err != nil {
				return nil, err
			}
			hs[k] = h
			m.heFace[h] = f
			if m.vertexHalfedge[from] == InvalidHalfedge {
				m.vertexHalfedge[from] = h
			}
		}
		for k := 0; k < 3; k++ {
			m.heNext[hs[k]] = hs[(k+1)%3]
			m.hePrev[hs[(k+1)%3]] = hs[k]
		}
		m.faceHalfedge[f] = hs[0]
	}

	// Link boundary loops. Each boundary vertex has exactly one outgoing
	// boundary halfedge on a manifold mesh; a second one means two holes
	// meet at the vertex, which the extraction tolerates but flags.
	outBoundary := make(map[VertexID]HalfedgeID)
	for h := HalfedgeID(0); int(h) < len(m.heTo); h++ {
		if m.heFace[h] != InvalidFace {
			continue
		}
		from := m.FromVertex(h)
		if _, dup := outBoundary[from]; dup {
			Logger().Warn("qex: non-manifold vertex adjacent to more than one boundary", "vertex", int(from))
		}
		outBoundary[from] = h
	}
	for h := HalfedgeID(0); int(h) < len(m.heTo); h++ {
		if m.heFace[h] != InvalidFace {
			continue
		}
		n, ok := outBoundary[m.heTo[h]]
		if !ok {
			return nil, errors.Errorf("qex: open boundary loop at halfedge %d", h)
		}
		m.heNext[h] = n
		m.hePrev[n] = h
	}

	// Vertices on a boundary get their boundary halfedge as the outgoing
	// one, so circulators start and end at the hole.
	for v, h := range outBoundary {
		m.vertexHalfedge[v] = h
	}
	return m, nil
}

// Element counts. These include deleted elements; handles index the full
// range and callers skip the deleted ones.
func (m *TriMesh) VertexCount() int   { return len(m.points) }
func (m *TriMesh) EdgeCount() int     { return len(m.edgeDeleted) }
func (m *TriMesh) HalfedgeCount() int { return len(m.heTo) }
func (m *TriMesh) FaceCount() int     { return len(m.faceHalfedge) }

func (m *TriMesh) VertexAlive(v VertexID) bool { return v >= 0 && !m.vertexDeleted[v] }
func (m *TriMesh) EdgeAlive(e EdgeID) bool     { return e >= 0 && !m.edgeDeleted[e] }
func (m *TriMesh) FaceAlive(f FaceID) bool     { return f >= 0 && !m.faceDeleted[f] }

func (m *TriMesh) Point(v VertexID) r3.Vector { return m.points[v] }

func (m *TriMesh) Opposite(h HalfedgeID) HalfedgeID { return h ^ 1 }
func (m *TriMesh) Edge(h HalfedgeID) EdgeID         { return EdgeID(h >> 1) }
func (m *TriMesh) Halfedge(e EdgeID, i int) HalfedgeID {
	return HalfedgeID(int(e)<<1 | i)
}

func (m *TriMesh) ToVertex(h HalfedgeID) VertexID   { return m.heTo[h] }
func (m *TriMesh) FromVertex(h HalfedgeID) VertexID { return m.heTo[h^1] }
func (m *TriMesh) Next(h HalfedgeID) HalfedgeID     { return m.heNext[h] }
func (m *TriMesh) Prev(h HalfedgeID) HalfedgeID     { return m.hePrev[h] }
func (m *TriMesh) Face(h HalfedgeID) FaceID         { return m.heFace[h] }

func (m *TriMesh) FaceHalfedge(f FaceID) HalfedgeID     { return m.faceHalfedge[f] }
func (m *TriMesh) VertexHalfedge(v VertexID) HalfedgeID { return m.vertexHalfedge[v] }

// FaceHalfedges returns the three halfedges of f in cycle order.
func (m *TriMesh) FaceHalfedges(f FaceID) [3]HalfedgeID {
	h0 := m.faceHalfedge[f]
	h1 := m.heNext[h0]
	return [3]HalfedgeID{h0, h1, m.heNext[h1]}
}

func (m *TriMesh) IsBoundaryHalfedge(h HalfedgeID) bool { return m.heFace[h] == InvalidFace }
func (m *TriMesh) IsBoundaryEdge(e EdgeID) bool {
	return m.IsBoundaryHalfedge(m.Halfedge(e, 0)) || m.IsBoundaryHalfedge(m.Halfedge(e, 1))
}

func (m *TriMesh) IsBoundaryVertex(v VertexID) bool {
	h := m.vertexHalfedge[v]
	return h == InvalidHalfedge || m.IsBoundaryHalfedge(h)
}

// SetEdgeSelected and SetEdgeFeature flag edges whose integer UVs the
// truncator may snap on the boundary.
func (m *TriMesh) SetEdgeSelected(e EdgeID, sel bool) { m.edgeSelected[e] = sel }
func (m *TriMesh) SetEdgeFeature(e EdgeID, ft bool)   { m.edgeFeature[e] = ft }

// Rotating an incoming halfedge around its to-vertex. With CCW faces,
// opposite(next(h)) is the clockwise neighbor and prev(opposite(h)) the
// counterclockwise one; the two are inverses of each other.
func (m *TriMesh) rotateInCW(h HalfedgeID) HalfedgeID  { return m.Opposite(m.heNext[h]) }
func (m *TriMesh) rotateInCCW(h HalfedgeID) HalfedgeID { return m.hePrev[h^1] }

// firstIncoming returns the incoming halfedge circulators start from:
// the opposite of the vertex's outgoing halfedge. For boundary vertices
// the outgoing halfedge is the boundary one, so the first incoming always
// has a face.
func (m *TriMesh) firstIncoming(v VertexID) HalfedgeID {
	h := m.vertexHalfedge[v]
	if h == InvalidHalfedge {
		return InvalidHalfedge
	}
	return m.Opposite(h)
}

// incomingHalfedges returns the incoming halfedges of v, clockwise if ccw
// is false, counterclockwise otherwise, starting at firstIncoming(v).
func (m *TriMesh) incomingHalfedges(v VertexID, ccw bool) []HalfedgeID {
	h0 := m.firstIncoming(v)
	if h0 == InvalidHalfedge {
		return nil
	}
	var out []HalfedgeID
	h := h0
	for {
		out = append(out, h)
		if ccw {
			h = m.rotateInCCW(h)
		} else {
			h = m.rotateInCW(h)
		}
		if h == h0 {
			return out
		}
	}
}

// adjustOutgoingHalfedge repoints the vertex at a boundary outgoing
// halfedge if one exists, restoring the circulator convention after a
// connectivity change.
func (m *TriMesh) adjustOutgoingHalfedge(v VertexID) {
	h0 := m.vertexHalfedge[v]
	if h0 == InvalidHalfedge {
		return
	}
	h := h0
	for {
		if m.IsBoundaryHalfedge(h) {
			m.vertexHalfedge[v] = h
			return
		}
		h = m.heNext[h^1] // rotate outgoing CW
		if h == h0 {
			return
		}
	}
}

// CollapseOK checks the standard link condition for collapsing h, i.e.
// moving from(h) into to(h). A collapse that fails this would produce a
// non-manifold configuration and is refused.
func (m *TriMesh) CollapseOK(h HalfedgeID) bool {
	o := m.Opposite(h)
	v0 := m.FromVertex(h)
	v1 := m.ToVertex(h)
	if m.vertexDeleted[v0] || m.vertexDeleted[v1] || m.edgeDeleted[m.Edge(h)] {
		return false
	}

	vl, vr := InvalidVertex, InvalidVertex
	if !m.IsBoundaryHalfedge(h) {
		h1 := m.heNext[h]
		h2 := m.heNext[h1]
		vl = m.heTo[h1]
		if m.IsBoundaryHalfedge(m.Opposite(h1)) && m.IsBoundaryHalfedge(m.Opposite(h2)) {
			return false
		}
	}
	if !m.IsBoundaryHalfedge(o) {
		o1 := m.heNext[o]
		o2 := m.heNext[o1]
		vr = m.heTo[o1]
		if m.IsBoundaryHalfedge(m.Opposite(o1)) && m.IsBoundaryHalfedge(m.Opposite(o2)) {
			return false
		}
	}
	if vl != InvalidVertex && vl == vr {
		return false
	}

	// An interior edge between two boundary vertices would pinch the
	// surface when collapsed.
	if m.IsBoundaryVertex(v0) && m.IsBoundaryVertex(v1) &&
		!m.IsBoundaryHalfedge(h) && !m.IsBoundaryHalfedge(o) {
		return false
	}

	// Link condition: the one-rings of v0 and v1 may share only vl and vr.
	ring1 := make(map[VertexID]bool)
	for _, ih := range m.incomingHalfedges(v1, false) {
		ring1[m.FromVertex(ih)] = true
	}
	for _, ih := range m.incomingHalfedges(v0, false) {
		vv := m.FromVertex(ih)
		if vv == v1 || vv == vl || vv == vr {
			continue
		}
		if ring1[vv] {
			return false
		}
	}
	return true
}

// Collapse removes from(h) by moving it into to(h). The triangles on
// either side of h degenerate into two-edge loops which are collapsed
// away, merging their remaining edge pairs. Each merge is reported as a
// (kept, replaced) halfedge pair so callers can migrate per-halfedge data
// such as the UV array. Callers must have checked CollapseOK.
func (m *TriMesh) Collapse(h HalfedgeID) (merged [][2]HalfedgeID) {
	o := m.Opposite(h)
	v0 := m.FromVertex(h)
	v1 := m.ToVertex(h)
	hn, hp := m.heNext[h], m.hePrev[h]
	on, op := m.heNext[o], m.hePrev[o]

	// Retarget every halfedge ending at v0.
	for _, ih := range m.incomingHalfedges(v0, false) {
		m.heTo[ih] = v1
	}

	// Splice h and o out of their loops.
	m.heNext[hp] = hn
	m.hePrev[hn] = hp
	m.heNext[op] = on
	m.hePrev[on] = op

	if m.vertexHalfedge[v1] == o {
		m.vertexHalfedge[v1] = hn
	}
	if f := m.heFace[h]; f != InvalidFace && m.faceHalfedge[f] == h {
		m.faceHalfedge[f] = hn
	}
	if f := m.heFace[o]; f != InvalidFace && m.faceHalfedge[f] == o {
		m.faceHalfedge[f] = on
	}

	m.vertexDeleted[v0] = true
	m.edgeDeleted[m.Edge(h)] = true

	// The incident triangles are now two-edge loops; remove them.
	if m.heNext[m.heNext[hn]] == hn {
		merged = append(merged, m.collapseLoop(m.heNext[hn]))
	}
	if m.heNext[m.heNext[on]] == on {
		merged = append(merged, m.collapseLoop(m.heNext[on]))
	}
	m.adjustOutgoingHalfedge(v1)
	return merged
}

// collapseLoop removes the two-edge loop through h0, deleting h0's edge
// and face and letting next(h0) take h0's opposite's place in the
// neighboring loop. This is the second half of an edge collapse. The
// returned pair is the surviving halfedge and the one whose role it took
// over.
func (m *TriMesh) collapseLoop(h0 HalfedgeID) [2]HalfedgeID {
	h1 := m.heNext[h0]
	assert(m.heNext[h1] == h0)
	o0 := m.Opposite(h0)
	o1 := m.Opposite(h1)
	v0 := m.heTo[h0]
	v1 := m.heTo[h1]

	m.heNext[h1] = m.heNext[o0]
	m.hePrev[m.heNext[o0]] = h1
	m.heNext[m.hePrev[o0]] = h1
	m.hePrev[h1] = m.hePrev[o0]

	fo := m.heFace[o0]
	m.heFace[h1] = fo
	if fo != InvalidFace && m.faceHalfedge[fo] == o0 {
		m.faceHalfedge[fo] = h1
	}

	m.vertexHalfedge[v0] = h1
	m.vertexHalfedge[v1] = o1

	if f := m.heFace[h0]; f != InvalidFace {
		m.faceDeleted[f] = true
	}
	m.edgeDeleted[m.Edge(h0)] = true

	m.adjustOutgoingHalfedge(v0)
	m.adjustOutgoingHalfedge(v1)
	return [2]HalfedgeID{h1, o0}
}

// checkMesh checks the halfedge structure for self-consistency, walking
// every face loop, every vertex ring and every edge pair. It is the
// debugging backstop the tests run on both the input and the output.
func (m *TriMesh) checkMesh() error {
	for h := HalfedgeID(0); int(h) < len(m.heTo); h++ {
		if m.edgeDeleted[m.Edge(h)] {
			continue
		}
		if m.Opposite(m.Opposite(h)) != h {
			return errors.Errorf("qex: opposite involution broken at halfedge %d", h)
		}
		if m.heNext[h] == InvalidHalfedge || m.hePrev[h] == InvalidHalfedge {
			return errors.Errorf("qex: unlinked halfedge %d", h)
		}
		if m.hePrev[m.heNext[h]] != h || m.heNext[m.hePrev[h]] != h {
			return errors.Errorf("qex: next/prev mismatch at halfedge %d", h)
		}
		if m.FromVertex(m.heNext[h]) != m.heTo[h] {
			return errors.Errorf("qex: next halfedge of %d starts at the wrong vertex", h)
		}
		if m.heFace[m.heNext[h]] != m.heFace[h] {
			return errors.Errorf("qex: face changes along loop at halfedge %d", h)
		}
	}
	for f := FaceID(0); int(f) < len(m.faceHalfedge); f++ {
		if m.faceDeleted[f] {
			continue
		}
		h := m.faceHalfedge[f]
		n := 0
		for {
			if m.heFace[h] != f {
				return errors.Errorf("qex: halfedge %d does not reference face %d", h, f)
			}
			h = m.heNext[h]
			n++
			if h == m.faceHalfedge[f] {
				break
			}
			if n > 3 {
				return errors.Errorf("qex: face %d loop is not a triangle", f)
			}
		}
		if n != 3 {
			return errors.Errorf("qex: face %d has %d sides", f, n)
		}
	}
	for v := VertexID(0); int(v) < len(m.points); v++ {
		if m.vertexDeleted[v] {
			continue
		}
		h := m.vertexHalfedge[v]
		if h == InvalidHalfedge {
			continue
		}
		for _, ih := range m.incomingHalfedges(v, false) {
			if m.heTo[ih] != v {
				return errors.Errorf("qex: ring of vertex %d contains halfedge %d into vertex %d", v, ih, m.heTo[ih])
			}
		}
	}
	return nil
}
