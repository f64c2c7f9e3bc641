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

// maxFaceCycle caps the face walk; honest extraction faces are quads, so
// anything approaching this is a broken connection graph.
const maxFaceCycle = 100

// A PolyMesh is the extracted polygon mesh: a halfedge structure whose
// vertices correspond 1:1 to the grid vertex array (a VertexID is a grid
// vertex index), whose faces are unit cells of the parametrization, and
// whose halfedges carry the integer UV of their target corner in the
// face's chart.
type PolyMesh struct {
	points         []r3.Vector
	vertexHalfedge []HalfedgeID
	valence        []int
	tagged         []bool
	vertexDeleted  []bool

	heTo           []VertexID
	heNext, hePrev []HalfedgeID
	heFace         []FaceID
	heUV           [][2]int

	faceHalfedge []HalfedgeID
}

// AddVertex appends a vertex and returns its handle.
func (pm *PolyMesh) AddVertex(p r3.Vector) VertexID {
	pm.points = append(pm.points, p)
	pm.vertexHalfedge = append(pm.vertexHalfedge, InvalidHalfedge)
	pm.valence = append(pm.valence, 0)
	pm.tagged = append(pm.tagged, false)
	pm.vertexDeleted = append(pm.vertexDeleted, false)
	return VertexID(len(pm.points) - 1)
}

// newEdge allocates a halfedge pair from one vertex to another and returns
// the forward halfedge. Linkage into the loops is the caller's business.
func (pm *PolyMesh) newEdge(from, to VertexID) HalfedgeID {
	pm.heTo = append(pm.heTo, to, from)
	pm.heNext = append(pm.heNext, InvalidHalfedge, InvalidHalfedge)
	pm.hePrev = append(pm.hePrev, InvalidHalfedge, InvalidHalfedge)
	pm.heFace = append(pm.heFace, InvalidFace, InvalidFace)
	pm.heUV = append(pm.heUV, [2]int{}, [2]int{})
	pm.valence[from]++
	pm.valence[to]++
	return HalfedgeID(len(pm.heTo) - 2)
}

func (pm *PolyMesh) newFace() FaceID {
	pm.faceHalfedge = append(pm.faceHalfedge, InvalidHalfedge)
	return FaceID(len(pm.faceHalfedge) - 1)
}

func (pm *PolyMesh) setNext(a, b HalfedgeID) {
	pm.heNext[a] = b
	pm.hePrev[b] = a
}

func (pm *PolyMesh) Opposite(h HalfedgeID) HalfedgeID { return h ^ 1 }
func (pm *PolyMesh) ToVertex(h HalfedgeID) VertexID   { return pm.heTo[h] }
func (pm *PolyMesh) FromVertex(h HalfedgeID) VertexID { return pm.heTo[h^1] }
func (pm *PolyMesh) Next(h HalfedgeID) HalfedgeID     { return pm.heNext[h] }
func (pm *PolyMesh) Prev(h HalfedgeID) HalfedgeID     { return pm.hePrev[h] }
func (pm *PolyMesh) Face(h HalfedgeID) FaceID         { return pm.heFace[h] }

func (pm *PolyMesh) IsBoundaryHalfedge(h HalfedgeID) bool { return pm.heFace[h] == InvalidFace }

func (pm *PolyMesh) Point(v VertexID) r3.Vector { return pm.points[v] }

// Tagged reports whether the vertex lies on a parametric boundary.
func (pm *PolyMesh) Tagged(v VertexID) bool { return pm.tagged[v] }

// Valence is the number of edges incident to v.
func (pm *PolyMesh) Valence(v VertexID) int { return pm.valence[v] }

func (pm *PolyMesh) VertexAlive(v VertexID) bool { return v >= 0 && !pm.vertexDeleted[v] }

func (pm *PolyMesh) VertexCount() int   { return len(pm.points) }
func (pm *PolyMesh) HalfedgeCount() int { return len(pm.heTo) }
func (pm *PolyMesh) FaceCount() int     { return len(pm.faceHalfedge) }

// Vertices returns the handles of all live vertices.
func (pm *PolyMesh) Vertices() []VertexID {
	var out []VertexID
	for v := VertexID(0); int(v) < len(pm.points); v++ {
		if !pm.vertexDeleted[v] {
			out = append(out, v)
		}
	}
	return out
}

// Faces returns all face handles.
func (pm *PolyMesh) Faces() []FaceID {
	out := make([]FaceID, len(pm.faceHalfedge))
	for i := range out {
		out[i] = FaceID(i)
	}
	return out
}

// FaceHalfedges returns the halfedge cycle of f.
func (pm *PolyMesh) FaceHalfedges(f FaceID) []HalfedgeID {
	var out []HalfedgeID
	h0 := pm.faceHalfedge[f]
	h := h0
	for {
		out = append(out, h)
		h = pm.heNext[h]
		if h == h0 || h == InvalidHalfedge || len(out) > maxFaceCycle {
			return out
		}
	}
}

// FaceVertices returns the corners of f, starting at the source of its
// first halfedge.
func (pm *PolyMesh) FaceVertices(f FaceID) []VertexID {
	hs := pm.FaceHalfedges(f)
	out := make([]VertexID, len(hs))
	for i, h := range hs {
		out[i] = pm.FromVertex(h)
	}
	return out
}

// HalfedgeUV returns the integer UV of the corner the halfedge points at,
// in the chart of the halfedge's face.
func (pm *PolyMesh) HalfedgeUV(h HalfedgeID) (int, int) {
	return pm.heUV[h][0], pm.heUV[h][1]
}

// Validate checks the halfedge graph for two-sided edges and closed face
// loops, the properties downstream cleanup passes are entitled to.
func (pm *PolyMesh) Validate() error {
	for h := HalfedgeID(0); int(h) < len(pm.heTo); h++ {
		if pm.Opposite(pm.Opposite(h)) != h {
			return errors.Errorf("qex: opposite involution broken at output halfedge %d", h)
		}
		if pm.heNext[h] != InvalidHalfedge {
			if pm.hePrev[pm.heNext[h]] != h {
				return errors.Errorf("qex: next/prev mismatch at output halfedge %d", h)
			}
			if pm.FromVertex(pm.heNext[h]) != pm.heTo[h] {
				return errors.Errorf("qex: next halfedge of %d starts at the wrong vertex", h)
			}
		}
	}
	for f := FaceID(0); int(f) < len(pm.faceHalfedge); f++ {
		hs := pm.FaceHalfedges(f)
		if len(hs) > maxFaceCycle {
			return errors.Errorf("qex: face %d loop does not close", f)
		}
		for _, h := range hs {
			if pm.heFace[h] != f {
				return errors.Errorf("qex: halfedge %d does not reference face %d", h, f)
			}
		}
	}
	return nil
}

// A stubRef names one local edge by grid vertex index and stub position.
// Face traversal works in these rather than pointers because pointers into
// stub slices do not survive the repair pass's insertions.
type stubRef struct {
	gv  int
	idx int
}

func (e *extraction) stub(r stubRef) *localEdge {
	return &e.gvertices[r.gv].localEdges[r.idx]
}

// peerOf returns the reference to the stub on the other end of a connected
// stub.
func (e *extraction) peerOf(le *localEdge) stubRef {
	return stubRef{gv: le.connectedTo, idx: e.gvertices[le.connectedTo].stubIndex(le.orientIdx)}
}

// nextConnectedStubWithHalfedge searches from the stub after (gvIdx,
// orientIdx) in the given rotation direction for a connected stub whose
// output halfedge is already built. Returns nil after a full cycle.
func (e *extraction) nextConnectedStubWithHalfedge(gvIdx, orientIdx, direction int) *localEdge {
	gv := &e.gvertices[gvIdx]
	n := len(gv.localEdges)
	for i := 1; i < n; i++ {
		le := gv.localEdge(orientIdx + direction*i)
		if le.isConnected() && le.halfedge != InvalidHalfedge {
			return le
		}
	}
	return nil
}

// generateFaces walks the connection graph and materializes the output
// mesh: one vertex per grid vertex, then every closed stub cycle of at
// least three vertices that was not consumed yet becomes a face, unless it
// winds against its reference chart (a hole, see buildFace) or attaching
// it would pinch an edge that already carries a face on that side.
func (e *extraction) generateFaces() *PolyMesh {
	pm := &PolyMesh{}

	for i := range e.gvertices {
		vh := pm.AddVertex(e.gvertices[i].position)
		pm.tagged[vh] = e.gvertices[i].isBoundary
	}

	for i := range e.gvertices {
		for j := 0; j < len(e.gvertices[i].localEdges); j++ {
			if e.gvertices[i].localEdges[j].faceConstructed {
				continue
			}

			var faceVhs []VertexID
			var outgoing []stubRef

			curGV := i
			curOrient := j

			for k := 0; k < maxFaceCycle; k++ {
				if curGV < 0 {
					break // walk ran into an unconnected stub
				}
				if curGV == i && len(faceVhs) > 0 {
					if len(faceVhs) > 2 {
						e.buildFace(pm, outgoing)
					}
					break
				}

				gv := &e.gvertices[curGV]
				pos := gv.stubIndex(curOrient)
				le := &gv.localEdges[pos]
				if le.faceConstructed {
					// Happens on incomplete boundaries and degeneracies.
					break
				}

				newVh := VertexID(curGV)
				if e.discardDoubles && containsVertex(faceVhs, newVh) {
					Logger().Warn("qex: face with a doubled vertex discarded", "vertex", curGV)
					break
				}
				faceVhs = append(faceVhs, newVh)
				le.faceConstructed = true
				outgoing = append(outgoing, stubRef{gv: curGV, idx: pos})

				curGV = le.connectedTo
				curOrient = le.orientIdx - 1
			}
		}
	}

	return pm
}

func containsVertex(vs []VertexID, v VertexID) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// buildFace adds one face for the walked stub cycle and transfers the
// per-corner integer UVs onto its halfedges.
//
// The corner UVs are computed first: they also decide whether the cycle is
// a face at all. A closed stub cycle along a boundary loop circumnavigates
// the hole and winds against its reference chart, while a real unit cell
// winds with it; capping holes with polygons would destroy the boundary
// the caller is promised.
func (e *extraction) buildFace(pm *PolyMesh, outgoing []stubRef) {
	// Accumulate the face transition stub by stub; each corner UV is its
	// stub's endpoint pulled back into the face's reference chart (the
	// chart of the first stub).
	uvs := make([][2]int, 0, len(outgoing))
	accFaceTF := tfIdentity
	havePrev := false
	var prevRef stubRef
	for _, ref := range outgoing {
		le := e.stub(ref)

		intraVertexTF := tfIdentity
		if havePrev {
			prevLE := e.stub(prevRef)
			prevOppRef := e.peerOf(prevLE)
			prevOpp := e.stub(prevOppRef)
			pivotGV := &e.gvertices[prevLE.connectedTo]
			enforce := prevOppRef != ref
			intraVertexTF = e.intraGVTransition(prevOpp.fhFrom, le.fhFrom, pivotGV, enforce).
				compose(e.intraGVTransition(prevOpp.fhFrom, e.m.Face(pivotGV.heh), pivotGV, true).inverse())
		}
		accFaceTF = intraVertexTF.compose(accFaceTF)

		uvp := accFaceTF.inverse().transformPoint(le.uvTo)
		uvs = append(uvs, [2]int{roundToNearest(uvp.X), roundToNearest(uvp.Y)})

		accFaceTF = le.accumulatedTF.compose(accFaceTF)
		prevRef = ref
		havePrev = true
	}

	winding := polygonWinding(uvs)
	chartOri := e.faceUVOrientation(e.stub(outgoing[0]).fhFrom)
	if winding == 0 || winding != int(chartOri) {
		Logger().Debug("qex: stub cycle winds against its chart, leaving it open",
			"corners", len(outgoing), "winding", winding)
		return
	}

	fh := e.addFace(pm, outgoing)
	if fh == InvalidFace {
		Logger().Warn("qex: skipping face to keep the output manifold; this may leave a hole")
		return
	}
	for i, ref := range outgoing {
		pm.heUV[e.stub(ref).halfedge] = uvs[i]
	}
}

// polygonWinding is the sign of the shoelace sum of an integer polygon.
func polygonWinding(uvs [][2]int) int {
	area := 0
	for i, p := range uvs {
		q := uvs[(i+1)%len(uvs)]
		area += p[0]*q[1] - q[0]*p[1]
	}
	switch {
	case area > 0:
		return 1
	case area < 0:
		return -1
	}
	return 0
}

// addFace realizes the walked cycle as a polygon face, creating halfedges
// for stubs that have none yet and stitching their opposites into the
// boundary fans at both endpoints. If any required halfedge already
// carries a face, the result would be non-manifold and no face is added.
func (e *extraction) addFace(pm *PolyMesh, leis []stubRef) FaceID {
	assert(len(leis) > 0)

	for _, ref := range leis {
		le := e.stub(ref)
		if le.halfedge != InvalidHalfedge && pm.heFace[le.halfedge] != InvalidFace {
			return InvalidFace
		}
		if le.halfedge == InvalidHalfedge {
			opp := e.stub(e.peerOf(le))
			oppNext := e.nextConnectedStubWithHalfedge(opp.connectedTo, opp.orientIdx, -1)
			oppOppPrev := e.nextConnectedStubWithHalfedge(le.connectedTo, le.orientIdx, 1)
			var oppPrev *localEdge
			if oppOppPrev != nil {
				oppPrev = e.stub(e.peerOf(oppOppPrev))
			}
			if oppNext != nil && oppNext.halfedge != InvalidHalfedge &&
				pm.heFace[oppNext.halfedge] != InvalidFace {
				return InvalidFace
			}
			if oppPrev != nil && oppPrev.halfedge != InvalidHalfedge &&
				pm.heFace[oppPrev.halfedge] != InvalidFace {
				return InvalidFace
			}
		}
	}

	newFh := pm.newFace()

	for idx, ref := range leis {
		le := e.stub(ref)
		var heh0 HalfedgeID
		if le.halfedge == InvalidHalfedge {
			oppRef := e.peerOf(le)
			opp := e.stub(oppRef)
			assert(opp.halfedge == InvalidHalfedge)

			fromVh := VertexID(opp.connectedTo)
			toVh := VertexID(le.connectedTo)
			heh0 = pm.newEdge(fromVh, toVh)
			heh1 := pm.Opposite(heh0)

			if pm.vertexHalfedge[fromVh] == InvalidHalfedge {
				pm.vertexHalfedge[fromVh] = heh0
			}
			if pm.vertexHalfedge[toVh] == InvalidHalfedge {
				pm.vertexHalfedge[toVh] = heh1
			}

			le.halfedge = heh0
			opp.halfedge = heh1

			// Stitch the opposite halfedge to its angular neighbors where
			// they exist already.
			oppNext := e.nextConnectedStubWithHalfedge(opp.connectedTo, opp.orientIdx, -1)
			oppOppPrev := e.nextConnectedStubWithHalfedge(le.connectedTo, le.orientIdx, 1)
			var oppPrev *localEdge
			if oppOppPrev != nil {
				oppPrev = e.stub(e.peerOf(oppOppPrev))
			}
			if oppNext != nil {
				assert(pm.heFace[oppNext.halfedge] == InvalidFace)
				pm.setNext(heh1, oppNext.halfedge)
			}
			if oppPrev != nil {
				assert(pm.heFace[oppPrev.halfedge] == InvalidFace)
				pm.setNext(oppPrev.halfedge, heh1)
			}
		} else {
			heh0 = le.halfedge
		}

		if idx == 0 {
			pm.faceHalfedge[newFh] = heh0
		}
		pm.heFace[heh0] = newFh
	}

	pm.setNext(e.stub(leis[len(leis)-1]).halfedge, e.stub(leis[0]).halfedge)
	for i := 1; i < len(leis); i++ {
		pm.setNext(e.stub(leis[i-1]).halfedge, e.stub(leis[i]).halfedge)
	}

	for _, ref := range leis {
		pm.adjustOutgoingHalfedge(VertexID(e.stub(ref).connectedTo))
	}
	return newFh
}

// adjustOutgoingHalfedge repoints the vertex at a boundary outgoing
// halfedge if it has one, so boundary loop walks can start from any
// boundary vertex.
func (pm *PolyMesh) adjustOutgoingHalfedge(v VertexID) {
	h0 := pm.vertexHalfedge[v]
	if h0 == InvalidHalfedge {
		return
	}
	h := h0
	for i := 0; i < pm.HalfedgeCount(); i++ {
		if pm.IsBoundaryHalfedge(h) {
			pm.vertexHalfedge[v] = h
			return
		}
		next := pm.heNext[h^1]
		if next == InvalidHalfedge || next == h0 {
			return
		}
		h = next
	}
}

// boundaryCensus walks every boundary loop of the output, counts the holes
// the input promised (loops touching a parametric-boundary vertex) against
// the ones it did not, spreads the boundary tag along desired loops, and
// drops isolated vertices.
func (e *extraction) boundaryCensus(pm *PolyMesh) (desired, undesired, isolatedRemoved int) {
	visited := make(map[VertexID]bool)

	for v := VertexID(0); int(v) < pm.VertexCount(); v++ {
		if !pm.vertexDeleted[v] && isOutputBoundaryVertex(pm, v) && !visited[v] {
			hehStart := pm.vertexHalfedge[v]
			heh := hehStart
			var loop []VertexID
			foundTagged := false

			for i := 0; i < maxWalkIterations; i++ {
				cur := pm.heTo[heh]
				visited[cur] = true
				loop = append(loop, cur)
				if pm.tagged[cur] {
					foundTagged = true
				}
				heh = pm.heNext[heh]
				if heh == InvalidHalfedge || heh == hehStart {
					break
				}
			}

			if foundTagged {
				desired++
				for _, vh := range loop {
					pm.tagged[vh] = true
				}
			} else {
				undesired++
			}
		}

		if !pm.vertexDeleted[v] && pm.valence[v] == 0 {
			pm.vertexDeleted[v] = true
			isolatedRemoved++
		}
	}
	return desired, undesired, isolatedRemoved
}

func isOutputBoundaryVertex(pm *PolyMesh, v VertexID) bool {
	h := pm.vertexHalfedge[v]
	return h != InvalidHalfedge && pm.IsBoundaryHalfedge(h)
}
