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
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// triangleUV returns the UV triangle of f: the chart images of its three
// corners, in halfedge order starting at the face halfedge.
func (e *extraction) triangleUV(f FaceID) triangle {
	hs := e.m.FaceHalfedges(f)
	return triangle{
		a: uvPoint(hs[0], e.uv),
		b: uvPoint(hs[1], e.uv),
		c: uvPoint(hs[2], e.uv),
	}
}

func (e *extraction) faceUVOrientation(f FaceID) orientation {
	return e.triangleUV(f).orientation()
}

// triangleMapping builds the affine map from chart coordinates to 3D for a
// non-degenerate UV triangle: invert the homogeneous UV corner matrix and
// multiply by the 3D corner matrix.
func triangleMapping(t triangle, a, b, c r3.Vector) (*mat.Dense, error) {
	p := mat.NewDense(3, 3, []float64{
		t.a.X, t.b.X, t.c.X,
		t.a.Y, t.b.Y, t.c.Y,
		1, 1, 1,
	})
	var inv mat.Dense
	if err := inv.Inverse(p); err != nil {
		return nil, err
	}
	pp := mat.NewDense(3, 3, []float64{
		a.X, b.X, c.X,
		a.Y, b.Y, c.Y,
		a.Z, b.Z, c.Z,
	})
	var m mat.Dense
	m.Mul(pp, &inv)
	return &m, nil
}

// segmentMapping builds the least-squares affine map lifting points on a
// UV segment to the 3D edge between a and b. Points off the segment are
// projected onto it first, which is exactly what the edge pass wants.
func segmentMapping(s segment, a, b r3.Vector) *mat.Dense {
	c := s.b.Sub(s.a)
	c = c.Mul(1 / c.Dot(c))
	d := -c.Dot(s.a)

	ab := b.Sub(a)
	col2 := a.Add(ab.Mul(d))
	return mat.NewDense(3, 3, []float64{
		ab.X * c.X, ab.X * c.Y, col2.X,
		ab.Y * c.X, ab.Y * c.Y, col2.Y,
		ab.Z * c.X, ab.Z * c.Y, col2.Z,
	})
}

func applyMapping(m *mat.Dense, x, y float64) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*x + m.At(0, 1)*y + m.At(0, 2),
		Y: m.At(1, 0)*x + m.At(1, 1)*y + m.At(1, 2),
		Z: m.At(2, 0)*x + m.At(2, 1)*y + m.At(2, 2),
	}
}

// generateVertices runs the three enumeration passes: lattice points
// strictly inside faces, on edges, and on mesh vertices. Each emitted grid
// vertex is seeded with its local edge stubs immediately, so the order of
// stubs within a grid vertex never depends on later passes.
func (e *extraction) generateVertices(embedding func(HalfedgeID) r3.Vector) {
	m := e.m

	// Canonical halfedge per vertex and per edge. Everything that needs
	// "the" chart of a vertex or an edge goes through these.
	e.vertexToHalfedge = make([]HalfedgeID, m.VertexCount())
	for v := VertexID(0); int(v) < m.VertexCount(); v++ {
		e.vertexToHalfedge[v] = InvalidHalfedge
		if m.VertexAlive(v) {
			e.vertexToHalfedge[v] = m.firstIncoming(v)
		}
	}
	e.edgeToHalfedge = make([]HalfedgeID, m.EdgeCount())
	for eid := EdgeID(0); int(eid) < m.EdgeCount(); eid++ {
		e.edgeToHalfedge[eid] = InvalidHalfedge
		if !m.EdgeAlive(eid) {
			continue
		}
		heh0 := m.Halfedge(eid, 0)
		if !m.IsBoundaryHalfedge(heh0) {
			e.edgeToHalfedge[eid] = heh0
		} else {
			e.edgeToHalfedge[eid] = m.Halfedge(eid, 1)
		}
	}

	// Face pass.
	e.gvertices = e.gvertices[:0]
	e.faceGVs = make([][]int, m.FaceCount())
	nFace := 0

	for f := FaceID(0); int(f) < m.FaceCount(); f++ {
		if !m.FaceAlive(f) {
			continue
		}
		hs := m.FaceHalfedges(f)
		tri := e.triangleUV(f)
		if tri.isDegenerate() {
			continue
		}

		mapping, err := triangleMapping(tri, embedding(hs[0]), embedding(hs[1]), embedding(hs[2]))
		if err != nil {
			Logger().Warn("qex: face mapping not invertible", "face", int(f), "err", err)
			continue
		}

		bb := tri.bbox()
		xMin, xMax := int(math.Ceil(bb.X.Lo)), int(math.Floor(bb.X.Hi))
		yMin, yMax := int(math.Ceil(bb.Y.Lo)), int(math.Floor(bb.Y.Hi))

		for x := xMin; x <= xMax; x++ {
			for y := yMin; y <= yMax; y++ {
				p := r2.Point{X: float64(x), Y: float64(y)}
				if !tri.hasOnBoundedSide(p) {
					continue
				}
				e.faceGVs[f] = append(e.faceGVs[f], len(e.gvertices))
				e.gvertices = append(e.gvertices, gridVertex{
					kind:     gvOnFace,
					heh:      hs[0],
					uv:       p,
					position: applyMapping(mapping, p.X, p.Y),
				})
				e.seedFaceStubs(&e.gvertices[len(e.gvertices)-1])
				nFace++
			}
		}
	}

	// Edge pass.
	e.edgeValid = make([]bool, m.EdgeCount())
	e.edgeGVs = make([][]int, m.EdgeCount())
	nEdge := 0

	for eid := EdgeID(0); int(eid) < m.EdgeCount(); eid++ {
		if !m.EdgeAlive(eid) {
			continue
		}
		heh0 := e.edgeToHalfedge[eid]
		if heh0 == InvalidHalfedge {
			Logger().Warn("qex: edge without a valid halfedge", "edge", int(eid))
			continue
		}
		heh1 := m.Prev(heh0)
		p0 := uvPoint(heh0, e.uv)
		p1 := uvPoint(heh1, e.uv)
		seg := segment{p0, p1}
		if seg.isDegenerate() {
			e.edgeValid[eid] = false
			continue
		}
		e.edgeValid[eid] = true

		mapping := segmentMapping(seg, embedding(heh0), embedding(heh1))
		bb := seg.bbox()
		xMin, xMax := int(math.Ceil(bb.X.Lo)), int(math.Floor(bb.X.Hi))
		yMin, yMax := int(math.Ceil(bb.Y.Lo)), int(math.Floor(bb.Y.Hi))

		emit := func(x, y int) {
			p := r2.Point{X: float64(x), Y: float64(y)}
			if !seg.hasOn(p) {
				return
			}
			e.edgeGVs[eid] = append(e.edgeGVs[eid], len(e.gvertices))
			e.gvertices = append(e.gvertices, gridVertex{
				kind:     gvOnEdge,
				heh:      heh0,
				uv:       p,
				position: applyMapping(mapping, p.X, p.Y),
			})
			e.seedEdgeStubs(&e.gvertices[len(e.gvertices)-1])
			nEdge++
		}

		// Iterate along whichever axis the segment spans more of, and
		// solve for the other coordinate. Endpoint lattice coordinates are
		// excluded: those belong to the vertex pass.
		if bb.X.Hi-bb.X.Lo >= bb.Y.Hi-bb.Y.Lo {
			if float64(xMin) == bb.X.Lo {
				xMin++
			}
			if float64(xMax) == bb.X.Hi {
				xMax--
			}
			for x := xMin; x <= xMax; x++ {
				alpha := (float64(x) - p0.X) / (p1.X - p0.X)
				y := roundToNearest(p0.Y + alpha*(p1.Y-p0.Y))
				if y >= yMin && y <= yMax {
					emit(x, y)
				}
			}
		} else {
			if float64(yMin) == bb.Y.Lo {
				yMin++
			}
			if float64(yMax) == bb.Y.Hi {
				yMax--
			}
			for y := yMin; y <= yMax; y++ {
				alpha := (float64(y) - p0.Y) / (p1.Y - p0.Y)
				x := roundToNearest(p0.X + alpha*(p1.X-p0.X))
				if x >= xMin && x <= xMax {
					emit(x, y)
				}
			}
		}
	}

	// Vertex pass.
	e.vertexGVs = make([][]int, m.VertexCount())
	nVertex := 0

	for v := VertexID(0); int(v) < m.VertexCount(); v++ {
		if !m.VertexAlive(v) {
			continue
		}
		heh := e.vertexToHalfedge[v]
		if heh == InvalidHalfedge {
			continue
		}
		p := uvPoint(heh, e.uv)
		if p.X != float64(roundToNearest(p.X)) || p.Y != float64(roundToNearest(p.Y)) {
			continue
		}
		e.vertexGVs[v] = append(e.vertexGVs[v], len(e.gvertices))
		e.gvertices = append(e.gvertices, gridVertex{
			kind:     gvOnVertex,
			heh:      heh,
			uv:       p,
			position: embedding(heh),
		})
		e.seedVertexStubs(&e.gvertices[len(e.gvertices)-1])
		nVertex++
	}

	Logger().Debug("qex: grid vertices generated",
		"onFace", nFace, "onEdge", nEdge, "onVertex", nVertex)
}

// seedFaceStubs gives an interior grid vertex its four cardinal stubs.
// Starting along +u and rotating CCW matches the convention everywhere
// else; a negatively oriented face gets the reversed order so the stub
// list is CCW in the chart's own sign convention.
func (e *extraction) seedFaceStubs(gv *gridVertex) {
	gv.localEdges = gv.localEdges[:0]
	if gv.heh == InvalidHalfedge || e.m.IsBoundaryHalfedge(gv.heh) {
		return
	}
	fh := e.m.Face(gv.heh)
	for _, dir := range cartesianOrientations {
		gv.localEdges = append(gv.localEdges, newLocalEdge(fh, gv.uv, gv.uv.Add(dir)))
	}
	if e.faceUVOrientation(fh) == oriNegative {
		reverseStubs(gv.localEdges)
	}
}

// seedEdgeStubs gives a grid vertex on an edge its stubs, split between
// the two incident face charts. A direction lying on the edge itself
// belongs to the side whose chart it points along; a direction entering a
// face belongs to that face. Each side's accepted run is rotated into a
// contiguous block and reversed for negative faces, keeping the full list
// cyclically CCW.
func (e *extraction) seedEdgeStubs(gv *gridVertex) {
	m := e.m
	gv.localEdges = gv.localEdges[:0]
	if gv.heh == InvalidHalfedge || m.IsBoundaryHalfedge(gv.heh) {
		return
	}
	heh := gv.heh
	hehOpp := m.Opposite(heh)

	if m.IsBoundaryEdge(m.Edge(heh)) {
		gv.isBoundary = true
	}

	fh := m.Face(heh)
	ori := e.faceUVOrientation(fh)

	fhOpp := InvalidFace
	oriOpp := oriZero
	if !m.IsBoundaryHalfedge(hehOpp) {
		fhOpp = m.Face(hehOpp)
		oriOpp = e.faceUVOrientation(fhOpp)
	}

	uv := gv.uv
	cross := e.transitionHalfedge(heh)
	uvOpp := cross.transformPoint(uv)

	// Directions in the chart of the first face.
	{
		hehPrev := m.Prev(heh)
		p1 := uvPoint(heh, e.uv)
		p0 := uvPoint(hehPrev, e.uv)

		middle := 0
		for _, dir := range cartesianOrientations {
			toUV := uv.Add(dir)
			pathOri := triangle{p0, p1, toUV}.orientation()
			switch {
			case pathOri == ori:
				gv.localEdges = append(gv.localEdges, newLocalEdge(fh, uv, toUV))
			case pathOri == oriZero:
				if dotSign(dir, p1.Sub(p0)) > 0 || fhOpp == InvalidFace {
					gv.localEdges = append(gv.localEdges, newLocalEdge(fh, uv, toUV))
				} else {
					middle = len(gv.localEdges)
				}
			default:
				middle = len(gv.localEdges)
			}
		}
		// If the accepted directions were interrupted, rotate them back
		// into one run.
		if middle != 0 && middle < len(gv.localEdges) {
			rotateStubs(gv.localEdges, middle)
		}
		if ori == oriNegative {
			reverseStubs(gv.localEdges)
		}
	}

	// Directions in the chart of the opposite face.
	if fhOpp != InvalidFace {
		hehPrev := m.Prev(hehOpp)
		p1 := uvPoint(hehOpp, e.uv)
		p0 := uvPoint(hehPrev, e.uv)

		offset := len(gv.localEdges)
		middle := 0
		for _, dir := range cartesianOrientations {
			toUV := cross.transformPoint(uv.Add(dir))
			transDir := toUV.Sub(uvOpp)
			pathOri := triangle{p0, p1, toUV}.orientation()
			if pathOri == oriOpp || (pathOri == oriZero && dotSign(transDir, p1.Sub(p0)) > 0) {
				gv.localEdges = append(gv.localEdges, newLocalEdge(fhOpp, uvOpp, toUV))
			} else {
				middle = len(gv.localEdges)
			}
		}
		if middle > offset && middle < len(gv.localEdges) {
			rotateStubs(gv.localEdges[offset:], middle-offset)
		}
		if oriOpp == oriNegative {
			reverseStubs(gv.localEdges[offset:])
		}
	}
}

// seedVertexStubs gives a grid vertex sitting on a mesh vertex its stubs,
// walking the incoming halfedges in CCW order and testing each cardinal
// direction against each sector. It also estimates the expected stub count
// from the accumulated sector angles; negative (flipped) fans count as
// their complement to a full turn. The estimate is unreliable near
// boundaries and near-degenerate sectors, which is why external valences
// override it when the caller has them.
func (e *extraction) seedVertexStubs(gv *gridVertex) {
	m := e.m
	gv.localEdges = gv.localEdges[:0]
	if gv.heh == InvalidHalfedge || m.IsBoundaryHalfedge(gv.heh) {
		return
	}
	vh := m.ToVertex(gv.heh)

	if m.IsBoundaryVertex(vh) {
		gv.isBoundary = true
	}

	var initialNegAngleSum, posAngleSum, negAngleSum float64

	for _, heh := range m.incomingHalfedges(vh, true) {
		if m.IsBoundaryHalfedge(heh) {
			continue
		}
		heh1 := m.Next(heh)
		heh2 := m.Next(heh1)
		uv0 := uvPoint(heh, e.uv)
		uv1 := uvPoint(heh1, e.uv)
		uv2 := uvPoint(heh2, e.uv)

		sectorLeft := uv2.Sub(uv0)
		sectorRight := uv1.Sub(uv0)
		ori := triangle{uv0, uv1, uv2}.orientation()

		if ori == oriCCW {
			if negAngleSum > 0 {
				// End of a flipped fan: it occupied the complement of
				// what its positive neighbors span.
				posAngleSum += 2*math.Pi - negAngleSum
				negAngleSum = 0
			}
			posAngleSum += sectorAngle(sectorLeft, sectorRight)
		} else if ori == oriCW {
			angle := sectorAngle(sectorLeft, sectorRight)
			if posAngleSum == 0 {
				initialNegAngleSum += angle
			} else {
				negAngleSum += angle
			}
		}

		isLeftOppBoundary := m.IsBoundaryHalfedge(m.Opposite(heh))
		fh := m.Face(heh)

		var perFace []localEdge
		middle := 0
		for _, dir := range cartesianOrientations {
			ori1 := orient2dVec(sectorRight, dir)
			ori2 := orient2dVec(dir, sectorLeft)

			switch {
			case isLeftOppBoundary && ori2 == oriCollinear && dotSign(dir, sectorLeft) > 0:
				// On the left sector edge with no face beyond it.
				perFace = append(perFace, newLocalEdge(fh, uv0, uv0.Add(dir)))
			case ori1 == oriCollinear && dotSign(sectorRight, dir) > 0:
				// On the right sector edge.
				perFace = append(perFace, newLocalEdge(fh, uv0, uv0.Add(dir)))
			case ori1 == ori && ori2 == ori:
				// Strictly inside the sector.
				perFace = append(perFace, newLocalEdge(fh, uv0, uv0.Add(dir)))
			default:
				middle = len(perFace)
			}
		}
		if middle != 0 && middle < len(perFace) {
			rotateStubs(perFace, middle)
		}
		if ori == oriNegative {
			reverseStubs(perFace)
		}
		gv.localEdges = append(gv.localEdges, perFace...)
	}

	if initialNegAngleSum > 0 || negAngleSum > 0 {
		negAngleSum += initialNegAngleSum
		posAngleSum += 2*math.Pi - negAngleSum
	}

	ninetyJump := posAngleSum / (math.Pi / 2)
	expected := roundToNearest(ninetyJump)
	if e.externalValences != nil {
		expected = e.externalValences[vh]
	}
	gv.missingStubs = expected - len(gv.localEdges)
	// The angle heuristic cannot be trusted on boundary vertices.
	if gv.isBoundary {
		gv.missingStubs = 0
	}
}

func sectorAngle(left, right r2.Point) float64 {
	return math.Acos(left.Dot(right) / (left.Norm() * right.Norm()))
}

func rotateStubs(s []localEdge, k int) {
	rotated := append(append([]localEdge{}, s[k:]...), s[:k]...)
	copy(s, rotated)
}

func reverseStubs(s []localEdge) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
