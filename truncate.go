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
)

// transitionHalfedge returns the transition across h, mapping the chart of
// face(h) into the chart of face(opposite(h)). The stored per-edge
// transition is oriented from halfedge 0 to halfedge 1, so the odd
// halfedge gets the inverse. Boundary edges carry the identity either way.
func (e *extraction) transitionHalfedge(h HalfedgeID) tf {
	eid := e.m.Edge(h)
	if e.m.IsBoundaryEdge(eid) {
		return tfIdentity
	}
	t := e.tfs[eid]
	if h&1 == 1 {
		return t.inverse()
	}
	return t
}

// vertexTransition composes the per-edge transitions once around the
// one-ring of v. The result is the identity exactly when v is a regular
// point of the parametrization; anything else marks a cone point.
func (e *extraction) vertexTransition(v VertexID) tf {
	if e.m.IsBoundaryVertex(v) {
		return tfIdentity
	}
	in := e.m.incomingHalfedges(v, false)
	tfFirst := e.transitionHalfedge(e.m.Opposite(in[0]))
	t := tfIdentity
	for _, h := range in[1:] {
		t = e.transitionHalfedge(e.m.Opposite(h)).compose(t)
	}
	return tfFirst.compose(t)
}

// consistentTruncation snaps every UV coordinate used by the enumeration
// to an exactly representable value, one vertex one-ring at a time:
// truncate the first incoming halfedge's UV to the precision the vertex's
// magnitude allows, then propagate around the ring through the transition
// functions so every chart's copy agrees exactly. Cone points additionally
// get forced onto the fixed point of their ring transition, which is the
// only value all their charts can share.
func (e *extraction) consistentTruncation() {
	m := e.m

	// Boundary integer snapping on selected and feature edges. Values
	// already within 1e-4 of an integer on both halfedges are meant to be
	// that integer.
	for eid := EdgeID(0); int(eid) < m.EdgeCount(); eid++ {
		if !m.EdgeAlive(eid) || !m.IsBoundaryEdge(eid) {
			continue
		}
		if !m.edgeSelected[eid] && !m.edgeFeature[eid] {
			continue
		}
		heh0 := m.Halfedge(eid, 0)
		heh1 := m.Halfedge(eid, 1)
		for i := 0; i < 2; i++ {
			a := e.uv[2*int(heh0)+i]
			b := e.uv[2*int(heh1)+i]
			if math.Abs(a-float64(roundToNearest(a))) < 1e-4 &&
				math.Abs(b-float64(roundToNearest(b))) < 1e-4 {
				e.uv[2*int(heh0)+i] = float64(roundToNearest(a))
				e.uv[2*int(heh1)+i] = float64(roundToNearest(b))
			}
		}
	}

	for v := VertexID(0); int(v) < m.VertexCount(); v++ {
		if !m.VertexAlive(v) {
			continue
		}
		incoming := m.incomingHalfedges(v, false)
		if len(incoming) == 0 {
			continue
		}

		var maxUAbs, maxTransAbs float64
		for _, heh := range incoming {
			if m.IsBoundaryHalfedge(heh) {
				continue
			}
			maxUAbs = math.Max(maxUAbs, math.Abs(e.uv[2*int(heh)]))
			maxUAbs = math.Max(maxUAbs, math.Abs(e.uv[2*int(heh)+1]))

			if !m.IsBoundaryHalfedge(m.Opposite(heh)) {
				t := e.tfs[m.Edge(heh)]
				maxTransAbs = math.Max(maxTransAbs, math.Abs(float64(t.tu)))
				maxTransAbs = math.Max(maxTransAbs, math.Abs(float64(t.tv)))
			}
		}

		// Adding and subtracting a power of two one bit above the working
		// magnitude clears the low-order bits that could not survive a
		// round trip through the transition functions.
		maxV := maxUAbs + maxTransAbs + 1
		maxV = math.Pow(2, math.Ceil(math.Log2(maxV))+1)

		heh := incoming[0]
		e.uv[2*int(heh)] += maxV
		e.uv[2*int(heh)] -= maxV
		e.uv[2*int(heh)+1] += maxV
		e.uv[2*int(heh)+1] -= maxV

		vtrans := e.vertexTransition(v)

		if !m.IsBoundaryVertex(v) && !vtrans.isIdentity() {
			assert(vtrans.r >= 0 && vtrans.r <= 3)
			// A cone point must sit on the fixed point of its ring
			// transition; solve p = i^r p + t in closed form per r.
			switch vtrans.r {
			case 1:
				e.uv[2*int(heh)] = float64(vtrans.tu-vtrans.tv) / 2
				e.uv[2*int(heh)+1] = float64(vtrans.tu+vtrans.tv) / 2
			case 2:
				e.uv[2*int(heh)] = float64(vtrans.tu) / 2
				e.uv[2*int(heh)+1] = float64(vtrans.tv) / 2
			case 3:
				e.uv[2*int(heh)] = float64(vtrans.tu+vtrans.tv) / 2
				e.uv[2*int(heh)+1] = float64(vtrans.tv-vtrans.tu) / 2
			default:
				if vtrans.r != 0 || abs(vtrans.tu)+abs(vtrans.tv) > 1 {
					Logger().Warn("qex: non-identity ring transition with rotation 0",
						"vertex", int(v), "tu", vtrans.tu, "tv", vtrans.tv)
				}
			}
		}

		// Propagate the truncated value around the one-ring.
		cur := uvPoint(heh, e.uv)
		nBoundaries := 0
		for _, hehCur := range incoming[1:] {
			if m.IsBoundaryHalfedge(hehCur) {
				nBoundaries++
				continue
			}
			hehOpp := m.Opposite(hehCur)
			cur = e.transitionHalfedge(hehOpp).transformPoint(cur)
			setUVPoint(hehCur, e.uv, cur)
		}
		if nBoundaries > 1 {
			Logger().Warn("qex: non-manifold vertex adjacent to more than one boundary", "vertex", int(v))
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
