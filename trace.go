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
	"github.com/golang/geo/r2"
)

// maxWalkIterations bounds the triangle-strip walk; a parametrization
// would have to be absurdly stretched for an honest trace to get anywhere
// near it.
const maxWalkIterations = 100000

// A pathResult is the outcome of tracing one stub: either a concrete peer
// stub, a signal (boundary, degeneracy), or nothing.
type pathResult struct {
	state       stubState
	connectedTo int
	orientIdx   int
	uvFrom      r2.Point
	uvTo        r2.Point
	accumulated tf
}

func pathError() pathResult {
	return pathResult{state: stubNoConnection, connectedTo: -1, orientIdx: -1}
}

func pathSignal(s stubState) pathResult {
	return pathResult{state: s, connectedTo: -1, orientIdx: -1}
}

func pathFound(gvIdx, orientIdx int, from, to r2.Point, acc tf) pathResult {
	return pathResult{
		state:       stubConnected,
		connectedTo: gvIdx,
		orientIdx:   orientIdx,
		uvFrom:      from,
		uvTo:        to,
		accumulated: acc,
	}
}

// applyTo writes the outcome into the traced stub.
func (r pathResult) applyTo(le *localEdge) {
	le.state = r.state
	le.connectedTo = r.connectedTo
	le.orientIdx = r.orientIdx
	if r.state == stubConnected {
		le.uvTo = r.uvTo
		le.accumulatedTF = r.accumulated
	}
}

// reverseApply maps two points traced into some far chart back into the
// chart the trace started from.
func reverseApply(from, to r2.Point, acc tf) (r2.Point, r2.Point) {
	inv := acc.inverse()
	return inv.transformPoint(from), inv.transformPoint(to)
}

// generateConnections traces every unconnected stub and installs the
// reciprocal connection on success. Order is grid-vertex then stub index,
// so runs are reproducible.
func (e *extraction) generateConnections() {
	for i := range e.gvertices {
		for j := 0; j < len(e.gvertices[i].localEdges); j++ {
			gv := &e.gvertices[i]
			le := &gv.localEdges[j]
			if le.state != stubUnconnected || le.fhFrom == InvalidFace {
				continue
			}

			target := e.findPath(gv, le)
			target.applyTo(le)

			if target.state == stubTracedIntoBoundary {
				gv.isBoundary = true
			}
			if target.state != stubConnected {
				continue
			}

			assert(target.connectedTo >= 0 && target.connectedTo < len(e.gvertices))
			peer := &e.gvertices[target.connectedTo]
			assert(target.orientIdx >= 0 && target.orientIdx < len(peer.localEdges))
			peerLE := &peer.localEdges[target.orientIdx]

			if peerLE.isUnconnectedOrSignal() {
				assert(le.accumulatedTF == target.accumulated)
				// The peer's accumulated transition is ours inverted,
				// conjugated by the transitions from each stub's chart to
				// its grid vertex's reference chart.
				reverseTF := e.intraGVTransition(peerLE.fhFrom, e.m.Face(peer.heh), peer, true).inverse().
					compose(le.accumulatedTF).
					compose(e.intraGVTransition(le.fhFrom, e.m.Face(gv.heh), gv, true).inverse())
				oppositeTo := reverseTF.transformPoint(gv.uv)
				reverseTF = reverseTF.inverse()
				peerLE.complete(i, j, oppositeTo, reverseTF)
			} else {
				Logger().Warn("qex: trace hit an already connected stub",
					"from", i, "stub", j,
					"hit", target.connectedTo, "hitStub", target.orientIdx,
					"peerOf", peerLE.connectedTo)
				le.state = stubNoConnection
				le.connectedTo = -1
				le.orientIdx = -1
			}
		}
	}
}

// findPath walks from a stub across the triangle strip in the direction of
// its outgoing axis, carrying uv_from/uv_to through every chart change,
// until the target lattice point lands inside a triangle and the local
// match can take over. When the walk crosses into a triangle of opposite
// UV orientation, from and to swap so the ray keeps meaning "towards the
// target" in the chart's own sign convention.
func (e *extraction) findPath(gv *gridVertex, lei *localEdge) pathResult {
	m := e.m
	curFh := lei.fhFrom
	uvFrom := lei.uvFrom
	uvOriginalFrom := lei.uvFrom
	uvTo := lei.uvIntendedTo

	curHeh := InvalidHalfedge

	hs := m.FaceHalfedges(curFh)
	heh0, heh1, heh2 := hs[0], hs[1], hs[2]
	uv0 := uvPoint(heh0, e.uv)
	uv1 := uvPoint(heh1, e.uv)
	uv2 := uvPoint(heh2, e.uv)
	tri := triangle{uv0, uv1, uv2}

	inverted := tri.orientation() == oriNegative

	acc := tfIdentity
	if bs := tri.boundedness(uvTo); bs == bndInside || bs == bndOnBoundary {
		// Start and endpoint in the same face.
		return e.findLocalConnection(uvFrom, uvOriginalFrom, uvTo, tri, heh0, heh1, heh2, bs, acc)
	}

	// The endpoint is outside the starting triangle; find the exit edge.
	path := segment{uvFrom, uvTo}
	switch gv.kind {
	case gvOnFace:
		switch {
		case path.intersects(segment{uv2, uv0}):
			curHeh = heh0
		case path.intersects(segment{uv0, uv1}):
			curHeh = heh1
		case path.intersects(segment{uv1, uv2}):
			curHeh = heh2
		default:
			Logger().Warn("qex: ray from an interior grid vertex exits no triangle side")
			return pathError()
		}

	case gvOnEdge:
		curHeh = gv.heh
		if m.IsBoundaryHalfedge(curHeh) || m.Face(curHeh) != curFh {
			curHeh = m.Opposite(curHeh)
		}
		assert(m.Face(curHeh) == curFh)

		prevHeh := m.Prev(curHeh)
		nextHeh := m.Next(curHeh)
		uv1l := uvPoint(curHeh, e.uv)
		uv2l := uvPoint(nextHeh, e.uv)

		if path.intersects(segment{uv1l, uv2l}) {
			curHeh = nextHeh
		} else {
			// The remaining side must intersect.
			curHeh = prevHeh
		}

	case gvOnVertex:
		vh := m.ToVertex(gv.heh)
		switch vh {
		case m.ToVertex(heh0):
			curHeh = heh2
		case m.ToVertex(heh1):
			curHeh = heh0
		case m.ToVertex(heh2):
			curHeh = heh1
		default:
			Logger().Warn("qex: starting triangle does not contain the pivot vertex",
				"vertex", int(vh), "face", int(curFh))
			return pathError()
		}
	}

	if curHeh == InvalidHalfedge {
		Logger().Warn("qex: invalid halfedge after trace initialization")
		return pathError()
	}

	if !e.edgeValid[m.Edge(curHeh)] {
		return pathSignal(stubTracedIntoDegeneracy)
	}
	t := e.transitionHalfedge(curHeh)
	uvFrom = t.transformPoint(uvFrom)
	uvOriginalFrom = t.transformPoint(uvOriginalFrom)
	uvTo = t.transformPoint(uvTo)
	acc = t.compose(acc)
	curHeh = m.Opposite(curHeh)

	for iter := 0; iter < maxWalkIterations; iter++ {
		if m.IsBoundaryHalfedge(curHeh) {
			return pathSignal(stubTracedIntoBoundary)
		}

		heh0 = curHeh
		heh1 = m.Next(heh0)
		heh2 = m.Next(heh1)
		uv0 = uvPoint(heh0, e.uv)
		uv1 = uvPoint(heh1, e.uv)
		uv2 = uvPoint(heh2, e.uv)
		tri = triangle{uv0, uv1, uv2}
		triOri := tri.orientation()

		if triOri == oriZero {
			if uv0 != uv1 && uv1 != uv2 && uv2 != uv0 {
				Logger().Warn("qex: traced into a cap triangle")
			} else {
				Logger().Warn("qex: point-degenerate edge survived decimation")
				return pathSignal(stubTracedIntoDegeneracy)
			}
		}

		if currentlyInverted := triOri == oriNegative; currentlyInverted != inverted {
			inverted = currentlyInverted
			uvFrom, uvTo = uvTo, uvFrom
		}

		if bs := tri.boundedness(uvTo); bs == bndInside || bs == bndOnBoundary {
			return e.findLocalConnection(uvFrom, uvOriginalFrom, uvTo, tri, heh0, heh1, heh2, bs, acc)
		}

		path := segment{uvFrom, uvTo}
		s1 := segment{uv0, uv1}
		s2 := segment{uv2, uv1}

		is1 := path.intersects(s1)
		is2 := path.intersects(s2)

		hehUpd := InvalidHalfedge
		switch {
		case is1 && !is2:
			hehUpd = heh1
		case !is1 && is2:
			hehUpd = heh2
		case is1 && is2:
			vis0 := path.hasOn(uv0)
			vis1 := path.hasOn(uv1)
			vis2 := path.hasOn(uv2)
			if !vis0 && !vis1 && vis2 {
				hehUpd = heh1
			} else if vis0 && vis2 {
				// The ray runs along the entry edge; pick the side the
				// remaining corner lies on.
				if orient2d(path.a, path.b, uv1) == triOri {
					hehUpd = heh1
				} else {
					hehUpd = heh2
				}
			} else {
				hehUpd = heh2
			}
		default:
			Logger().Warn("qex: ray leaves the triangle through no side",
				"step", iter,
				"uv0", uv0, "uv1", uv1, "uv2", uv2,
				"from", uvFrom, "to", uvTo,
				"orientation", triOri.String())
			return pathError()
		}

		if hehUpd == InvalidHalfedge {
			Logger().Warn("qex: marching led to an invalid halfedge")
			return pathError()
		}
		if !e.edgeValid[m.Edge(hehUpd)] {
			return pathSignal(stubTracedIntoDegeneracy)
		}

		t := e.transitionHalfedge(hehUpd)
		uvFrom = t.transformPoint(uvFrom)
		uvOriginalFrom = t.transformPoint(uvOriginalFrom)
		uvTo = t.transformPoint(uvTo)
		acc = t.compose(acc)
		curHeh = m.Opposite(hehUpd)
	}

	Logger().Warn("qex: maximum number of iterations exceeded while tracing",
		"from", lei.uvFrom, "to", lei.uvIntendedTo)
	return pathError()
}

// findLocalConnection resolves a trace whose target lies inside or on the
// boundary of the current triangle, delegating to the per-face, per-edge
// or per-vertex candidate scan.
func (e *extraction) findLocalConnection(uvFrom, uvOriginalFrom, uvTo r2.Point, tri triangle,
	heh0, heh1, heh2 HalfedgeID, bs boundedness, acc tf) pathResult {

	if tri.isDegenerate() {
		return pathSignal(stubTracedIntoDegeneracy)
	}
	assert(bs == bndInside || bs == bndOnBoundary)

	if bs == bndInside {
		m := e.m
		fh := m.Face(heh0)
		faceOri := e.faceUVOrientation(fh)

		// The peer's stub must point back at us; its index follows from
		// the reverse direction.
		dir := uvFrom.Sub(uvTo)
		oriIdx := orientationToIndex(dir)
		if faceOri == oriNegative {
			oriIdx = orientationToIndexInverse(dir)
		}
		if oriIdx < 0 {
			Logger().Warn("qex: reverse trace direction is not cardinal", "dir", dir)
			return pathError()
		}

		for _, gvIdx := range e.faceGVs[fh] {
			cand := &e.gvertices[gvIdx]
			assert(len(cand.localEdges) > oriIdx)
			le := &cand.localEdges[oriIdx]
			if le.uvIntendedTo == uvFrom && le.uvFrom == uvTo {
				from, to := reverseApply(uvOriginalFrom, uvTo, acc)
				return pathFound(gvIdx, oriIdx, from, to, acc)
			}
		}
	} else {
		// On the boundary: try the corners first, then the sides.
		switch {
		case uvTo == tri.a:
			return e.findLocalConnectionAtVertex(uvFrom, uvOriginalFrom, uvTo, heh0, tri, acc)
		case uvTo == tri.b:
			return e.findLocalConnectionAtVertex(uvFrom, uvOriginalFrom, uvTo, heh1,
				triangle{tri.b, tri.c, tri.a}, acc)
		case uvTo == tri.c:
			return e.findLocalConnectionAtVertex(uvFrom, uvOriginalFrom, uvTo, heh2,
				triangle{tri.c, tri.a, tri.b}, acc)
		case (segment{tri.c, tri.a}).hasOn(uvTo):
			return e.findLocalConnectionAtEdge(uvFrom, uvOriginalFrom, uvTo, heh0, acc)
		case (segment{tri.a, tri.b}).hasOn(uvTo):
			return e.findLocalConnectionAtEdge(uvFrom, uvOriginalFrom, uvTo, heh1, acc)
		case (segment{tri.b, tri.c}).hasOn(uvTo):
			return e.findLocalConnectionAtEdge(uvFrom, uvOriginalFrom, uvTo, heh2, acc)
		}
	}

	Logger().Warn("qex: local connection lookup found no matching stub")
	return pathError()
}

// findLocalConnectionAtEdge scans the grid vertices on the edge of heh,
// matching the incoming ray against stubs on either side of the edge; the
// far side sees the ray through the edge transition.
func (e *extraction) findLocalConnectionAtEdge(uvFrom, uvOriginalFrom, uvTo r2.Point,
	heh HalfedgeID, acc tf) pathResult {

	m := e.m
	eh := m.Edge(heh)
	fh := m.Face(heh)

	hehOpp := m.Opposite(heh)
	fhOpp := InvalidFace
	if !m.IsBoundaryHalfedge(hehOpp) {
		fhOpp = m.Face(hehOpp)
	}

	crossTF := e.transitionHalfedge(heh)
	uvFromOpp := crossTF.transformPoint(uvFrom)
	uvOriginalFromOpp := crossTF.transformPoint(uvOriginalFrom)
	uvToOpp := crossTF.transformPoint(uvTo)

	for _, gvIdx := range e.edgeGVs[eh] {
		cand := &e.gvertices[gvIdx]
		for j := range cand.localEdges {
			le := &cand.localEdges[j]
			matchNear := le.fhFrom == fh && le.uvFrom == uvTo && le.uvIntendedTo == uvFrom
			matchFar := fhOpp != InvalidFace &&
				le.fhFrom == fhOpp && le.uvFrom == uvToOpp && le.uvIntendedTo == uvFromOpp
			if !matchNear && !matchFar {
				continue
			}

			var from, to r2.Point
			accOut := acc
			if m.Face(cand.heh) == fh {
				from, to = uvOriginalFrom, uvTo
			} else {
				assert(m.Face(cand.heh) == fhOpp)
				from, to = uvOriginalFromOpp, uvToOpp
				accOut = crossTF.compose(acc)
			}
			from, to = reverseApply(from, to, accOut)
			return pathFound(gvIdx, j, from, to, accOut)
		}
	}
	return pathError()
}

// findLocalConnectionAtVertex scans the grid vertices on the mesh vertex
// at the end of heh. If the ray is collinear with a triangle edge through
// the pivot it may equally live in a neighboring face, so those candidate
// frames are generated by transporting the ray across the corresponding
// edges. The triangle comes in pivot-first order: tri.a is the pivot's UV.
func (e *extraction) findLocalConnectionAtVertex(uvFrom, uvOriginalFrom, uvTo r2.Point,
	heh HalfedgeID, tri triangle, acc tf) pathResult {

	m := e.m
	vh := m.ToVertex(heh)

	type candidate struct {
		fh             FaceID
		t              tf
		uvFrom         r2.Point
		uvOriginalFrom r2.Point
		uvTo           r2.Point
	}
	cands := make([]candidate, 0, 3)
	cands = append(cands, candidate{
		fh: m.Face(heh), t: tfIdentity,
		uvFrom: uvFrom, uvOriginalFrom: uvOriginalFrom, uvTo: uvTo,
	})

	// CCW neighbor, reached across heh itself.
	if isCollinear(uvFrom, uvTo, tri.c) {
		oppHeh := m.Opposite(heh)
		if !m.IsBoundaryHalfedge(oppHeh) {
			t := e.transitionHalfedge(heh)
			cands = append(cands, candidate{
				fh:             m.Face(oppHeh),
				t:              t,
				uvFrom:         t.transformPoint(uvFrom),
				uvOriginalFrom: t.transformPoint(uvOriginalFrom),
				uvTo:           t.transformPoint(uvTo),
			})
		}
	}

	// CW neighbor, reached across the next halfedge.
	if isCollinear(uvFrom, uvTo, tri.b) {
		nheh := m.Next(heh)
		oppNheh := m.Opposite(nheh)
		if !m.IsBoundaryHalfedge(oppNheh) {
			t := e.transitionHalfedge(nheh)
			cands = append(cands, candidate{
				fh:             m.Face(oppNheh),
				t:              t,
				uvFrom:         t.transformPoint(uvFrom),
				uvOriginalFrom: t.transformPoint(uvOriginalFrom),
				uvTo:           t.transformPoint(uvTo),
			})
		}
	}

	for _, gvIdx := range e.vertexGVs[vh] {
		cand := &e.gvertices[gvIdx]
		for j := range cand.localEdges {
			le := &cand.localEdges[j]
			for _, k := range cands {
				if k.fh != le.fhFrom || k.uvFrom != le.uvIntendedTo || k.uvTo != le.uvFrom {
					continue
				}
				intra := e.intraGVTransition(k.fh, m.Face(cand.heh), cand, true)
				accOut := intra.compose(k.t).compose(acc)
				from := intra.transformPoint(k.uvOriginalFrom)
				to := intra.transformPoint(k.uvTo)
				from, to = reverseApply(from, to, accOut)
				return pathFound(gvIdx, j, from, to, accOut)
			}
		}
	}
	return pathError()
}

// intraGVTransition returns the transition from the chart of fromFh to the
// chart of toFh, walking only across edges through the grid vertex. For a
// vertex pivot that is the composition along the one-ring arc between the
// two faces. The identityIfSame short-circuit exists because several
// composition sites need "the transition once around" instead when the two
// faces coincide.
func (e *extraction) intraGVTransition(fromFh, toFh FaceID, gv *gridVertex, identityIfSame bool) tf {
	if identityIfSame && fromFh == toFh {
		return tfIdentity
	}

	m := e.m
	switch gv.kind {
	case gvOnFace:
		return tfIdentity

	case gvOnEdge:
		heh := gv.heh
		if m.Face(heh) == fromFh {
			t := e.transitionHalfedge(heh)
			if fromFh == toFh {
				return e.transitionHalfedge(m.Opposite(heh)).compose(t)
			}
			return t
		}
		if m.Face(m.Opposite(heh)) == fromFh {
			t := e.transitionHalfedge(m.Opposite(heh))
			if fromFh == toFh {
				return e.transitionHalfedge(heh).compose(t)
			}
			return t
		}
		panic("qex: grid vertex halfedge is not the one between the requested faces")

	case gvOnVertex:
		pivot := m.ToVertex(gv.heh)
		in := m.incomingHalfedges(pivot, false)
		start := -1
		for i, h := range in {
			if m.Face(h) == fromFh {
				start = i
				break
			}
		}
		if start < 0 {
			panic("qex: requested source face is not incident to the pivot vertex")
		}
		result := tfIdentity
		i := start
		for steps := 0; ; steps++ {
			if steps > len(in) {
				panic("qex: requested target face is not incident to the pivot vertex")
			}
			result = e.transitionHalfedge(m.Next(in[i])).compose(result)
			i = (i + 1) % len(in)
			if m.Face(in[i]) == toFh {
				return result
			}
		}
	}
	panic("qex: intra transition requested for unknown grid vertex kind")
}

// notConnected reports whether no stub of grid vertex a connects to b.
func (e *extraction) notConnected(a, b int) bool {
	for i := range e.gvertices[a].localEdges {
		le := &e.gvertices[a].localEdges[i]
		if le.state == stubConnected && le.connectedTo == b {
			return false
		}
	}
	return true
}

// incrementPeerOrientation bumps the peer-side orientation index of every
// connected stub of gv at position from or later. Stub insertion shifts
// all later stubs by one; their peers' back references must follow in
// lockstep or the reciprocal invariant breaks.
func (e *extraction) incrementPeerOrientation(gvIdx, from int) {
	gv := &e.gvertices[gvIdx]
	for i := from; i < len(gv.localEdges); i++ {
		le := &gv.localEdges[i]
		if le.state == stubConnected {
			e.gvertices[le.connectedTo].localEdge(le.orientIdx).orientIdx++
		}
	}
}

func insertStub(list []localEdge, pos int, le localEdge) []localEdge {
	list = append(list, localEdge{})
	copy(list[pos+1:], list[pos:])
	list[pos] = le
	return list
}

// tryConnectIncompleteGVertices runs after the main tracing pass. A grid
// vertex that realized fewer stubs than its valence demands walks the face
// cycles around itself, accumulating transitions stub by stub; when the
// walk revisits the pivot's UV at a different, not-yet-connected grid
// vertex, the missing edge between the two is created by inserting a fresh
// stub pair at the correct angular positions on both sides.
func (e *extraction) tryConnectIncompleteGVertices() {
	m := e.m

	for startIdx := range e.gvertices {
		if e.gvertices[startIdx].missingStubs == 0 {
			continue
		}

		// localEdges may grow while we iterate; the length is re-read on
		// every pass on purpose.
		for startLei := 0; startLei < len(e.gvertices[startIdx].localEdges); startLei++ {
			startGV := &e.gvertices[startIdx]
			insertBefore := startLei + 1
			finalLeiIdx := startGV.stubIndex(startLei + 1)

			currentFrom := startIdx
			currentOut := startLei
			acc := tfIdentity
			pivotUV := startGV.localEdges[startLei].uvFrom
			edgeCreated := false

			for step := 0; step < maxWalkIterations; step++ {
				curLE := e.gvertices[currentFrom].localEdge(currentOut)
				if !curLE.isConnected() {
					break
				}

				nextGVIdx := curLE.connectedTo
				nextGV := &e.gvertices[nextGVIdx]
				nextInIdx := nextGV.stubIndex(curLE.orientIdx)
				nextOutIdx := nextGV.stubIndex(nextInIdx - 1)
				nextIn := &nextGV.localEdges[nextInIdx]
				nextOut := &nextGV.localEdges[nextOutIdx]

				// The stub's own transition applies now; the intra-vertex
				// part only after a potential insertion.
				acc = curLE.accumulatedTF.compose(acc)
				intraFaceTF := e.intraGVTransition(nextIn.fhFrom, nextOut.fhFrom, nextGV, nextIn != nextOut).
					compose(e.intraGVTransition(nextIn.fhFrom, m.Face(nextGV.heh), nextGV, true).inverse())

				// The visited grid vertex's UV, pulled back into the
				// chart the walk started in.
				nextUV := intraFaceTF.compose(acc).inverse().transformPoint(nextOut.uvFrom)

				if !edgeCreated && nextUV == pivotUV && nextGVIdx != startIdx &&
					e.notConnected(nextGVIdx, startIdx) {

					startGV := &e.gvertices[startIdx]
					startLE := &startGV.localEdges[startLei]
					finalLei := startGV.localEdge(finalLeiIdx)

					newIncomingTF := e.intraGVTransition(finalLei.fhFrom, startLE.fhFrom, startGV, true).
						compose(e.intraGVTransition(finalLei.fhFrom, startLE.fhFrom, startGV, finalLei != startLE).inverse()).
						compose(acc.inverse()).
						inverse()
					newOutgoingTF := e.intraGVTransition(nextIn.fhFrom, m.Face(nextGV.heh), nextGV, true).inverse().
						compose(acc).
						compose(e.intraGVTransition(startLE.fhFrom, m.Face(startGV.heh), startGV, true).inverse()).
						inverse()

					// Everything after the insertion points shifts by one;
					// fix the peers' back references first.
					e.incrementPeerOrientation(startIdx, insertBefore)
					e.incrementPeerOrientation(nextGVIdx, nextInIdx)

					newIncoming := newLocalEdge(startLE.fhFrom, startLE.uvFrom, startLE.uvFrom)
					newOutgoing := newLocalEdge(nextIn.fhFrom, nextIn.uvFrom, nextIn.uvFrom)
					startUVFrom := startLE.uvFrom
					nextUVFrom := nextIn.uvFrom

					e.gvertices[startIdx].localEdges = insertStub(e.gvertices[startIdx].localEdges, insertBefore, newIncoming)
					e.gvertices[nextGVIdx].localEdges = insertStub(e.gvertices[nextGVIdx].localEdges, nextInIdx, newOutgoing)
					// Pointers into either stub list are stale from here.

					e.gvertices[startIdx].localEdges[insertBefore].complete(
						nextGVIdx, nextInIdx, startUVFrom, newIncomingTF)
					e.gvertices[nextGVIdx].localEdges[nextInIdx].complete(
						startIdx, insertBefore, nextUVFrom, newOutgoingTF)

					// Continue the walk along the newly created edge.
					nextOutIdx = nextInIdx
					edgeCreated = true
				}

				acc = intraFaceTF.compose(acc)
				currentFrom = nextGVIdx
				currentOut = nextOutIdx
				if currentFrom == startIdx {
					break
				}
			}
		}
	}
}
