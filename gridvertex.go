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
	"github.com/golang/geo/r3"
)

// gvKind says which mesh element a grid vertex was found on. The kind
// decides how the tracer leaves the host and how local matches are looked
// up.
type gvKind int

const (
	gvOnFace gvKind = iota
	gvOnEdge
	gvOnVertex
)

// stubState is the lifecycle of a local edge. Exactly one state holds at a
// time; only stubConnected carries a peer.
type stubState int

const (
	stubUnconnected stubState = iota
	stubNoConnection
	stubTracedIntoBoundary
	stubTracedIntoDegeneracy
	stubConnected
)

// A localEdge is one directional stub at a grid vertex: a unit step along
// a cardinal axis of its host chart. Tracing turns unconnected stubs into
// connected ones; face traversal then consumes the connections.
type localEdge struct {
	fhFrom       FaceID   // face whose chart the stub lives in
	uvFrom       r2.Point // stub origin in that chart
	uvIntendedTo r2.Point // one lattice step away
	uvTo         r2.Point // actual endpoint once connected, in the origin chart

	state         stubState
	connectedTo   int // grid vertex index, when state == stubConnected
	orientIdx     int // index of the opposite stub in the peer's list
	accumulatedTF tf  // origin chart -> destination chart, once connected

	faceConstructed bool
	halfedge        HalfedgeID // output mesh halfedge, once built
}

func newLocalEdge(fh FaceID, from, to r2.Point) localEdge {
	return localEdge{
		fhFrom:       fh,
		uvFrom:       from,
		uvIntendedTo: to,
		state:        stubUnconnected,
		connectedTo:  -1,
		orientIdx:    -1,
		halfedge:     InvalidHalfedge,
	}
}

func (le *localEdge) isConnected() bool { return le.state == stubConnected }

// isUnconnectedOrSignal reports whether the stub may still accept a
// reciprocal connection.
func (le *localEdge) isUnconnectedOrSignal() bool {
	return le.state != stubConnected
}

// complete fills in the connection half of the stub.
func (le *localEdge) complete(gvIdx, orientIdx int, uvTo r2.Point, acc tf) {
	le.state = stubConnected
	le.connectedTo = gvIdx
	le.orientIdx = orientIdx
	le.uvTo = uvTo
	le.accumulatedTF = acc
}

// A gridVertex is an integer lattice point of the parametrization, lifted
// back to 3D. Grid vertices are appended to one global array and never
// removed; their indices double as output mesh vertex handles.
type gridVertex struct {
	kind       gvKind
	heh        HalfedgeID // host: chart for OnFace, edge for OnEdge, pivot for OnVertex
	uv         r2.Point   // integral position in the host chart
	position   r3.Vector
	isBoundary bool

	// missingStubs counts expected but unrealized stubs at irregular
	// vertices; the repair pass tries to create them.
	missingStubs int

	localEdges []localEdge
}

// localEdge returns the i-th stub, cyclically; stub arithmetic in the
// tracer and the face traversal is all modulo the stub count.
func (gv *gridVertex) localEdge(i int) *localEdge {
	n := len(gv.localEdges)
	return &gv.localEdges[((i%n)+n)%n]
}

func (gv *gridVertex) stubIndex(i int) int {
	n := len(gv.localEdges)
	return ((i % n) + n) % n
}

// cartesianOrientations are the four axis directions in CCW order,
// starting along +u. Stub seeding walks them in this order; everything
// downstream assumes the resulting cyclic CCW ordering.
var cartesianOrientations = [4]r2.Point{
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 0, Y: -1},
}

// orientationToIndex maps a cardinal direction to its index in
// cartesianOrientations, or -1 for anything that is not a unit axis step.
func orientationToIndex(dir r2.Point) int {
	for i, d := range cartesianOrientations {
		if d == dir {
			return i
		}
	}
	return -1
}

// orientationToIndexInverse is the variant for negatively oriented faces,
// whose stub lists were reversed at seeding time.
func orientationToIndexInverse(dir r2.Point) int {
	if i := orientationToIndex(dir); i >= 0 {
		return 3 - i
	}
	return -1
}
