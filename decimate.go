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

import "container/heap"

// edgeHeap is a min-heap of edge candidates for collapsing, ordered by
// edge id so the decimation order is deterministic.
type edgeHeap []EdgeID

func (p edgeHeap) Len() int            { return len(p) }
func (p edgeHeap) Less(i, j int) bool  { return p[i] < p[j] }
func (p edgeHeap) Swap(i, j int)       { p[i], p[j] = p[j], p[i] }
func (p *edgeHeap) Push(x interface{}) { *p = append(*p, x.(EdgeID)) }
func (p *edgeHeap) Pop() interface{} {
	old := *p
	x := old[len(old)-1]
	*p = old[:len(old)-1]
	return x
}

// A decimator removes edges that parameterize to a point: both UV
// endpoints coincide in every incident face chart. Such edges would leave
// the grid enumeration with needle triangles it cannot walk through, so
// they are collapsed before (and, because truncation can create new ones,
// again after) the UV array is truncated.
type decimator struct {
	m  *TriMesh
	uv []float64
}

func newDecimator(m *TriMesh, uv []float64) *decimator {
	return &decimator{m: m, uv: uv}
}

// isParametricallyDegenerate reports whether the edge's two UV endpoints
// coincide in every chart that touches it.
func (d *decimator) isParametricallyDegenerate(e EdgeID) bool {
	m := d.m
	degenerate := false
	for i := 0; i < 2; i++ {
		h := m.Halfedge(e, i)
		if m.IsBoundaryHalfedge(h) {
			continue
		}
		if uvPoint(h, d.uv) != uvPoint(m.Prev(h), d.uv) {
			return false
		}
		degenerate = true
	}
	return degenerate
}

// decimate collapses parametrically degenerate edges until none remain
// collapsible, and reports whether it changed the mesh. Collapsing an edge
// can merge edge pairs and shorten neighboring triangles, so the
// neighborhood of every collapse goes back on the worklist.
func (d *decimator) decimate() bool {
	m := d.m

	work := &edgeHeap{}
	for e := EdgeID(0); int(e) < m.EdgeCount(); e++ {
		if m.EdgeAlive(e) && d.isParametricallyDegenerate(e) {
			*work = append(*work, e)
		}
	}
	heap.Init(work)

	changed := false
	for work.Len() > 0 {
		e := heap.Pop(work).(EdgeID)
		if !m.EdgeAlive(e) || !d.isParametricallyDegenerate(e) {
			continue
		}

		h := m.Halfedge(e, 0)
		if !m.CollapseOK(h) {
			h = m.Halfedge(e, 1)
			if !m.CollapseOK(h) {
				Logger().Warn("qex: cannot collapse degenerate edge manifoldly", "edge", int(e))
				continue
			}
		}

		v1 := m.ToVertex(h)
		for _, pair := range m.Collapse(h) {
			// The survivor takes over the replaced halfedge's chart
			// position.
			kept, replaced := pair[0], pair[1]
			setUVPoint(kept, d.uv, uvPoint(replaced, d.uv))
		}
		changed = true

		// Re-examine the surviving neighborhood.
		for _, ih := range m.incomingHalfedges(v1, false) {
			ne := m.Edge(ih)
			if m.EdgeAlive(ne) && d.isParametricallyDegenerate(ne) {
				heap.Push(work, ne)
			}
		}
	}
	return changed
}
