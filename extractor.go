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

// An Extractor turns a triangle mesh with an integer-grid UV
// parametrization into a quad-dominant polygon mesh whose vertices sit on
// the integer lattice of the parametrization.
type Extractor struct {
	mesh   *TriMesh
	report Report
}

// ExtractOptions tune the extraction.
type ExtractOptions struct {
	// ExternalValences gives the expected parametric valence per mesh
	// vertex. When present it overrides the angle-sum heuristic, which is
	// unreliable near boundaries and degenerate triangles.
	ExternalValences []int

	// DiscardDoubleVertexFaces rejects output faces that visit the same
	// vertex twice instead of emitting them.
	DiscardDoubleVertexFaces bool
}

// Report summarizes the side observations of the last Extract call.
type Report struct {
	Decimated               bool
	GridVertices            int
	DesiredHoles            int
	UndesiredHoles          int
	IsolatedVerticesRemoved int
}

// extraction is the working state of one Extract call.
type extraction struct {
	m  *TriMesh
	uv []float64

	tfs       []tf
	edgeValid []bool

	vertexToHalfedge []HalfedgeID
	edgeToHalfedge   []HalfedgeID

	gvertices []gridVertex
	faceGVs   [][]int
	edgeGVs   [][]int
	vertexGVs [][]int

	externalValences []int
	discardDoubles   bool
}

// NewExtractor creates an extractor over the given mesh. Extract collapses
// parametrically degenerate edges in place, so the mesh is not treated as
// read-only.
func NewExtractor(m *TriMesh) *Extractor {
	return &Extractor{mesh: m}
}

// Extract runs the full pipeline: decimate degenerate edges, recover the
// transition functions, truncate the UVs to exactly representable values,
// decimate again, enumerate the lattice points, trace the connections,
// repair incomplete grid vertices and assemble the output faces.
//
// uvCoords holds one UV pair per halfedge, indexed 2*h and 2*h+1; the UV
// at a halfedge is the coordinate of its target vertex in the chart of the
// halfedge's face. The slice is copied, not modified.
func (x *Extractor) Extract(uvCoords []float64, opts *ExtractOptions) (*PolyMesh, error) {
	m := x.mesh
	if len(uvCoords) != 2*m.HalfedgeCount() {
		return nil, errors.Errorf("qex: uv array has %d entries, want %d",
			len(uvCoords), 2*m.HalfedgeCount())
	}

	ext := extraction{
		m:  m,
		uv: append([]float64(nil), uvCoords...),
	}
	if opts != nil {
		if opts.ExternalValences != nil && len(opts.ExternalValences) != m.VertexCount() {
			return nil, errors.Errorf("qex: external valences for %d vertices, want %d",
				len(opts.ExternalValences), m.VertexCount())
		}
		ext.externalValences = opts.ExternalValences
		ext.discardDoubles = opts.DiscardDoubleVertexFaces
	}

	// Stash the embedding before decimation moves vertices around; if
	// anything collapses, handles may migrate and only the per-halfedge
	// snapshot still lifts correctly.
	hePoints := make([]r3.Vector, m.HalfedgeCount())
	for h := HalfedgeID(0); int(h) < m.HalfedgeCount(); h++ {
		hePoints[h] = m.Point(m.ToVertex(h))
	}

	dec := newDecimator(m, ext.uv)
	decimated := dec.decimate()

	ext.tfs = extractTransitions(m, ext.uv)
	ext.consistentTruncation()

	if dec.decimate() {
		decimated = true
		// The collapse merged edge pairs, so adjacency-crossing
		// transitions must be rebuilt from the truncated coordinates.
		ext.tfs = extractTransitions(m, ext.uv)
	}

	embedding := func(h HalfedgeID) r3.Vector { return m.Point(m.ToVertex(h)) }
	if decimated {
		embedding = func(h HalfedgeID) r3.Vector { return hePoints[h] }
	}

	ext.generateVertices(embedding)
	ext.generateConnections()
	ext.tryConnectIncompleteGVertices()

	pm := ext.generateFaces()
	desired, undesired, isolated := ext.boundaryCensus(pm)

	x.report = Report{
		Decimated:               decimated,
		GridVertices:            len(ext.gvertices),
		DesiredHoles:            desired,
		UndesiredHoles:          undesired,
		IsolatedVerticesRemoved: isolated,
	}
	Logger().Debug("qex: extraction finished",
		"gridVertices", len(ext.gvertices),
		"faces", pm.FaceCount(),
		"desiredHoles", desired,
		"undesiredHoles", undesired,
		"isolatedRemoved", isolated)

	return pm, nil
}

// Report returns the side observations of the last Extract call.
func (x *Extractor) Report() Report { return x.report }
