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
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ParametrizationStats classifies every face of the parametrization after
// transition extraction and truncation: positively or negatively oriented,
// or degenerate as a needle (two UV corners coincide), a cap (collinear
// but distinct) or a point (all three coincide). Purely informational; the
// input mesh and UV array are left untouched.
func (x *Extractor) ParametrizationStats(uvCoords []float64) (string, error) {
	m := x.mesh
	if len(uvCoords) != 2*m.HalfedgeCount() {
		return "", errors.Errorf("qex: uv array has %d entries, want %d",
			len(uvCoords), 2*m.HalfedgeCount())
	}

	ext := extraction{m: m, uv: append([]float64(nil), uvCoords...)}
	ext.tfs = extractTransitions(m, ext.uv)
	ext.consistentTruncation()

	var positive, negative, needle, caps, point int
	for f := FaceID(0); int(f) < m.FaceCount(); f++ {
		if !m.FaceAlive(f) {
			continue
		}
		tri := ext.triangleUV(f)
		switch tri.orientation() {
		case oriPositive:
			positive++
			continue
		case oriNegative:
			negative++
			continue
		}
		switch {
		case tri.a == tri.b && tri.b == tri.c:
			point++
		case tri.a == tri.b || tri.b == tri.c || tri.c == tri.a:
			needle++
		default:
			caps++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Parametrization stats:\n")
	fmt.Fprintf(&b, "  # positive: %d\n", positive)
	fmt.Fprintf(&b, "  # negative: %d\n", negative)
	fmt.Fprintf(&b, "  # needles: %d\n", needle)
	fmt.Fprintf(&b, "  # caps: %d\n", caps)
	fmt.Fprintf(&b, "  # points: %d\n", point)
	return b.String(), nil
}

// QuadMeshStats renders the face valence histogram of an extracted mesh.
// A clean extraction has a single bucket at valence 4.
func QuadMeshStats(pm *PolyMesh) string {
	histogram := make(map[int]int)
	for _, f := range pm.Faces() {
		histogram[len(pm.FaceHalfedges(f))]++
	}

	valences := make([]int, 0, len(histogram))
	for v := range histogram {
		valences = append(valences, v)
	}
	sort.Ints(valences)

	var b strings.Builder
	fmt.Fprintf(&b, "Face valence histogram:\n")
	for _, v := range valences {
		fmt.Fprintf(&b, "  Valence %d: %d\n", v, histogram[v])
	}
	if len(histogram) > 1 || histogram[4] == 0 {
		fmt.Fprintf(&b, "  This is not a quad mesh!\n")
	}
	return b.String()
}
