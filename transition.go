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
	"math/cmplx"

	"github.com/golang/geo/r2"
)

// A tf is a transition function: the rigid integer similarity
//
//	p -> i^r * p + (tu, tv)
//
// relating the UV charts of two faces across their shared edge. The
// rotational part r counts quarter turns; the translation is integral.
// These form a group under composition, which is all the atlas machinery
// ever needs from them.
type tf struct {
	r      int
	tu, tv int
}

var tfIdentity = tf{}

// rotate90 rotates the integer vector (u, v) by r quarter turns CCW.
func rotate90(u, v, r int) (int, int) {
	switch ((r % 4) + 4) % 4 {
	case 1:
		return -v, u
	case 2:
		return -u, -v
	case 3:
		return v, -u
	}
	return u, v
}

// compose returns t applied after o: (t.compose(o))(p) == t(o(p)).
func (t tf) compose(o tf) tf {
	tu, tv := rotate90(o.tu, o.tv, t.r)
	return tf{
		r:  (t.r + o.r) % 4,
		tu: tu + t.tu,
		tv: tv + t.tv,
	}
}

// inverse returns the transition undoing t.
func (t tf) inverse() tf {
	r := (4 - t.r%4) % 4
	tu, tv := rotate90(t.tu, t.tv, r)
	return tf{r: r, tu: -tu, tv: -tv}
}

// transformPoint applies t to a UV point.
func (t tf) transformPoint(p r2.Point) r2.Point {
	q := t.transformVector(p)
	return r2.Point{X: q.X + float64(t.tu), Y: q.Y + float64(t.tv)}
}

// transformVector applies only the rotational part of t.
func (t tf) transformVector(v r2.Point) r2.Point {
	switch ((t.r % 4) + 4) % 4 {
	case 1:
		return r2.Point{X: -v.Y, Y: v.X}
	case 2:
		return r2.Point{X: -v.X, Y: -v.Y}
	case 3:
		return r2.Point{X: v.Y, Y: -v.X}
	}
	return v
}

func (t tf) isIdentity() bool { return t == tfIdentity }

// rotPow returns i^r as a complex number.
func rotPow(r int) complex128 {
	switch ((r % 4) + 4) % 4 {
	case 1:
		return complex(0, 1)
	case 2:
		return complex(-1, 0)
	case 3:
		return complex(0, -1)
	}
	return complex(1, 0)
}

// extractTransitions derives the per-edge transition functions from the
// per-halfedge UVs. Boundary edges carry the identity.
//
// The rotational part falls out of the argument of the complex ratio of the
// two images of the shared edge; the translation is whatever is left after
// rotating one endpoint onto the other side's frame. Both are rounded to
// integers: the parametrization promises integer transitions, the rounding
// merely strips the float noise off them.
func extractTransitions(m *TriMesh, uv []float64) []tf {
	tfs := make([]tf, m.EdgeCount())

	for e := EdgeID(0); int(e) < m.EdgeCount(); e++ {
		if m.edgeDeleted[e] {
			continue
		}
		if m.IsBoundaryEdge(e) {
			tfs[e] = tfIdentity
			continue
		}
		heh0 := m.Halfedge(e, 0)
		heh1 := m.Halfedge(e, 1)
		heh0p := m.Prev(heh0)
		heh1p := m.Prev(heh1)

		l0 := uvComplex(heh0, uv)
		l1 := uvComplex(heh0p, uv)
		r0 := uvComplex(heh1p, uv)
		r1 := uvComplex(heh1, uv)

		r := roundToNearest(2.0 * imag(cmplx.Log((r0-r1)/(l0-l1))) / math.Pi)
		r = ((r % 4) + 4) % 4
		t := r0 - rotPow(r)*l0
		tfs[e] = tf{r: r, tu: roundToNearest(real(t)), tv: roundToNearest(imag(t))}
	}
	return tfs
}

func uvComplex(h HalfedgeID, uv []float64) complex128 {
	return complex(uv[2*int(h)], uv[2*int(h)+1])
}

func uvPoint(h HalfedgeID, uv []float64) r2.Point {
	return r2.Point{X: uv[2*int(h)], Y: uv[2*int(h)+1]}
}

func setUVPoint(h HalfedgeID, uv []float64, p r2.Point) {
	uv[2*int(h)] = p.X
	uv[2*int(h)+1] = p.Y
}
