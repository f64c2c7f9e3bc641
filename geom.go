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
	"math/big"

	"github.com/golang/geo/r2"
)

// orientation is the sign of the signed area of an ordered point triple in
// the UV plane.
type orientation int

const (
	oriNegative orientation = -1
	oriZero     orientation = 0
	oriPositive orientation = 1
)

// Aliases matching the two ways the callers think about the predicate.
const (
	oriCW        = oriNegative
	oriCollinear = oriZero
	oriCCW       = oriPositive
)

func (o orientation) String() string {
	switch o {
	case oriNegative:
		return "negative"
	case oriPositive:
		return "positive"
	}
	return "zero"
}

// boundedness classifies a point against a triangle.
type boundedness int

const (
	bndOutside boundedness = iota
	bndOnBoundary
	bndInside
)

// orient2d returns the orientation of the triangle (a, b, c).
//
// The determinant is evaluated in rational arithmetic. Every float64 is an
// exactly representable rational, so the sign is exact for all inputs;
// none of the geometric predicates uses an epsilon. Comparisons of
// raw coordinates (bounding boxes, point equality) do not need this
// treatment since float64 comparison is already exact.
func orient2d(a, b, c r2.Point) orientation {
	var ax, ay, lhs, t1, t2, rhs big.Rat
	ax.SetFloat64(a.X)
	ay.SetFloat64(a.Y)

	lhs.SetFloat64(b.X)
	lhs.Sub(&lhs, &ax)
	t1.SetFloat64(c.Y)
	t1.Sub(&t1, &ay)
	lhs.Mul(&lhs, &t1)

	rhs.SetFloat64(b.Y)
	rhs.Sub(&rhs, &ay)
	t2.SetFloat64(c.X)
	t2.Sub(&t2, &ax)
	rhs.Mul(&rhs, &t2)

	return orientation(lhs.Cmp(&rhs))
}

// orient2dVec returns the orientation of vector v relative to vector u,
// i.e. the exact sign of the cross product u x v.
func orient2dVec(u, v r2.Point) orientation {
	return orient2d(r2.Point{}, u, v)
}

// dotSign returns the exact sign of the dot product u . v.
func dotSign(u, v r2.Point) int {
	var lhs, rhs, t big.Rat
	lhs.SetFloat64(u.X)
	t.SetFloat64(v.X)
	lhs.Mul(&lhs, &t)
	rhs.SetFloat64(u.Y)
	t.SetFloat64(v.Y)
	rhs.Mul(&rhs, &t)
	rhs.Neg(&rhs)
	return lhs.Cmp(&rhs)
}

// isCollinear reports whether a, b and c lie on a common line.
func isCollinear(a, b, c r2.Point) bool {
	return orient2d(a, b, c) == oriZero
}

// A segment is the closed line segment between two UV points.
type segment struct {
	a, b r2.Point
}

func (s segment) isDegenerate() bool { return s.a == s.b }

func (s segment) bbox() r2.Rect { return r2.RectFromPoints(s.a, s.b) }

// hasOn reports whether p lies on s, endpoints included. Collinearity is
// decided exactly; the interval test is plain coordinate comparison.
func (s segment) hasOn(p r2.Point) bool {
	if orient2d(s.a, s.b, p) != oriZero {
		return false
	}
	bb := s.bbox()
	return bb.X.Lo <= p.X && p.X <= bb.X.Hi && bb.Y.Lo <= p.Y && p.Y <= bb.Y.Hi
}

// intersects reports whether s and o share at least one point. Touching at
// an endpoint counts: the tracer leans on that when a ray passes exactly
// through a triangle corner.
func (s segment) intersects(o segment) bool {
	d1 := orient2d(o.a, o.b, s.a)
	d2 := orient2d(o.a, o.b, s.b)
	d3 := orient2d(s.a, s.b, o.a)
	d4 := orient2d(s.a, s.b, o.b)

	if d1 != oriZero && d2 != oriZero && d3 != oriZero && d4 != oriZero {
		return d1 != d2 && d3 != d4
	}
	// Some endpoint is collinear with the other segment; any remaining
	// contact must include an endpoint, so four on-segment tests settle it.
	return (d1 == oriZero && o.hasOn(s.a)) ||
		(d2 == oriZero && o.hasOn(s.b)) ||
		(d3 == oriZero && s.hasOn(o.a)) ||
		(d4 == oriZero && s.hasOn(o.b))
}

// A triangle is an ordered UV point triple. Its orientation is part of its
// meaning: faces with negative UV area occur in real parametrizations and
// the extraction handles them rather than normalizing them away.
type triangle struct {
	a, b, c r2.Point
}

func (t triangle) orientation() orientation { return orient2d(t.a, t.b, t.c) }

func (t triangle) isDegenerate() bool { return t.orientation() == oriZero }

func (t triangle) bbox() r2.Rect { return r2.RectFromPoints(t.a, t.b, t.c) }

// boundedness classifies p against t for either triangle orientation. A
// degenerate triangle has no interior; p can then only be on the boundary,
// which degrades to the union of the three side segments.
func (t triangle) boundedness(p r2.Point) boundedness {
	ori := t.orientation()
	if ori == oriZero {
		if (segment{t.a, t.b}).hasOn(p) || (segment{t.b, t.c}).hasOn(p) || (segment{t.c, t.a}).hasOn(p) {
			return bndOnBoundary
		}
		return bndOutside
	}

	o0 := orient2d(t.a, t.b, p)
	o1 := orient2d(t.b, t.c, p)
	o2 := orient2d(t.c, t.a, p)
	if o0 == -ori || o1 == -ori || o2 == -ori {
		return bndOutside
	}
	if o0 == ori && o1 == ori && o2 == ori {
		return bndInside
	}
	return bndOnBoundary
}

// hasOnBoundedSide reports whether p is strictly inside t.
func (t triangle) hasOnBoundedSide(p r2.Point) bool {
	return t.boundedness(p) == bndInside
}

// roundToNearest rounds half-up for positive values and half-down for
// negative ones, matching the rounding convention shared by the transition
// extractor and the lattice enumeration.
func roundToNearest(x float64) int {
	if x < 0 {
		return int(x - 0.5)
	}
	return int(x + 0.5)
}
