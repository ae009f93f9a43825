package storycanvas

import "math"

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// elementTransform computes the affine matrix mapping element-local points
// (origin at the unrotated top-left corner) into the element's coordinate
// space. Returns [a, b, c, d, tx, ty].
//
// Composition order:
//
//	Translate(-w/2, -h/2) -> Rotate -> Translate(centerX, centerY)
func elementTransform(g Geometry) [6]float64 {
	sin, cos := math.Sincos(g.Rotation * math.Pi / 180)
	c := g.Center()
	px := g.Width / 2
	py := g.Height / 2
	return [6]float64{
		cos, sin,
		-sin, cos,
		c.X - (cos*px - sin*py),
		c.Y - (sin*px + cos*py),
	}
}

// multiplyAffine multiplies two 2D affine matrices: result = parent * child.
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular (determinant ~ 0).
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// rotateVector rotates (x, y) by deg degrees clockwise (Y down).
func rotateVector(x, y, deg float64) (float64, float64) {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return cos*x - sin*y, sin*x + cos*y
}

// toLocal converts a point in the geometry's space into element-local
// coordinates (unrotated, origin at top-left).
func toLocal(g Geometry, x, y float64) (lx, ly float64) {
	return transformPoint(invertAffine(elementTransform(g)), x, y)
}

// fromLocal converts an element-local point into the geometry's space.
func fromLocal(g Geometry, lx, ly float64) (x, y float64) {
	return transformPoint(elementTransform(g), lx, ly)
}

// containsPoint reports whether (x, y) falls inside the rotated frame of g.
// Points on the edge are inside.
func containsPoint(g Geometry, x, y float64) bool {
	lx, ly := toLocal(g, x, y)
	const eps = 1e-9
	return lx >= -eps && lx <= g.Width+eps && ly >= -eps && ly <= g.Height+eps
}

// corners returns the four corners of the rotated frame, clockwise from the
// top-left.
func corners(g Geometry) [4]Vec2 {
	m := elementTransform(g)
	var out [4]Vec2
	pts := [4][2]float64{{0, 0}, {g.Width, 0}, {g.Width, g.Height}, {0, g.Height}}
	for i, p := range pts {
		out[i].X, out[i].Y = transformPoint(m, p[0], p[1])
	}
	return out
}

// boundingBox returns the axis-aligned bounds of the rotated frame.
func boundingBox(g Geometry) Rect {
	c := corners(g)
	minX := math.Min(math.Min(c[0].X, c[1].X), math.Min(c[2].X, c[3].X))
	minY := math.Min(math.Min(c[0].Y, c[1].Y), math.Min(c[2].Y, c[3].Y))
	maxX := math.Max(math.Max(c[0].X, c[1].X), math.Max(c[2].X, c[3].X))
	maxY := math.Max(math.Max(c[0].Y, c[1].Y), math.Max(c[2].Y, c[3].Y))
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
