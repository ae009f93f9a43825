package storycanvas

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertMatrix(t *testing.T, name string, got, want [6]float64) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("%s[%d] = %v, want %v (full: %v vs %v)", name, i, got[i], want[i], got, want)
		}
	}
}

// --- elementTransform ---

func TestElementTransformTranslation(t *testing.T) {
	got := elementTransform(Geometry{X: 10, Y: 20, Width: 100, Height: 50})
	assertMatrix(t, "translation", got, [6]float64{1, 0, 0, 1, 10, 20})
}

func TestElementTransformRotation90(t *testing.T) {
	g := Geometry{X: 0, Y: 0, Width: 100, Height: 50, Rotation: 90}
	got := elementTransform(g)
	// Center (50,25). Local top-left (-50,-25) from center rotates to (25,-50).
	// cos=0, sin=1 → a=0, b=1, c=-1, d=0, t = center + (25,-50) = (75,-25)
	assertMatrix(t, "rot90", got, [6]float64{0, 1, -1, 0, 75, -25})
}

func TestElementTransformKeepsCenter(t *testing.T) {
	g := Geometry{X: 30, Y: 40, Width: 80, Height: 60, Rotation: 37}
	cx, cy := fromLocal(g, g.Width/2, g.Height/2)
	assertNear(t, "cx", cx, 70)
	assertNear(t, "cy", cy, 70)
}

// --- multiplyAffine ---

func TestMultiplyAffineIdentity(t *testing.T) {
	id := identityTransform
	m := [6]float64{2, 1, 3, 4, 5, 6}
	assertMatrix(t, "id*m", multiplyAffine(id, m), m)
	assertMatrix(t, "m*id", multiplyAffine(m, id), m)
}

func TestMultiplyAffineTranslations(t *testing.T) {
	a := [6]float64{1, 0, 0, 1, 10, 20}
	b := [6]float64{1, 0, 0, 1, 5, 3}
	got := multiplyAffine(a, b)
	assertMatrix(t, "translations", got, [6]float64{1, 0, 0, 1, 15, 23})
}

// --- invertAffine ---

func TestInvertAffine(t *testing.T) {
	m := [6]float64{2, 0, 0, 3, 10, 20}
	inv := invertAffine(m)
	assertMatrix(t, "m*inv=id", multiplyAffine(m, inv), identityTransform)
}

func TestInvertAffineRotated(t *testing.T) {
	m := elementTransform(Geometry{X: 5, Y: 7, Width: 40, Height: 10, Rotation: 60})
	inv := invertAffine(m)
	assertMatrix(t, "m*inv=id", multiplyAffine(m, inv), identityTransform)
}

func TestInvertAffineSingular(t *testing.T) {
	got := invertAffine([6]float64{0, 0, 0, 0, 4, 4})
	assertMatrix(t, "singular", got, identityTransform)
}

// --- local/world conversion ---

func TestLocalRoundTrip(t *testing.T) {
	g := Geometry{X: 12, Y: -3, Width: 64, Height: 32, Rotation: 215}
	x, y := fromLocal(g, 10, 20)
	lx, ly := toLocal(g, x, y)
	assertNear(t, "lx", lx, 10)
	assertNear(t, "ly", ly, 20)
}

func TestContainsPointRotated(t *testing.T) {
	g := Geometry{X: 0, Y: 0, Width: 100, Height: 10, Rotation: 90}
	// Rotated 90° around (50,5) the bar spans x 45..55, y -45..55.
	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"center", 50, 5, true},
		{"top of rotated bar", 50, -40, true},
		{"old right end", 95, 5, false},
		{"edge", 55, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := containsPoint(g, tt.x, tt.y); got != tt.want {
				t.Errorf("containsPoint(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestBoundingBoxRotated45(t *testing.T) {
	g := Geometry{X: 0, Y: 0, Width: 10, Height: 10, Rotation: 45}
	bb := boundingBox(g)
	half := 10 / math.Sqrt2
	assertNear(t, "x", bb.X, 5-half)
	assertNear(t, "width", bb.Width, 2*half)
}

func TestRotateVector(t *testing.T) {
	x, y := rotateVector(1, 0, 90)
	assertNear(t, "x", x, 0)
	assertNear(t, "y", y, 1)
}

func TestNormalizeDegrees(t *testing.T) {
	assertNear(t, "-90", normalizeDegrees(-90), 270)
	assertNear(t, "720", normalizeDegrees(720), 0)
	assertNear(t, "45", normalizeDegrees(45), 45)
}

func TestGeometryBoundsUpright(t *testing.T) {
	b := Geometry{X: 150, Y: 100, Width: 200, Height: 10, Rotation: 90}.Bounds()
	assertNear(t, "x", b.X, 245)
	assertNear(t, "y", b.Y, 5)
	assertNear(t, "width", b.Width, 10)
	assertNear(t, "height", b.Height, 200)
}
