package storycanvas

import "math"

// Default page size in document units. Pages keep a fixed aspect ratio and
// every stored geometry is relative to this coordinate space.
const (
	DefaultPageWidth  = 412
	DefaultPageHeight = 618
)

// Epsilon is the tolerance for document/viewport round trips, relative to the
// magnitude of the value being compared.
const Epsilon = 1e-9

// ViewportState describes how the page is currently shown: the canvas pixel
// size, the zoom factor and the scroll offset of the page origin. It is a
// plain value; the mapping functions derive everything they need on each call.
type ViewportState struct {
	// PageWidth and PageHeight are the page size in document units.
	PageWidth, PageHeight float64
	// CanvasWidth and CanvasHeight are the pixel size of the canvas area. At
	// zoom 1 the page exactly fills the canvas width.
	CanvasWidth, CanvasHeight float64
	// Zoom scales the canvas (1.0 = fit, >1 = zoom in).
	Zoom float64
	// ScrollX and ScrollY are the pixel position of the page origin within
	// the visible canvas area.
	ScrollX, ScrollY float64
}

// NewViewportState returns a viewport for a canvas of the given pixel width
// at zoom 1, keeping the default page aspect ratio.
func NewViewportState(canvasWidth float64) ViewportState {
	return ViewportState{
		PageWidth:    DefaultPageWidth,
		PageHeight:   DefaultPageHeight,
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasWidth * DefaultPageHeight / DefaultPageWidth,
		Zoom:         1,
	}
}

// Validate rejects viewports that cannot produce an invertible mapping.
func (v ViewportState) Validate() error {
	for _, f := range [...]float64{v.PageWidth, v.PageHeight, v.CanvasWidth, v.CanvasHeight, v.Zoom, v.ScrollX, v.ScrollY} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errMalformed("non-finite viewport %+v", v)
		}
	}
	if v.PageWidth <= 0 || v.PageHeight <= 0 || v.CanvasWidth <= 0 || v.CanvasHeight <= 0 || v.Zoom <= 0 {
		return errMalformed("non-positive viewport dimension %+v", v)
	}
	return nil
}

// Scale returns the number of pixels per document unit.
func (v ViewportState) Scale() float64 {
	return v.CanvasWidth / v.PageWidth * v.Zoom
}

// viewMatrix maps document points to viewport pixels.
//
// viewMatrix = Translate(ScrollX, ScrollY) * Scale(s)
func (v ViewportState) viewMatrix() [6]float64 {
	s := v.Scale()
	return multiplyAffine([6]float64{1, 0, 0, 1, v.ScrollX, v.ScrollY}, [6]float64{s, 0, 0, s, 0, 0})
}

// invViewMatrix maps viewport pixels to document points. It is built from the
// uniform scale directly so tiny zooms stay invertible.
func (v ViewportState) invViewMatrix() [6]float64 {
	s := v.Scale()
	return [6]float64{1 / s, 0, 0, 1 / s, -v.ScrollX / s, -v.ScrollY / s}
}

// ToViewportPoint converts a document-space point to viewport pixels.
func (v ViewportState) ToViewportPoint(dx, dy float64) (px, py float64) {
	return transformPoint(v.viewMatrix(), dx, dy)
}

// ToDocumentPoint converts a viewport pixel position to document space.
func (v ViewportState) ToDocumentPoint(px, py float64) (dx, dy float64) {
	return transformPoint(v.invViewMatrix(), px, py)
}

// VisibleBounds returns the document-space rectangle covered by the canvas.
func (v ViewportState) VisibleBounds() Rect {
	x0, y0 := v.ToDocumentPoint(0, 0)
	x1, y1 := v.ToDocumentPoint(v.CanvasWidth, v.CanvasHeight)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// ToViewport maps a document-space geometry into viewport pixels. Rotation is
// unchanged since the mapping is a uniform scale plus translation.
func ToViewport(g Geometry, v ViewportState) (Geometry, error) {
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	if err := v.Validate(); err != nil {
		return Geometry{}, err
	}
	m := v.viewMatrix()
	x, y := transformPoint(m, g.X, g.Y)
	return Geometry{
		X:        x,
		Y:        y,
		Width:    g.Width * m[0],
		Height:   g.Height * m[3],
		Rotation: g.Rotation,
	}, nil
}

// ToDocument maps a viewport-pixel geometry back to document space.
func ToDocument(g Geometry, v ViewportState) (Geometry, error) {
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	if err := v.Validate(); err != nil {
		return Geometry{}, err
	}
	inv := v.invViewMatrix()
	x, y := transformPoint(inv, g.X, g.Y)
	return Geometry{
		X:        x,
		Y:        y,
		Width:    g.Width * inv[0],
		Height:   g.Height * inv[3],
		Rotation: g.Rotation,
	}, nil
}

// GeometryNear reports whether a and b match within Epsilon, scaled by the
// magnitude of the values so large page coordinates are compared fairly.
func GeometryNear(a, b Geometry) bool {
	near := func(x, y float64) bool {
		tol := Epsilon * math.Max(1, math.Max(math.Abs(x), math.Abs(y)))
		return math.Abs(x-y) <= tol
	}
	return near(a.X, b.X) && near(a.Y, b.Y) &&
		near(a.Width, b.Width) && near(a.Height, b.Height) &&
		near(a.Rotation, b.Rotation)
}
