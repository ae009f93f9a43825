package canvasview

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/phanxgames/storycanvas"
)

// Style holds the canvas palette. Zero colors get defaults.
type Style struct {
	Background storycanvas.Color
	Page       storycanvas.Color
	Frame      storycanvas.Color
	Handle     storycanvas.Color
	Rotate     storycanvas.Color
	// Fill colors elements by type; unknown types use Page darkened.
	Fill map[storycanvas.ElementType]storycanvas.Color
	// FrameWidth is the selection outline width in pixels.
	FrameWidth float64
}

// DefaultStyle returns the built-in palette.
func DefaultStyle() Style {
	return Style{
		Background: storycanvas.Color{R: 0.137, G: 0.118, B: 0.176, A: 1},
		Page:       storycanvas.ColorWhite,
		Frame:      storycanvas.Color{R: 0.2, G: 0.5, B: 1, A: 1},
		Handle:     storycanvas.ColorWhite,
		Rotate:     storycanvas.Color{R: 1, G: 0.7, B: 0.2, A: 1},
		Fill: map[storycanvas.ElementType]storycanvas.Color{
			storycanvas.ElementImage: {R: 0.3, G: 0.7, B: 0.9, A: 1},
			storycanvas.ElementVideo: {R: 0.8, G: 0.3, B: 0.9, A: 1},
			storycanvas.ElementText:  {R: 0.9, G: 0.9, B: 0.3, A: 1},
			storycanvas.ElementShape: {R: 0.9, G: 0.3, B: 0.3, A: 1},
		},
		FrameWidth: 2,
	}
}

func (s *Style) defaults() {
	d := DefaultStyle()
	if s.Background == (storycanvas.Color{}) {
		s.Background = d.Background
	}
	if s.Page == (storycanvas.Color{}) {
		s.Page = d.Page
	}
	if s.Frame == (storycanvas.Color{}) {
		s.Frame = d.Frame
	}
	if s.Handle == (storycanvas.Color{}) {
		s.Handle = d.Handle
	}
	if s.Rotate == (storycanvas.Color{}) {
		s.Rotate = d.Rotate
	}
	if s.Fill == nil {
		s.Fill = d.Fill
	}
	if s.FrameWidth <= 0 {
		s.FrameWidth = d.FrameWidth
	}
}

func (s *Style) fill(t storycanvas.ElementType) storycanvas.Color {
	if c, ok := s.Fill[t]; ok {
		return c
	}
	return storycanvas.Color{R: s.Page.R * 0.6, G: s.Page.G * 0.6, B: s.Page.B * 0.6, A: 1}
}

// colorScale converts a straight-alpha color and an extra opacity into the
// premultiplied scale ebiten expects.
func colorScale(c storycanvas.Color, opacity float64) ebiten.ColorScale {
	a := c.A * opacity
	var cs ebiten.ColorScale
	cs.Scale(float32(c.R*a), float32(c.G*a), float32(c.B*a), float32(a))
	return cs
}

// toRGBA converts a straight-alpha color to premultiplied 8-bit RGBA.
func toRGBA(c storycanvas.Color) color.RGBA {
	ch := func(v float64) uint8 {
		return uint8(math.Max(0, math.Min(1, v))*255 + 0.5)
	}
	return color.RGBA{R: ch(c.R * c.A), G: ch(c.G * c.A), B: ch(c.B * c.A), A: ch(c.A)}
}

// rectGeoM maps the unit square onto px, a viewport-space geometry rotated
// around its center.
func rectGeoM(px storycanvas.Geometry) ebiten.GeoM {
	var m ebiten.GeoM
	m.Scale(px.Width, px.Height)
	m.Translate(-px.Width/2, -px.Height/2)
	m.Rotate(px.Rotation * math.Pi / 180)
	c := px.Center()
	m.Translate(c.X, c.Y)
	return m
}

// lineGeoM maps the unit square onto a segment of the given width.
func lineGeoM(x0, y0, x1, y1, width float64) ebiten.GeoM {
	var m ebiten.GeoM
	m.Scale(math.Hypot(x1-x0, y1-y0), width)
	m.Translate(0, -width/2)
	m.Rotate(math.Atan2(y1-y0, x1-x0))
	m.Translate(x0, y0)
	return m
}

func (v *View) fillRect(dst *ebiten.Image, px storycanvas.Geometry, c storycanvas.Color, opacity float64) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM = rectGeoM(px)
	op.ColorScale = colorScale(c, opacity)
	dst.DrawImage(v.pixel, op)
}

func (v *View) line(dst *ebiten.Image, x0, y0, x1, y1 float64, c storycanvas.Color) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM = lineGeoM(x0, y0, x1, y1, v.cfg.Style.FrameWidth)
	op.ColorScale = colorScale(c, 1)
	dst.DrawImage(v.pixel, op)
}

// frameCorners returns the corner handles of the selection frame in drawing
// order.
func frameCorners(handles []storycanvas.HandlePoint) []storycanvas.HandlePoint {
	order := [...]storycanvas.ResizeHandle{storycanvas.HandleNW, storycanvas.HandleNE, storycanvas.HandleSE, storycanvas.HandleSW}
	out := make([]storycanvas.HandlePoint, 0, len(order))
	for _, want := range order {
		for _, h := range handles {
			if !h.Rotate && h.Handle == want {
				out = append(out, h)
			}
		}
	}
	return out
}

// drawSelection outlines px and draws its handles. Handles are hidden while
// the element's edit surface replaces them.
func (v *View) drawSelection(dst *ebiten.Image, px storycanvas.Geometry, showHandles bool) {
	hp := storycanvas.Handles(px, v.editor.Config().Gesture.RotateHandleOffset)
	corners := frameCorners(hp)
	for i, c := range corners {
		n := corners[(i+1)%len(corners)]
		v.line(dst, c.X, c.Y, n.X, n.Y, v.cfg.Style.Frame)
	}
	if !showHandles {
		return
	}
	size := v.editor.Config().Gesture.HandleSize
	for _, h := range hp {
		col := v.cfg.Style.Handle
		if h.Rotate {
			col = v.cfg.Style.Rotate
		}
		sq := storycanvas.Geometry{X: h.X - size/2, Y: h.Y - size/2, Width: size, Height: size, Rotation: px.Rotation}
		v.fillRect(dst, sq, v.cfg.Style.Frame, 1)
		inner := storycanvas.Geometry{X: sq.X + 1, Y: sq.Y + 1, Width: size - 2, Height: size - 2, Rotation: px.Rotation}
		v.fillRect(dst, inner, col, 1)
	}
}

// statusText is the one-line session summary shown in the corner.
func statusText(ed *storycanvas.Editor) string {
	c := ed.Controller()
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s", c.State())
	if sel := c.Selected(); len(sel) > 0 {
		fmt.Fprintf(&b, "  selected: %s", strings.Join(sel, ","))
	}
	if c.EditMode() {
		b.WriteString("  [edit]")
	}
	if inst, ok, err := ed.CurrentEffect(); err == nil && ok {
		fmt.Fprintf(&b, "  effect: %s", inst.Type)
	}
	fmt.Fprintf(&b, "  zoom: %.0f%%", ed.Viewport().Zoom*100)
	return b.String()
}

func (v *View) drawStatus(dst *ebiten.Image) {
	ebitenutil.DebugPrintAt(dst, statusText(v.editor), 4, 4)
}
