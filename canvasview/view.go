// Package canvasview draws a storycanvas editing session with ebiten and
// feeds mouse and keyboard input back into it.
//
// The view subscribes to the session's transform bus so elements under an
// active gesture are drawn from their live geometry, while everything else
// is drawn from the document store.
//
//	ed, _ := storycanvas.NewEditor(nil, store)
//	if err := canvasview.Run(ed, canvasview.Config{Title: "Page 1"}); err != nil {
//		log.Fatal(err)
//	}
package canvasview

import (
	"image/color"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/phanxgames/storycanvas"
)

// Config configures a View. Zero fields get defaults.
type Config struct {
	Title         string
	Width, Height int
	// ShowStatus draws the session summary in the top-left corner.
	ShowStatus bool
	Style      Style
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.Title == "" {
		c.Title = "storycanvas"
	}
	if c.Width <= 0 {
		c.Width = 640
	}
	if c.Height <= 0 {
		c.Height = 960
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Style.defaults()
}

// View is an ebiten.Game over one Editor.
type View struct {
	editor   *storycanvas.Editor
	cfg      Config
	log      *slog.Logger
	pixel    *ebiten.Image
	overlays *overlayTracker
	pointer  pointerState

	preview   *storycanvas.EffectPreview
	previewID string

	closed bool
}

// New creates a view for ed.
func New(ed *storycanvas.Editor, cfg Config) *View {
	cfg.defaults()
	pixel := ebiten.NewImage(1, 1)
	pixel.Fill(color.White)
	v := &View{
		editor:   ed,
		cfg:      cfg,
		log:      cfg.Logger,
		pixel:    pixel,
		overlays: newOverlayTracker(ed.Store(), ed.Bus()),
	}
	v.overlays.sync()
	return v
}

// Run opens a window and runs the view until it is closed. The editor
// session is closed on return.
func Run(ed *storycanvas.Editor, cfg Config) error {
	v := New(ed, cfg)
	defer v.Close()
	ebiten.SetWindowSize(v.cfg.Width, v.cfg.Height)
	ebiten.SetWindowTitle(v.cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(v)
}

// Close releases the bus subscriptions and ends the editor session.
func (v *View) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.overlays.release()
	v.editor.Close()
}

// StartPreview plays the selected element's animation in place.
func (v *View) StartPreview() error {
	p, err := v.editor.Preview()
	if err != nil {
		return err
	}
	id, _ := v.editor.Controller().SingleSelected()
	v.preview = p
	v.previewID = id
	return nil
}

// Update implements ebiten.Game.
func (v *View) Update() error {
	if v.closed {
		return ebiten.Termination
	}
	v.overlays.sync()

	x, y := ebiten.CursorPosition()
	down := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	v.processPointer(float64(x), float64(y), down)
	v.processKeys()

	if v.preview != nil {
		v.preview.Update(float32(1.0 / float64(ebiten.TPS())))
		if v.preview.Done() {
			v.preview = nil
			v.previewID = ""
		}
	}
	return nil
}

func (v *View) processPointer(x, y float64, down bool) {
	var err error
	switch v.pointer.step(x, y, down) {
	case pointerPress:
		err = v.editor.Press(x, y)
	case pointerMove:
		err = v.editor.Move(x, y)
	case pointerRelease:
		err = v.editor.Release(x, y)
	}
	if err != nil {
		v.log.Debug("pointer input rejected", "err", err)
	}
}

func (v *View) processKeys() {
	var err error
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		v.editor.Cancel()
		err = v.editor.Select()
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter):
		err = v.editor.Controller().EnterEditMode()
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		err = v.StartPreview()
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete), inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		err = v.editor.RemoveEffect()
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		err = v.zoomBy(1.25)
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		err = v.zoomBy(0.8)
	default:
		for i, k := range effectKeys {
			if inpututil.IsKeyJustPressed(k) {
				err = v.chooseEffect(i)
				break
			}
		}
	}
	if err != nil {
		v.log.Debug("key action rejected", "err", err)
	}
}

var effectKeys = [...]ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
	ebiten.KeyDigit4, ebiten.KeyDigit5, ebiten.KeyDigit6,
	ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9,
}

// chooseEffect attaches the i-th chooser entry for the selection.
func (v *View) chooseEffect(i int) error {
	opts, err := v.editor.EffectOptions()
	if err != nil {
		return err
	}
	if i >= len(opts) {
		return nil
	}
	_, err = v.editor.ChooseEffect(opts[i].Value, nil)
	return err
}

func (v *View) zoomBy(f float64) error {
	vp := v.editor.Viewport()
	vp.Zoom *= f
	return v.editor.SetViewport(vp)
}

// Draw implements ebiten.Game.
func (v *View) Draw(screen *ebiten.Image) {
	st := &v.cfg.Style
	screen.Fill(toRGBA(st.Background))
	vp := v.editor.Viewport()

	page, _ := storycanvas.ToViewport(storycanvas.Geometry{Width: vp.PageWidth, Height: vp.PageHeight}, vp)
	v.fillRect(screen, page, st.Page, 1)

	ctrl := v.editor.Controller()
	for _, el := range v.editor.VisibleElements() {
		g := v.overlays.geometry(el)
		opacity := 1.0
		if v.preview != nil && el.ID == v.previewID {
			f := v.preview.Frame()
			g = f.Apply(g)
			opacity = f.Opacity
		}
		px, err := storycanvas.ToViewport(g, vp)
		if err != nil {
			continue
		}
		v.fillRect(screen, px, st.fill(el.Type), opacity)
	}
	for _, id := range ctrl.Selected() {
		el, ok := v.editor.Store().Element(id)
		if !ok {
			continue
		}
		px, err := storycanvas.ToViewport(v.overlays.geometry(el), vp)
		if err != nil {
			continue
		}
		v.drawSelection(screen, px, ctrl.CanMove(id))
	}
	if v.cfg.ShowStatus {
		v.drawStatus(screen)
	}
}

// Layout implements ebiten.Game. The page fills the window width at zoom 1.
func (v *View) Layout(outsideWidth, outsideHeight int) (int, int) {
	vp := v.editor.Viewport()
	w := float64(outsideWidth)
	if w > 0 && w != vp.CanvasWidth {
		vp.CanvasWidth = w
		vp.CanvasHeight = w * vp.PageHeight / vp.PageWidth
		if err := v.editor.SetViewport(vp); err != nil {
			v.log.Warn("viewport resize rejected", "err", err)
		}
	}
	return outsideWidth, outsideHeight
}
