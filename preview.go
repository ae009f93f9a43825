package storycanvas

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// PreviewFrame is the animated state of an element at one instant, relative
// to its resting geometry.
type PreviewFrame struct {
	// OffsetX and OffsetY translate the element in document units.
	OffsetX, OffsetY float64
	// Scale resizes the element around its center.
	Scale float64
	// Rotation is added to the element's rotation, in degrees.
	Rotation float64
	Opacity  float64
}

// restFrame is the frame of an element that is not animated.
var restFrame = PreviewFrame{Scale: 1, Opacity: 1}

// Apply returns g as it appears in this frame.
func (f PreviewFrame) Apply(g Geometry) Geometry {
	w := g.Width * f.Scale
	h := g.Height * f.Scale
	return Geometry{
		X:        g.X + f.OffsetX + (g.Width-w)/2,
		Y:        g.Y + f.OffsetY + (g.Height-h)/2,
		Width:    w,
		Height:   h,
		Rotation: g.Rotation + f.Rotation,
	}
}

type previewChannel uint8

const (
	chanOffsetX previewChannel = iota
	chanOffsetY
	chanScale
	chanRotation
	chanOpacity
	numChannels
)

// EffectPreview plays an effect instance in the editor so the author can see
// it while tuning parameters. Call Update(dt) each frame. It approximates
// the published output; it is not the renderer of the final animation.
type EffectPreview struct {
	tweens  [numChannels]*gween.Tween
	start   PreviewFrame
	frame   PreviewFrame
	delay   float32
	elapsed float32

	// Pulse drives chanScale as a phase in [0, 1] instead of a scale.
	pulse      bool
	pulseScale float64
	iterations int

	done bool
}

// easingFuncs maps easing dropdown values to gween easing functions.
var easingFuncs = map[string]ease.TweenFunc{
	"linear":      ease.Linear,
	"ease-in":     ease.InQuad,
	"ease-out":    ease.OutQuad,
	"ease-in-out": ease.InOutQuad,
	"bounce":      ease.OutBounce,
	"elastic":     ease.OutElastic,
}

// EasingFunc returns the easing for a dropdown value, falling back to linear.
func EasingFunc(name string) ease.TweenFunc {
	if fn, ok := easingFuncs[name]; ok {
		return fn
	}
	return ease.Linear
}

// NewEffectPreview builds a preview of inst on an element with geometry g on
// a page of pageWidth by pageHeight document units. A non-positive page size
// means the default page. Unknown effect types preview as a still frame.
func NewEffectPreview(inst EffectInstance, g Geometry, pageWidth, pageHeight float64) *EffectPreview {
	if pageWidth <= 0 || pageHeight <= 0 {
		pageWidth, pageHeight = DefaultPageWidth, DefaultPageHeight
	}
	p := &EffectPreview{}
	ms, _ := inst.Params.Float(FieldDuration)
	duration := float32(math.Max(ms, 1) / 1000)
	delay, _ := inst.Params.Float(FieldDelay)
	p.delay = float32(math.Max(delay, 0) / 1000)
	easing, _ := inst.Params.String(FieldEasing)
	fn := EasingFunc(easing)

	tween := func(ch previewChannel, from, to float64) {
		p.tweens[ch] = gween.New(float32(from), float32(to), duration, fn)
	}
	entry := func(dirKey string) {
		dir, _ := inst.Params.String(dirKey)
		dx, dy := offPageOffset(Direction(dir), g, pageWidth, pageHeight)
		if dx != 0 {
			tween(chanOffsetX, dx, 0)
		}
		if dy != 0 {
			tween(chanOffsetY, dy, 0)
		}
	}

	switch inst.Type {
	case EffectDrop:
		tween(chanOffsetY, -(g.Y + g.Height), 0)
	case EffectFadeIn:
		tween(chanOpacity, 0, 1)
	case EffectFlyIn:
		entry(FieldFlyInDir)
	case EffectPan, EffectBackgroundPan:
		dir, _ := inst.Params.String(FieldPanDir)
		angle, _ := inst.Params.Float(FieldPanAngle)
		dx, dy := panOffset(Direction(dir), g, angle)
		tween(chanOffsetX, dx, 0)
		tween(chanOffsetY, dy, 0)
	case EffectPulse:
		p.pulse = true
		p.pulseScale, _ = inst.Params.Float(FieldScale)
		n, _ := inst.Params.Float(FieldIterations)
		p.iterations = max(1, int(n))
		tween(chanScale, 0, 1)
	case EffectRotateIn:
		dir, _ := inst.Params.String(FieldRotateInDir)
		turn := -360.0
		if Direction(dir) == DirRightToLeft {
			turn = 360
		}
		entry(FieldRotateInDir)
		tween(chanRotation, turn, 0)
	case EffectTwirlIn:
		tween(chanRotation, -720, 0)
		tween(chanScale, 0, 1)
		tween(chanOpacity, 0, 1)
	case EffectWhooshIn:
		entry(FieldWhooshInDir)
		tween(chanScale, 0.15, 1)
		tween(chanOpacity, 0, 1)
	case EffectZoom:
		from, _ := inst.Params.Float(FieldZoomFrom)
		to, ok := inst.Params.Float(FieldZoomTo)
		if !ok {
			to = 1
		}
		tween(chanScale, from, to)
	case EffectBackgroundZoom:
		amount, _ := inst.Params.Float(FieldScaleFrom)
		dir, _ := inst.Params.String(FieldZoomDirection)
		if dir == ZoomScaleOut {
			tween(chanScale, 1+amount, 1)
		} else {
			tween(chanScale, 1, 1+amount)
		}
	}

	p.start = restFrame
	for ch, t := range p.tweens {
		if t != nil {
			v, _ := t.Update(0)
			p.set(&p.start, previewChannel(ch), float64(v))
		}
	}
	p.frame = p.start
	if p.tweens == [numChannels]*gween.Tween{} {
		p.done = true
		p.frame = restFrame
	}
	return p
}

// offPageOffset returns the offset that places g just outside the page on
// the side the effect enters from.
func offPageOffset(dir Direction, g Geometry, pageWidth, pageHeight float64) (dx, dy float64) {
	switch dir {
	case DirLeftToRight:
		return -(g.X + g.Width), 0
	case DirRightToLeft:
		return pageWidth - g.X, 0
	case DirTopToBottom:
		return 0, -(g.Y + g.Height)
	case DirBottomToTop:
		return 0, pageHeight - g.Y
	}
	return 0, 0
}

// panOffset returns the starting offset of a pan: a quarter of the element's
// extent against the pan direction, turned by angle degrees.
func panOffset(dir Direction, g Geometry, angle float64) (dx, dy float64) {
	switch dir {
	case DirLeftToRight:
		dx = -g.Width / 4
	case DirRightToLeft:
		dx = g.Width / 4
	case DirTopToBottom:
		dy = -g.Height / 4
	case DirBottomToTop:
		dy = g.Height / 4
	}
	return rotateVector(dx, dy, angle)
}

func (p *EffectPreview) set(f *PreviewFrame, ch previewChannel, v float64) {
	switch ch {
	case chanOffsetX:
		f.OffsetX = v
	case chanOffsetY:
		f.OffsetY = v
	case chanScale:
		if p.pulse {
			f.Scale = 1 + p.pulseScale*math.Abs(math.Sin(math.Pi*v*float64(p.iterations)))
		} else {
			f.Scale = v
		}
	case chanRotation:
		f.Rotation = v
	case chanOpacity:
		f.Opacity = v
	}
}

// Update advances the preview by dt seconds and returns the current frame.
// During the delay the element holds its starting frame.
func (p *EffectPreview) Update(dt float32) PreviewFrame {
	if p.done {
		return p.frame
	}
	before := p.elapsed
	p.elapsed += dt
	if p.elapsed < p.delay {
		return p.frame
	}
	step := dt
	if before < p.delay {
		step = p.elapsed - p.delay
	}
	finished := true
	for ch, t := range p.tweens {
		if t == nil {
			continue
		}
		v, fin := t.Update(step)
		p.set(&p.frame, previewChannel(ch), float64(v))
		if !fin {
			finished = false
		}
	}
	p.done = finished
	return p.frame
}

// Frame returns the current frame without advancing.
func (p *EffectPreview) Frame() PreviewFrame {
	return p.frame
}

// Start returns the frame shown before the effect begins.
func (p *EffectPreview) Start() PreviewFrame {
	return p.start
}

// Done reports whether the preview has played to the end.
func (p *EffectPreview) Done() bool {
	return p.done
}
