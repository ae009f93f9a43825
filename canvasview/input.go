package canvasview

type pointerAction uint8

const (
	pointerNone pointerAction = iota
	pointerPress
	pointerMove
	pointerRelease
)

// pointerState turns polled mouse state into press, move and release edges.
type pointerState struct {
	down       bool
	lastX      float64
	lastY      float64
	positioned bool
}

func (p *pointerState) step(x, y float64, down bool) pointerAction {
	moved := !p.positioned || x != p.lastX || y != p.lastY
	p.lastX, p.lastY, p.positioned = x, y, true

	switch {
	case down && !p.down:
		p.down = true
		return pointerPress
	case !down && p.down:
		p.down = false
		return pointerRelease
	case down && moved:
		return pointerMove
	}
	return pointerNone
}
