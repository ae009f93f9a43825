package storycanvas

import (
	"encoding/json"
	"fmt"
)

// scriptStep is a single action in a session script.
type scriptStep struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids,omitempty"`
	X      float64  `json:"x,omitempty"`
	Y      float64  `json:"y,omitempty"`
	FromX  float64  `json:"fromX,omitempty"`
	FromY  float64  `json:"fromY,omitempty"`
	ToX    float64  `json:"toX,omitempty"`
	ToY    float64  `json:"toY,omitempty"`
	Steps  int      `json:"steps,omitempty"`
	Zoom   float64  `json:"zoom,omitempty"`

	Effect string         `json:"effect,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	Field  string         `json:"field,omitempty"`
	Value  any            `json:"value,omitempty"`
	Final  bool           `json:"final,omitempty"`
}

// sessionScript is the top-level JSON structure of a script.
type sessionScript struct {
	Steps []scriptStep `json:"steps"`
}

// Script replays recorded pointer and effect actions against an Editor.
// Coordinates are viewport pixels.
//
//	{"steps": [
//	  {"action": "select", "ids": ["e1"]},
//	  {"action": "drag", "fromX": 100, "fromY": 200, "toX": 100, "toY": 300, "steps": 4},
//	  {"action": "add-effect", "effect": "effect-fade-in"},
//	  {"action": "update-effect", "field": "duration", "value": "800", "final": true}
//	]}
type Script struct {
	steps  []scriptStep
	cursor int
}

// LoadScript parses a JSON session script.
func LoadScript(jsonData []byte) (*Script, error) {
	var s sessionScript
	if err := json.Unmarshal(jsonData, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range s.Steps {
		if !knownAction(st.Action) {
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &Script{steps: s.Steps}, nil
}

func knownAction(a string) bool {
	switch a {
	case "select", "deselect", "press", "move", "release", "cancel", "drag",
		"zoom", "edit-mode", "add-effect", "update-effect", "remove-effect":
		return true
	}
	return false
}

// Done reports whether every step has run.
func (s *Script) Done() bool {
	return s.cursor >= len(s.steps)
}

// Len returns the number of steps.
func (s *Script) Len() int {
	return len(s.steps)
}

// Step runs the next action against e. It returns false once the script is
// exhausted.
func (s *Script) Step(e *Editor) (bool, error) {
	if s.Done() {
		return false, nil
	}
	st := s.steps[s.cursor]
	s.cursor++
	if err := runStep(e, st); err != nil {
		return true, fmt.Errorf("script step %d (%s): %w", s.cursor-1, st.Action, err)
	}
	return true, nil
}

// Run executes the remaining steps, stopping at the first error.
func (s *Script) Run(e *Editor) error {
	for {
		more, err := s.Step(e)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func runStep(e *Editor, st scriptStep) error {
	switch st.Action {
	case "select":
		return e.Select(st.IDs...)
	case "deselect":
		return e.Select()
	case "press":
		return e.Press(st.X, st.Y)
	case "move":
		return e.Move(st.X, st.Y)
	case "release":
		return e.Release(st.X, st.Y)
	case "cancel":
		e.Cancel()
		return nil
	case "drag":
		return drag(e, st)
	case "zoom":
		v := e.Viewport()
		v.Zoom = st.Zoom
		return e.SetViewport(v)
	case "edit-mode":
		return e.Controller().EnterEditMode()
	case "add-effect":
		_, err := e.ChooseEffect(EffectType(st.Effect), Params(st.Params))
		return err
	case "update-effect":
		_, err := e.UpdateEffectInput(st.Field, st.Value, st.Final)
		return err
	case "remove-effect":
		return e.RemoveEffect()
	}
	return fmt.Errorf("unknown action %q", st.Action)
}

// drag presses at (FromX, FromY), moves in Steps equal increments and
// releases at (ToX, ToY).
func drag(e *Editor, st scriptStep) error {
	n := max(st.Steps, 1)
	if err := e.Press(st.FromX, st.FromY); err != nil {
		return err
	}
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		x := st.FromX + (st.ToX-st.FromX)*t
		y := st.FromY + (st.ToY-st.FromY)*t
		if err := e.Move(x, y); err != nil {
			e.Cancel()
			return err
		}
	}
	return e.Release(st.ToX, st.ToY)
}
