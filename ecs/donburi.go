package ecs

import (
	"github.com/phanxgames/storycanvas"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// CanvasEventType is the Donburi event type for storycanvas session events.
var CanvasEventType = events.NewEventType[storycanvas.CanvasEvent]()

// FailureEventType carries only commit failures, for systems that show
// notifications.
var FailureEventType = events.NewEventType[storycanvas.CanvasEvent]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an EventSink backed by a Donburi world. Events are
// queued on CanvasEventType and delivered by ProcessEvents; commit failures
// are also queued on FailureEventType.
func NewDonburiSink(world donburi.World) storycanvas.EventSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) Emit(event storycanvas.CanvasEvent) {
	CanvasEventType.Publish(s.world, event)
	if event.Type == storycanvas.EventCommitFailed {
		FailureEventType.Publish(s.world, event)
	}
}
