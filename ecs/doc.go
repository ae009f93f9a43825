// Package ecs provides ECS adapters for storycanvas session events.
//
// The primary adapter is [NewDonburiSink], which forwards canvas events
// (selection changes, gesture commits, effect edits, commit failures) into a
// [Donburi] world as typed events. Subscribe to [CanvasEventType] in your ECS
// systems to receive them.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	ed, err := storycanvas.NewEditor(cfg, store, storycanvas.WithEventSink(sink))
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
