// Package storycanvas is the interactive canvas layer of a page-authoring
// tool: selecting, moving, resizing and rotating placed elements, and
// attaching configurable entrance effects to them.
//
// Elements live in a [DocumentStore]. The canvas never mutates them
// directly: while a gesture is in progress the live geometry is published on
// a [TransformBus], and on release the controller sends one patch to the
// store. Renderers subscribe to the bus to draw the live geometry.
//
// # Quick start
//
// An [Editor] wires the whole session together:
//
//	store := storycanvas.NewMemoryStore(
//		storycanvas.Element{ID: "e1", Type: storycanvas.ElementImage,
//			Geometry: storycanvas.Geometry{Width: 100, Height: 100}},
//	)
//	ed, err := storycanvas.NewEditor(nil, store)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ed.Close()
//
//	ed.Press(50, 100)   // pointer input in viewport pixels
//	ed.Move(50, 150)
//	ed.Release(50, 150) // one patch: {height: 150}
//
// To draw the session in a window, see the canvasview package.
//
// # Coordinates
//
// Stored geometry is in document units on a fixed-aspect page
// ([DefaultPageWidth] by [DefaultPageHeight]). [ToViewport] and [ToDocument]
// convert between document units and viewport pixels for a [ViewportState].
//
// # Effects
//
// The [EffectRegistry] is the catalog of effect types and their fields. The
// [EffectManager] creates instances, stages edits locally and commits them to
// the store; [Reconcile] merges staged edits over committed instances.
// [ResolveControl] and [NormalizeInput] turn instance parameters into input
// controls and raw control input back into parameters. [EffectPreview] plays
// an instance in the editor using tweens (via [gween]).
//
// Session events can be forwarded to a [Donburi] world with the adapter in
// storycanvas/ecs.
//
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package storycanvas
