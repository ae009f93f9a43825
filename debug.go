package storycanvas

// SessionStats counts session events. Populated for every session; logged on
// Close when Config.Debug is set.
type SessionStats struct {
	SelectionChanges  int
	GesturesStarted   int
	GesturesCommitted int
	GesturesAborted   int
	CommitFailures    int
	EffectsAdded      int
	EffectsUpdated    int
	EffectsRemoved    int
}

func (s *SessionStats) record(ev CanvasEvent) {
	switch ev.Type {
	case EventSelectionChanged:
		s.SelectionChanges++
	case EventGestureStart:
		s.GesturesStarted++
	case EventGestureCommit:
		s.GesturesCommitted++
	case EventGestureAbort:
		s.GesturesAborted++
	case EventCommitFailed:
		s.CommitFailures++
	case EventEffectAdded:
		s.EffectsAdded++
	case EventEffectUpdated:
		s.EffectsUpdated++
	case EventEffectRemoved:
		s.EffectsRemoved++
	}
}

// Stats returns the session's event counters.
func (e *Editor) Stats() SessionStats {
	return e.stats
}

// debugLog logs the session counters and bus state.
func (e *Editor) debugLog() {
	if !e.cfg.Debug {
		return
	}
	s := e.stats
	e.log.Info("storycanvas session stats",
		"selections", s.SelectionChanges,
		"gestures", s.GesturesStarted,
		"commits", s.GesturesCommitted,
		"aborts", s.GesturesAborted,
		"failures", s.CommitFailures,
		"effects_added", s.EffectsAdded,
		"effects_updated", s.EffectsUpdated,
		"effects_removed", s.EffectsRemoved,
		"publishes", e.bus.publishes,
	)
}
