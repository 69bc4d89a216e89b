package player

import (
	"github.com/ok97465/okplayer/internal/domain/loop"
	"github.com/ok97465/okplayer/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventTrackLoaded     EventType = iota // A new track became current
	EventStateChanged                     // Play/pause/stop transition
	EventPositionChanged                  // Position tick with the active caption
	EventLoopChanged                      // Loop marker toggled or nudged
	EventClipExported                     // Loop clip written to disk
	EventError                            // A reported, non-fatal failure
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackLoaded:
		return "track_loaded"
	case EventStateChanged:
		return "state_changed"
	case EventPositionChanged:
		return "position_changed"
	case EventLoopChanged:
		return "loop_changed"
	case EventClipExported:
		return "clip_exported"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// LoopView is a display snapshot of the loop marker.
type LoopView struct {
	State loop.State
	A, B  int64 // Valid per State: A in partial/full, B in full
}

// Event represents a playback event.
type Event struct {
	Type       EventType
	Track      *track.Track // Current track (nil for some events)
	State      State
	PositionMS int64
	DurationMS int64
	Caption    string
	Loop       LoopView
	ClipPath   string // Set for EventClipExported
	Err        error  // Set for EventError
}
