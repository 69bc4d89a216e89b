// Package player provides the playback controller: it owns the current
// track, drives loop enforcement from position ticks, keeps the lyric
// timeline current, and accumulates learning time while playing.
package player

// State represents the controller state.
type State int

const (
	StateIdle    State = iota // No track loaded
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
