package player

// EngineState represents the audio engine's transport state.
type EngineState int

const (
	EngineStopped EngineState = iota
	EnginePaused
	EnginePlaying
)

// String returns the string representation of the engine state.
func (s EngineState) String() string {
	switch s {
	case EngineStopped:
		return "stopped"
	case EnginePaused:
		return "paused"
	case EnginePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Engine abstracts the audio backend. Decode replaces the current track
// only on success, so a failed decode leaves whatever was playing
// untouched. The position callback fires at a fixed poll interval while a
// track is loaded; it is the controller's clock for loop enforcement.
type Engine interface {
	Decode(path string) (durationMS int64, err error)
	Play()
	Pause()
	Stop()
	Seek(positionMS int64)
	Position() int64
	SetVolume(level int)
	State() EngineState
	SetPositionCallback(fn func(positionMS int64))
	ExportClip(path string, fromMS, toMS int64) error
}
