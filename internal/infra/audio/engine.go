// Package audio implements the playback engine on top of beep and the
// system speaker. Tracks are decoded whole into memory; this is a
// deliberate choice for single local audio files and is what makes
// sample-accurate seeking and loop-clip slicing trivial.
package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	beepwav "github.com/faiface/beep/wav"
	zlog "github.com/rs/zerolog/log"

	"github.com/ok97465/okplayer/internal/app/player"
)

// Engine plays one decoded track at a time through the speaker.
type Engine struct {
	mu sync.Mutex

	pollInterval time.Duration

	format   beep.Format
	buffer   *beep.Buffer
	streamer beep.StreamSeeker
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	level      int
	callback   func(positionMS int64)
	pollCancel func()
}

// NewEngine creates an engine polling positions at the given interval.
func NewEngine(pollInterval time.Duration) *Engine {
	return &Engine{pollInterval: pollInterval}
}

// Decode reads and decodes the whole file. The current track is replaced
// only after the decode succeeds, so a failed load leaves it playing.
// Playback of the new track starts paused at position zero.
func (e *Engine) Decode(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open audio file")
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = beepwav.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return 0, errors.Newf("unsupported audio format %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return 0, errors.Wrapf(err, "decode %s", path)
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	streamer.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(100*time.Millisecond)); err != nil {
		return 0, errors.Wrap(err, "init speaker")
	}

	e.format = format
	e.buffer = buffer
	e.streamer = buffer.Streamer(0, buffer.Len())
	e.ctrl = &beep.Ctrl{Streamer: e.streamer, Paused: true}
	e.volume = &effects.Volume{
		Streamer: e.ctrl,
		Base:     2,
		Volume:   volumeGain(e.level),
		Silent:   e.level <= 0,
	}
	speaker.Play(e.volume)
	e.startPollLocked()

	return format.SampleRate.D(buffer.Len()).Milliseconds(), nil
}

// Play resumes the transport.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
}

// Pause halts the transport, keeping the position.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
}

// Stop releases the decoded track and silences the speaker.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.pollCancel != nil {
		e.pollCancel()
		e.pollCancel = nil
	}
	if e.buffer != nil {
		speaker.Clear()
	}
	e.format = beep.Format{}
	e.buffer = nil
	e.streamer = nil
	e.ctrl = nil
	e.volume = nil
}

// Seek moves the transport to positionMS, clamped to the track.
func (e *Engine) Seek(positionMS int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return
	}

	n := e.format.SampleRate.N(time.Duration(positionMS) * time.Millisecond)
	if n < 0 {
		n = 0
	}
	if n > e.streamer.Len() {
		n = e.streamer.Len()
	}

	speaker.Lock()
	err := e.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		zlog.Warn().Msgf("audio: seek to %dms failed: %v", positionMS, err)
	}
}

// Position returns the transport position in milliseconds.
func (e *Engine) Position() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *Engine) positionLocked() int64 {
	if e.streamer == nil {
		return 0
	}
	speaker.Lock()
	n := e.streamer.Position()
	speaker.Unlock()
	return e.format.SampleRate.D(n).Milliseconds()
}

// SetVolume maps the 0-100 level onto a logarithmic gain; 0 is silent.
func (e *Engine) SetVolume(level int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = level
	if e.volume == nil {
		return
	}
	speaker.Lock()
	e.volume.Silent = level <= 0
	e.volume.Volume = volumeGain(level)
	speaker.Unlock()
}

// State reports the transport state. An exhausted streamer counts as
// stopped even though the speaker is still attached.
func (e *Engine) State() player.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return player.EngineStopped
	}

	speaker.Lock()
	paused := e.ctrl.Paused
	exhausted := e.streamer.Position() >= e.streamer.Len()
	speaker.Unlock()

	switch {
	case exhausted:
		return player.EngineStopped
	case paused:
		return player.EnginePaused
	default:
		return player.EnginePlaying
	}
}

// SetPositionCallback registers the position-tick callback.
func (e *Engine) SetPositionCallback(fn func(positionMS int64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callback = fn
}

// startPollLocked starts the position poll ticker for the current track.
// The callback is invoked without holding the engine mutex, so it may
// call back into the engine (loop enforcement seeks do).
func (e *Engine) startPollLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	e.pollCancel = cancel

	go func() {
		ticker := time.NewTicker(e.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.mu.Lock()
				fn := e.callback
				pos := int64(-1)
				if e.streamer != nil {
					pos = e.positionLocked()
				}
				e.mu.Unlock()
				if fn != nil && pos >= 0 {
					fn(pos)
				}
			}
		}
	}()
}

// volumeGain converts a 0-100 level to a base-2 exponent: 100 is unity
// gain, each halving of the level drops one octave of loudness.
func volumeGain(level int) float64 {
	if level <= 0 {
		return 0
	}
	return math.Log2(float64(level) / 100.0)
}
