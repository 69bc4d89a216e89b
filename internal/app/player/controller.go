package player

import (
	"context"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ok97465/okplayer/internal/domain/loop"
	"github.com/ok97465/okplayer/internal/domain/lyric"
	"github.com/ok97465/okplayer/internal/domain/track"
	"github.com/ok97465/okplayer/internal/infra/store"
)

// Errors
var (
	ErrNoTrack = errors.New("no track loaded")
	ErrNoLoop  = errors.New("loop is not fully set")
)

// Config holds controller configuration.
type Config struct {
	LoopPolicy       loop.Policy
	CaptureLatencyMS int64 // Compensation added to the engine position when capturing a marker
	InitialVolume    int   // 0-100
}

// Controller drives playback for a single track at a time. All mutations
// run under one mutex, so a position tick observes the loop marker
// atomically with respect to toggle/adjust calls.
type Controller struct {
	mu sync.Mutex

	engine Engine
	store  *store.Store
	config Config

	// Current track state
	current  *track.Track
	timeline *lyric.Timeline
	marker   *loop.Marker
	state    State
	volume   int
	caption  string

	// Learning-time accumulator
	accumCancel func()

	// Events
	eventCh   chan Event
	closeOnce sync.Once

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a playback controller on top of the given engine
// and session store, and registers itself for position ticks.
func NewController(engine Engine, st *store.Store, config Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		engine:  engine,
		store:   st,
		config:  config,
		marker:  loop.NewMarker(config.LoopPolicy),
		state:   StateIdle,
		volume:  clampVolume(config.InitialVolume),
		eventCh: make(chan Event, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
	engine.SetVolume(c.volume)
	engine.SetPositionCallback(c.onPositionTick)
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Load decodes path and makes it the current track. An unreadable path is
// a silent no-op; a decode failure is reported and leaves the prior track
// untouched. On success playback starts at the stored resume position.
func (c *Controller) Load(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		zlog.Debug().Msgf("player: ignoring unreadable path %s", path)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The outgoing track's position survives a replace.
	if c.current != nil {
		c.store.SetPosition(c.current.Path, c.engine.Position())
	}

	durationMS, err := c.engine.Decode(path)
	if err != nil {
		err = errors.Wrapf(err, "decode %s", path)
		zlog.Warn().Msgf("player: %v", err)
		// A failure after the engine tore down its output device takes
		// the prior track with it. Its resume position was persisted
		// above; release it instead of pretending it still plays.
		if c.current != nil && c.engine.State() == EngineStopped {
			zlog.Warn().Msgf("player: prior track %s was released by the failed load", c.current.Path)
			c.releaseLocked()
		}
		c.sendEventLocked(Event{Type: EventError, State: c.state, Err: err})
		return
	}

	t := track.New(path, durationMS)
	c.current = &t
	c.timeline = c.loadTimeline(t)
	c.marker.Clear()
	c.caption = ""

	resume := clampMS(c.store.Position(path), 0, durationMS)
	c.engine.Seek(resume)
	c.engine.Play()
	c.state = StatePlaying
	c.startAccumulatorLocked()

	c.store.TouchRecent(path)
	c.store.SetLastPlayed(path)

	zlog.Info().Msgf("player: loaded %s duration=%dms resume=%dms cues=%d",
		path, durationMS, resume, c.timeline.Len())

	c.sendEventLocked(Event{
		Type:       EventTrackLoaded,
		Track:      c.current,
		State:      c.state,
		PositionMS: resume,
		DurationMS: durationMS,
		Loop:       c.loopViewLocked(),
	})
}

// loadTimeline parses the sidecar caption file. Absence is not an error;
// a malformed file degrades to an empty timeline.
func (c *Controller) loadTimeline(t track.Track) *lyric.Timeline {
	tl, err := lyric.ParseFile(t.LyricPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zlog.Warn().Msgf("player: lyric file unusable: %v", err)
		}
		return lyric.Empty()
	}
	return tl
}

// PlayPause toggles playback based on the engine's reported state, not a
// local flag, so it cannot drift from the actual transport.
func (c *Controller) PlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoTrack
	}

	if c.engine.State() == EnginePlaying {
		c.engine.Pause()
		c.state = StatePaused
		c.stopAccumulatorLocked()
	} else {
		c.engine.Play()
		c.state = StatePlaying
		c.startAccumulatorLocked()
	}

	c.sendEventLocked(Event{
		Type:       EventStateChanged,
		Track:      c.current,
		State:      c.state,
		DurationMS: c.current.DurationMS,
	})
	return nil
}

// Seek moves playback to positionMS, clamped to the track bounds.
func (c *Controller) Seek(positionMS int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(positionMS)
}

// Navigate seeks relative to the current position: negative rewinds,
// positive fast-forwards.
func (c *Controller) Navigate(deltaMS int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(c.engine.Position() + deltaMS)
}

func (c *Controller) seekLocked(positionMS int64) error {
	if c.current == nil {
		return ErrNoTrack
	}
	c.engine.Seek(clampMS(positionMS, 0, c.current.DurationMS))
	return nil
}

// SetVolume sets the playback volume, clamped to [0, 100].
func (c *Controller) SetVolume(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = clampVolume(level)
	c.engine.SetVolume(c.volume)
}

// ChangeVolume adjusts the volume by step, clamped to [0, 100].
func (c *Controller) ChangeVolume(step int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = clampVolume(c.volume + step)
	c.engine.SetVolume(c.volume)
}

// Volume returns the current volume level.
func (c *Controller) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// ToggleLoop cycles the loop marker with the current playback position.
// Arming the loop (second capture) seeks to the A marker immediately.
func (c *Controller) ToggleLoop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoTrack
	}

	pos := clampMS(c.engine.Position()+c.config.CaptureLatencyMS, 0, c.current.DurationMS)
	tr := c.marker.Toggle(pos)
	if tr.Rejected {
		zlog.Debug().Msgf("player: loop capture at %dms rejected by %s policy", pos, c.config.LoopPolicy)
	}
	if tr.Seek {
		c.engine.Seek(tr.SeekTo)
	}

	c.sendEventLocked(Event{
		Type:       EventLoopChanged,
		Track:      c.current,
		State:      c.state,
		DurationMS: c.current.DurationMS,
		Loop:       c.loopViewLocked(),
	})
	return nil
}

// AdjustLoop shifts a fully set loop by offsetMS, preserving its length.
// No-op unless the loop is fully set.
func (c *Controller) AdjustLoop(offsetMS int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoTrack
	}
	if c.marker.State() != loop.StateFull {
		return ErrNoLoop
	}

	if c.marker.Adjust(offsetMS, c.current.DurationMS) {
		c.sendEventLocked(Event{
			Type:       EventLoopChanged,
			Track:      c.current,
			State:      c.state,
			DurationMS: c.current.DurationMS,
			Loop:       c.loopViewLocked(),
		})
	}
	return nil
}

// ExportLoopClip writes the audio between the loop markers to a new file
// next to the original. Playback is paused for the write and resumed if it
// had been playing; a failure leaves markers and playback state unchanged.
func (c *Controller) ExportLoopClip() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return "", ErrNoTrack
	}
	a, b, ok := c.marker.Bounds()
	if !ok {
		return "", ErrNoLoop
	}

	wasPlaying := c.engine.State() == EnginePlaying
	if wasPlaying {
		c.engine.Pause()
	}

	clipPath := c.current.ClipPath(a, b)
	err := c.engine.ExportClip(clipPath, a, b)

	if wasPlaying {
		c.engine.Play()
	}

	if err != nil {
		err = errors.Wrap(err, "export loop clip")
		zlog.Warn().Msgf("player: %v", err)
		c.sendEventLocked(Event{Type: EventError, Track: c.current, State: c.state, Err: err})
		return "", err
	}

	zlog.Info().Msgf("player: exported loop clip %s", clipPath)
	c.sendEventLocked(Event{
		Type:     EventClipExported,
		Track:    c.current,
		State:    c.state,
		ClipPath: clipPath,
		Loop:     c.loopViewLocked(),
	})
	return clipPath, nil
}

// Stop persists the resume position, releases the track, and returns the
// controller to the idle state.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.current == nil {
		return
	}

	c.store.SetPosition(c.current.Path, c.engine.Position())
	c.engine.Stop()
	c.releaseLocked()
}

// releaseLocked drops the current track without touching the engine or the
// stored resume position.
func (c *Controller) releaseLocked() {
	c.stopAccumulatorLocked()

	c.current = nil
	c.timeline = nil
	c.marker.Clear()
	c.caption = ""
	c.state = StateIdle

	c.sendEventLocked(Event{Type: EventStateChanged, State: c.state})
}

// Close stops playback, flushes settings, and appends this session's
// history record. Persistence failures are reported but never block
// shutdown, and a history failure does not prevent the settings flush.
// Safe to call more than once; later calls are no-ops.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.stopLocked()
		c.mu.Unlock()
		c.cancel()

		if err := c.store.Flush(); err != nil {
			zlog.Warn().Msgf("player: settings flush failed: %v", err)
		}

		rec := store.NewSessionRecord(time.Now(), c.store.SessionLearningMS())
		if err := c.store.AppendSessionRecord(rec); err != nil {
			zlog.Warn().Msgf("player: session history append failed: %v", err)
		}

		close(c.eventCh)
	})
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentTrack returns the current track.
func (c *Controller) CurrentTrack() (*track.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, false
	}
	return c.current, true
}

// onPositionTick is the engine's position callback. With a fully armed
// loop, a position at or past the B marker (or track end) seeks back to A;
// the position never stays past B for more than one poll interval.
func (c *Controller) onPositionTick(positionMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}

	if a, b, ok := c.marker.Bounds(); ok {
		if positionMS >= b || positionMS == c.current.DurationMS {
			c.engine.Seek(a)
			return
		}
	}

	// With no loop armed, a track that plays to its end exhausts the
	// engine. Learning time counts only while actively playing, so the
	// accumulator stops with the transport.
	if c.state == StatePlaying && positionMS >= c.current.DurationMS && c.engine.State() == EngineStopped {
		c.state = StatePaused
		c.stopAccumulatorLocked()
		c.sendEventLocked(Event{
			Type:       EventStateChanged,
			Track:      c.current,
			State:      c.state,
			PositionMS: positionMS,
			DurationMS: c.current.DurationMS,
		})
		return
	}

	c.caption = c.timeline.Lookup(positionMS)
	c.sendEventLocked(Event{
		Type:       EventPositionChanged,
		Track:      c.current,
		State:      c.state,
		PositionMS: positionMS,
		DurationMS: c.current.DurationMS,
		Caption:    c.caption,
		Loop:       c.loopViewLocked(),
	})
}

// startAccumulatorLocked starts the 1 Hz learning-time accumulator.
// Idempotent; the accumulator runs only while playing.
func (c *Controller) startAccumulatorLocked() {
	if c.accumCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.accumCancel = cancel

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.store.Accumulate(1000)
			}
		}
	}()
}

func (c *Controller) stopAccumulatorLocked() {
	if c.accumCancel != nil {
		c.accumCancel()
		c.accumCancel = nil
	}
}

// loopViewLocked snapshots the marker for display.
// Must be called with lock held.
func (c *Controller) loopViewLocked() LoopView {
	view := LoopView{State: c.marker.State()}
	if a, ok := c.marker.Start(); ok {
		view.A = a
	}
	if a, b, ok := c.marker.Bounds(); ok {
		view.A, view.B = a, b
	}
	return view
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	select {
	case c.eventCh <- e:
		// Successfully sent
	case <-c.ctx.Done():
		// Shutting down, don't send
	default:
		// Channel full, drop event
	}
}

func clampMS(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampVolume(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
