// Package store persists session settings and the listening-time history.
//
// Settings (resume positions, recent files, lifetime learning time) live in
// one flat JSON file, loaded once at startup and flushed wholesale at close.
// The history is a separate append-only JSON Lines file that receives one
// record per application close.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Store owns the settings state for one application session.
type Store struct {
	mu sync.Mutex

	settingsPath string
	historyPath  string

	settings  Settings
	sessionMS int64 // Learning time accumulated in this session
}

// Open loads settings from settingsPath. A missing file is an empty store;
// a corrupt file is reported and replaced by an empty store on next flush.
func Open(settingsPath, historyPath string) (*Store, error) {
	s := &Store{
		settingsPath: settingsPath,
		historyPath:  historyPath,
		settings:     newSettings(),
	}

	data, err := os.ReadFile(settingsPath)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, errors.Wrap(err, "read settings file")
	}

	if err := json.Unmarshal(data, &s.settings); err != nil {
		zlog.Warn().Msgf("store: settings file %s is corrupt, starting empty: %v", settingsPath, err)
		s.settings = newSettings()
	}
	return s, nil
}

// Position returns the stored resume position for path, or 0.
func (s *Store) Position(path string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Positions[path]
}

// SetPosition records the resume position for path.
func (s *Store) SetPosition(path string, positionMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Positions[path] = positionMS
}

// TouchRecent moves path to the front of the most-recently-used list,
// deduplicating and trimming to RecentCapacity.
func (s *Store) TouchRecent(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := make([]string, 0, RecentCapacity)
	recent = append(recent, path)
	for _, p := range s.settings.RecentFiles {
		if p == path {
			continue
		}
		recent = append(recent, p)
		if len(recent) == RecentCapacity {
			break
		}
	}
	s.settings.RecentFiles = recent
}

// RecentFiles returns a copy of the MRU list, most recent first.
func (s *Store) RecentFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]string, len(s.settings.RecentFiles))
	copy(result, s.settings.RecentFiles)
	return result
}

// LastPlayed returns the last played track path, or "".
func (s *Store) LastPlayed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.LastPlayedPath
}

// SetLastPlayed records the last played track path.
func (s *Store) SetLastPlayed(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.LastPlayedPath = path
}

// Accumulate adds deltaMS to both the per-session counter and the lifetime
// learning-time total. The total never decreases.
func (s *Store) Accumulate(deltaMS int64) {
	if deltaMS <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionMS += deltaMS
	s.settings.LearningTimeMSTotal += deltaMS
}

// SessionLearningMS returns this session's accumulated learning time.
func (s *Store) SessionLearningMS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionMS
}

// LearningTotalMS returns the lifetime learning-time total.
func (s *Store) LearningTotalMS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.LearningTimeMSTotal
}

// Flush serializes the full settings to disk, atomically with respect to
// process termination: write to a temp file in the same directory, then
// rename over the target.
func (s *Store) Flush() error {
	s.mu.Lock()
	data, err := json.Marshal(s.settings)
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}

	dir := filepath.Dir(s.settingsPath)
	tmp, err := os.CreateTemp(dir, ".okplayer-settings-*")
	if err != nil {
		return errors.Wrap(err, "create temp settings file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write settings")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp settings file")
	}
	if err := os.Rename(tmpName, s.settingsPath); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "replace settings file")
	}
	return nil
}
