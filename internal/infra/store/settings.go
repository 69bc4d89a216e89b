package store

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// RecentCapacity bounds the most-recently-used file list.
const RecentCapacity = 10

// Settings is the persisted session state. On disk it is a single flat JSON
// object: the reserved keys below plus one "<path>": <resume_ms> entry per
// known track, compatible with the legacy config.json layout.
type Settings struct {
	Positions           map[string]int64
	RecentFiles         []string
	LearningTimeMSTotal int64
	LastPlayedPath      string
}

const (
	keyRecentFiles    = "recent_files"
	keyLearningTotal  = "learning_time_ms_total"
	keyLastPlayedPath = "last_played_path"
)

func newSettings() Settings {
	return Settings{
		Positions:   make(map[string]int64),
		RecentFiles: make([]string, 0, RecentCapacity),
	}
}

// MarshalJSON flattens the settings into the on-disk layout.
func (s Settings) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Positions)+3)
	for path, pos := range s.Positions {
		m[path] = pos
	}
	recent := s.RecentFiles
	if recent == nil {
		recent = []string{}
	}
	m[keyRecentFiles] = recent
	m[keyLearningTotal] = s.LearningTimeMSTotal
	m[keyLastPlayedPath] = s.LastPlayedPath
	return json.Marshal(m)
}

// UnmarshalJSON reads the flat layout back. Unknown string keys are track
// paths; entries that do not parse as positions are dropped.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "parse settings")
	}

	*s = newSettings()
	for key, value := range raw {
		switch key {
		case keyRecentFiles:
			if err := json.Unmarshal(value, &s.RecentFiles); err != nil {
				return errors.Wrap(err, "parse recent files")
			}
		case keyLearningTotal:
			if err := json.Unmarshal(value, &s.LearningTimeMSTotal); err != nil {
				return errors.Wrap(err, "parse learning time total")
			}
		case keyLastPlayedPath:
			if err := json.Unmarshal(value, &s.LastPlayedPath); err != nil {
				return errors.Wrap(err, "parse last played path")
			}
		default:
			var pos int64
			if err := json.Unmarshal(value, &pos); err == nil {
				s.Positions[key] = pos
			}
		}
	}

	if len(s.RecentFiles) > RecentCapacity {
		s.RecentFiles = s.RecentFiles[:RecentCapacity]
	}
	return nil
}
