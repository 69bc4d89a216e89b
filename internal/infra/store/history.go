package store

import (
	"encoding/json"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// SessionRecord is one immutable row of the listening-time history,
// appended once per application close and never mutated.
type SessionRecord struct {
	ID                string `json:"id"`
	DayOfWeek         string `json:"day_of_week"`
	Month             string `json:"month"`
	Day               int    `json:"day"`
	Timestamp         string `json:"timestamp"`
	SessionLearningMS int64  `json:"session_learning_time_ms"`
}

// NewSessionRecord builds a record for a session that closes at now.
func NewSessionRecord(now time.Time, learningMS int64) SessionRecord {
	return SessionRecord{
		ID:                uuid.NewString(),
		DayOfWeek:         now.Weekday().String(),
		Month:             now.Month().String(),
		Day:               now.Day(),
		Timestamp:         now.Format(time.RFC3339),
		SessionLearningMS: learningMS,
	}
}

// AppendSessionRecord appends one record to the history file as a JSON
// line, creating the file if absent. A failure here must not block the
// settings flush or shutdown; the caller reports it and moves on.
func (s *Store) AppendSessionRecord(rec SessionRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode session record")
	}

	f, err := os.OpenFile(s.historyPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, "open history file")
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return errors.Wrap(err, "append session record")
	}
	return errors.Wrap(f.Close(), "close history file")
}
