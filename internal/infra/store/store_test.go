package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "settings.json"), filepath.Join(dir, "history.jsonl"))
	require.NoError(t, err)
	return s
}

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, int64(0), s.Position("/music/song.mp3"))
	assert.Empty(t, s.RecentFiles())
	assert.Equal(t, "", s.LastPlayed())
	assert.Equal(t, int64(0), s.LearningTotalMS())
}

func TestOpen_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(settingsPath, []byte("{not json"), 0644))

	s, err := Open(settingsPath, filepath.Join(dir, "history.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Position("/music/song.mp3"))
}

func TestStore_FlushRoundTrip(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.json")
	historyPath := filepath.Join(dir, "history.jsonl")

	s, err := Open(settingsPath, historyPath)
	require.NoError(t, err)
	s.SetPosition("/music/a.mp3", 12345)
	s.SetPosition("/music/b.mp3", 67890)
	s.TouchRecent("/music/a.mp3")
	s.TouchRecent("/music/b.mp3")
	s.SetLastPlayed("/music/b.mp3")
	s.Accumulate(5000)
	require.NoError(t, s.Flush())

	reopened, err := Open(settingsPath, historyPath)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), reopened.Position("/music/a.mp3"))
	assert.Equal(t, int64(67890), reopened.Position("/music/b.mp3"))
	assert.Equal(t, []string{"/music/b.mp3", "/music/a.mp3"}, reopened.RecentFiles())
	assert.Equal(t, "/music/b.mp3", reopened.LastPlayed())
	assert.Equal(t, int64(5000), reopened.LearningTotalMS())

	// The new session starts its own counter.
	assert.Equal(t, int64(0), reopened.SessionLearningMS())
}

func TestStore_FlushWritesFlatLayout(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.json")

	s, err := Open(settingsPath, filepath.Join(dir, "history.jsonl"))
	require.NoError(t, err)
	s.SetPosition("/music/a.mp3", 1500)
	s.SetLastPlayed("/music/a.mp3")
	require.NoError(t, s.Flush())

	data, err := os.ReadFile(settingsPath)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1500), raw["/music/a.mp3"])
	assert.Equal(t, "/music/a.mp3", raw["last_played_path"])
	assert.Contains(t, raw, "recent_files")
	assert.Contains(t, raw, "learning_time_ms_total")
}

func TestStore_FlushLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "settings.json"), filepath.Join(dir, "history.jsonl"))
	require.NoError(t, err)
	require.NoError(t, s.Flush())
	require.NoError(t, s.Flush())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "settings.json", entries[0].Name())
}

func TestStore_TouchRecent(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 15; i++ {
		s.TouchRecent(fmt.Sprintf("/music/%02d.mp3", i))
	}
	recent := s.RecentFiles()
	require.Len(t, recent, RecentCapacity)
	assert.Equal(t, "/music/14.mp3", recent[0])
	assert.Equal(t, "/music/05.mp3", recent[RecentCapacity-1])

	// Re-inserting an existing path moves it to front without growing.
	s.TouchRecent("/music/10.mp3")
	recent = s.RecentFiles()
	require.Len(t, recent, RecentCapacity)
	assert.Equal(t, "/music/10.mp3", recent[0])
	assert.Equal(t, 1, strings.Count(strings.Join(recent, "\n"), "/music/10.mp3"))
}

func TestStore_Accumulate(t *testing.T) {
	s := newTestStore(t)

	const n = 7
	for i := 0; i < n; i++ {
		s.Accumulate(1000)
	}
	assert.Equal(t, int64(n*1000), s.SessionLearningMS())
	assert.Equal(t, int64(n*1000), s.LearningTotalMS())

	// Non-positive deltas never decrease the total.
	s.Accumulate(0)
	s.Accumulate(-500)
	assert.Equal(t, int64(n*1000), s.LearningTotalMS())
}

func TestStore_AppendSessionRecord(t *testing.T) {
	dir := t.TempDir()
	historyPath := filepath.Join(dir, "history.jsonl")
	s, err := Open(filepath.Join(dir, "settings.json"), historyPath)
	require.NoError(t, err)

	now := time.Date(2021, time.March, 14, 15, 9, 26, 0, time.UTC)
	rec := NewSessionRecord(now, 42000)
	assert.Equal(t, "Sunday", rec.DayOfWeek)
	assert.Equal(t, "March", rec.Month)
	assert.Equal(t, 14, rec.Day)
	assert.Equal(t, int64(42000), rec.SessionLearningMS)
	assert.NotEmpty(t, rec.ID)

	require.NoError(t, s.AppendSessionRecord(rec))
	require.NoError(t, s.AppendSessionRecord(NewSessionRecord(now.Add(24*time.Hour), 1000)))

	data, err := os.ReadFile(historyPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var got SessionRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, rec, got)
}
