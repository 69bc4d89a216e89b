// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// LyricExt is the sidecar caption file extension.
const LyricExt = ".srt"

// Track represents a loaded audio track. The absolute path is its identity;
// the duration is fixed once the track is decoded.
type Track struct {
	Path       string
	Title      string // Basename without extension
	DurationMS int64
	LoadedAt   time.Time
}

// New creates a Track for a decoded file.
func New(path string, durationMS int64) Track {
	base := filepath.Base(path)
	return Track{
		Path:       path,
		Title:      strings.TrimSuffix(base, filepath.Ext(base)),
		DurationMS: durationMS,
		LoadedAt:   time.Now(),
	}
}

// Duration returns the track duration.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// LyricPath returns the caption sidecar path: same basename, LyricExt.
func (t Track) LyricPath() string {
	return strings.TrimSuffix(t.Path, filepath.Ext(t.Path)) + LyricExt
}

// ClipPath returns the export path for the [a, b] loop region: the original
// name with both marker values embedded before the extension.
func (t Track) ClipPath(a, b int64) string {
	ext := filepath.Ext(t.Path)
	return fmt.Sprintf("%s%d_%d%s", strings.TrimSuffix(t.Path, ext), a, b, ext)
}
