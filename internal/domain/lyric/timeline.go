// Package lyric provides the time-synchronized caption timeline.
//
// Captions come from a subtitle sidecar file (SRT) sharing the track's
// basename. Each SRT cue carries a begin and an end timestamp; only the
// begin timestamp is kept, so the timeline is a flat, ordered list of
// (start, text) pairs that is immutable after construction.
package lyric

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Cue is a single timestamped caption.
type Cue struct {
	StartMS int64
	Text    string
}

// Timeline answers "which caption is active at time T" in O(log n).
type Timeline struct {
	cues []Cue
}

// Empty returns a timeline with no cues.
func Empty() *Timeline {
	return &Timeline{}
}

// ParseFile parses an SRT file into a timeline.
func ParseFile(path string) (*Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open lyric file")
	}
	defer f.Close()
	return Parse(f)
}

// Parse parses SRT content. Malformed blocks are skipped, not fatal.
func Parse(r io.Reader) (*Timeline, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []Cue
	var block []string
	flush := func() {
		if cue, ok := parseBlock(block); ok {
			cues = append(cues, cue)
		}
		block = block[:0]
	}

	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read lyric file")
	}
	flush()

	sort.SliceStable(cues, func(i, j int) bool { return cues[i].StartMS < cues[j].StartMS })
	return &Timeline{cues: cues}, nil
}

// parseBlock extracts the cue from one SRT block: an optional index line,
// a "start --> end" timing line, then text lines. Only start is retained.
func parseBlock(lines []string) (Cue, bool) {
	for i, line := range lines {
		if !strings.Contains(line, "-->") {
			continue
		}
		start, err := parseTimestamp(strings.TrimSpace(strings.SplitN(line, "-->", 2)[0]))
		if err != nil {
			return Cue{}, false
		}
		text := strings.Join(lines[i+1:], " ")
		if text == "" {
			return Cue{}, false
		}
		return Cue{StartMS: start, Text: text}, true
	}
	return Cue{}, false
}

// parseTimestamp parses "HH:MM:SS,mmm" (or "." as the millisecond
// separator) into milliseconds.
func parseTimestamp(s string) (int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, errors.Newf("malformed timestamp: %q", s)
	}

	sec := strings.NewReplacer(",", ".").Replace(parts[2])
	secParts := strings.SplitN(sec, ".", 2)

	h, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed hours in %q", s)
	}
	m, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed minutes in %q", s)
	}
	ss, err := strconv.ParseInt(secParts[0], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed seconds in %q", s)
	}

	var ms int64
	if len(secParts) == 2 {
		frac := secParts[1]
		for len(frac) < 3 {
			frac += "0"
		}
		ms, err = strconv.ParseInt(frac[:3], 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "malformed milliseconds in %q", s)
		}
	}

	return ((h*60+m)*60+ss)*1000 + ms, nil
}

// Len returns the number of cues.
func (t *Timeline) Len() int {
	return len(t.cues)
}

// Active returns the cue active at positionMS: the rightmost cue whose
// start is at or before the position. A position before the first cue
// returns the first cue. ok is false only for an empty timeline.
func (t *Timeline) Active(positionMS int64) (Cue, bool) {
	if len(t.cues) == 0 {
		return Cue{}, false
	}
	i := sort.Search(len(t.cues), func(i int) bool { return t.cues[i].StartMS > positionMS })
	if i == 0 {
		return t.cues[0], true
	}
	return t.cues[i-1], true
}

// Lookup returns the caption text active at positionMS, or "" when the
// timeline is empty.
func (t *Timeline) Lookup(positionMS int64) string {
	cue, ok := t.Active(positionMS)
	if !ok {
		return ""
	}
	return cue.Text
}
