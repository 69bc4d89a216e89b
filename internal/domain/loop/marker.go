// Package loop provides the A/B loop marker state machine.
package loop

import "github.com/cockroachdb/errors"

// State represents the marker state.
type State int

const (
	StateEmpty   State = iota // No marker set
	StatePartial              // Only the A marker is set
	StateFull                 // Both markers are set, loop enforcement active
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateFull:
		return "full"
	default:
		return "unknown"
	}
}

// Policy decides what happens when the B marker is captured at or before
// the A marker (the user seeked backwards between captures).
type Policy int

const (
	PolicySwap   Policy = iota // Store the pair in ascending order
	PolicyReject               // Refuse the capture, stay partial
	PolicyAllow                // Store the degenerate pair as captured
)

// ParsePolicy parses a policy name.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "swap", "":
		return PolicySwap, nil
	case "reject":
		return PolicyReject, nil
	case "allow":
		return PolicyAllow, nil
	default:
		return PolicySwap, errors.Newf("unknown loop policy: %q", name)
	}
}

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicySwap:
		return "swap"
	case PolicyReject:
		return "reject"
	case PolicyAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Transition reports the outcome of a Toggle call.
type Transition struct {
	State    State
	SeekTo   int64 // Position to seek to when Seek is true
	Seek     bool  // The caller must seek immediately (loop just armed)
	Rejected bool  // The capture was refused by the ordering policy
}

// Marker holds the A/B loop marker positions in milliseconds.
type Marker struct {
	policy Policy
	state  State
	a, b   int64
}

// NewMarker creates an empty marker with the given ordering policy.
func NewMarker(policy Policy) *Marker {
	return &Marker{policy: policy}
}

// State returns the current marker state.
func (m *Marker) State() State {
	return m.state
}

// Start returns the A marker position. ok is false in the empty state.
func (m *Marker) Start() (int64, bool) {
	if m.state == StateEmpty {
		return 0, false
	}
	return m.a, true
}

// Bounds returns both marker positions. ok is true only in the full state.
func (m *Marker) Bounds() (a, b int64, ok bool) {
	if m.state != StateFull {
		return 0, 0, false
	}
	return m.a, m.b, true
}

// Toggle advances the marker state with the current playback position:
// empty captures A, partial captures B and arms the loop, full clears both.
// Arming the loop asks the caller to seek to A so playback starts there.
func (m *Marker) Toggle(positionMS int64) Transition {
	switch m.state {
	case StateEmpty:
		m.a = positionMS
		m.state = StatePartial
		return Transition{State: m.state}

	case StatePartial:
		a, b := m.a, positionMS
		if b <= a {
			switch m.policy {
			case PolicyReject:
				return Transition{State: m.state, Rejected: true}
			case PolicySwap:
				a, b = b, a
			}
		}
		m.a, m.b = a, b
		m.state = StateFull
		return Transition{State: m.state, SeekTo: m.a, Seek: true}

	default:
		m.a, m.b = 0, 0
		m.state = StateEmpty
		return Transition{State: m.state}
	}
}

// Adjust shifts both markers by offsetMS, keeping the loop length exact.
// The window is clamped into [0, durationMS] as a whole; a shift that would
// push one end out of range is limited, never truncated one-sided.
// No-op unless the marker is full.
func (m *Marker) Adjust(offsetMS, durationMS int64) bool {
	if m.state != StateFull {
		return false
	}

	length := m.b - m.a
	a := m.a + offsetMS
	if a+length > durationMS {
		a = durationMS - length
	}
	if a < 0 {
		a = 0
	}

	changed := a != m.a
	m.a = a
	m.b = a + length
	return changed
}

// Clear resets the marker to the empty state.
func (m *Marker) Clear() {
	m.a, m.b = 0, 0
	m.state = StateEmpty
}
