package loop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarker_ToggleCycle(t *testing.T) {
	m := NewMarker(PolicySwap)

	tr := m.Toggle(10000)
	assert.Equal(t, StatePartial, tr.State)
	assert.False(t, tr.Seek)

	tr = m.Toggle(20000)
	assert.Equal(t, StateFull, tr.State)
	assert.True(t, tr.Seek)
	assert.Equal(t, int64(10000), tr.SeekTo)

	a, b, ok := m.Bounds()
	require.True(t, ok)
	assert.Equal(t, int64(10000), a)
	assert.Equal(t, int64(20000), b)

	tr = m.Toggle(30000)
	assert.Equal(t, StateEmpty, tr.State)
	assert.False(t, tr.Seek)
	_, _, ok = m.Bounds()
	assert.False(t, ok)
}

func TestMarker_CyclePeriodThree(t *testing.T) {
	m := NewMarker(PolicySwap)

	for i := 0; i < 9; i += 3 {
		m.Toggle(int64(i * 1000))
		m.Toggle(int64((i + 1) * 1000))
		m.Toggle(int64((i + 2) * 1000))
		assert.Equal(t, StateEmpty, m.State())
	}
}

func TestMarker_OrderingPolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		first     int64
		second    int64
		wantState State
		wantA     int64
		wantB     int64
		rejected  bool
	}{
		{
			name:      "swap stores reversed captures in order",
			policy:    PolicySwap,
			first:     20000,
			second:    5000,
			wantState: StateFull,
			wantA:     5000,
			wantB:     20000,
		},
		{
			name:      "reject refuses backwards capture",
			policy:    PolicyReject,
			first:     20000,
			second:    5000,
			wantState: StatePartial,
			rejected:  true,
		},
		{
			name:      "allow keeps degenerate pair",
			policy:    PolicyAllow,
			first:     20000,
			second:    5000,
			wantState: StateFull,
			wantA:     20000,
			wantB:     5000,
		},
		{
			name:      "forward captures unaffected by policy",
			policy:    PolicyReject,
			first:     5000,
			second:    20000,
			wantState: StateFull,
			wantA:     5000,
			wantB:     20000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMarker(tt.policy)
			m.Toggle(tt.first)
			tr := m.Toggle(tt.second)

			assert.Equal(t, tt.wantState, m.State())
			assert.Equal(t, tt.rejected, tr.Rejected)
			if tt.wantState == StateFull {
				a, b, ok := m.Bounds()
				require.True(t, ok)
				assert.Equal(t, tt.wantA, a)
				assert.Equal(t, tt.wantB, b)
			}
		})
	}
}

func TestMarker_RejectedCaptureCanRetry(t *testing.T) {
	m := NewMarker(PolicyReject)
	m.Toggle(20000)

	tr := m.Toggle(5000)
	assert.True(t, tr.Rejected)
	assert.Equal(t, StatePartial, m.State())

	tr = m.Toggle(25000)
	assert.False(t, tr.Rejected)
	assert.Equal(t, StateFull, m.State())
}

func TestMarker_AdjustPreservesLength(t *testing.T) {
	const duration = int64(180000)

	tests := []struct {
		name   string
		a, b   int64
		offset int64
		wantA  int64
		wantB  int64
	}{
		{name: "forward shift", a: 10000, b: 20000, offset: 5000, wantA: 15000, wantB: 25000},
		{name: "backward shift", a: 10000, b: 20000, offset: -5000, wantA: 5000, wantB: 15000},
		{name: "clamped at start", a: 10000, b: 20000, offset: -15000, wantA: 0, wantB: 10000},
		{name: "clamped at end", a: 160000, b: 175000, offset: 10000, wantA: 165000, wantB: 180000},
		{name: "zero offset", a: 10000, b: 20000, offset: 0, wantA: 10000, wantB: 20000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMarker(PolicySwap)
			m.Toggle(tt.a)
			m.Toggle(tt.b)

			m.Adjust(tt.offset, duration)

			a, b, ok := m.Bounds()
			require.True(t, ok)
			assert.Equal(t, tt.wantA, a)
			assert.Equal(t, tt.wantB, b)
			assert.Equal(t, tt.b-tt.a, b-a, "loop length must be preserved")
		})
	}
}

func TestMarker_AdjustIgnoredOutsideFullState(t *testing.T) {
	m := NewMarker(PolicySwap)
	assert.False(t, m.Adjust(1000, 180000))

	m.Toggle(10000)
	assert.False(t, m.Adjust(1000, 180000))
	a, ok := m.Start()
	require.True(t, ok)
	assert.Equal(t, int64(10000), a)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    Policy
		wantErr bool
	}{
		{input: "swap", want: PolicySwap},
		{input: "", want: PolicySwap},
		{input: "reject", want: PolicyReject},
		{input: "allow", want: PolicyAllow},
		{input: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("input="+tt.input, func(t *testing.T) {
			p, err := ParsePolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}
