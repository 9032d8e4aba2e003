package clock

import "time"

// Clock abstracts wall-clock access so that time-dependent decision logic
// can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by the real wall clock. All timestamps are UTC.
func System() Clock { return systemClock{} }

// Fixed is a Clock frozen at a specific instant. Advance moves it forward,
// which is enough for expiry tests without sleeping.
type Fixed struct {
	now time.Time
}

// NewFixed returns a Clock frozen at t (normalized to UTC).
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t.UTC()}
}

func (f *Fixed) Now() time.Time { return f.now }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.now = f.now.Add(d) }
