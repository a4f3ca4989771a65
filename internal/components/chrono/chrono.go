package chrono

import "time"

// API is the clock every component that stamps or compares times depends on.
//
// note: fault injection point
type API interface {
	Now() time.Time
}

// StandardImpl reads the system clock in UTC.
type StandardImpl struct{}

func (StandardImpl) Now() time.Time {
	return time.Now().UTC()
}

// FixedImpl always returns the same instant, it is meant for tests.
type FixedImpl struct {
	At time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.At
}
