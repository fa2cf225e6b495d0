package ports

import "time"

// Clock abstracts time so expiry logic is testable. All expiry is
// evaluated lazily at read time against this clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
