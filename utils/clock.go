package utils

import "time"

// Clock abstracts time so TTL caches can be tested deterministically
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
