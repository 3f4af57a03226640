package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingDelay pads failed login responses so that "unknown user" and
// "wrong password" take similar time from the caller's point of view.
type TimingDelay struct {
	baseDelay   time.Duration
	randomDelay time.Duration
}

// NewTimingDelay creates a TimingDelay with the given base and random
// jitter components.
func NewTimingDelay(base, random time.Duration) *TimingDelay {
	return &TimingDelay{
		baseDelay:   base,
		randomDelay: random,
	}
}

// cryptoRandDuration returns a secure random duration in [0, max).
// Uses crypto/rand instead of math/rand for security-sensitive operations.
func cryptoRandDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0
	}
	randomValue := binary.BigEndian.Uint64(randomBytes)
	return time.Duration(randomValue % uint64(max))
}

// WaitFrom sleeps until at least base plus jitter has elapsed since
// startTime. Operations that already consumed time (such as an argon2
// comparison) only pay the remainder.
func (td *TimingDelay) WaitFrom(startTime time.Time) {
	targetDelay := td.baseDelay + cryptoRandDuration(td.randomDelay)
	elapsed := time.Since(startTime)
	if elapsed < targetDelay {
		time.Sleep(targetDelay - elapsed)
	}
}
