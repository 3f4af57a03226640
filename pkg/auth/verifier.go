package auth

import (
	"context"
	"fmt"
)

// Verifier gates argon2id comparisons behind a fixed number of slots. Each
// comparison pins tens of MiB of memory for tens of milliseconds, so an
// unbounded number of concurrent logins is a denial-of-service vector; the
// auth-class rate limiter runs first, this gate is the hard cap behind it.
type Verifier struct {
	slots chan struct{}
}

// NewVerifier creates a verifier allowing at most maxConcurrent comparisons.
func NewVerifier(maxConcurrent int) *Verifier {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Verifier{
		slots: make(chan struct{}, maxConcurrent),
	}
}

// Compare verifies a password against its hash, waiting for a free slot.
// A cancelled context returns before any hashing work starts.
func (v *Verifier) Compare(ctx context.Context, encodedHash, password string) error {
	select {
	case v.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("password verification cancelled: %w", ctx.Err())
	}
	defer func() { <-v.slots }()

	return ComparePassword(encodedHash, password)
}
