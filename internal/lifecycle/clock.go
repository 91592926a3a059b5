// Package lifecycle drives a submitted guess through its on-chain states:
// submission, confirmation, resolution polling, and terminal classification.
package lifecycle

import (
	"context"
	"time"
)

// Clock abstracts wall time and delay so coordinator timing can be tested
// without real sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// NewClock returns the wall clock.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
