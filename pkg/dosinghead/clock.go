package dosinghead

import (
	"context"
	"time"

	"github.com/squaredose/squaredosed/pkg/types"
)

// Clock abstracts monotonic time and interruptible sleep so tests can
// drive a dispense without waiting on a real timer.
type Clock interface {
	NowMonoMS() uint64
	Sleep(ctx context.Context, d time.Duration) error
}

// systemClock is the real Clock, measuring milliseconds since it was
// constructed (approximating "since boot" for a long-running process).
type systemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock backed by the real wall clock.
func NewSystemClock() Clock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) NowMonoMS() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}

func (c *systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return types.ErrInterrupted
	}
}
