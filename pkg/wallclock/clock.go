// Package wallclock holds the device's notion of wall-clock time,
// distinct from the monotonic clocks used elsewhere for durations. A
// freshly booted device has no wall-clock until something (an operator,
// or in real firmware NTP) calls SetTime; until then NowUnix reports a
// sentinel of 0 that types.IsWallClockSynced recognizes as unsynced.
package wallclock

import (
	"sync"
	"time"

	"github.com/squaredose/squaredosed/pkg/types"
)

// unsyncedSentinel is returned by NowUnix before SetTime is ever called.
// It sits below types.UnsyncedClockThresholdUnix so IsWallClockSynced
// correctly reports false.
const unsyncedSentinel = 0

// Clock holds a wall-clock reading anchored to a monotonic instant so it
// keeps advancing correctly between syncs.
type Clock struct {
	mu       sync.Mutex
	synced   bool
	baseWall int64
	baseMono time.Time
}

// New returns an unsynced Clock.
func New() *Clock {
	return &Clock{}
}

// NowUnix returns the current wall-clock second value, or the unsynced
// sentinel if SetTime has never been called.
func (c *Clock) NowUnix() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.synced {
		return unsyncedSentinel
	}
	return c.baseWall + int64(time.Since(c.baseMono).Seconds())
}

// IsSynced reports whether the clock has been set at least once.
func (c *Clock) IsSynced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced
}

// SetTime sets the wall clock to timestamp, anchoring it to the current
// monotonic instant. A timestamp below the sync threshold is rejected so
// callers cannot put the clock back into an unsynced state by mistake.
func (c *Clock) SetTime(timestamp int64) error {
	if !types.IsWallClockSynced(timestamp) {
		return types.NewValidationError("timestamp", "must be a real wall-clock value (on or after 2020-01-01)")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseWall = timestamp
	c.baseMono = time.Now()
	c.synced = true
	return nil
}
