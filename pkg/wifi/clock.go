package wifi

import "time"

// Clock abstracts monotonic milliseconds-since-boot, mirroring
// dosinghead.Clock's NowMonoMS but kept independent so pkg/wifi has no
// dependency on pkg/dosinghead for a one-method interface.
type Clock interface {
	NowMonoMS() uint64
}

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
