package tasks

// WallClock abstracts the device's notion of wall-clock time so the
// scheduler and log-prune tasks can be driven by a fake clock in tests,
// and by pkg/wallclock.Clock in the running device, without depending on
// time.Now directly.
type WallClock interface {
	NowUnix() int64
}
