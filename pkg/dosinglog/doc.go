// Package dosinglog keeps per-hour, per-head scheduled/ad-hoc volume
// tallies in a compact hour-offset key scheme so the underlying key/value
// store never has to hold more than one entry per (hour, head). Writes are
// additive merges; reads serve range queries and a same-day dashboard
// rollup. Dose writes are silent no-ops and DailySummary returns
// ErrTimeNotSynced when given a wall-clock time that is not yet
// synchronized, since an hour key derived from an unsynced clock would be
// meaningless. HourlyLogs, Prune and ClearAll do not check the clock; they
// act on whatever range or time they are given.
package dosinglog
