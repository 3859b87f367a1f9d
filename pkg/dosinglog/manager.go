package dosinglog

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/squaredose/squaredosed/pkg/log"
	"github.com/squaredose/squaredosed/pkg/types"
)

// Manager serializes every read and write against the dosing log under one
// mutex, matching the teacher's reconciler-state guarding.
type Manager struct {
	store *Store

	mu  sync.Mutex
	log zerolog.Logger
}

// NewManager wraps a Store with the mutex discipline and derived queries.
func NewManager(store *Store) *Manager {
	return &Manager{store: store, log: log.WithComponent("dosinglog")}
}

// LogScheduledDose records a completed scheduler-driven dose.
func (m *Manager) LogScheduledDose(head int, volumeML float64, wallTime int64) error {
	return m.logDose(head, volumeML, wallTime, true)
}

// LogAdhocDose records a completed ad-hoc dose.
func (m *Manager) LogAdhocDose(head int, volumeML float64, wallTime int64) error {
	return m.logDose(head, volumeML, wallTime, false)
}

func (m *Manager) logDose(head int, volumeML float64, wallTime int64, scheduled bool) error {
	if !types.IsWallClockSynced(wallTime) {
		m.log.Debug().Int("head", head).Msg("dropping dose log write, clock not synced")
		return nil
	}
	hour := types.HourAlign(wallTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, _, err := m.store.Load(hour, head)
	if err != nil {
		return err
	}
	entry.HourTimestamp = hour
	entry.Head = head
	if scheduled {
		entry.ScheduledVolumeML += volumeML
	} else {
		entry.AdhocVolumeML += volumeML
	}
	return m.store.Save(entry)
}

// HourlyLogs returns every present entry within [start, end] inclusive,
// both rounded down to hour boundaries, across all heads. maxEntries caps
// the result (0 means unbounded) — the original's fixed-capacity caller
// buffer becomes an ordinary growable slice here.
func (m *Manager) HourlyLogs(start, end int64, maxEntries int) ([]types.HourlyLogEntry, error) {
	start = types.HourAlign(start)
	end = types.HourAlign(end)
	if end < start {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.HourlyLogEntry
	for hour := start; hour <= end; hour += 3600 {
		for head := 0; head < types.NumHeads; head++ {
			entry, ok, err := m.store.Load(hour, head)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			out = append(out, entry)
			if maxEntries > 0 && len(out) >= maxEntries {
				return out, nil
			}
		}
	}
	return out, nil
}

// DailySummary sums one head's scheduled and ad-hoc volumes over the
// current wall-clock day and returns the dashboard rollup.
func (m *Manager) DailySummary(head int, currentWallTime int64, dailyTargetVolumeML float64) (types.DashboardHeadSummary, error) {
	if !types.IsWallClockSynced(currentWallTime) {
		return types.DashboardHeadSummary{}, types.ErrTimeNotSynced
	}
	startOfDay := currentWallTime - currentWallTime%types.SecondsPerDay

	m.mu.Lock()
	defer m.mu.Unlock()

	var scheduled, adhoc float64
	for hour := startOfDay; hour < startOfDay+types.SecondsPerDay; hour += 3600 {
		entry, ok, err := m.store.Load(hour, head)
		if err != nil {
			return types.DashboardHeadSummary{}, err
		}
		if !ok {
			continue
		}
		scheduled += entry.ScheduledVolumeML
		adhoc += entry.AdhocVolumeML
	}

	percent := 0.0
	if dailyTargetVolumeML > 0 {
		percent = 100 * scheduled / dailyTargetVolumeML
	}

	return types.DashboardHeadSummary{
		Head:              head,
		ScheduledVolumeML: scheduled,
		AdhocVolumeML:     adhoc,
		TotalTodayML:      scheduled + adhoc,
		PercentComplete:   percent,
	}, nil
}

// Prune removes every entry older than LogRetentionHours relative to
// currentWallTime.
func (m *Manager) Prune(currentWallTime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.store.ListKeys()
	if err != nil {
		return err
	}

	retentionSeconds := int64(types.LogRetentionHours) * 3600
	pruned := 0
	for _, k := range keys {
		hourTimestamp, head, ok := parseKey(k)
		if !ok {
			continue
		}
		if currentWallTime-hourTimestamp > retentionSeconds {
			if err := m.store.Delete(hourTimestamp, head); err != nil {
				return err
			}
			pruned++
		}
	}
	if pruned > 0 {
		m.log.Debug().Int("pruned", pruned).Msg("pruned expired dosing log entries")
	}
	return nil
}

// ClearAll wipes every logged entry.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ClearAll()
}
