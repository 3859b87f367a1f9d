package schedule

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/squaredose/squaredosed/pkg/log"
	"github.com/squaredose/squaredosed/pkg/types"
)

// Dispenser is the subset of DosingHead the scheduler needs. Defined here,
// not imported, so *dosinghead.DosingHead satisfies it structurally without
// pkg/schedule importing pkg/dosinghead.
type Dispenser interface {
	Dispense(volumeML float64) (types.DoseResult, error)
}

// DosingLogger is the subset of the dosing log manager the scheduler needs
// to record a completed scheduled dose. Set post-construction via
// SetDosingLog to break the schedule/dosinglog cyclic dependency.
type DosingLogger interface {
	LogScheduledDose(head int, volumeML float64, wallTime int64) error
}

type slot struct {
	present bool
	sched   types.Schedule
}

// Manager holds the 4-slot in-memory schedule cache and drives the
// scheduler tick's due-check and dispense.
type Manager struct {
	store *Store

	mu    sync.Mutex
	slots [types.NumHeads]slot

	dosingLog DosingLogger
	onExecute func(head int, result types.DoseResult, err error)
	log       zerolog.Logger
}

// NewManager constructs a Manager over a Store. Call Begin to load
// persisted schedules before ticking.
func NewManager(store *Store) *Manager {
	return &Manager{store: store, log: log.WithComponent("schedule")}
}

// SetDosingLog wires the dosing log manager after both have been
// constructed, since the log manager does not depend on the scheduler.
func (m *Manager) SetDosingLog(logger DosingLogger) {
	m.dosingLog = logger
}

// SetExecutionHook installs a callback invoked after every dispense attempt
// CheckAndExecute makes, successful or not, so the task fabric can publish
// dose_complete/dose_error events without the scheduler depending on the
// event broker directly.
func (m *Manager) SetExecutionHook(fn func(head int, result types.DoseResult, err error)) {
	m.onExecute = fn
}

// Begin loads every persisted schedule into the cache.
func (m *Manager) Begin() error {
	scheds, err := m.store.LoadAll()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range scheds {
		if s.Head < 0 || s.Head >= types.NumHeads {
			continue
		}
		m.slots[s.Head] = slot{present: true, sched: s}
	}
	return nil
}

// Set validates, persists, and caches a schedule for one head, replacing
// anything previously set on that head.
func (m *Manager) Set(sched types.Schedule) error {
	if err := m.store.Save(&sched); err != nil {
		return err
	}
	m.mu.Lock()
	m.slots[sched.Head] = slot{present: true, sched: sched}
	m.mu.Unlock()
	return nil
}

// Get returns the cached schedule for a head, if any.
func (m *Manager) Get(head int) (types.Schedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[head]
	return s.sched, s.present
}

// Delete removes a head's schedule from both the cache and persistence.
func (m *Manager) Delete(head int) error {
	if err := m.store.Delete(head); err != nil {
		return err
	}
	m.mu.Lock()
	m.slots[head] = slot{}
	m.mu.Unlock()
	return nil
}

// All returns every enabled schedule currently cached.
func (m *Manager) All() []types.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Schedule, 0, types.NumHeads)
	for _, s := range m.slots {
		if s.present && s.sched.Enabled {
			out = append(out, s.sched)
		}
	}
	return out
}

// CheckAndExecute is the scheduler tick's hot path: for each head whose
// schedule is due, it releases the cache lock, dispenses, logs the result,
// then reacquires the lock only to record the execution. A dispense
// failure on one head leaves its schedule untouched so it is retried on
// the next due tick; it never blocks the other three heads.
func (m *Manager) CheckAndExecute(currentWallTime int64, heads [types.NumHeads]Dispenser) {
	for head := 0; head < types.NumHeads; head++ {
		m.mu.Lock()
		s := m.slots[head]
		m.mu.Unlock()

		if !s.present || !s.sched.ShouldExecute(currentWallTime) {
			continue
		}

		result, err := heads[head].Dispense(s.sched.PerDoseVolumeML)
		if m.onExecute != nil {
			m.onExecute(head, result, err)
		}
		if err != nil || !result.Success {
			m.log.Warn().Int("head", head).Err(err).Msg("scheduled dose failed, retrying next tick")
			continue
		}

		if m.dosingLog != nil {
			if logErr := m.dosingLog.LogScheduledDose(head, result.EstimatedVolumeML, currentWallTime); logErr != nil {
				m.log.Warn().Err(logErr).Msg("failed to log scheduled dose")
			}
		}

		m.mu.Lock()
		updated := m.slots[head]
		if updated.present {
			updated.sched.LastExecutionTime = currentWallTime
			updated.sched.ExecutionCount++
			updated.sched.UpdatedAt = currentWallTime
			m.slots[head] = updated
		}
		m.mu.Unlock()

		if updated.present {
			if err := m.store.Save(&updated.sched); err != nil {
				m.log.Warn().Err(err).Msg("failed to persist schedule execution progress")
			}
		}
	}
}
