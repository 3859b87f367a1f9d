package schedule

import (
	"encoding/json"
	"fmt"

	"github.com/squaredose/squaredosed/pkg/storage"
	"github.com/squaredose/squaredosed/pkg/types"
)

func key(head int) string { return fmt.Sprintf("sched%d", head) }

// Store persists one Schedule per head under the schedules namespace.
type Store struct {
	store storage.Store
}

// NewStore wraps a generic byte store for schedule persistence.
func NewStore(store storage.Store) *Store {
	return &Store{store: store}
}

// Save validates and recomputes derived fields, then persists the schedule.
func (s *Store) Save(sched *types.Schedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	k := key(sched.Head)
	blob, err := json.Marshal(sched)
	if err != nil {
		return types.NewPersistenceError(storage.NamespaceSchedules, k, err)
	}
	if err := s.store.PutBytes(storage.NamespaceSchedules, k, blob); err != nil {
		return types.NewPersistenceError(storage.NamespaceSchedules, k, err)
	}
	return nil
}

// Load returns the persisted schedule for a head, or ok=false if none exists.
func (s *Store) Load(head int) (sched types.Schedule, ok bool, err error) {
	k := key(head)
	blob, err := s.store.GetBytes(storage.NamespaceSchedules, k)
	if err != nil {
		return types.Schedule{}, false, types.NewPersistenceError(storage.NamespaceSchedules, k, err)
	}
	if blob == nil {
		return types.Schedule{}, false, nil
	}
	if err := json.Unmarshal(blob, &sched); err != nil {
		return types.Schedule{}, false, types.NewPersistenceError(storage.NamespaceSchedules, k, err)
	}
	return sched, true, nil
}

// Delete removes a head's persisted schedule.
func (s *Store) Delete(head int) error {
	k := key(head)
	if err := s.store.Remove(storage.NamespaceSchedules, k); err != nil {
		return types.NewPersistenceError(storage.NamespaceSchedules, k, err)
	}
	return nil
}

// LoadAll returns every persisted schedule, skipping any record that fails
// to decode rather than failing the whole load.
func (s *Store) LoadAll() ([]types.Schedule, error) {
	keys, err := s.store.ListKeys(storage.NamespaceSchedules)
	if err != nil {
		return nil, types.NewPersistenceError(storage.NamespaceSchedules, "", err)
	}
	scheds := make([]types.Schedule, 0, len(keys))
	for _, k := range keys {
		blob, err := s.store.GetBytes(storage.NamespaceSchedules, k)
		if err != nil || blob == nil {
			continue
		}
		var sched types.Schedule
		if err := json.Unmarshal(blob, &sched); err != nil {
			continue
		}
		scheds = append(scheds, sched)
	}
	return scheds, nil
}
