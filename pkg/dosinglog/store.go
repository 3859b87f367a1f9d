package dosinglog

import (
	"encoding/json"
	"fmt"

	"github.com/squaredose/squaredosed/pkg/storage"
	"github.com/squaredose/squaredosed/pkg/types"
)

func entryKey(hourTimestamp int64, head int) string {
	offset := (hourTimestamp - types.EpochBaseUnix) / 3600
	return fmt.Sprintf("h%d_%d", offset, head)
}

// parseKey recovers the hour timestamp and head from a key produced by
// entryKey, used by Prune to decide what's stale without recomputing every
// possible key up front.
func parseKey(key string) (hourTimestamp int64, head int, ok bool) {
	var offset int64
	var h int
	if n, err := fmt.Sscanf(key, "h%d_%d", &offset, &h); err != nil || n != 2 {
		return 0, 0, false
	}
	return types.EpochBaseUnix + offset*3600, h, true
}

// Store persists one HourlyLogEntry per (hour, head) under the dosinglogs
// namespace.
type Store struct {
	store storage.Store
}

// NewStore wraps a generic byte store for dosing-log persistence.
func NewStore(store storage.Store) *Store {
	return &Store{store: store}
}

// Load returns the entry for (hourTimestamp, head), or ok=false if no dose
// was ever recorded for that hour.
func (s *Store) Load(hourTimestamp int64, head int) (entry types.HourlyLogEntry, ok bool, err error) {
	k := entryKey(hourTimestamp, head)
	blob, err := s.store.GetBytes(storage.NamespaceDosingLogs, k)
	if err != nil {
		return types.HourlyLogEntry{}, false, types.NewPersistenceError(storage.NamespaceDosingLogs, k, err)
	}
	if blob == nil {
		return types.HourlyLogEntry{}, false, nil
	}
	if err := json.Unmarshal(blob, &entry); err != nil {
		return types.HourlyLogEntry{}, false, types.NewPersistenceError(storage.NamespaceDosingLogs, k, err)
	}
	return entry, true, nil
}

// Save writes an entry, replacing whatever was previously stored for its
// (hour, head).
func (s *Store) Save(entry types.HourlyLogEntry) error {
	k := entryKey(entry.HourTimestamp, entry.Head)
	blob, err := json.Marshal(entry)
	if err != nil {
		return types.NewPersistenceError(storage.NamespaceDosingLogs, k, err)
	}
	if err := s.store.PutBytes(storage.NamespaceDosingLogs, k, blob); err != nil {
		return types.NewPersistenceError(storage.NamespaceDosingLogs, k, err)
	}
	return nil
}

// Delete removes one (hour, head) entry; deleting an absent one is a no-op.
func (s *Store) Delete(hourTimestamp int64, head int) error {
	k := entryKey(hourTimestamp, head)
	if err := s.store.Remove(storage.NamespaceDosingLogs, k); err != nil {
		return types.NewPersistenceError(storage.NamespaceDosingLogs, k, err)
	}
	return nil
}

// ListKeys returns every key currently present in the namespace, for Prune
// to scan.
func (s *Store) ListKeys() ([]string, error) {
	keys, err := s.store.ListKeys(storage.NamespaceDosingLogs)
	if err != nil {
		return nil, types.NewPersistenceError(storage.NamespaceDosingLogs, "", err)
	}
	return keys, nil
}

// ClearAll wipes every logged entry.
func (s *Store) ClearAll() error {
	if err := s.store.Clear(storage.NamespaceDosingLogs); err != nil {
		return types.NewPersistenceError(storage.NamespaceDosingLogs, "", err)
	}
	return nil
}
