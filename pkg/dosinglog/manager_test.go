package dosinglog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squaredose/squaredosed/pkg/storage"
	"github.com/squaredose/squaredosed/pkg/types"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() storage.Store { return &memStore{data: map[string][]byte{}} }

func (m *memStore) key(ns, key string) string { return ns + "/" + key }

func (m *memStore) PutBytes(ns, key string, blob []byte) error {
	m.data[m.key(ns, key)] = blob
	return nil
}

func (m *memStore) GetBytes(ns, key string) ([]byte, error) {
	return m.data[m.key(ns, key)], nil
}

func (m *memStore) Remove(ns, key string) error {
	delete(m.data, m.key(ns, key))
	return nil
}

func (m *memStore) Clear(ns string) error {
	prefix := ns + "/"
	for k := range m.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memStore) ListKeys(ns string) ([]string, error) {
	prefix := ns + "/"
	var keys []string
	for k := range m.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k[len(prefix):])
		}
	}
	return keys, nil
}

func (m *memStore) Close() error { return nil }

const hour0 = types.EpochBaseUnix + 3600*10 // an arbitrary hour-aligned timestamp well past epoch base

func TestManager_LogScheduledThenAdhocMerges(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))

	require.NoError(t, mgr.LogScheduledDose(0, 1.0, hour0))
	require.NoError(t, mgr.LogScheduledDose(0, 2.0, hour0+100))
	require.NoError(t, mgr.LogAdhocDose(0, 0.5, hour0+200))

	entries, err := mgr.HourlyLogs(hour0, hour0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 3.0, entries[0].ScheduledVolumeML, 1e-9)
	assert.InDelta(t, 0.5, entries[0].AdhocVolumeML, 1e-9)
}

func TestManager_LogDoseIgnoredWhenClockUnsynced(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))

	require.NoError(t, mgr.LogScheduledDose(0, 1.0, 1000)) // well before 2020-01-01

	entries, err := mgr.HourlyLogs(0, hour0+86400, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManager_HourlyLogsSkipsHoursWithNoDose(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	require.NoError(t, mgr.LogScheduledDose(1, 1.0, hour0))
	require.NoError(t, mgr.LogScheduledDose(1, 1.0, hour0+7200))

	entries, err := mgr.HourlyLogs(hour0, hour0+7200, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2) // middle hour had no dose, not included
}

func TestManager_HourlyLogsRespectsMaxEntries(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	for head := 0; head < types.NumHeads; head++ {
		require.NoError(t, mgr.LogScheduledDose(head, 1.0, hour0))
	}

	entries, err := mgr.HourlyLogs(hour0, hour0, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestManager_DailySummary(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	startOfDay := hour0 - hour0%types.SecondsPerDay
	require.NoError(t, mgr.LogScheduledDose(2, 6.0, startOfDay+3600))
	require.NoError(t, mgr.LogAdhocDose(2, 1.0, startOfDay+7200))

	summary, err := mgr.DailySummary(2, startOfDay+10000, 24.0)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Head)
	assert.InDelta(t, 6.0, summary.ScheduledVolumeML, 1e-9)
	assert.InDelta(t, 1.0, summary.AdhocVolumeML, 1e-9)
	assert.InDelta(t, 7.0, summary.TotalTodayML, 1e-9)
	assert.InDelta(t, 25.0, summary.PercentComplete, 1e-9)
}

func TestManager_DailySummaryZeroTargetGivesZeroPercent(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	summary, err := mgr.DailySummary(0, hour0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.PercentComplete)
}

func TestManager_DailySummaryRejectsUnsyncedClock(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	_, err := mgr.DailySummary(0, 1000, 24.0)
	assert.ErrorIs(t, err, types.ErrTimeNotSynced)
}

func TestManager_PruneRemovesOldEntries(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	oldHour := hour0
	freshHour := hour0 + int64(types.LogRetentionHours)*3600

	require.NoError(t, mgr.LogScheduledDose(0, 1.0, oldHour))
	require.NoError(t, mgr.LogScheduledDose(0, 1.0, freshHour))

	require.NoError(t, mgr.Prune(freshHour+3600))

	entries, err := mgr.HourlyLogs(oldHour, freshHour, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, freshHour, entries[0].HourTimestamp)
}

func TestManager_ClearAll(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	require.NoError(t, mgr.LogScheduledDose(0, 1.0, hour0))
	require.NoError(t, mgr.ClearAll())

	entries, err := mgr.HourlyLogs(hour0, hour0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
