package schedule

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
	for k := range m.data {
		if len(k) > len(ns) && k[:len(ns)+1] == ns+"/" {
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

type fakeDispenser struct {
	result types.DoseResult
	err    error
	calls  int
}

func (f *fakeDispenser) Dispense(volumeML float64) (types.DoseResult, error) {
	f.calls++
	if f.err != nil {
		return types.DoseResult{}, f.err
	}
	r := f.result
	r.TargetVolumeML = volumeML
	r.EstimatedVolumeML = volumeML
	r.Success = true
	return r, nil
}

type fakeLogger struct {
	calls []struct {
		head     int
		volumeML float64
		wallTime int64
	}
}

func (f *fakeLogger) LogScheduledDose(head int, volumeML float64, wallTime int64) error {
	f.calls = append(f.calls, struct {
		head     int
		volumeML float64
		wallTime int64
	}{head, volumeML, wallTime})
	return nil
}

func newTestSchedule(head int) types.Schedule {
	return types.Schedule{
		Head:                head,
		Enabled:             true,
		Name:                "test",
		DailyTargetVolumeML: 24,
		DosesPerDay:         24,
	}
}

func TestManager_SetGetDelete(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))

	sched := newTestSchedule(0)
	require.NoError(t, mgr.Set(sched))

	got, ok := mgr.Get(0)
	require.True(t, ok)
	assert.InDelta(t, 1.0, got.PerDoseVolumeML, 1e-9)
	assert.Equal(t, int64(3600), got.IntervalSeconds)

	require.NoError(t, mgr.Delete(0))
	_, ok = mgr.Get(0)
	assert.False(t, ok)
}

func TestManager_SetRejectsInvalidSchedule(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))

	sched := newTestSchedule(0)
	sched.DosesPerDay = 0
	assert.Error(t, mgr.Set(sched))
}

func TestManager_BeginLoadsPersistedSchedules(t *testing.T) {
	store := NewStore(newMemStore())
	mgr1 := NewManager(store)
	require.NoError(t, mgr1.Set(newTestSchedule(2)))

	mgr2 := NewManager(store)
	require.NoError(t, mgr2.Begin())

	got, ok := mgr2.Get(2)
	require.True(t, ok)
	assert.Equal(t, 2, got.Head)
}

func TestManager_CheckAndExecuteDispensesWhenDue(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	logger := &fakeLogger{}
	mgr.SetDosingLog(logger)
	require.NoError(t, mgr.Set(newTestSchedule(0)))

	disp := &fakeDispenser{}
	var heads [types.NumHeads]Dispenser
	heads[0] = disp
	for i := 1; i < types.NumHeads; i++ {
		heads[i] = &fakeDispenser{}
	}

	mgr.CheckAndExecute(1000, heads)

	assert.Equal(t, 1, disp.calls)
	require.Len(t, logger.calls, 1)
	assert.Equal(t, 0, logger.calls[0].head)

	got, ok := mgr.Get(0)
	require.True(t, ok)
	assert.Equal(t, int64(1000), got.LastExecutionTime)
	assert.Equal(t, uint64(1), got.ExecutionCount)

	// Not due again immediately.
	mgr.CheckAndExecute(1001, heads)
	assert.Equal(t, 1, disp.calls)
}

func TestManager_CheckAndExecuteSkipsDisabledOrAbsent(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	sched := newTestSchedule(1)
	sched.Enabled = false
	require.NoError(t, mgr.Set(sched))

	var heads [types.NumHeads]Dispenser
	for i := range heads {
		heads[i] = &fakeDispenser{}
	}

	mgr.CheckAndExecute(1000, heads)
	assert.Equal(t, 0, heads[1].(*fakeDispenser).calls)
	for _, absent := range []int{0, 2, 3} {
		assert.Equal(t, 0, heads[absent].(*fakeDispenser).calls, "head %d has no schedule", absent)
	}
}

func TestManager_CheckAndExecuteRetriesOnDispenseFailure(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	require.NoError(t, mgr.Set(newTestSchedule(0)))

	failing := &fakeDispenser{err: types.ErrBusy}
	var heads [types.NumHeads]Dispenser
	heads[0] = failing
	for i := 1; i < types.NumHeads; i++ {
		heads[i] = &fakeDispenser{}
	}

	mgr.CheckAndExecute(1000, heads)

	got, ok := mgr.Get(0)
	require.True(t, ok)
	assert.Equal(t, int64(0), got.LastExecutionTime)
	assert.Equal(t, uint64(0), got.ExecutionCount)

	// Still due, so the very next tick tries again.
	mgr.CheckAndExecute(1001, heads)
	assert.Equal(t, 2, failing.calls)
}

func TestManager_All(t *testing.T) {
	mgr := NewManager(NewStore(newMemStore()))
	require.NoError(t, mgr.Set(newTestSchedule(0)))
	disabled := newTestSchedule(1)
	disabled.Enabled = false
	require.NoError(t, mgr.Set(disabled))

	all := mgr.All()
	require.Len(t, all, 1)
	assert.Equal(t, 0, all[0].Head)
}
