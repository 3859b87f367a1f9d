package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadDelete(t *testing.T) {
	store := NewStore(newMemStore())

	sched := newTestSchedule(3)
	require.NoError(t, store.Save(&sched))
	assert.InDelta(t, 1.0, sched.PerDoseVolumeML, 1e-9)

	loaded, ok, err := store.Load(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, loaded.Head)

	require.NoError(t, store.Delete(3))
	_, ok, err = store.Load(3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LoadAbsentReturnsNotOK(t *testing.T) {
	store := NewStore(newMemStore())
	_, ok, err := store.Load(0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LoadAll(t *testing.T) {
	store := NewStore(newMemStore())
	s0 := newTestSchedule(0)
	s1 := newTestSchedule(1)
	require.NoError(t, store.Save(&s0))
	require.NoError(t, store.Save(&s1))

	all, err := store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	store := NewStore(newMemStore())
	sched := newTestSchedule(0)
	sched.DailyTargetVolumeML = -1
	assert.Error(t, store.Save(&sched))
}
