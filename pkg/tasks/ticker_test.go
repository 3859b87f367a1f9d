package tasks

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicker_InvokesFnRepeatedlyUntilStopped(t *testing.T) {
	var calls int64
	tk := NewTicker("test", 5*time.Millisecond, func() {
		atomic.AddInt64(&calls, 1)
	})
	tk.Start()
	time.Sleep(40 * time.Millisecond)
	tk.Stop()

	seenAtStop := atomic.LoadInt64(&calls)
	assert.GreaterOrEqual(t, seenAtStop, int64(2))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, seenAtStop, atomic.LoadInt64(&calls), "no further calls after Stop")
}

func TestTicker_PanicInFnDoesNotKillLoop(t *testing.T) {
	var calls int64
	tk := NewTicker("test", 5*time.Millisecond, func() {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			panic("boom")
		}
	})
	tk.Start()
	time.Sleep(40 * time.Millisecond)
	tk.Stop()
	assert.GreaterOrEqual(t, atomic.LoadInt64(&calls), int64(2))
}
