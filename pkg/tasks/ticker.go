package tasks

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/squaredose/squaredosed/pkg/log"
)

// Ticker runs fn on a fixed interval until Stop is called. It is the one
// loop shape every task in this package is built from.
type Ticker struct {
	name     string
	interval time.Duration
	fn       func()
	log      zerolog.Logger
	stopCh   chan struct{}
}

// NewTicker constructs a Ticker. Call Start to launch its goroutine.
func NewTicker(name string, interval time.Duration, fn func()) *Ticker {
	return &Ticker{
		name:     name,
		interval: interval,
		fn:       fn,
		log:      log.WithComponent(name),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the ticker loop in its own goroutine.
func (t *Ticker) Start() {
	go t.run()
}

// Stop halts the loop. A Ticker cannot be restarted after Stop.
func (t *Ticker) Stop() {
	close(t.stopCh)
}

func (t *Ticker) run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.runOnce()
		case <-t.stopCh:
			return
		}
	}
}

func (t *Ticker) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error().Interface("panic", r).Msg("task panicked, continuing on next tick")
		}
	}()
	t.fn()
}
