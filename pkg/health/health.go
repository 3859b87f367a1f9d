package health

import (
	"context"
	"time"
)

// CheckType identifies the kind of check a Checker performs.
type CheckType string

// CheckTypeTCP is the only check type wired in this module — the Wi-Fi
// supervisor's STA gateway connectivity probe.
const CheckTypeTCP CheckType = "tcp"

// Result is the outcome of a single health check.
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is implemented by anything that can probe a target's liveness.
type Checker interface {
	Check(ctx context.Context) Result
	Type() CheckType
}
