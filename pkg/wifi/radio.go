package wifi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/squaredose/squaredosed/pkg/types"
)

// Radio is the narrow interface the supervisor drives; a real build would
// back this with the platform's Wi-Fi driver, a simulated one stands in
// here the way SimulatedHBridge stands in for motor hardware.
type Radio interface {
	StartAP(ssid, password string) error
	StopAP() error
	StartSTA(ctx context.Context, ssid, password string) error
	StopSTA() error
	IsSTAAssociated() bool
	LocalIP() string
	GatewayAddress() string
}

// SimulatedRadio models a single-radio AP/STA device. StartSTA blocks for
// the connect delay set by SetConnectBehavior (or until ctx is done)
// before resolving success/failure,
// standing in for the real association handshake's latency.
type SimulatedRadio struct {
	mu sync.Mutex

	apActive   bool
	staActive  bool
	associated bool
	localIP    string

	connectDelay    time.Duration
	connectSucceeds bool
	staStartCount   int
}

// NewSimulatedRadio returns a radio that associates successfully after a
// short simulated delay.
func NewSimulatedRadio() *SimulatedRadio {
	return &SimulatedRadio{
		connectDelay:    20 * time.Millisecond,
		connectSucceeds: true,
	}
}

// SetConnectBehavior controls the outcome and latency of the next StartSTA
// calls; used by tests to drive timeout and failure paths.
func (r *SimulatedRadio) SetConnectBehavior(succeeds bool, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectSucceeds = succeeds
	r.connectDelay = delay
}

// SimulateDisconnect marks the STA link lost without touching staActive,
// mimicking a dropped association the supervisor only notices on its next
// keep-alive poll.
func (r *SimulatedRadio) SimulateDisconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.associated = false
}

func (r *SimulatedRadio) StartAP(ssid, password string) error {
	if ssid == "" {
		return fmt.Errorf("AP SSID must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apActive = true
	r.localIP = types.APIPAddress
	return nil
}

func (r *SimulatedRadio) StopAP() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apActive = false
	return nil
}

func (r *SimulatedRadio) StartSTA(ctx context.Context, ssid, password string) error {
	if ssid == "" {
		return fmt.Errorf("STA SSID must not be empty")
	}

	r.mu.Lock()
	r.staActive = true
	r.staStartCount++
	delay := r.connectDelay
	succeeds := r.connectSucceeds
	r.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		r.mu.Lock()
		r.staActive = false
		r.mu.Unlock()
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !succeeds {
		r.staActive = false
		return fmt.Errorf("association with %s failed", ssid)
	}
	r.associated = true
	r.localIP = "10.0.0.42"
	return nil
}

func (r *SimulatedRadio) StopSTA() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staActive = false
	r.associated = false
	r.localIP = ""
	return nil
}

func (r *SimulatedRadio) IsSTAAssociated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.associated
}

func (r *SimulatedRadio) LocalIP() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localIP
}

// STAStartCount reports how many times StartSTA has been invoked; tests use
// this to confirm the keep-alive loop isn't re-associating a healthy link.
func (r *SimulatedRadio) STAStartCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.staStartCount
}

// GatewayAddress is the STA gateway's address the supervisor's health
// cross-check dials; fixed here since the simulated network has one
// well-known gateway.
func (r *SimulatedRadio) GatewayAddress() string {
	return "10.0.0.1:80"
}
