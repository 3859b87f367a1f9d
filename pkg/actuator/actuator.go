// Package actuator is the narrow interface the dosing engine drives
// motors through: start/stop/brake per channel and a process-wide
// emergency stop. Real firmware would implement this over H-bridge GPIO;
// this module ships a simulated implementation so it builds and runs
// standalone.
package actuator

import (
	"fmt"
	"sync"

	"github.com/squaredose/squaredosed/pkg/types"
)

// Direction is the motor rotation direction.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// Actuator is implemented by anything that can drive the 4 pump motors.
type Actuator interface {
	Start(head int, dir Direction) error
	Stop(head int) error
	Brake(head int) error
	EmergencyStopAll()
	IsRunning(head int) bool
}

// SimulatedHBridge models a 4-channel H-bridge sharing one standby line.
// There is no real hardware behind it — Start/Stop/Brake just flip an
// in-memory running flag per channel — but it keeps the same failure
// surface (head bounds checking, one mutex) a real driver would expose.
type SimulatedHBridge struct {
	mu      sync.Mutex
	running [types.NumHeads]bool
}

// NewSimulatedHBridge constructs a bridge with every channel stopped.
func NewSimulatedHBridge() *SimulatedHBridge {
	return &SimulatedHBridge{}
}

func (a *SimulatedHBridge) checkHead(head int) error {
	if head < 0 || head >= types.NumHeads {
		return fmt.Errorf("actuator: invalid head %d", head)
	}
	return nil
}

// Start commands the channel to run in the given direction.
func (a *SimulatedHBridge) Start(head int, dir Direction) error {
	if err := a.checkHead(head); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running[head] = true
	return nil
}

// Stop commands the channel to a coasting stop.
func (a *SimulatedHBridge) Stop(head int) error {
	if err := a.checkHead(head); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running[head] = false
	return nil
}

// Brake commands the channel to an active (braked) stop. The simulation
// has no distinct electrical behavior from Stop, but keeps the call
// shape a real H-bridge driver needs.
func (a *SimulatedHBridge) Brake(head int) error {
	return a.Stop(head)
}

// EmergencyStopAll immediately stops every channel, ignoring head bounds
// errors since it never fails.
func (a *SimulatedHBridge) EmergencyStopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.running {
		a.running[i] = false
	}
}

// IsRunning reports whether a channel is currently commanded to run.
func (a *SimulatedHBridge) IsRunning(head int) bool {
	if err := a.checkHead(head); err != nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running[head]
}
