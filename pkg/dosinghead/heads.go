package dosinghead

import (
	"github.com/squaredose/squaredosed/pkg/actuator"
	"github.com/squaredose/squaredosed/pkg/types"
)

// Heads owns all 4 dosing heads and is the single place EmergencyStopAll
// is reachable from any goroutine.
type Heads struct {
	heads    [types.NumHeads]*DosingHead
	actuator actuator.Actuator
}

// NewHeads constructs the 4-head set sharing one actuator and calibration
// store.
func NewHeads(act actuator.Actuator, calStore *CalibrationStore, clock Clock) *Heads {
	hs := &Heads{actuator: act}
	for i := 0; i < types.NumHeads; i++ {
		hs.heads[i] = New(i, act, calStore, clock)
	}
	return hs
}

// Begin loads calibration for every head.
func (hs *Heads) Begin() error {
	for _, h := range hs.heads {
		if err := h.Begin(); err != nil {
			return err
		}
	}
	return nil
}

// Head returns the DosingHead for the given index.
func (hs *Heads) Head(head int) *DosingHead {
	return hs.heads[head]
}

// EmergencyStopAll preempts every in-flight dispense and commands the
// actuator to stop all channels. Any blocked Dispense/RunForDuration call
// returns promptly with ErrInterrupted.
func (hs *Heads) EmergencyStopAll() {
	for _, h := range hs.heads {
		h.StopDispensing()
	}
	hs.actuator.EmergencyStopAll()
}
