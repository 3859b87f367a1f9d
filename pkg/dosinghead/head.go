package dosinghead

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/squaredose/squaredosed/pkg/actuator"
	"github.com/squaredose/squaredosed/pkg/log"
	"github.com/squaredose/squaredosed/pkg/types"
)

// DosingHead converts target volumes to motor runtime and executes a
// blocking dispense. All state is guarded by one mutex; the dispense
// itself sleeps outside the lock so IsDispensing and CalibrationData
// remain responsive while a dose is in progress.
type DosingHead struct {
	head     int
	actuator actuator.Actuator
	calStore *CalibrationStore
	clock    Clock
	log      zerolog.Logger

	mu         sync.Mutex
	cal        types.Calibration
	dispensing bool
	cancel     context.CancelFunc
}

// New constructs a DosingHead for one channel. Call Begin before use.
func New(head int, act actuator.Actuator, calStore *CalibrationStore, clock Clock) *DosingHead {
	return &DosingHead{
		head:     head,
		actuator: act,
		calStore: calStore,
		clock:    clock,
		cal:      types.DefaultCalibration(),
		log:      log.WithHead(head),
	}
}

// Begin loads calibration from persistence; an absent record retains
// the default rate.
func (d *DosingHead) Begin() error {
	cal, err := d.calStore.Load(d.head)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.cal = cal
	d.mu.Unlock()
	return nil
}

// Dispense blocks for the runtime implied by volumeML at the current
// calibrated rate.
func (d *DosingHead) Dispense(volumeML float64) (types.DoseResult, error) {
	if volumeML < types.MinDoseVolumeML || volumeML > types.MaxDoseVolumeML {
		return types.DoseResult{}, types.NewValidationError("volume_ml", "must be in [0.1, 1000]")
	}

	d.mu.Lock()
	rate := d.cal.MLPerSecond
	d.mu.Unlock()

	runtimeMS := int64(math.Round(volumeML / rate * 1000))
	if runtimeMS < types.MinRuntimeMS || runtimeMS > types.MaxRuntimeMS {
		return types.DoseResult{}, types.NewValidationError("volume_ml", "resulting runtime is out of [100ms, 300000ms]")
	}

	return d.run(volumeML, runtimeMS)
}

// RunForDuration is Dispense's time-driven twin, used by calibration
// workflows that want an explicit duration rather than a computed one.
func (d *DosingHead) RunForDuration(runtimeMS int64) (types.DoseResult, error) {
	if runtimeMS < types.MinRuntimeMS || runtimeMS > types.MaxRuntimeMS {
		return types.DoseResult{}, types.NewValidationError("duration_ms", "must be in [100, 300000]")
	}
	return d.run(0, runtimeMS)
}

func (d *DosingHead) run(targetVolumeML float64, runtimeMS int64) (types.DoseResult, error) {
	d.mu.Lock()
	if d.dispensing {
		d.mu.Unlock()
		return types.DoseResult{}, types.ErrBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.dispensing = true
	d.cancel = cancel
	rate := d.cal.MLPerSecond
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.dispensing = false
		d.cancel = nil
		d.mu.Unlock()
	}()

	if err := d.actuator.Start(d.head, actuator.Forward); err != nil {
		return types.DoseResult{}, types.NewActuatorError(d.head, err)
	}

	started := time.Now()
	sleepErr := d.clock.Sleep(ctx, time.Duration(runtimeMS)*time.Millisecond)
	elapsedMS := time.Since(started).Milliseconds()

	if err := d.actuator.Stop(d.head); err != nil {
		return types.DoseResult{}, types.NewActuatorError(d.head, err)
	}

	if sleepErr != nil {
		d.log.Warn().Int64("runtime_ms", elapsedMS).Msg("dispense interrupted")
		return types.DoseResult{
			Success:         false,
			TargetVolumeML:  targetVolumeML,
			ActualRuntimeMS: elapsedMS,
			ErrorMessage:    "interrupted",
		}, types.ErrInterrupted
	}

	return types.DoseResult{
		Success:           true,
		TargetVolumeML:    targetVolumeML,
		EstimatedVolumeML: rate * float64(elapsedMS) / 1000,
		ActualRuntimeMS:   elapsedMS,
	}, nil
}

// StopDispensing cancels any in-flight dispense on this head; a no-op if
// none is in progress.
func (d *DosingHead) StopDispensing() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsDispensing reports whether a dispense is currently in progress.
func (d *DosingHead) IsDispensing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispensing
}

// Calibrate recomputes the head's rate from a post-measurement actual
// volume for the fixed 4mL calibration dose, and persists it atomically.
func (d *DosingHead) Calibrate(actualVolumeML float64) (bool, error) {
	if actualVolumeML <= 0 {
		return false, types.NewValidationError("actual_volume_ml", "must be > 0")
	}

	d.mu.Lock()
	currentRate := d.cal.MLPerSecond
	d.mu.Unlock()

	durationUsedSeconds := types.CalibrationDoseVolumeML / currentRate
	newRate := actualVolumeML / durationUsedSeconds

	if newRate <= 0 || newRate > types.MaxCalibratedRate {
		return false, types.NewActuatorError(d.head, fmt.Errorf("computed rate %.3f mL/s outside (0, %.0f]", newRate, types.MaxCalibratedRate))
	}

	cal := types.Calibration{
		MLPerSecond:         newRate,
		IsCalibrated:        true,
		LastCalibrationTime: d.clock.NowMonoMS(),
	}
	if err := d.calStore.Save(d.head, cal); err != nil {
		return false, err
	}

	d.mu.Lock()
	d.cal = cal
	d.mu.Unlock()
	return true, nil
}

// ResetCalibration restores the default uncalibrated rate.
func (d *DosingHead) ResetCalibration() error {
	cal := types.DefaultCalibration()
	if err := d.calStore.Save(d.head, cal); err != nil {
		return err
	}
	d.mu.Lock()
	d.cal = cal
	d.mu.Unlock()
	return nil
}

// CalibrationData returns a snapshot of the head's current calibration.
func (d *DosingHead) CalibrationData() types.Calibration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cal
}
