package types

// Bounds and constants governing dispensing and calibration, per the
// dosing engine's contract.
const (
	NumHeads = 4

	DefaultMLPerSecond = 1.0

	MinDoseVolumeML = 0.1
	MaxDoseVolumeML = 1000.0

	MinRuntimeMS = 100
	MaxRuntimeMS = 300000

	MaxCalibratedRate       = 100.0
	CalibrationDoseVolumeML = 4.0
)

// Calibration is one head's persisted mL/second rate.
//
// LastCalibrationTime is monotonic milliseconds since boot, not
// wall-clock, even though it travels over the same JSON payload as
// wall-clock fields elsewhere in the API surface. This ambiguity exists in
// the source this firmware is modeled on and is flagged here rather than
// silently resolved.
type Calibration struct {
	MLPerSecond         float64 `json:"ml_per_second"`
	IsCalibrated        bool    `json:"is_calibrated"`
	LastCalibrationTime uint64  `json:"last_calibration_time"`
}

// DefaultCalibration is the uncalibrated starting point for every head.
func DefaultCalibration() Calibration {
	return Calibration{MLPerSecond: DefaultMLPerSecond}
}

// DoseResult is the transient outcome of a single dispense.
type DoseResult struct {
	Success           bool    `json:"success"`
	TargetVolumeML    float64 `json:"target_volume_ml"`
	EstimatedVolumeML float64 `json:"estimated_volume_ml"`
	ActualRuntimeMS   int64   `json:"actual_runtime_ms"`
	ErrorMessage      string  `json:"error_message,omitempty"`
}
