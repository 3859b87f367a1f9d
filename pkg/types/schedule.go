package types

const (
	MinDailyTargetVolumeML = 0.1
	MaxDailyTargetVolumeML = 10000.0
	MinDosesPerDay         = 1
	MaxDosesPerDay         = 1440
	MinIntervalSeconds     = 60
	MaxScheduleNameLength  = 31

	SecondsPerDay = 86400
)

// Schedule is the persisted recurring-dose configuration for one head.
// PerDoseVolumeML and IntervalSeconds are derived from DailyTargetVolumeML
// and DosesPerDay; callers must call Recompute after changing either
// before trusting the derived fields. They are never taken as given from
// a client request: Validate, which runs before every save, recomputes
// them. A schedule read back from storage carries the values computed
// when it was saved.
type Schedule struct {
	Head                int     `json:"head"`
	Enabled             bool    `json:"enabled"`
	Name                string  `json:"name"`
	DailyTargetVolumeML float64 `json:"daily_target_volume_ml"`
	DosesPerDay         int     `json:"doses_per_day"`

	PerDoseVolumeML float64 `json:"per_dose_volume_ml"`
	IntervalSeconds int64   `json:"interval_seconds"`

	LastExecutionTime int64  `json:"last_execution_time"`
	ExecutionCount    uint64 `json:"execution_count"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
}

// Recompute fills PerDoseVolumeML and IntervalSeconds from the user-intent
// fields.
func (s *Schedule) Recompute() {
	s.PerDoseVolumeML = s.DailyTargetVolumeML / float64(s.DosesPerDay)
	s.IntervalSeconds = SecondsPerDay / int64(s.DosesPerDay)
}

// ShouldExecute reports whether the schedule is due at wall-clock time t.
// A schedule that has never executed is due on the very next check.
func (s *Schedule) ShouldExecute(t int64) bool {
	if !s.Enabled {
		return false
	}
	if s.LastExecutionTime == 0 {
		return true
	}
	return t-s.LastExecutionTime >= s.IntervalSeconds
}

// Validate checks user-intent bounds and, after recomputing derived
// fields, the resulting per-dose-volume and interval invariants.
func (s *Schedule) Validate() error {
	if s.Head < 0 || s.Head >= NumHeads {
		return NewValidationError("head", "must be in 0..3")
	}
	if len(s.Name) > MaxScheduleNameLength {
		return NewValidationError("name", "must be at most 31 characters")
	}
	if s.DailyTargetVolumeML < MinDailyTargetVolumeML || s.DailyTargetVolumeML > MaxDailyTargetVolumeML {
		return NewValidationError("daily_target_volume_ml", "must be in [0.1, 10000]")
	}
	if s.DosesPerDay < MinDosesPerDay || s.DosesPerDay > MaxDosesPerDay {
		return NewValidationError("doses_per_day", "must be in [1, 1440]")
	}

	s.Recompute()

	if s.PerDoseVolumeML <= 0 || s.PerDoseVolumeML > MaxDoseVolumeML {
		return NewValidationError("daily_target_volume_ml", "resulting per-dose volume must be in (0, 1000] mL")
	}
	if s.IntervalSeconds < MinIntervalSeconds {
		return NewValidationError("doses_per_day", "resulting interval must be at least 60s")
	}
	return nil
}
