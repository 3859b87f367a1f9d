package dosinghead

import (
	"encoding/json"

	"github.com/squaredose/squaredosed/pkg/storage"
	"github.com/squaredose/squaredosed/pkg/types"
)

const calibrationKey = "calibration"

// calibrationRecord is the on-disk shape of the dosingHead<head>
// namespace: mlPerSec float, calibrated bool, lastCalTime unsigned
// 32-bit monotonic milliseconds.
type calibrationRecord struct {
	MLPerSecond float64 `json:"mlPerSec"`
	Calibrated  bool    `json:"calibrated"`
	LastCalTime uint32  `json:"lastCalTime"`
}

// CalibrationStore persists one Calibration record per head.
type CalibrationStore struct {
	store storage.Store
}

// NewCalibrationStore wraps a generic KV store for calibration records.
func NewCalibrationStore(store storage.Store) *CalibrationStore {
	return &CalibrationStore{store: store}
}

// Load returns the head's calibration, or the default if none is persisted.
func (s *CalibrationStore) Load(head int) (types.Calibration, error) {
	ns := storage.NamespaceDosingHead(head)
	blob, err := s.store.GetBytes(ns, calibrationKey)
	if err != nil {
		return types.Calibration{}, types.NewPersistenceError(ns, calibrationKey, err)
	}
	if blob == nil {
		return types.DefaultCalibration(), nil
	}

	var rec calibrationRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return types.Calibration{}, types.NewPersistenceError(ns, calibrationKey, err)
	}
	return types.Calibration{
		MLPerSecond:         rec.MLPerSecond,
		IsCalibrated:        rec.Calibrated,
		LastCalibrationTime: uint64(rec.LastCalTime),
	}, nil
}

// Save persists a head's calibration atomically.
func (s *CalibrationStore) Save(head int, cal types.Calibration) error {
	ns := storage.NamespaceDosingHead(head)
	rec := calibrationRecord{
		MLPerSecond: cal.MLPerSecond,
		Calibrated:  cal.IsCalibrated,
		LastCalTime: uint32(cal.LastCalibrationTime),
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.store.PutBytes(ns, calibrationKey, blob); err != nil {
		return types.NewPersistenceError(ns, calibrationKey, err)
	}
	return nil
}
