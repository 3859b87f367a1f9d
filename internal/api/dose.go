package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/squaredose/squaredosed/pkg/events"
	"github.com/squaredose/squaredosed/pkg/metrics"
	"github.com/squaredose/squaredosed/pkg/types"
)

type doseRequest struct {
	Head     int     `json:"head"`
	VolumeML float64 `json:"volume"`
}

type doseAcceptedResponse struct {
	Success      bool    `json:"success"`
	Head         int     `json:"head"`
	TargetVolume float64 `json:"target_volume"`
	Note         string  `json:"note"`
}

// handleDose validates the request synchronously, then hands the actual
// dispense off to a detached goroutine and responds 202 immediately — the
// dispense can block for up to 5 minutes and must never hold the request
// open. Completion is reported over /ws and the dosing log, not in the
// HTTP response.
func (s *Server) handleDose(w http.ResponseWriter, r *http.Request) {
	var req doseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Head < 0 || req.Head >= types.NumHeads {
		writeError(w, types.NewValidationError("head", "must be in 0..3"))
		return
	}
	if req.VolumeML < types.MinDoseVolumeML || req.VolumeML > types.MaxDoseVolumeML {
		writeError(w, types.NewValidationError("volume", "must be in [0.1, 1000]"))
		return
	}

	writeJSON(w, http.StatusAccepted, doseAcceptedResponse{
		Success:      true,
		Head:         req.Head,
		TargetVolume: req.VolumeML,
		Note:         "dispense started",
	})

	go s.runAdhocDose(req.Head, req.VolumeML)
}

func (s *Server) runAdhocDose(head int, volumeML float64) {
	result, err := s.heads.Head(head).Dispense(volumeML)
	s.publishDoseEvent(head, "adhoc", result, err)

	if err != nil || !result.Success {
		return
	}
	if logErr := s.logs.LogAdhocDose(head, result.EstimatedVolumeML, s.clock.NowUnix()); logErr != nil {
		s.log.Warn().Err(logErr).Int("head", head).Msg("failed to log ad-hoc dose")
	}
}

// publishDoseEvent mirrors pkg/tasks's scheduled-dose event publication so
// ad-hoc and scheduled doses produce identical dose_complete/dose_error
// payloads, distinguished only by the origin label.
func (s *Server) publishDoseEvent(head int, origin string, result types.DoseResult, err error) {
	label := strconv.Itoa(head)

	if err != nil || !result.Success {
		metrics.DosesTotal.WithLabelValues(label, origin, "error").Inc()
		msg := result.ErrorMessage
		if msg == "" && err != nil {
			msg = err.Error()
		}
		s.broker.Publish(&events.Event{
			ID:       uuid.NewString(),
			Type:     events.EventDoseError,
			Message:  msg,
			Metadata: map[string]string{"head": label, "origin": origin},
		})
		return
	}

	metrics.DosesTotal.WithLabelValues(label, origin, "success").Inc()
	metrics.DoseVolumeMLTotal.WithLabelValues(label, origin).Add(result.EstimatedVolumeML)
	metrics.DispenseDuration.Observe(float64(result.ActualRuntimeMS) / 1000)
	s.broker.Publish(&events.Event{
		ID:      uuid.NewString(),
		Type:    events.EventDoseComplete,
		Message: "dose complete",
		Metadata: map[string]string{
			"head":                label,
			"origin":              origin,
			"target_volume_ml":    strconv.FormatFloat(result.TargetVolumeML, 'f', 2, 64),
			"estimated_volume_ml": strconv.FormatFloat(result.EstimatedVolumeML, 'f', 2, 64),
			"runtime_ms":          strconv.FormatInt(result.ActualRuntimeMS, 10),
		},
	})
}

type emergencyStopResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleEmergencyStop is synchronous: it is the one operation spec.md
// requires to be legal and immediate from any caller, so there is no
// detached-goroutine dance here.
func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	s.heads.EmergencyStopAll()
	s.broker.Publish(&events.Event{
		ID:   uuid.NewString(),
		Type: events.EventEmergencyStop,
		Metadata: map[string]string{
			"timestamp": strconv.FormatInt(s.clock.NowUnix(), 10),
		},
	})
	writeJSON(w, http.StatusOK, emergencyStopResponse{Success: true, Message: "all heads stopped"})
}

type calibrationResponse struct {
	Head                int     `json:"head"`
	MLPerSecond         float64 `json:"ml_per_second"`
	IsCalibrated        bool    `json:"is_calibrated"`
	LastCalibrationTime uint64  `json:"last_calibration_time"`
}

func (s *Server) handleGetCalibration(w http.ResponseWriter, r *http.Request) {
	out := make([]calibrationResponse, types.NumHeads)
	for i := 0; i < types.NumHeads; i++ {
		cal := s.heads.Head(i).CalibrationData()
		out[i] = calibrationResponse{
			Head:                i,
			MLPerSecond:         cal.MLPerSecond,
			IsCalibrated:        cal.IsCalibrated,
			LastCalibrationTime: cal.LastCalibrationTime,
		}
	}
	writeJSON(w, http.StatusOK, struct {
		Calibrations []calibrationResponse `json:"calibrations"`
	}{Calibrations: out})
}

type calibrateRequest struct {
	Head           int     `json:"head"`
	ActualVolumeML float64 `json:"actual_volume"`
}

func (s *Server) handlePostCalibrate(w http.ResponseWriter, r *http.Request) {
	var req calibrateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Head < 0 || req.Head >= types.NumHeads {
		writeError(w, types.NewValidationError("head", "must be in 0..3"))
		return
	}

	ok, err := s.heads.Head(req.Head).Calibrate(req.ActualVolumeML)
	if err != nil {
		writeError(w, err)
		return
	}

	cal := s.heads.Head(req.Head).CalibrationData()
	writeJSON(w, http.StatusOK, struct {
		Success      bool    `json:"success"`
		Head         int     `json:"head"`
		MLPerSecond  float64 `json:"ml_per_second"`
		IsCalibrated bool    `json:"is_calibrated"`
	}{
		Success:      ok,
		Head:         req.Head,
		MLPerSecond:  cal.MLPerSecond,
		IsCalibrated: cal.IsCalibrated,
	})
}
