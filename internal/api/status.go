package api

import (
	"net/http"
	"time"

	"github.com/squaredose/squaredosed/pkg/types"
)

type headStatus struct {
	Head         int     `json:"head"`
	IsDispensing bool    `json:"is_dispensing"`
	IsCalibrated bool    `json:"is_calibrated"`
	MLPerSecond  float64 `json:"ml_per_second"`
}

type statusResponse struct {
	UptimeMS        int64          `json:"uptime_ms"`
	WifiMode        types.WifiMode `json:"wifi_mode"`
	WifiConnected   bool           `json:"wifi_connected"`
	WifiIP          string         `json:"wifi_ip"`
	APSSID          string         `json:"ap_ssid"`
	WallClockSynced bool           `json:"wall_clock_synced"`
	Heads           []headStatus   `json:"heads"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	heads := make([]headStatus, types.NumHeads)
	for i := 0; i < types.NumHeads; i++ {
		h := s.heads.Head(i)
		cal := h.CalibrationData()
		heads[i] = headStatus{
			Head:         i,
			IsDispensing: h.IsDispensing(),
			IsCalibrated: cal.IsCalibrated,
			MLPerSecond:  cal.MLPerSecond,
		}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		UptimeMS:        time.Since(s.startedAt).Milliseconds(),
		WifiMode:        s.wifiSup.CurrentMode(),
		WifiConnected:   s.wifiSup.IsConnected(),
		WifiIP:          s.wifiSup.LocalIP(),
		APSSID:          s.wifiSup.APSSID(),
		WallClockSynced: s.clock.IsSynced(),
		Heads:           heads,
	})
}

type timeResponse struct {
	Timestamp int64  `json:"timestamp"`
	Synced    bool   `json:"synced"`
	Source    string `json:"source"`
}

func (s *Server) handleGetTime(w http.ResponseWriter, r *http.Request) {
	synced := s.clock.IsSynced()
	source := "none"
	if synced {
		source = "manual"
	}
	writeJSON(w, http.StatusOK, timeResponse{
		Timestamp: s.clock.NowUnix(),
		Synced:    synced,
		Source:    source,
	})
}

type setTimeRequest struct {
	Timestamp int64 `json:"timestamp"`
}

func (s *Server) handlePostTime(w http.ResponseWriter, r *http.Request) {
	var req setTimeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.clock.SetTime(req.Timestamp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success   bool  `json:"success"`
		Timestamp int64 `json:"timestamp"`
	}{Success: true, Timestamp: s.clock.NowUnix()})
}
