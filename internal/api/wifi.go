package api

import (
	"net/http"

	"github.com/squaredose/squaredosed/pkg/types"
)

type wifiStatusResponse struct {
	Mode      types.WifiMode `json:"mode"`
	Connected bool           `json:"connected"`
	IP        string         `json:"ip"`
	APSSID    string         `json:"ap_ssid"`
}

func (s *Server) handleWifiStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wifiStatusResponse{
		Mode:      s.wifiSup.CurrentMode(),
		Connected: s.wifiSup.IsConnected(),
		IP:        s.wifiSup.LocalIP(),
		APSSID:    s.wifiSup.APSSID(),
	})
}

type wifiConfigureRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

type wifiTransitionResponse struct {
	Success bool   `json:"success"`
	Note    string `json:"note"`
	APSSID  string `json:"ap_ssid,omitempty"`
}

// handleWifiConfigure persists the new credentials synchronously — that
// part can't fail for a reason the caller needs to wait on — then
// responds before kicking off the STA connection attempt, which can take
// up to STAConnectTimeoutSec.
func (s *Server) handleWifiConfigure(w http.ResponseWriter, r *http.Request) {
	var req wifiConfigureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SSID == "" {
		writeError(w, types.NewValidationError("ssid", "must not be empty"))
		return
	}

	if err := s.wifiSup.SetCredentials(req.SSID, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, wifiTransitionResponse{
		Success: true,
		Note:    "attempting to connect to " + req.SSID,
	})

	go func() {
		if err := s.wifiSup.SwitchToSTA(); err != nil {
			s.log.Warn().Err(err).Str("ssid", req.SSID).Msg("sta connection attempt failed, staying on soft AP")
		}
	}()
}

// handleWifiReset clears any persisted credentials and responds before
// the device falls back to broadcasting its own soft AP.
func (s *Server) handleWifiReset(w http.ResponseWriter, r *http.Request) {
	if err := s.wifiSup.ClearCredentials(); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, wifiTransitionResponse{
		Success: true,
		Note:    "credentials cleared, switching to soft AP",
		APSSID:  s.wifiSup.APSSID(),
	})

	go func() {
		if err := s.wifiSup.SwitchToAP(); err != nil {
			s.log.Warn().Err(err).Msg("failed to switch to soft AP after reset")
		}
	}()
}
