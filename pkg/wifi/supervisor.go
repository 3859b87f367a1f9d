package wifi

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/squaredose/squaredosed/pkg/health"
	"github.com/squaredose/squaredosed/pkg/log"
	"github.com/squaredose/squaredosed/pkg/types"
)

// Supervisor drives the AP/STA state machine described in the boot
// procedure and keep-alive loop: AP is always the fallback and the initial
// state when no credentials exist.
type Supervisor struct {
	radio        Radio
	credStore    *CredentialStore
	clock        Clock
	apSSID       string
	log          zerolog.Logger
	gatewayCheck func() bool

	onModeChange func(types.WifiMode)

	mu             sync.Mutex
	mode           types.WifiMode
	credentials    types.WifiCredentials
	staFailedSince uint64
	lastSTAAttempt uint64
	localIP        string
}

// SetModeChangeHook installs a callback fired whenever the supervisor
// settles into a new mode, so the task fabric can publish
// wifi.mode_changed events without the supervisor depending on the event
// broker directly.
func (s *Supervisor) SetModeChangeHook(fn func(types.WifiMode)) {
	s.onModeChange = fn
}

// setMode updates the mode under lock and notifies the hook, if any,
// outside the lock.
func (s *Supervisor) setMode(mode types.WifiMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	if s.onModeChange != nil {
		s.onModeChange(mode)
	}
}

// New constructs a Supervisor. Call Begin to run the boot procedure before
// starting the keep-alive loop.
func New(radio Radio, credStore *CredentialStore, deviceID types.DeviceIdentity, clock Clock) *Supervisor {
	s := &Supervisor{
		radio:     radio,
		credStore: credStore,
		clock:     clock,
		apSSID:    deviceID.APSSID(),
		log:       log.WithComponent("wifi"),
	}
	s.gatewayCheck = func() bool {
		checker := health.NewTCPChecker(s.radio.GatewayAddress()).WithTimeout(2 * time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return checker.Check(ctx).Healthy
	}
	return s
}

// Begin runs the boot procedure: load credentials, attempt STA if present,
// fall back to AP on failure or absence.
func (s *Supervisor) Begin() error {
	creds, err := s.credStore.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.credentials = creds
	s.mu.Unlock()

	if creds.Present() {
		if err := s.attemptSTA(creds); err == nil {
			s.log.Info().Str("ssid", creds.SSID).Msg("connected to STA network on boot")
			return nil
		}
		s.log.Warn().Msg("initial STA attempt failed, falling back to AP")
	}
	return s.startAP()
}

// attemptSTA transitions through Transitioning and tries to associate
// within the bounded connect timeout. On failure the radio's STA side is
// stopped and the caller decides what state to settle into.
func (s *Supervisor) attemptSTA(creds types.WifiCredentials) error {
	s.mu.Lock()
	prevMode := s.mode
	s.mu.Unlock()
	s.setMode(types.WifiModeTransitioning)

	if prevMode == types.WifiModeAP {
		_ = s.radio.StopAP()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(types.STAConnectTimeoutSec)*time.Second)
	defer cancel()

	if err := s.radio.StartSTA(ctx, creds.SSID, creds.Password); err != nil {
		_ = s.radio.StopSTA()
		return types.NewWiFiTransientError(err)
	}

	s.mu.Lock()
	s.localIP = s.radio.LocalIP()
	s.lastSTAAttempt = s.clock.NowMonoMS()
	s.mu.Unlock()
	s.setMode(types.WifiModeSTA)
	return nil
}

// startAP stops any STA attempt in progress and brings up the soft AP.
func (s *Supervisor) startAP() error {
	s.setMode(types.WifiModeTransitioning)

	_ = s.radio.StopSTA()
	if err := s.radio.StartAP(s.apSSID, types.DefaultAPPassword); err != nil {
		return types.NewWiFiTransientError(err)
	}

	s.mu.Lock()
	s.localIP = s.radio.LocalIP()
	s.mu.Unlock()
	s.setMode(types.WifiModeAP)
	return nil
}

// SwitchToSTA is the explicit external transition; it requires credentials
// to already be configured and falls back to AP if the attempt fails.
func (s *Supervisor) SwitchToSTA() error {
	s.mu.Lock()
	creds := s.credentials
	s.mu.Unlock()
	if !creds.Present() {
		return types.NewValidationError("credentials", "no STA credentials configured")
	}
	if err := s.attemptSTA(creds); err != nil {
		if apErr := s.startAP(); apErr != nil {
			return apErr
		}
		return err
	}
	return nil
}

// SwitchToAP is the explicit external transition back to the soft AP.
func (s *Supervisor) SwitchToAP() error {
	return s.startAP()
}

// SetCredentials persists and adopts new STA credentials without changing
// the current mode.
func (s *Supervisor) SetCredentials(ssid, password string) error {
	creds := types.WifiCredentials{SSID: ssid, Password: password}
	if err := s.credStore.Save(creds); err != nil {
		return err
	}
	s.mu.Lock()
	s.credentials = creds
	s.mu.Unlock()
	return nil
}

// ClearCredentials wipes persisted credentials; a subsequent SwitchToAP
// will have nothing to retry toward.
func (s *Supervisor) ClearCredentials() error {
	if err := s.credStore.Clear(); err != nil {
		return err
	}
	s.mu.Lock()
	s.credentials = types.WifiCredentials{}
	s.mu.Unlock()
	return nil
}

// CurrentMode returns the supervisor's current mode.
func (s *Supervisor) CurrentMode() types.WifiMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// LocalIP returns the device's current address under whichever mode is
// active.
func (s *Supervisor) LocalIP() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localIP
}

// APSSID returns the soft AP's SSID, derived once from the device
// identity and stable across mode transitions.
func (s *Supervisor) APSSID() string {
	return s.apSSID
}

// IsConnected reports whether the device is currently associated as STA.
func (s *Supervisor) IsConnected() bool {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()
	return mode == types.WifiModeSTA && s.radio.IsSTAAssociated()
}

// tryOpportunisticSTA attempts to associate without disturbing the
// currently active mode: on failure it leaves mode and the AP radio
// exactly as they were (matching "stay in AP" / remain degraded-STA), and
// only on success passes through Transitioning, stops AP if it was
// running, and commits mode=STA.
func (s *Supervisor) tryOpportunisticSTA(creds types.WifiCredentials) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(types.STAConnectTimeoutSec)*time.Second)
	defer cancel()

	if err := s.radio.StartSTA(ctx, creds.SSID, creds.Password); err != nil {
		_ = s.radio.StopSTA()
		return types.NewWiFiTransientError(err)
	}

	s.setMode(types.WifiModeTransitioning)
	_ = s.radio.StopAP()
	s.mu.Lock()
	s.localIP = s.radio.LocalIP()
	s.lastSTAAttempt = s.clock.NowMonoMS()
	s.mu.Unlock()
	s.setMode(types.WifiModeSTA)
	return nil
}

// KeepAliveTick runs one iteration of the keep-alive loop. It is meant to
// be called on a fixed cadence (WifiKeepAliveTickSec) by the task fabric.
func (s *Supervisor) KeepAliveTick() {
	s.mu.Lock()
	mode := s.mode
	creds := s.credentials
	s.mu.Unlock()

	now := s.clock.NowMonoMS()
	thresholdMS := uint64(types.STAFailToAPThresholdSec) * 1000
	retryMS := uint64(types.STARetryIntervalSec) * 1000

	switch mode {
	case types.WifiModeSTA:
		if s.radio.IsSTAAssociated() {
			if !s.gatewayCheck() {
				s.log.Debug().Msg("STA associated but gateway health check failed; treating link as up")
			}
			s.mu.Lock()
			s.staFailedSince = 0
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		if s.staFailedSince == 0 {
			s.staFailedSince = now
		}
		failedSince := s.staFailedSince
		s.mu.Unlock()

		if now-failedSince >= thresholdMS {
			s.log.Warn().Msg("STA link down past fail threshold, falling back to AP")
			_ = s.startAP()
			s.mu.Lock()
			s.lastSTAAttempt = now
			s.mu.Unlock()
			return
		}

		if err := s.tryOpportunisticSTA(creds); err == nil {
			s.mu.Lock()
			s.staFailedSince = 0
			s.mu.Unlock()
		}

	case types.WifiModeAP:
		if !creds.Present() {
			return
		}
		s.mu.Lock()
		lastAttempt := s.lastSTAAttempt
		s.mu.Unlock()
		if now-lastAttempt < retryMS {
			return
		}
		if err := s.tryOpportunisticSTA(creds); err != nil {
			s.mu.Lock()
			s.lastSTAAttempt = now
			s.mu.Unlock()
		}

	case types.WifiModeTransitioning:
		// mid-transition; next tick will observe the settled mode.
	}
}
