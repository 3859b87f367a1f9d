package tasks

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/squaredose/squaredosed/pkg/dosinghead"
	"github.com/squaredose/squaredosed/pkg/dosinglog"
	"github.com/squaredose/squaredosed/pkg/events"
	"github.com/squaredose/squaredosed/pkg/metrics"
	"github.com/squaredose/squaredosed/pkg/schedule"
	"github.com/squaredose/squaredosed/pkg/types"
	"github.com/squaredose/squaredosed/pkg/wifi"
)

// Fabric owns the device's four long-lived background loops and their
// shared lifecycle. Nothing outside this package reaches into any one
// Ticker directly.
type Fabric struct {
	scheduler *Ticker
	keepAlive *Ticker
	logPrune  *Ticker
	metrics   *Ticker
}

// NewFabric wires the scheduler tick, Wi-Fi keep-alive, dosing-log prune,
// and metrics refresh tasks over the already-constructed core components,
// and registers the event-publishing hooks on the schedule manager and
// Wi-Fi supervisor.
func NewFabric(
	heads *dosinghead.Heads,
	scheduleMgr *schedule.Manager,
	logMgr *dosinglog.Manager,
	wifiSup *wifi.Supervisor,
	broker *events.Broker,
	wallClock WallClock,
) *Fabric {
	var dispensers [types.NumHeads]schedule.Dispenser
	for i := 0; i < types.NumHeads; i++ {
		dispensers[i] = heads.Head(i)
	}

	scheduleMgr.SetExecutionHook(func(head int, result types.DoseResult, err error) {
		publishDoseEvent(broker, head, "scheduled", result, err)
	})
	wifiSup.SetModeChangeHook(func(mode types.WifiMode) {
		broker.Publish(&events.Event{
			ID:       uuid.NewString(),
			Type:     events.EventWifiModeChanged,
			Message:  "wifi mode changed to " + string(mode),
			Metadata: map[string]string{"mode": string(mode)},
		})
	})

	f := &Fabric{}

	f.scheduler = NewTicker("scheduler", 1*time.Second, func() {
		now := wallClock.NowUnix()
		if !types.IsWallClockSynced(now) {
			return
		}
		timer := metrics.NewTimer()
		scheduleMgr.CheckAndExecute(now, dispensers)
		timer.ObserveDuration(metrics.SchedulerTickDuration)
	})

	f.keepAlive = NewTicker("wifi-keepalive", time.Duration(types.WifiKeepAliveTickSec)*time.Second, func() {
		wifiSup.KeepAliveTick()
	})

	f.logPrune = NewTicker("dosinglog-prune", 1*time.Hour, func() {
		now := wallClock.NowUnix()
		if !types.IsWallClockSynced(now) {
			return
		}
		timer := metrics.NewTimer()
		if err := logMgr.Prune(now); err != nil {
			return
		}
		timer.ObserveDuration(metrics.LogPruneDuration)
	})

	f.metrics = NewTicker("metrics-refresh", 15*time.Second, func() {
		refreshMetrics(heads, wifiSup)
	})

	return f
}

// Start launches every task's goroutine.
func (f *Fabric) Start() {
	f.scheduler.Start()
	f.keepAlive.Start()
	f.logPrune.Start()
	f.metrics.Start()
}

// Stop halts every task. The Fabric cannot be restarted after Stop.
func (f *Fabric) Stop() {
	f.scheduler.Stop()
	f.keepAlive.Stop()
	f.logPrune.Stop()
	f.metrics.Stop()
}

func publishDoseEvent(broker *events.Broker, head int, origin string, result types.DoseResult, err error) {
	label := strconv.Itoa(head)
	if err != nil || !result.Success {
		metrics.DosesTotal.WithLabelValues(label, origin, "error").Inc()
		msg := result.ErrorMessage
		if msg == "" && err != nil {
			msg = err.Error()
		}
		broker.Publish(&events.Event{
			ID:      uuid.NewString(),
			Type:    events.EventDoseError,
			Message: msg,
			Metadata: map[string]string{
				"head":   label,
				"origin": origin,
			},
		})
		return
	}

	metrics.DosesTotal.WithLabelValues(label, origin, "success").Inc()
	metrics.DoseVolumeMLTotal.WithLabelValues(label, origin).Add(result.EstimatedVolumeML)
	metrics.DispenseDuration.Observe(float64(result.ActualRuntimeMS) / 1000)
	broker.Publish(&events.Event{
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

func refreshMetrics(heads *dosinghead.Heads, wifiSup *wifi.Supervisor) {
	for i := 0; i < types.NumHeads; i++ {
		h := heads.Head(i)
		label := strconv.Itoa(i)
		cal := h.CalibrationData()

		dispensing := 0.0
		if h.IsDispensing() {
			dispensing = 1
		}
		metrics.HeadDispensing.WithLabelValues(label).Set(dispensing)
		metrics.HeadMLPerSecond.WithLabelValues(label).Set(cal.MLPerSecond)

		calibrated := 0.0
		if cal.IsCalibrated {
			calibrated = 1
		}
		metrics.HeadCalibrated.WithLabelValues(label).Set(calibrated)
	}

	current := wifiSup.CurrentMode()
	for _, mode := range []types.WifiMode{types.WifiModeAP, types.WifiModeSTA, types.WifiModeTransitioning} {
		val := 0.0
		if mode == current {
			val = 1
		}
		metrics.WifiMode.WithLabelValues(string(mode)).Set(val)
	}

	connected := 0.0
	if wifiSup.IsConnected() {
		connected = 1
	}
	metrics.WifiConnected.Set(connected)
}
