package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dosing head metrics
	HeadDispensing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "squaredose_head_dispensing",
			Help: "Whether a head is currently dispensing (1) or idle (0)",
		},
		[]string{"head"},
	)

	HeadMLPerSecond = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "squaredose_head_ml_per_second",
			Help: "Current calibrated rate per head",
		},
		[]string{"head"},
	)

	HeadCalibrated = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "squaredose_head_calibrated",
			Help: "Whether a head has been calibrated (1) or is using the default rate (0)",
		},
		[]string{"head"},
	)

	DosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squaredose_doses_total",
			Help: "Total number of dose attempts by head, origin, and result",
		},
		[]string{"head", "origin", "result"},
	)

	DoseVolumeMLTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squaredose_dose_volume_ml_total",
			Help: "Total estimated mL dispensed by head and origin",
		},
		[]string{"head", "origin"},
	)

	DispenseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "squaredose_dispense_duration_seconds",
			Help:    "Actual dispense runtime in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Scheduler metrics
	SchedulerTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "squaredose_scheduler_tick_duration_seconds",
			Help:    "Time taken to evaluate all schedules in one scheduler tick",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulesExecutedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "squaredose_schedules_executed_total",
			Help: "Total number of scheduled doses executed",
		},
	)

	SchedulesFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "squaredose_schedules_failed_total",
			Help: "Total number of scheduled dose attempts that failed to dispense",
		},
	)

	// Dosing log metrics
	LogEntriesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "squaredose_log_entries_total",
			Help: "Current number of retained hourly log entries",
		},
	)

	LogPruneDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "squaredose_log_prune_duration_seconds",
			Help:    "Time taken to prune expired log entries",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Wi-Fi metrics
	WifiMode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "squaredose_wifi_mode",
			Help: "Current Wi-Fi supervisor mode (1 = active) by mode label",
		},
		[]string{"mode"},
	)

	WifiConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "squaredose_wifi_connected",
			Help: "Whether the device currently has network connectivity",
		},
	)

	WifiSTAFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "squaredose_wifi_sta_failures_total",
			Help: "Total number of observed STA association losses",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squaredose_api_requests_total",
			Help: "Total number of API requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "squaredose_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WSClientsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "squaredose_ws_clients_connected",
			Help: "Current number of connected WebSocket clients",
		},
	)
)

func init() {
	prometheus.MustRegister(HeadDispensing)
	prometheus.MustRegister(HeadMLPerSecond)
	prometheus.MustRegister(HeadCalibrated)
	prometheus.MustRegister(DosesTotal)
	prometheus.MustRegister(DoseVolumeMLTotal)
	prometheus.MustRegister(DispenseDuration)

	prometheus.MustRegister(SchedulerTickDuration)
	prometheus.MustRegister(SchedulesExecutedTotal)
	prometheus.MustRegister(SchedulesFailedTotal)

	prometheus.MustRegister(LogEntriesTotal)
	prometheus.MustRegister(LogPruneDuration)

	prometheus.MustRegister(WifiMode)
	prometheus.MustRegister(WifiConnected)
	prometheus.MustRegister(WifiSTAFailuresTotal)

	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(WSClientsConnected)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
