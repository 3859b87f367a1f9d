package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/squaredose/squaredosed/pkg/dosinghead"
	"github.com/squaredose/squaredosed/pkg/dosinglog"
	"github.com/squaredose/squaredosed/pkg/events"
	"github.com/squaredose/squaredosed/pkg/log"
	"github.com/squaredose/squaredosed/pkg/metrics"
	"github.com/squaredose/squaredosed/pkg/schedule"
	"github.com/squaredose/squaredosed/pkg/wallclock"
	"github.com/squaredose/squaredosed/pkg/wifi"
)

// Server implements the device's HTTP/JSON control API and /ws event
// stream over the core components. It never holds a core mutex across
// network I/O: handlers that trigger blocking work (a dispense, a Wi-Fi
// transition) respond first and finish the work on a detached goroutine.
type Server struct {
	heads     *dosinghead.Heads
	scheduler *schedule.Manager
	logs      *dosinglog.Manager
	wifiSup   *wifi.Supervisor
	broker    *events.Broker
	clock     *wallclock.Clock

	router    chi.Router
	http      *http.Server
	startedAt time.Time
	log       zerolog.Logger
}

// NewServer builds the router over the already-constructed core handles.
// None of them are owned by the server; it only calls their exported
// methods.
func NewServer(
	heads *dosinghead.Heads,
	scheduler *schedule.Manager,
	logs *dosinglog.Manager,
	wifiSup *wifi.Supervisor,
	broker *events.Broker,
	clock *wallclock.Clock,
) *Server {
	s := &Server{
		heads:     heads,
		scheduler: scheduler,
		logs:      logs,
		wifiSup:   wifiSup,
		broker:    broker,
		clock:     clock,
		startedAt: time.Now(),
		log:       log.WithComponent("api"),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		MaxAge:           300,
		AllowCredentials: false,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/time", s.handleGetTime)
		r.Post("/time", s.handlePostTime)

		r.Post("/dose", s.handleDose)
		r.Post("/emergency-stop", s.handleEmergencyStop)

		r.Get("/calibration", s.handleGetCalibration)
		r.Post("/calibrate", s.handlePostCalibrate)

		r.Get("/wifi/status", s.handleWifiStatus)
		r.Post("/wifi/configure", s.handleWifiConfigure)
		r.Post("/wifi/reset", s.handleWifiReset)

		r.Get("/schedules", s.handleListSchedules)
		r.Get("/schedules/{head}", s.handleGetSchedule)
		r.Post("/schedules", s.handleSetSchedule)
		r.Delete("/schedules/{head}", s.handleDeleteSchedule)

		r.Get("/logs/dashboard", s.handleLogsDashboard)
		r.Get("/logs/hourly", s.handleLogsHourly)
		r.Delete("/logs", s.handleLogsDelete)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start listens on addr and blocks serving requests until Stop shuts the
// listener down, at which point it returns nil. Any other listen or serve
// failure is returned wrapped.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("api listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// to finish or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
