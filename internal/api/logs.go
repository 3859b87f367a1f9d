package api

import (
	"net/http"
	"strconv"

	"github.com/squaredose/squaredosed/pkg/types"
)

type dashboardResponse struct {
	Heads     []types.DashboardHeadSummary `json:"heads"`
	Timestamp int64                        `json:"timestamp"`
	Count     int                          `json:"count"`
}

func (s *Server) handleLogsDashboard(w http.ResponseWriter, r *http.Request) {
	now := s.clock.NowUnix()
	if !types.IsWallClockSynced(now) {
		writeError(w, types.ErrTimeNotSynced)
		return
	}

	out := make([]types.DashboardHeadSummary, types.NumHeads)
	for head := 0; head < types.NumHeads; head++ {
		target := 0.0
		if sched, ok := s.scheduler.Get(head); ok {
			target = sched.DailyTargetVolumeML
		}
		summary, err := s.logs.DailySummary(head, now, target)
		if err != nil {
			writeError(w, err)
			return
		}
		out[head] = summary
	}

	writeJSON(w, http.StatusOK, dashboardResponse{Heads: out, Timestamp: now, Count: len(out)})
}

const defaultHourlyLookbackHours = 24

type hourlyResponse struct {
	Logs  []types.HourlyLogEntry `json:"logs"`
	Count int                    `json:"count"`
	Start int64                  `json:"start"`
	End   int64                  `json:"end"`
}

func (s *Server) handleLogsHourly(w http.ResponseWriter, r *http.Request) {
	now := s.clock.NowUnix()
	if !types.IsWallClockSynced(now) {
		writeError(w, types.ErrTimeNotSynced)
		return
	}

	end := now
	start := now - int64(defaultHourlyLookbackHours)*3600

	q := r.URL.Query()
	if v := q.Get("hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			writeError(w, types.NewValidationError("hours", "must be a positive integer"))
			return
		}
		start = now - int64(hours)*3600
	}
	if v := q.Get("start"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, types.NewValidationError("start", "must be a unix timestamp"))
			return
		}
		start = parsed
	}
	if v := q.Get("end"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, types.NewValidationError("end", "must be a unix timestamp"))
			return
		}
		end = parsed
	}

	entries, err := s.logs.HourlyLogs(start, end, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hourlyResponse{Logs: entries, Count: len(entries), Start: start, End: end})
}

func (s *Server) handleLogsDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.logs.ClearAll(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}
