package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/squaredose/squaredosed/pkg/types"
)

func parseHead(r *http.Request) (int, error) {
	head, err := strconv.Atoi(chi.URLParam(r, "head"))
	if err != nil || head < 0 || head >= types.NumHeads {
		return 0, types.NewValidationError("head", "must be in 0..3")
	}
	return head, nil
}

type schedulesResponse struct {
	Schedules []types.Schedule `json:"schedules"`
	Count     int              `json:"count"`
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	var out []types.Schedule
	for head := 0; head < types.NumHeads; head++ {
		if sched, ok := s.scheduler.Get(head); ok {
			out = append(out, sched)
		}
	}
	writeJSON(w, http.StatusOK, schedulesResponse{Schedules: out, Count: len(out)})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	head, err := parseHead(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sched, ok := s.scheduler.Get(head)
	if !ok {
		writeError(w, types.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	var sched types.Schedule
	if err := decodeJSON(r, &sched); err != nil {
		writeError(w, err)
		return
	}
	now := s.clock.NowUnix()
	if sched.CreatedAt == 0 {
		sched.CreatedAt = now
	}
	sched.UpdatedAt = now

	if err := sched.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.scheduler.Set(sched); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		Head    int  `json:"head"`
	}{Success: true, Head: sched.Head})
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	head, err := parseHead(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, ok := s.scheduler.Get(head); !ok {
		writeError(w, types.ErrNotFound)
		return
	}
	if err := s.scheduler.Delete(head); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		Head    int  `json:"head"`
	}{Success: true, Head: head})
}
