package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/squaredose/squaredosed/pkg/events"
	"github.com/squaredose/squaredosed/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 5 * time.Second

// wsMessage is the wire envelope for every /ws push: a discriminated
// type plus the event-specific payload described in spec.md §6.
type wsMessage struct {
	Type string `json:"event"`
	Data any    `json:"data"`
}

type doseCompletePayload struct {
	Head              int     `json:"head"`
	TargetVolumeML    float64 `json:"target_volume"`
	EstimatedVolumeML float64 `json:"estimated_volume"`
	RuntimeMS         int64   `json:"runtime"`
}

type doseErrorPayload struct {
	Head  int    `json:"head"`
	Error string `json:"error"`
}

type emergencyStopPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// translateEvent converts an internal broker event into the wire message
// clients expect, or reports ok=false for event types with no WS mapping
// (currently wifi.mode_changed and schedule.executed are internal-only).
func translateEvent(ev *events.Event) (wsMessage, bool) {
	switch ev.Type {
	case events.EventDoseComplete:
		head, _ := strconv.Atoi(ev.Metadata["head"])
		target, _ := strconv.ParseFloat(ev.Metadata["target_volume_ml"], 64)
		estimated, _ := strconv.ParseFloat(ev.Metadata["estimated_volume_ml"], 64)
		runtime, _ := strconv.ParseInt(ev.Metadata["runtime_ms"], 10, 64)
		return wsMessage{Type: "dose_complete", Data: doseCompletePayload{
			Head:              head,
			TargetVolumeML:    target,
			EstimatedVolumeML: estimated,
			RuntimeMS:         runtime,
		}}, true
	case events.EventDoseError:
		head, _ := strconv.Atoi(ev.Metadata["head"])
		return wsMessage{Type: "dose_error", Data: doseErrorPayload{
			Head:  head,
			Error: ev.Message,
		}}, true
	case events.EventEmergencyStop:
		ts, _ := strconv.ParseInt(ev.Metadata["timestamp"], 10, 64)
		return wsMessage{Type: "emergency_stop", Data: emergencyStopPayload{Timestamp: ts}}, true
	default:
		return wsMessage{}, false
	}
}

// handleWS upgrades the connection and streams every subsequent
// dose_complete/dose_error/emergency_stop event until the client
// disconnects. One goroutine drains inbound frames (control pings and a
// closed socket) while the caller's goroutine owns writes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.WSClientsConnected.Inc()
	defer metrics.WSClientsConnected.Dec()

	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			msg, ok := translateEvent(ev)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
