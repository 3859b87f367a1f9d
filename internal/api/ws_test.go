package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squaredose/squaredosed/pkg/events"
)

func TestTranslateEvent_DoseComplete(t *testing.T) {
	msg, ok := translateEvent(&events.Event{
		Type: events.EventDoseComplete,
		Metadata: map[string]string{
			"head":                "2",
			"target_volume_ml":    "4.00",
			"estimated_volume_ml": "3.95",
			"runtime_ms":          "4000",
		},
	})
	require.True(t, ok)
	payload, ok := msg.Data.(doseCompletePayload)
	require.True(t, ok)
	assert.Equal(t, 2, payload.Head)
	assert.Equal(t, 3.95, payload.EstimatedVolumeML)
	assert.Equal(t, int64(4000), payload.RuntimeMS)
}

func TestTranslateEvent_ScheduleFiredHasNoWSMapping(t *testing.T) {
	_, ok := translateEvent(&events.Event{Type: events.EventScheduleFired})
	assert.False(t, ok)
}

func TestHandleWS_StreamsEmergencyStopEvent(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine time to subscribe before we publish.
	time.Sleep(20 * time.Millisecond)

	s.broker.Publish(&events.Event{
		Type:     events.EventEmergencyStop,
		Metadata: map[string]string{"timestamp": "1735689600"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "emergency_stop", msg.Type)
}
