package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squaredose/squaredosed/pkg/actuator"
	"github.com/squaredose/squaredosed/pkg/dosinghead"
	"github.com/squaredose/squaredosed/pkg/dosinglog"
	"github.com/squaredose/squaredosed/pkg/events"
	"github.com/squaredose/squaredosed/pkg/schedule"
	"github.com/squaredose/squaredosed/pkg/storage"
	"github.com/squaredose/squaredosed/pkg/types"
	"github.com/squaredose/squaredosed/pkg/wallclock"
	"github.com/squaredose/squaredosed/pkg/wifi"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() storage.Store { return &memStore{data: map[string][]byte{}} }

func (m *memStore) key(ns, key string) string { return ns + "/" + key }

func (m *memStore) PutBytes(ns, key string, blob []byte) error {
	m.data[m.key(ns, key)] = blob
	return nil
}

func (m *memStore) GetBytes(ns, key string) ([]byte, error) {
	return m.data[m.key(ns, key)], nil
}

func (m *memStore) Remove(ns, key string) error {
	delete(m.data, m.key(ns, key))
	return nil
}

func (m *memStore) Clear(ns string) error {
	prefix := ns + "/"
	for k := range m.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memStore) ListKeys(ns string) ([]string, error) {
	prefix := ns + "/"
	var out []string
	for k := range m.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k[len(prefix):])
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	calStore := dosinghead.NewCalibrationStore(newMemStore())
	heads := dosinghead.NewHeads(actuator.NewSimulatedHBridge(), calStore, dosinghead.NewSystemClock())
	require.NoError(t, heads.Begin())

	schedMgr := schedule.NewManager(schedule.NewStore(newMemStore()))
	require.NoError(t, schedMgr.Begin())

	logMgr := dosinglog.NewManager(dosinglog.NewStore(newMemStore()))
	schedMgr.SetDosingLog(logMgr)

	radio := wifi.NewSimulatedRadio()
	wifiSup := wifi.New(radio, wifi.NewCredentialStore(newMemStore()), types.DeviceIdentity{ID: 7}, wifi.NewSystemClock())
	require.NoError(t, wifiSup.Begin())

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	clock := wallclock.New()

	return NewServer(heads, schedMgr, logMgr, wifiSup, broker, clock)
}

func doRequest(s *Server, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleStatus_ReportsHeadsAndWifi(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Heads, types.NumHeads)
	assert.Equal(t, types.WifiModeAP, resp.WifiMode)
}

func TestHandleTime_UnsyncedThenSet(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/time", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var before timeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.False(t, before.Synced)

	rec = doRequest(s, http.MethodPost, "/api/time", setTimeRequest{Timestamp: types.EpochBaseUnix})
	require.Equal(t, http.StatusOK, rec.Code)
	var after timeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.True(t, after.Synced)
	assert.GreaterOrEqual(t, after.Timestamp, int64(types.EpochBaseUnix))
}

func TestHandleTime_RejectsPreThresholdValue(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/time", setTimeRequest{Timestamp: 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDose_AcceptsThenPublishesCompletion(t *testing.T) {
	s := newTestServer(t)
	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	rec := doRequest(s, http.MethodPost, "/api/dose", doseRequest{Head: 0, VolumeML: types.MinDoseVolumeML})
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case ev := <-sub:
		assert.Equal(t, events.EventDoseComplete, ev.Type)
		assert.Equal(t, "0", ev.Metadata["head"])
		assert.Equal(t, "adhoc", ev.Metadata["origin"])
	case <-time.After(time.Second):
		t.Fatal("expected a dose_complete event")
	}
}

func TestHandleDose_RejectsOutOfRangeVolume(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/dose", doseRequest{Head: 0, VolumeML: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDose_RejectsInvalidHead(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/dose", doseRequest{Head: 9, VolumeML: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEmergencyStop_PublishesEvent(t *testing.T) {
	s := newTestServer(t)
	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	rec := doRequest(s, http.MethodPost, "/api/emergency-stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case ev := <-sub:
		assert.Equal(t, events.EventEmergencyStop, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected an emergency_stop event")
	}
}

func TestScheduleLifecycle_SetGetListDelete(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/schedules", types.Schedule{
		Head:                1,
		Enabled:             true,
		Name:                "evening",
		DailyTargetVolumeML: 2,
		DosesPerDay:         2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/schedules/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sched types.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sched))
	assert.Equal(t, 1.0, sched.PerDoseVolumeML)

	rec = doRequest(s, http.MethodGet, "/api/schedules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list schedulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = doRequest(s, http.MethodDelete, "/api/schedules/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/schedules/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSetSchedule_RejectsInvalidBody(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/schedules", types.Schedule{
		Head:                0,
		Enabled:             true,
		DailyTargetVolumeML: -1,
		DosesPerDay:         1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogsDashboard_UnsyncedClockReturns503(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/logs/dashboard", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogsDashboard_AfterSyncReturnsHeads(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.clock.SetTime(types.EpochBaseUnix+3600))

	rec := doRequest(s, http.MethodGet, "/api/logs/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp dashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Heads, types.NumHeads)
}

func TestLogsDelete_ClearsEntries(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.logs.LogAdhocDose(0, 1.0, types.EpochBaseUnix))

	rec := doRequest(s, http.MethodDelete, "/api/logs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	entries, err := s.logs.HourlyLogs(types.EpochBaseUnix, types.EpochBaseUnix, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleWifiStatus_ReportsAPMode(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/wifi/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp wifiStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.WifiModeAP, resp.Mode)
	assert.NotEmpty(t, resp.APSSID)
}

func TestHandleWifiConfigure_RejectsEmptySSID(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/wifi/configure", wifiConfigureRequest{SSID: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetCalibration_ReturnsDefaultsForEveryHead(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/calibration", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Calibrations []calibrationResponse `json:"calibrations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Calibrations, types.NumHeads)
	assert.Equal(t, types.DefaultMLPerSecond, resp.Calibrations[0].MLPerSecond)
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
