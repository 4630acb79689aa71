package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartclock-hub/internal/alarm"
	"smartclock-hub/internal/data"
	"smartclock-hub/internal/websocket"

	gwebsocket "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticStatus struct {
	snap data.Snapshot
}

func (s staticStatus) Snapshot() data.Snapshot { return s.snap }

type testEnv struct {
	server   *httptest.Server
	registry *alarm.Registry
	hubs     map[string]*websocket.Hub
}

func setupTestAPI(t *testing.T, status StatusSource) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hubs := map[string]*websocket.Hub{}
	for _, name := range []string{ChannelTime, ChannelTelemetry, ChannelSensor, ChannelAlarm} {
		hub := websocket.NewHub(name, zap.NewNop())
		go hub.Run(ctx)
		hubs[name] = hub
	}
	registry := alarm.NewRegistry(5)
	if status == nil {
		status = staticStatus{}
	}
	h := NewAPIHandler(registry, status, hubs, zap.NewNop())
	server := httptest.NewServer(SetupRouter(h, []string{"*"}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &testEnv{server: server, registry: registry, hubs: hubs}
}

func (e *testEnv) post(t *testing.T, path, body string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.Post(e.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]string
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (e *testEnv) listAlarms(t *testing.T) []alarmJSON {
	t.Helper()
	resp, err := http.Get(e.server.URL + "/alarm")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var out alarmListJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Alarms
}

func TestListAlarms_AllFree(t *testing.T) {
	env := setupTestAPI(t, nil)
	alarms := env.listAlarms(t)
	require.Len(t, alarms, 5)
	for _, a := range alarms {
		assert.Equal(t, alarmJSON{ID: "-1"}, a)
	}
}

func TestAlarmLifecycle(t *testing.T) {
	env := setupTestAPI(t, nil)

	resp, body := env.post(t, "/alarm", `{"time":"07:00","label":"Wake"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", body["id"])

	alarms := env.listAlarms(t)
	assert.Equal(t, alarmJSON{ID: "0", Time: "07:00", Label: "Wake"}, alarms[0])
	for _, a := range alarms[1:] {
		assert.Equal(t, "-1", a.ID)
	}

	resp, _ = env.post(t, "/delete", `{"index":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, a := range env.listAlarms(t) {
		assert.Equal(t, "-1", a.ID)
	}

	resp, body = env.post(t, "/alarm", `{"time":"07:00:00","label":"Again"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", body["id"])
}

func TestCreateAlarm_CapacityExceeded(t *testing.T) {
	env := setupTestAPI(t, nil)
	for i := 0; i < 5; i++ {
		resp, _ := env.post(t, "/alarm", `{"time":"06:00","label":"x"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := env.post(t, "/alarm", `{"time":"09:00","label":"sixth"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, CapacityMessage, body["error"])

	alarms := env.listAlarms(t)
	for i, a := range alarms {
		assert.Equal(t, alarmJSON{ID: string(rune('0' + i)), Time: "06:00", Label: "x"}, a)
	}
}

func TestCreateAlarm_FullRegistryWinsOverBadInput(t *testing.T) {
	env := setupTestAPI(t, nil)
	for i := 0; i < 5; i++ {
		_, err := env.registry.Create("06:00", "x")
		require.NoError(t, err)
	}

	resp, body := env.post(t, "/alarm", `{"time":"99:99","label":"x"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, CapacityMessage, body["error"])
}

func TestCreateAlarm_BadRequests(t *testing.T) {
	env := setupTestAPI(t, nil)
	cases := map[string]string{
		"not json":      `{"time":`,
		"missing time":  `{"label":"x"}`,
		"missing label": `{"time":"07:00"}`,
		"bad time":      `{"time":"7am","label":"x"}`,
		"long label":    `{"time":"07:00","label":"` + strings.Repeat("a", 100) + `"}`,
		"wrong type":    `{"time":700,"label":"x"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, out := env.post(t, "/alarm", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
		})
	}
	assert.Equal(t, 0, env.registry.Active())
}

func TestDeleteAlarm_Invalid(t *testing.T) {
	env := setupTestAPI(t, nil)
	_, err := env.registry.Create("07:00", "Wake")
	require.NoError(t, err)

	for _, body := range []string{`{"index":5}`, `{"index":-1}`, `{"index":3}`} {
		resp, out := env.post(t, "/delete", body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, body)
		assert.NotEmpty(t, out["error"])
	}
	for _, body := range []string{`{}`, `nope`, `{"index":"0"}`} {
		resp, _ := env.post(t, "/delete", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Equal(t, 1, env.registry.Active())
}

func TestStatus(t *testing.T) {
	env := setupTestAPI(t, staticStatus{snap: data.Snapshot{
		Time:         "07:30:00",
		Telemetry:    data.TelemetryRecord{Temperature: 24.5, Humidity: 60},
		HasTelemetry: true,
		Sensor:       data.SensorReading{Raw: 120, Label: data.AirModerate},
		HasSensor:    true,
	}})

	resp, err := http.Get(env.server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "07:30:00", out["time"])
	assert.Equal(t, 24.5, out["temperature"])
	assert.Equal(t, 120.0, out["sensor_raw"])
	assert.Equal(t, "MODERATE", out["air_quality"])
}

func TestStatus_NoReadingsYet(t *testing.T) {
	env := setupTestAPI(t, nil)
	resp, err := http.Get(env.server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Nil(t, out["temperature"])
	assert.Nil(t, out["sensor_raw"])
}

func TestServeWebUI(t *testing.T) {
	env := setupTestAPI(t, nil)
	resp, err := http.Get(env.server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestAPI(t, nil)
	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/alarm", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://smartclock18.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func dialChannel(t *testing.T, url string) *gwebsocket.Conn {
	t.Helper()
	conn, _, err := gwebsocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *gwebsocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, gwebsocket.TextMessage, kind)
	return string(msg)
}

func TestWebSocket_ChannelsAreSeparate(t *testing.T) {
	env := setupTestAPI(t, nil)
	timeConn := dialChannel(t, env.server.URL+"/ws/time")
	sensorConn := dialChannel(t, env.server.URL+"/ws/sensor")
	require.Eventually(t, func() bool {
		return env.hubs[ChannelTime].ClientCount() == 1 && env.hubs[ChannelSensor].ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	env.hubs[ChannelTime].Publish([]byte("07:30:00"))
	env.hubs[ChannelTime].Publish([]byte("07:30:01"))
	env.hubs[ChannelSensor].Publish([]byte("133"))

	assert.Equal(t, "07:30:00", readText(t, timeConn))
	assert.Equal(t, "07:30:01", readText(t, timeConn))
	assert.Equal(t, "133", readText(t, sensorConn))
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	env := setupTestAPI(t, nil)
	conn := dialChannel(t, env.server.URL+"/ws/telemetry")
	require.Eventually(t, func() bool { return env.hubs[ChannelTelemetry].ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return env.hubs[ChannelTelemetry].ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_UnknownChannel(t *testing.T) {
	env := setupTestAPI(t, nil)
	resp, err := http.Get(env.server.URL + "/ws/weather")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChannelRouter_ServesAtRoot(t *testing.T) {
	env := setupTestAPI(t, nil)
	h := NewAPIHandler(env.registry, staticStatus{}, env.hubs, zap.NewNop())
	srv := httptest.NewServer(SetupChannelRouter(h, ChannelTelemetry))
	defer srv.Close()

	conn := dialChannel(t, srv.URL+"/")
	require.Eventually(t, func() bool { return env.hubs[ChannelTelemetry].ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	env.hubs[ChannelTelemetry].Publish([]byte(`{"T":"27","H":"64"}`))
	assert.Equal(t, `{"T":"27","H":"64"}`, readText(t, conn))
}
