package api

import (
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"smartclock-hub/internal/alarm"
	"smartclock-hub/internal/data"
	"smartclock-hub/internal/websocket"

	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict
	"go.uber.org/zap"
)

// Push channel names, also the /ws/{name} paths.
const (
	ChannelTime      = "time"
	ChannelTelemetry = "telemetry"
	ChannelSensor    = "sensor"
	ChannelAlarm     = "alarm"
)

const maxBodyBytes = 4 << 10

// CapacityMessage is the body text clients show when the registry is full.
const CapacityMessage = "Max Alarm Reached!"

//go:embed web/index.html
var dashboardHTML []byte

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Display clients connect from any origin
}

// AlarmStore is the registry surface the API needs.
type AlarmStore interface {
	Create(clock, label string) (int, error)
	Delete(slot int) error
	List() []alarm.Entry
}

type StatusSource interface {
	Snapshot() data.Snapshot
}

type APIHandler struct {
	alarms   AlarmStore
	status   StatusSource
	channels map[string]*websocket.Hub
	logger   *zap.Logger
}

func NewAPIHandler(alarms AlarmStore, status StatusSource, channels map[string]*websocket.Hub, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		alarms:   alarms,
		status:   status,
		channels: channels,
		logger:   logger,
	}
}

type alarmJSON struct {
	ID    string `json:"id"`
	Time  string `json:"time"`
	Label string `json:"label"`
}

type alarmListJSON struct {
	Alarms []alarmJSON `json:"alarms"`
}

// HandleListAlarms renders every slot; free slots carry id "-1".
func (h *APIHandler) HandleListAlarms(w http.ResponseWriter, r *http.Request) {
	entries := h.alarms.List()
	resp := alarmListJSON{Alarms: make([]alarmJSON, 0, len(entries))}
	for _, e := range entries {
		if e.State != alarm.Active {
			resp.Alarms = append(resp.Alarms, alarmJSON{ID: "-1"})
			continue
		}
		resp.Alarms = append(resp.Alarms, alarmJSON{ID: strconv.Itoa(e.Slot), Time: e.Time, Label: e.Label})
	}
	writeJSON(w, http.StatusOK, resp)
}

type createAlarmRequest struct {
	Time  *string `json:"time"`
	Label *string `json:"label"`
}

func (h *APIHandler) HandleCreateAlarm(w http.ResponseWriter, r *http.Request) {
	var req createAlarmRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request: cannot parse JSON")
		return
	}
	if req.Time == nil || req.Label == nil {
		writeError(w, http.StatusBadRequest, "Bad Request: time and label are required")
		return
	}

	slot, err := h.alarms.Create(*req.Time, *req.Label)
	switch {
	case errors.Is(err, alarm.ErrCapacityExceeded):
		writeError(w, http.StatusForbidden, CapacityMessage)
		return
	case errors.Is(err, alarm.ErrInvalidTime), errors.Is(err, alarm.ErrInvalidLabel):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("Failed to create alarm", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.logger.Info("Alarm created", zap.Int("slot", slot), zap.String("time", *req.Time))
	writeJSON(w, http.StatusOK, map[string]string{"status": "created", "id": strconv.Itoa(slot)})
}

type deleteAlarmRequest struct {
	Index *int `json:"index"`
}

func (h *APIHandler) HandleDeleteAlarm(w http.ResponseWriter, r *http.Request) {
	var req deleteAlarmRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request: cannot parse JSON")
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "Bad Request: index is required")
		return
	}

	if err := h.alarms.Delete(*req.Index); err != nil {
		if errors.Is(err, alarm.ErrInvalidSlot) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("Failed to delete alarm", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.logger.Info("Alarm deleted", zap.Int("slot", *req.Index))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type statusJSON struct {
	Time        string   `json:"time"`
	Temperature *float32 `json:"temperature"`
	Humidity    *float32 `json:"humidity"`
	SensorRaw   *int     `json:"sensor_raw"`
	AirQuality  string   `json:"air_quality,omitempty"`
}

// HandleStatus returns the latest readings, including the air-quality label
// that the sensor channel does not carry.
func (h *APIHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.status.Snapshot()
	resp := statusJSON{Time: snap.Time}
	if snap.HasTelemetry {
		t, hu := snap.Telemetry.Temperature, snap.Telemetry.Humidity
		resp.Temperature, resp.Humidity = &t, &hu
	}
	if snap.HasSensor {
		raw := snap.Sensor.Raw
		resp.SensorRaw = &raw
		resp.AirQuality = snap.Sensor.Label.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ServeWebUI serves the dashboard page.
func (h *APIHandler) ServeWebUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(dashboardHTML)
}

// HandleWebSocket returns a handler that subscribes the caller to one push channel.
func (h *APIHandler) HandleWebSocket(channel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hub, ok := h.channels[channel]
		if !ok {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("WebSocket upgrade error", zap.String("channel", channel), zap.Error(err))
			return
		}

		client := websocket.NewClient(hub, conn)
		if !hub.RegisterClient(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
