package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"livemon/internal/core/domain"
	"livemon/internal/core/services"
	lk "livemon/internal/infrastructure/livekit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(domain.Envelope) {}

func (nopBroadcaster) Heartbeat(time.Time) {}

func (nopBroadcaster) ObserverCount() int { return 2 }

func (nopBroadcaster) DropsTotal() uint64 { return 0 }

type testEnv struct {
	router *gin.Engine
	store  *services.MetricsService
	coord  *services.Coordinator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop().Sugar()
	store := services.NewMetricsService(time.Minute, 10, log)
	engine := services.NewAlertService(services.Thresholds{
		DisconnectRatePerMinute: 5,
		MaxParticipants:         100,
		MinAvgQuality:           0.5,
		MaxRoomDuration:         2 * time.Hour,
	}, 20, log)
	coord := services.NewCoordinator(store, engine, nopBroadcaster{}, time.Second, 30*time.Second, nil, log)

	router := gin.New()
	NewDashboardHandler(store, engine, coord, nopBroadcaster{}, true).SetupRoutes(router)
	NewWebhookHandler(coord, lk.NewTranslator(log), log).SetupRoutes(router)

	return &testEnv{router: router, store: store, coord: coord}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestGetRoom_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/rooms/RM_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRoom_ReturnsRoomWithParticipants(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	env.coord.Ingest(domain.Event{Kind: domain.EventRoomStarted, Timestamp: now, RoomSID: "RM_a", RoomName: "standup"})
	env.coord.Ingest(domain.Event{Kind: domain.EventParticipantJoined, Timestamp: now, RoomSID: "RM_a", ParticipantSID: "PA_1", ParticipantName: "alice"})

	w := env.do(http.MethodGet, "/api/v1/rooms/RM_a", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var room domain.Room
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	assert.Equal(t, "standup", room.Name)
	assert.Equal(t, 1, room.ParticipantCount)
	assert.Equal(t, "alice", room.Participants[0].Name)
}

func TestMetricsHistory_LimitValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/metrics/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/metrics/history?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.coord.RunTick(time.Now())
	env.coord.RunTick(time.Now().Add(time.Second))

	w = env.do(http.MethodGet, "/api/v1/metrics/history?limit=1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var history []domain.SystemMetrics
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 1)
}

func TestResolveAlert_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	env.coord.Ingest(domain.Event{Kind: domain.EventRoomStarted, Timestamp: now, RoomSID: "RM_a", RoomName: "room"})
	for _, sid := range []string{"PA_1", "PA_2", "PA_3", "PA_4", "PA_5", "PA_6"} {
		env.coord.Ingest(domain.Event{Kind: domain.EventParticipantJoined, Timestamp: now, RoomSID: "RM_a", ParticipantSID: sid})
		env.coord.Ingest(domain.Event{Kind: domain.EventParticipantDisconnected, Timestamp: now, RoomSID: "RM_a", ParticipantSID: sid})
	}
	env.coord.RunTick(now.Add(time.Second))

	w := env.do(http.MethodGet, "/api/v1/alerts", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Active   []domain.Alert `json:"active"`
		Resolved []domain.Alert `json:"resolved"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.Active, 1)
	assert.Empty(t, listing.Resolved)

	w = env.do(http.MethodPost, "/api/v1/alerts/"+listing.Active[0].ID+"/resolve", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resolved domain.Alert
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	assert.Equal(t, domain.AlertResolved, resolved.Status)

	w = env.do(http.MethodPost, "/api/v1/alerts/"+listing.Active[0].ID+"/resolve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveAlert_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/alerts/bogus/resolve", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(2), body["observers"])
	assert.Equal(t, true, body["simulator"])
}

func TestWebhook_FeedsPipeline(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/webhooks/livekit", `{
		"event": "room_started",
		"room": {"sid": "RM_hook", "name": "from-webhook", "maxParticipants": 10}
	}`)
	assert.Equal(t, http.StatusOK, w.Code)

	room, err := env.store.Room("RM_hook")
	assert.NoError(t, err)
	assert.Equal(t, "from-webhook", room.Name)
	assert.Equal(t, 10, room.MaxParticipants)
}

func TestWebhook_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/webhooks/livekit", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_UnknownEventAcknowledged(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/webhooks/livekit", `{
		"event": "egress_started",
		"room": {"sid": "RM_x", "name": "x"}
	}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

func TestFullSnapshot(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	env.coord.Ingest(domain.Event{Kind: domain.EventRoomStarted, Timestamp: now, RoomSID: "RM_a", RoomName: "room"})
	env.coord.RunTick(now.Add(time.Second))

	w := env.do(http.MethodGet, "/api/v1/metrics/snapshot", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var snapshot domain.MetricsSnapshot
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, 1, snapshot.Current.ActiveRooms)
	assert.Len(t, snapshot.History, 1)
	assert.Len(t, snapshot.Rooms, 1)
}
