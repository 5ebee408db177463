package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fcollonval/hass-core/internal/entity"
	"github.com/fcollonval/hass-core/internal/infrastructure/config"
	"github.com/fcollonval/hass-core/internal/infrastructure/logging"
)

// fakeTransport is an in-memory entity.Transport for handler tests.
type fakeTransport struct {
	mu        sync.Mutex
	handlers  map[string]entity.MessageHandler
	published []struct{ topic, payload string }
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]entity.MessageHandler)}
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler entity.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

func (f *fakeTransport) Publish(topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, struct{ topic, payload string }{topic, string(payload)})
	return nil
}

func (f *fakeTransport) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	f.mu.Lock()
	handler, ok := f.handlers[topic]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no handler subscribed to %s", topic)
	}
	if err := handler(topic, []byte(payload)); err != nil {
		t.Fatalf("deliver %s: %v", topic, err)
	}
}

func (f *fakeTransport) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

// testServer creates a Server with a real entity registry backed by a
// fake transport, pre-populated with one entity of each kind.
func testServer(t *testing.T) (*Server, *fakeTransport) {
	t.Helper()

	transport := newFakeTransport()
	registry := entity.NewRegistry(entity.Deps{Transport: transport})

	ctx := context.Background()
	entities := []entity.Config{
		{
			ID:           "patio_mode",
			Kind:         entity.KindSelect,
			StateTopic:   "patio/mode/state",
			CommandTopic: "patio/mode/set",
			Options:      []string{"off", "eco", "comfort"},
		},
		{
			ID:         "mower_firmware",
			Kind:       entity.KindUpdate,
			StateTopic: "mower/firmware/state",
		},
		{
			ID:               "front_mower",
			Kind:             entity.KindLawnMower,
			StateTopic:       "mower/front/activity",
			DockCommandTopic: "mower/front/dock",
		},
	}
	for _, cfg := range entities {
		if _, err := registry.Setup(ctx, cfg); err != nil {
			t.Fatalf("Setup(%s) error = %v", cfg.ID, err)
		}
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   log,
		Registry: registry,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(context.Background())

	return srv, transport
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_RequiresLogger(t *testing.T) {
	if _, err := New(Deps{Registry: entity.NewRegistry(entity.Deps{Transport: newFakeTransport()})}); err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestNew_RequiresRegistry(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without registry should fail")
	}
}

// =============================================================================
// Health
// =============================================================================

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["entities"] != float64(3) {
		t.Errorf("entities = %v, want 3", body["entities"])
	}
}

// =============================================================================
// Entity Reads
// =============================================================================

func TestHandleListEntities(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/entities/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}

	var body struct {
		Entities []entity.Snapshot `json:"entities"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal list body: %v", err)
	}
	if body.Count != 3 {
		t.Errorf("count = %d, want 3", body.Count)
	}
}

func TestHandleListEntities_KindFilter(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/entities/?kind=select", "")

	var body struct {
		Entities []entity.Snapshot `json:"entities"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal list body: %v", err)
	}
	if body.Count != 1 || body.Entities[0].ID != "patio_mode" {
		t.Errorf("filtered list = %+v, want only patio_mode", body.Entities)
	}
}

func TestHandleGetEntity(t *testing.T) {
	srv, transport := testServer(t)
	transport.deliver(t, "patio/mode/state", "eco")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/entities/patio_mode", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}

	var snap entity.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.CurrentOption == nil || *snap.CurrentOption != "eco" {
		t.Errorf("CurrentOption = %v, want eco", snap.CurrentOption)
	}
}

func TestHandleGetEntity_NotFound(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/entities/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want 404", rec.Code)
	}
}

func TestHandleEntityHistory_Unavailable(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/entities/patio_mode/history", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("history status = %d, want 404 without a history provider", rec.Code)
	}
}

// =============================================================================
// Commands
// =============================================================================

func TestHandleSelectOption(t *testing.T) {
	srv, transport := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/entities/patio_mode/select", `{"option":"eco"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d, body %s", rec.Code, rec.Body.String())
	}
	if transport.publishCount() != 1 {
		t.Errorf("published %d messages, want 1", transport.publishCount())
	}
}

func TestHandleSelectOption_NonMemberPassesThrough(t *testing.T) {
	srv, transport := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/entities/patio_mode/select", `{"option":"turbo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d, body %s", rec.Code, rec.Body.String())
	}
	if transport.publishCount() != 1 {
		t.Errorf("published %d messages, want 1", transport.publishCount())
	}
}

func TestHandleSelectOption_WrongKind(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/entities/front_mower/select", `{"option":"eco"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("select status = %d, want 409", rec.Code)
	}
}

func TestHandleSelectOption_BadBody(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/entities/patio_mode/select", `{`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("select status = %d, want 400", rec.Code)
	}
}

func TestHandleInstall_Unsupported(t *testing.T) {
	srv, _ := testServer(t)

	// mower_firmware has no command topic.
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/entities/mower_firmware/install", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("install status = %d, want 409", rec.Code)
	}
}

func TestHandleDock(t *testing.T) {
	srv, transport := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/entities/front_mower/dock", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dock status = %d, body %s", rec.Code, rec.Body.String())
	}
	if transport.publishCount() != 1 {
		t.Errorf("published %d messages, want 1", transport.publishCount())
	}
}

func TestHandleStartMowing_Unsupported(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/entities/front_mower/start_mowing", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("start_mowing status = %d, want 409 without a topic", rec.Code)
	}
}
