package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/habridge/internal/infrastructure/config"
)

// testClient creates a client pointed at the given test server.
func testClient(server *httptest.Server) *Client {
	return New(config.HubConfig{
		URL:     server.URL,
		Token:   "test-token",
		Timeout: 5,
	})
}

func TestFetchAllStates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states" {
			t.Errorf("path = %q, want /api/states", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		json.NewEncoder(w).Encode([]EntityState{
			{EntityID: "light.kitchen", State: "on"},
			{EntityID: "sensor.humidity", State: "45"},
		})
	}))
	defer server.Close()

	states, err := testClient(server).FetchAllStates(context.Background())
	if err != nil {
		t.Fatalf("FetchAllStates() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("FetchAllStates() returned %d states, want 2", len(states))
	}
	if states[0].EntityID != "light.kitchen" {
		t.Errorf("states[0].EntityID = %q, want light.kitchen", states[0].EntityID)
	}
}

func TestFetchState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states/light.kitchen" {
			t.Errorf("path = %q, want /api/states/light.kitchen", r.URL.Path)
		}
		json.NewEncoder(w).Encode(EntityState{
			EntityID:   "light.kitchen",
			State:      "on",
			Attributes: map[string]any{"brightness": float64(200)},
		})
	}))
	defer server.Close()

	state, err := testClient(server).FetchState(context.Background(), "light.kitchen")
	if err != nil {
		t.Fatalf("FetchState() error = %v", err)
	}
	if state.State != "on" {
		t.Errorf("State = %q, want on", state.State)
	}
	if state.Attributes["brightness"] != float64(200) {
		t.Errorf("Attributes[brightness] = %v, want 200", state.Attributes["brightness"])
	}
}

func TestFetchState_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server).FetchState(context.Background(), "light.missing")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("FetchState() error = %v, want ErrEntityNotFound", err)
	}
}

func TestFetchState_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server).FetchState(context.Background(), "light.kitchen")
	if !errors.Is(err, ErrStatusNotOK) {
		t.Errorf("FetchState() error = %v, want ErrStatusNotOK", err)
	}
}

func TestSetState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if payload["state"] != "off" {
			t.Errorf("payload state = %v, want off", payload["state"])
		}
		json.NewEncoder(w).Encode(EntityState{EntityID: "light.kitchen", State: "off"})
	}))
	defer server.Close()

	state, err := testClient(server).SetState(context.Background(), "light.kitchen", "off", nil)
	if err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if state.State != "off" {
		t.Errorf("State = %q, want off", state.State)
	}
}

func TestCallService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/services/light/turn_on" {
			t.Errorf("path = %q, want /api/services/light/turn_on", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]EntityState{{EntityID: "light.kitchen", State: "on"}})
	}))
	defer server.Close()

	changed, err := testClient(server).CallService(context.Background(), "light", "turn_on",
		map[string]any{"entity_id": "light.kitchen"})
	if err != nil {
		t.Fatalf("CallService() error = %v", err)
	}
	if len(changed) != 1 || changed[0].State != "on" {
		t.Errorf("CallService() = %v, want one changed state", changed)
	}
}

func TestFetchServices_MapForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"light": {"turn_on": {"description": "Turn on"}}}`))
	}))
	defer server.Close()

	catalog, err := testClient(server).FetchServices(context.Background())
	if err != nil {
		t.Fatalf("FetchServices() error = %v", err)
	}
	if _, ok := catalog["light"]["turn_on"]; !ok {
		t.Errorf("catalog missing light.turn_on: %v", catalog)
	}
}

func TestFetchServices_ListForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[
			{"domain": "light", "services": {"turn_on": {}, "turn_off": {}}},
			{"domain": "switch", "services": {"toggle": {}}}
		]`))
	}))
	defer server.Close()

	catalog, err := testClient(server).FetchServices(context.Background())
	if err != nil {
		t.Fatalf("FetchServices() error = %v", err)
	}
	if len(catalog["light"]) != 2 {
		t.Errorf("catalog[light] has %d services, want 2", len(catalog["light"]))
	}
	if _, ok := catalog["switch"]["toggle"]; !ok {
		t.Errorf("catalog missing switch.toggle: %v", catalog)
	}
}

func TestFetchConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Info{
			LocationName: "Home",
			TimeZone:     "Europe/London",
			Version:      "2025.6.1",
		})
	}))
	defer server.Close()

	info, err := testClient(server).FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("FetchConfig() error = %v", err)
	}
	if info.Version != "2025.6.1" {
		t.Errorf("Version = %q, want 2025.6.1", info.Version)
	}
}

func TestCheckConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if !testClient(server).CheckConnection(context.Background()) {
		t.Error("CheckConnection() = false, want true")
	}
}

func TestCheckConnection_Down(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server.Close() // immediately unreachable

	if testClient(server).CheckConnection(context.Background()) {
		t.Error("CheckConnection() = true for unreachable hub, want false")
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		entityID string
		want     string
	}{
		{"light.kitchen", "light"},
		{"sensor.outdoor.temp", "sensor"},
		{"nodot", "nodot"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Domain(tt.entityID); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.entityID, got, tt.want)
		}
	}
}

func TestKeys(t *testing.T) {
	if got := StateKey("light.kitchen"); got != "state:light.kitchen" {
		t.Errorf("StateKey() = %q", got)
	}
	if got := GroupKeyPrefix("light"); got != "group:light" {
		t.Errorf("GroupKeyPrefix() = %q", got)
	}
	if got := GroupKey("light", "upstairs"); got != "group:light:upstairs" {
		t.Errorf("GroupKey() = %q", got)
	}
}
