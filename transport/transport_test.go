package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"memengine/command"
)

func TestHandleDispatchesToEngine(t *testing.T) {
	engine := command.Initialize(64)
	defer engine.Shutdown()

	s := NewServer(engine)

	body, _ := json.Marshal(map[string]interface{}{
		"command": "process.info",
		"id":      "1",
	})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.mux.ServeHTTP(rec, req)

	var resp response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %s", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}
	if resp.ID != "1" {
		t.Fatalf("expected id echoed back, got %q", resp.ID)
	}
}

func TestHandleRejectsNonPost(t *testing.T) {
	engine := command.Initialize(64)
	defer engine.Shutdown()

	s := NewServer(engine)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for a GET request, got %d", rec.Code)
	}
}

func TestHandleUnknownCommandReturnsFailureEnvelope(t *testing.T) {
	engine := command.Initialize(64)
	defer engine.Shutdown()

	s := NewServer(engine)

	body, _ := json.Marshal(map[string]interface{}{"command": "nonexistent"})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	var resp response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Fatal("expected success=false for an unknown command")
	}
	if resp.Error == "" {
		t.Fatal("expected a non-empty error message")
	}
}
