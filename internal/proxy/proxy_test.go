package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRelayRequiresTargetHeader(t *testing.T) {
	relay := NewRelay()

	req := httptest.NewRequest(http.MethodGet, "/api/v2/servers", nil)
	rec := httptest.NewRecorder()
	relay.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("error envelope not JSON: %v", err)
	}
	if payload["error"] == "" {
		t.Error("expected error message in envelope")
	}
}

func TestRelayForwardsRequest(t *testing.T) {
	var gotPath, gotKey, gotQuery, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotQuery = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	relay := NewRelay()

	req := httptest.NewRequest(http.MethodPost, "/api/v2/servers/s1/execute/action?verbose=1", strings.NewReader(`{"action":2}`))
	req.Header.Set("X-Target-Url", upstream.URL)
	req.Header.Set("X-Api-Key", "secret")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	relay.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotPath != "/api/v2/servers/s1/execute/action" {
		t.Errorf("path not forwarded: %s", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("apikey header not forwarded: %q", gotKey)
	}
	if gotQuery != "verbose=1" {
		t.Errorf("query not forwarded: %q", gotQuery)
	}
	if gotBody != `{"action":2}` {
		t.Errorf("body not forwarded: %q", gotBody)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("upstream body not streamed verbatim: %q", rec.Body.String())
	}
}

func TestRelayPassesUpstreamStatusThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer upstream.Close()

	relay := NewRelay()

	req := httptest.NewRequest(http.MethodGet, "/api/v2/servers", nil)
	req.Header.Set("X-Target-Url", upstream.URL)
	rec := httptest.NewRecorder()
	relay.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 passthrough, got %d", rec.Code)
	}
}

func TestRelayUnreachableUpstream(t *testing.T) {
	relay := NewRelay()

	req := httptest.NewRequest(http.MethodGet, "/api/v2/servers", nil)
	req.Header.Set("X-Target-Url", "http://127.0.0.1:1")
	rec := httptest.NewRecorder()
	relay.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHandlerStripsPrefix(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	handler := NewRelay().Handler("/proxy")

	req := httptest.NewRequest(http.MethodGet, "/proxy/api/v2/servers", nil)
	req.Header.Set("X-Target-Url", upstream.URL)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotPath != "/api/v2/servers" {
		t.Errorf("prefix not stripped: %s", gotPath)
	}
}
