package proxy

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Relay forwards requests to the remote control endpoint named in the
// request headers. Browser-hosted consumers cannot reach the endpoint
// directly (cross-origin, and the credential must not be exposed), so every
// call goes through this same-origin hop.
type Relay struct {
	httpClient *http.Client
}

func NewRelay() *Relay {
	return &Relay{
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func (p *Relay) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ServeHTTP expects X-Target-Url and X-Api-Key headers, forwards the
// method and body to target+path, and streams the upstream body back
// verbatim.
func (p *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.Header.Get("X-Target-Url")
	if target == "" {
		p.writeError(w, http.StatusBadRequest, "missing X-Target-Url header")
		return
	}

	upstreamURL := strings.TrimRight(target, "/") + r.URL.Path
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, upstreamURL, r.Body)
	if err != nil {
		p.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Header.Set("apikey", r.Header.Get("X-Api-Key"))
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Printf("Relay: %s %s unreachable: %v", r.Method, upstreamURL, err)
		p.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// Handler mounts the relay under a path prefix, stripping the prefix so the
// forwarded path matches the upstream API.
func (p *Relay) Handler(prefix string) http.Handler {
	return http.StripPrefix(prefix, p)
}
