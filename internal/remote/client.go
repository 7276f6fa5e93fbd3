package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outpost/internal/domain"
)

// Header names understood by the relay in internal/proxy.
const (
	HeaderTargetURL = "X-Target-Url"
	HeaderAPIKey    = "X-Api-Key"
)

// Action codes understood by the control endpoint.
const (
	ActionStop    = 1
	ActionStart   = 2
	ActionKill    = 3
	ActionRestart = 4
)

var actionCodes = map[string]int{
	"Stop":    ActionStop,
	"Start":   ActionStart,
	"Kill":    ActionKill,
	"Restart": ActionRestart,
}

// APIError carries the relay's reported message for a failed call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote control error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote control error (%d)", e.StatusCode)
}

// Client is a typed client for the remote server-control API, indirected
// through the local relay. It is immutable once constructed; credential or
// endpoint changes replace the instance wholesale.
type Client struct {
	proxyURL   string
	targetURL  string
	apiKey     string
	httpClient *http.Client
}

func NewClient(proxyURL, targetURL, apiKey string) *Client {
	return &Client{
		proxyURL:   strings.TrimRight(proxyURL, "/"),
		targetURL:  strings.TrimRight(targetURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) TargetURL() string {
	return c.targetURL
}

func (c *Client) do(ctx context.Context, method, path string, body any, target any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.proxyURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderTargetURL, c.targetURL)
	req.Header.Set(HeaderAPIKey, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: decodeErrorMessage(bodyBytes)}
	}

	if target != nil {
		return json.NewDecoder(resp.Body).Decode(target)
	}
	return nil
}

// decodeErrorMessage extracts the relay's {"error": "..."} envelope, falling
// back to the raw body.
func decodeErrorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(body))
}

// ListServers returns the handles known to the control endpoint.
func (c *Client) ListServers(ctx context.Context) ([]domain.ServerHandle, error) {
	var raw []map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/v2/servers", nil, &raw); err != nil {
		return nil, err
	}

	servers := make([]domain.ServerHandle, 0, len(raw))
	for _, entry := range raw {
		servers = append(servers, normalizeHandle(entry))
	}
	return servers, nil
}

// GetConsole returns raw log lines, most recent last.
func (c *Client) GetConsole(ctx context.Context, id string, lines int) ([]string, error) {
	var out []string
	path := fmt.Sprintf("/api/v2/servers/%s/console?amountOfLines=%d", id, lines)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteCommand is fire-and-forget; callers append their own synthetic
// "[EXEC]" line instead of waiting for the command's output to appear.
func (c *Client) ExecuteCommand(ctx context.Context, id string, command string) error {
	path := fmt.Sprintf("/api/v2/servers/%s/execute/command", id)
	return c.do(ctx, http.MethodPost, path, map[string]string{"command": command}, nil)
}

// GetServerStats fetches and normalizes the server's telemetry.
func (c *Client) GetServerStats(ctx context.Context, id string) (domain.ServerStats, error) {
	var raw any
	path := fmt.Sprintf("/api/v2/servers/%s/stats", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return domain.ServerStats{}, err
	}
	return NormalizeStats(raw), nil
}

// ExecuteAction dispatches a lifecycle action. Symbolic names
// (Start|Stop|Kill|Restart) translate through a fixed table; a raw numeric
// code is passed as-is.
func (c *Client) ExecuteAction(ctx context.Context, id string, action any) error {
	var code int
	switch v := action.(type) {
	case string:
		translated, ok := actionCodes[v]
		if !ok {
			return fmt.Errorf("unknown action: %s", v)
		}
		code = translated
	case int:
		code = v
	case float64:
		code = int(v)
	default:
		return fmt.Errorf("unsupported action type %T", action)
	}

	path := fmt.Sprintf("/api/v2/servers/%s/execute/action", id)
	return c.do(ctx, http.MethodPost, path, map[string]int{"action": code}, nil)
}
