package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"outpost/internal/poll"
	"outpost/internal/remote"
)

func (api *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Poller.Snapshot())
}

func (api *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Action == "" {
		http.Error(w, "Action required", http.StatusBadRequest)
		return
	}

	if err := api.Poller.PerformAction(req.Action); err != nil {
		switch {
		case errors.Is(err, poll.ErrActionInFlight):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, poll.ErrNoAdapter):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			status := http.StatusBadGateway
			var apiErr *remote.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
				status = apiErr.StatusCode
			}
			http.Error(w, err.Error(), status)
		}
		return
	}
	writeJSON(w, http.StatusOK, api.Poller.Snapshot())
}

func (api *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		http.Error(w, "Command required", http.StatusBadRequest)
		return
	}

	if err := api.Poller.SendCommand(req.Command); err != nil {
		if errors.Is(err, poll.ErrNoAdapter) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (api *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	lines := 50
	if raw := r.URL.Query().Get("lines"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid lines parameter", http.StatusBadRequest)
			return
		}
		lines = parsed
	}

	console, err := api.Poller.FetchConsole(lines)
	if err != nil {
		if errors.Is(err, poll.ErrNoAdapter) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"lines": console})
}

func (api *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	api.Hub.ServeWs(w, r)
}
