package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"outpost/internal/domain"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

func (api *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := api.Config.Config()
	// Master keys never leave the daemon.
	cfg.MCSS.MasterKeys = nil
	writeJSON(w, http.StatusOK, map[string]any{
		"state":  api.Config.State().String(),
		"config": cfg,
	})
}

func (api *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Config.Notifications())
}

func (api *Server) handleListRoadmap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Config.RoadmapItems())
}

func (api *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(patch) == 0 {
		http.Error(w, "Empty patch", http.StatusBadRequest)
		return
	}

	if err := api.Config.UpdateGlobalConfig(patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (api *Server) handleSetMasterKey(w http.ResponseWriter, r *http.Request) {
	tier := r.PathValue("tier")
	if tier != domain.TierStandard && tier != domain.TierAdmin {
		http.Error(w, "Unknown tier", http.StatusBadRequest)
		return
	}

	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := api.Config.UpdateMasterKey(tier, req.Key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (api *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var n domain.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if n.Title == "" {
		http.Error(w, "Title required", http.StatusBadRequest)
		return
	}
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()

	if err := api.Config.CreateNotification(&n); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (api *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Missing notification id", http.StatusBadRequest)
		return
	}

	if err := api.Config.DeleteNotification(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (api *Server) handleCreateRoadmapItem(w http.ResponseWriter, r *http.Request) {
	var item domain.RoadmapItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if item.Title == "" {
		http.Error(w, "Title required", http.StatusBadRequest)
		return
	}
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now()

	if err := api.Config.CreateRoadmapItem(&item); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (api *Server) handleUpdateRoadmapItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := api.Config.UpdateRoadmapItem(id, fields); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (api *Server) handleDeleteRoadmapItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := api.Config.DeleteRoadmapItem(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleSystemStats reports the daemon host's resource usage so admins can
// tell a struggling portal host apart from a struggling game server.
func (api *Server) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"os":   runtime.GOOS,
		"arch": runtime.GOARCH,
	}

	if percentages, err := cpu.Percent(time.Second, false); err == nil && len(percentages) > 0 {
		stats["cpu_usage"] = percentages[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats["memory_total"] = vm.Total
		stats["memory_used"] = vm.Used
		stats["memory_usage"] = vm.UsedPercent
	}
	if usage, err := disk.Usage("/"); err == nil {
		stats["disk_total"] = usage.Total
		stats["disk_used"] = usage.Used
		stats["disk_usage"] = usage.UsedPercent
	}
	if uptime, err := host.Uptime(); err == nil {
		stats["uptime_seconds"] = uptime
	}

	writeJSON(w, http.StatusOK, stats)
}
