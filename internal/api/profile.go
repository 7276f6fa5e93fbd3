package api

import (
	"encoding/json"
	"net/http"
)

func (api *Server) handleMarkBannerRead(w http.ResponseWriter, r *http.Request) {
	profile := requestIdentity(r)
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Missing notification id", http.StatusBadRequest)
		return
	}

	if err := api.Store.MarkRead(profile.ID, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (api *Server) handleMarkAllBannersRead(w http.ResponseWriter, r *http.Request) {
	profile := requestIdentity(r)

	var req struct {
		NotificationIDs []string `json:"notificationIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := api.Store.MarkAllRead(profile.ID, req.NotificationIDs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (api *Server) handleAddXP(w http.ResponseWriter, r *http.Request) {
	profile := requestIdentity(r)

	var req struct {
		Points int `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Points <= 0 {
		http.Error(w, "Points must be positive", http.StatusBadRequest)
		return
	}

	total := profile.XP + req.Points
	if err := api.Store.UpdateProfile(profile.ID, map[string]any{"xp": total}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"xp": total})
}

func (api *Server) handleUnlockCode(w http.ResponseWriter, r *http.Request) {
	profile := requestIdentity(r)

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	asset, err := api.Store.GetAssetByCode(req.Code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if asset == nil {
		http.Error(w, "Invalid code", http.StatusNotFound)
		return
	}

	unlocked, err := api.Store.ListUnlockedAssetIDs(profile.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, id := range unlocked {
		if id == asset.ID {
			writeJSON(w, http.StatusOK, map[string]string{
				"assetId": asset.ID,
				"message": asset.Name + " already unlocked",
			})
			return
		}
	}

	if err := api.Store.AddUnlock(profile.ID, asset.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"assetId": asset.ID,
		"message": "Unlocked: " + asset.Name,
	})
}
