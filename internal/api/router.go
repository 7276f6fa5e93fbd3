package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"outpost/internal/app"
	"outpost/internal/configsync"
	"outpost/internal/identity"
	"outpost/internal/poll"
	"outpost/internal/proxy"
	"outpost/internal/session"
	"outpost/internal/storage"
	"outpost/internal/ws"
)

// Server is the portal's HTTP surface: a thin consumer of the
// synchronizers and the polling orchestrator.
type Server struct {
	Session  *session.Synchronizer
	Config   *configsync.Synchronizer
	Poller   *poll.Orchestrator
	Provider *identity.Provider
	Store    *storage.GormStore
	Hub      *ws.Hub
	Relay    *proxy.Relay

	AvatarsDir string
}

func NewAPIServer(container *app.Container) *Server {
	return &Server{
		Session:  container.Session,
		Config:   container.Config,
		Poller:   container.Poller,
		Provider: container.Provider,
		Store:    container.Store,
		Hub:      container.Hub,
		Relay:    container.Relay,

		AvatarsDir: container.AvatarsDir,
	}
}

func (api *Server) Start(listenAddr string) error {
	fmt.Printf("API listening on http://0.0.0.0%s\n", listenAddr)
	return http.ListenAndServe(listenAddr, api.Handler())
}

func (api *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", api.handleLogin)
	mux.HandleFunc("POST /auth/signup", api.handleSignup)
	mux.HandleFunc("POST /auth/logout", api.handleLogout)
	mux.HandleFunc("POST /auth/reset-password", api.handleResetPassword)
	mux.Handle("GET /auth/me", api.authMiddleware(http.HandlerFunc(api.handleMe)))
	mux.Handle("PUT /auth/password", api.authMiddleware(http.HandlerFunc(api.handleUpdatePassword)))

	mux.Handle("PATCH /profile", api.authMiddleware(http.HandlerFunc(api.handleUpdateProfile)))
	mux.Handle("POST /profile/avatar", api.authMiddleware(http.HandlerFunc(api.handleUploadAvatar)))
	mux.Handle("POST /profile/banners/{id}/read", api.authMiddleware(http.HandlerFunc(api.handleMarkBannerRead)))
	mux.Handle("POST /profile/banners/read-all", api.authMiddleware(http.HandlerFunc(api.handleMarkAllBannersRead)))
	mux.Handle("POST /profile/xp", api.authMiddleware(http.HandlerFunc(api.handleAddXP)))
	mux.Handle("POST /profile/unlock-code", api.authMiddleware(http.HandlerFunc(api.handleUnlockCode)))

	mux.HandleFunc("GET /session", api.handleSessionState)
	mux.HandleFunc("GET /config", api.handleGetConfig)
	mux.HandleFunc("GET /notifications", api.handleListNotifications)
	mux.HandleFunc("GET /roadmap", api.handleListRoadmap)

	mux.Handle("PATCH /admin/config", api.adminMiddleware(http.HandlerFunc(api.handleUpdateConfig)))
	mux.Handle("PUT /admin/mcss-key/{tier}", api.adminMiddleware(http.HandlerFunc(api.handleSetMasterKey)))
	mux.Handle("POST /admin/notifications", api.adminMiddleware(http.HandlerFunc(api.handleCreateNotification)))
	mux.Handle("DELETE /admin/notifications/{id}", api.adminMiddleware(http.HandlerFunc(api.handleDeleteNotification)))
	mux.Handle("POST /admin/roadmap", api.adminMiddleware(http.HandlerFunc(api.handleCreateRoadmapItem)))
	mux.Handle("PUT /admin/roadmap/{id}", api.adminMiddleware(http.HandlerFunc(api.handleUpdateRoadmapItem)))
	mux.Handle("DELETE /admin/roadmap/{id}", api.adminMiddleware(http.HandlerFunc(api.handleDeleteRoadmapItem)))
	mux.Handle("GET /admin/system", api.adminMiddleware(http.HandlerFunc(api.handleSystemStats)))

	mux.HandleFunc("GET /status", api.handleStatus)
	mux.Handle("POST /servers/action", api.authMiddleware(http.HandlerFunc(api.handleAction)))
	mux.Handle("POST /servers/command", api.authMiddleware(http.HandlerFunc(api.handleCommand)))
	mux.Handle("GET /servers/console", api.authMiddleware(http.HandlerFunc(api.handleConsole)))
	mux.HandleFunc("GET /ws/status", api.handleStatusStream)

	mux.Handle("/proxy/", api.Relay.Handler("/proxy"))
	mux.Handle("GET /avatars/", http.StripPrefix("/avatars/", http.FileServer(http.Dir(api.AvatarsDir))))

	return api.corsMiddleware(mux)
}

func (api *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
