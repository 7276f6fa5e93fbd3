package api

import (
	"context"
	"net/http"
	"strings"

	"outpost/internal/domain"
)

type ContextKey string

const UserContextKey ContextKey = "user"

func (api *Server) identityFromRequest(r *http.Request) *domain.Identity {
	var tokenString string
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		return nil
	}

	userID, err := api.Provider.VerifyToken(tokenString)
	if err != nil {
		return nil
	}

	profile, err := api.Store.GetProfileByID(userID)
	if err != nil || profile == nil {
		return nil
	}
	return profile
}

func (api *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile := api.identityFromRequest(r)
		if profile == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (api *Server) adminMiddleware(next http.Handler) http.Handler {
	return api.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, _ := r.Context().Value(UserContextKey).(*domain.Identity)
		if profile == nil || !profile.IsAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func requestIdentity(r *http.Request) *domain.Identity {
	profile, _ := r.Context().Value(UserContextKey).(*domain.Identity)
	return profile
}
