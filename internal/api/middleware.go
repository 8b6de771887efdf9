package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bookwormhq/bookworm-go-server/internal/auth"
	"github.com/bookwormhq/bookworm-go-server/internal/db"
	"github.com/bookwormhq/bookworm-go-server/internal/model"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	RoleKey   contextKey = "role"
)

type Middleware struct {
	DB *db.DB
}

// Auth validates the bearer token and loads the user id and role into the
// request context. A valid token for a user the DB no longer knows is
// rejected, which covers tokens that outlive a wiped database.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			JSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			JSONError(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			JSONError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		exists, err := m.DB.UserExists(claims.UserID)
		if err != nil {
			log.Printf("Auth: DB error checking user %s: %v", claims.UserID, err)
			JSONError(w, "Database error", http.StatusInternalServerError)
			return
		}
		if !exists {
			JSONError(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireParent wraps Auth and additionally rejects non-parent users.
func (m *Middleware) RequireParent(next http.Handler) http.Handler {
	return m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role, _ := GetRole(r); role != model.RoleParent {
			JSONError(w, "Only a parent can do this", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

func GetRole(r *http.Request) (string, bool) {
	role, ok := r.Context().Value(RoleKey).(string)
	return role, ok
}
