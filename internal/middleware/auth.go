package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"lovenest/internal/models"
)

type contextKey string

const userIDKey contextKey = "user_id"

// LoginPath is where views are sent when nobody is signed in
const LoginPath = "/login"

// IdentitySource reports the signed-in user
type IdentitySource interface {
	Identity() (models.Identity, bool)
}

// RequireIdentity rejects requests while nobody is signed in and points
// the view at the login page
func RequireIdentity(src IdentitySource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := src.Identity()
			if !ok {
				respondError(w, "login required", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, identity.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

type redirectResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// respondError sends an error response with the login redirect
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(redirectResponse{Error: message, Redirect: LoginPath})
}
