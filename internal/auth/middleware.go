package auth

import (
	"net/http"
	"strings"

	"github.com/atlas-pos/atlas-pos/internal/platform/httpx"
	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// Middleware authenticates requests from the Authorization header and
// enforces role requirements.
type Middleware struct {
	jwt *JWTManager
}

// NewMiddleware builds Middleware.
func NewMiddleware(jwt *JWTManager) *Middleware {
	return &Middleware{jwt: jwt}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// actor in the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httpx.RespondError(w, r, shared.Unauthorized("missing authorization header"))
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httpx.RespondError(w, r, shared.Unauthorized("authorization header must be a bearer token"))
			return
		}
		claims, err := m.jwt.Validate(token)
		if err != nil {
			httpx.RespondError(w, r, shared.Unauthorized("invalid or expired token"))
			return
		}
		actor := &shared.Actor{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireAdmin rejects authenticated requests whose actor is not an admin.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := shared.ActorFromContext(r.Context())
		if actor == nil {
			httpx.RespondError(w, r, shared.Unauthorized("authentication required"))
			return
		}
		if !actor.IsAdmin() {
			httpx.RespondError(w, r, shared.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
