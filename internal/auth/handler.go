package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-pos/atlas-pos/internal/platform/httpx"
	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// Handler exposes the authentication HTTP API.
type Handler struct {
	service    *Service
	middleware *Middleware
}

// NewHandler builds Handler.
func NewHandler(service *Service, middleware *Middleware) *Handler {
	return &Handler{service: service, middleware: middleware}
}

// MountRoutes registers auth routes. Login is public; /me needs a token.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAuth)
		r.Get("/me", h.me)
		r.Post("/logout", h.logout)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := httpx.DecodeAndValidate(w, r, &input); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	token, err := h.service.Login(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, token)
}

// logout is a stateless acknowledgement. Tokens are not tracked server side,
// so the client discards its copy and the token ages out at expiry.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	httpx.Data(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, r, shared.Unauthorized("authentication required"))
		return
	}
	httpx.Data(w, http.StatusOK, UserInfo{
		ID:       actor.UserID,
		Username: actor.Username,
		Role:     actor.Role,
	})
}
