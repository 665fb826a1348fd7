package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-pos/atlas-pos/internal/platform/httpx"
	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// Handler exposes the product HTTP API.
type Handler struct {
	service *Service
	admin   func(http.Handler) http.Handler
}

// NewHandler builds Handler. adminOnly guards the mutating routes.
func NewHandler(service *Service, adminOnly func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, admin: adminOnly}
}

// MountRoutes registers product routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/barcode/{code}", h.getByBarcode)

	r.Group(func(r chi.Router) {
		if h.admin != nil {
			r.Use(h.admin)
		}
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/reactivate", h.reactivate)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	filter := ListFilter{
		Search:        r.URL.Query().Get("search"),
		Category:      r.URL.Query().Get("category"),
		IncludeHidden: r.URL.Query().Get("includeHidden") == "true",
		Page:          page,
		PerPage:       perPage,
	}
	if below := r.URL.Query().Get("lowStockBelow"); below != "" {
		n, err := strconv.ParseInt(below, 10, 64)
		if err != nil || n <= 0 {
			httpx.RespondError(w, r, shared.InvalidInput("lowStockBelow must be a positive integer"))
			return
		}
		filter.LowStockBelow = n
	}
	products, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{
		"products":   products,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, product)
}

func (h *Handler) getByBarcode(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, product)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateProductInput
	if err := httpx.DecodeAndValidate(w, r, &input); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	product, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var input UpdateProductInput
	if err := httpx.DecodeAndValidate(w, r, &input); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	product, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, product)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	deactivated, err := h.service.Delete(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{"deactivated": deactivated})
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	product, err := h.service.Reactivate(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, product)
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.InvalidInput("id must be a positive integer")
	}
	return id, nil
}
