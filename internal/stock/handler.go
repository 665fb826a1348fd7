package stock

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-pos/atlas-pos/internal/platform/httpx"
	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// Handler exposes the stock HTTP API.
type Handler struct {
	service           *Service
	admin             func(http.Handler) http.Handler
	lowStockThreshold int64
}

// NewHandler builds Handler. adminOnly guards adjustments and purchases.
func NewHandler(service *Service, adminOnly func(http.Handler) http.Handler, lowStockThreshold int64) *Handler {
	if lowStockThreshold <= 0 {
		lowStockThreshold = 10
	}
	return &Handler{service: service, admin: adminOnly, lowStockThreshold: lowStockThreshold}
}

// MountRoutes registers stock routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledger", h.ledger)
	r.Get("/low", h.lowStock)
	r.Get("/out", h.outOfStock)
	r.Get("/expiring", h.expiring)
	r.Get("/value", h.inventoryValue)
	r.Get("/purchases", h.listPurchases)
	r.Get("/purchases/{id}", h.getPurchase)

	r.Group(func(r chi.Router) {
		if h.admin != nil {
			r.Use(h.admin)
		}
		r.Post("/adjustments", h.adjust)
		r.Post("/purchases", h.recordPurchase)
	})
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var input AdjustInput
	if err := httpx.DecodeAndValidate(w, r, &input); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if actor := shared.ActorFromContext(r.Context()); actor != nil {
		input.ActorID = actor.UserID
	}
	entry, err := h.service.Adjust(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusCreated, entry)
}

func (h *Handler) recordPurchase(w http.ResponseWriter, r *http.Request) {
	var input PurchaseInput
	if err := httpx.DecodeAndValidate(w, r, &input); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	input.IdempotencyKey = r.Header.Get("Idempotency-Key")
	if actor := shared.ActorFromContext(r.Context()); actor != nil {
		input.ActorID = actor.UserID
	}
	purchase, err := h.service.RecordPurchase(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusCreated, purchase)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	filter := LedgerFilter{
		Reason:  Reason(r.URL.Query().Get("reason")),
		Page:    page,
		PerPage: perPage,
	}
	if raw := r.URL.Query().Get("productId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, r, shared.InvalidInput("productId must be a positive integer"))
			return
		}
		filter.ProductID = id
	}
	var err error
	if filter.From, filter.To, err = dateRange(r); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	entries, pagination, err := h.service.Ledger(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{
		"entries":    entries,
		"pagination": pagination,
	})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold := h.lowStockThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			httpx.RespondError(w, r, shared.InvalidInput("threshold must be a positive integer"))
			return
		}
		threshold = n
	}
	products, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	type lowStockItem struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Barcode  string `json:"barcode,omitempty"`
		Quantity int64  `json:"quantity"`
	}
	items := make([]lowStockItem, 0, len(products))
	for _, p := range products {
		items = append(items, lowStockItem{ID: p.ID, Name: p.Name, Barcode: p.Barcode, Quantity: p.Quantity})
	}
	httpx.Data(w, http.StatusOK, map[string]any{
		"threshold": threshold,
		"products":  items,
	})
}

func (h *Handler) outOfStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.OutOfStock(r.Context())
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	type item struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Barcode string `json:"barcode,omitempty"`
	}
	items := make([]item, 0, len(products))
	for _, p := range products {
		items = append(items, item{ID: p.ID, Name: p.Name, Barcode: p.Barcode})
	}
	httpx.Data(w, http.StatusOK, map[string]any{"products": items})
}

func (h *Handler) expiring(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.RespondError(w, r, shared.InvalidInput("days must be a positive integer"))
			return
		}
		days = n
	}
	products, err := h.service.Expiring(r.Context(), days)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{
		"days":     days,
		"products": products,
	})
}

func (h *Handler) inventoryValue(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.InventoryValue(r.Context())
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, value)
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	filter := PurchaseFilter{
		Supplier: r.URL.Query().Get("supplier"),
		Page:     page,
		PerPage:  perPage,
	}
	var err error
	if filter.From, filter.To, err = dateRange(r); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	purchases, pagination, err := h.service.ListPurchases(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{
		"purchases":  purchases,
		"pagination": pagination,
	})
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, r, shared.InvalidInput("id must be a positive integer"))
		return
	}
	purchase, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, purchase)
}

func dateRange(r *http.Request) (from, to time.Time, err error) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, shared.InvalidInput("from must be YYYY-MM-DD")
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, shared.InvalidInput("to must be YYYY-MM-DD")
		}
		// inclusive end date
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}
