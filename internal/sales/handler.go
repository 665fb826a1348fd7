package sales

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-pos/atlas-pos/internal/platform/httpx"
	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// Handler exposes the sales HTTP API.
type Handler struct {
	service *Service
	reports *Reports
	receipt ReceiptOptions
}

// NewHandler builds Handler.
func NewHandler(service *Service, reports *Reports, receipt ReceiptOptions) *Handler {
	return &Handler{service: service, reports: reports, receipt: receipt}
}

// MountRoutes registers sales routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/reports/daily", h.dailyReport)
	r.Get("/reports/top-products", h.topProducts)
	r.Get("/bill/{billNumber}", h.getByBillNumber)
	r.Get("/{id}", h.get)
	r.Get("/{id}/receipt", h.receiptText)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateSaleInput
	if err := httpx.DecodeAndValidate(w, r, &input); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	input.IdempotencyKey = r.Header.Get("Idempotency-Key")
	if actor := shared.ActorFromContext(r.Context()); actor != nil {
		input.CashierID = actor.UserID
	}
	sale, err := h.service.CreateSale(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusCreated, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	filter := ListFilter{
		BillNumber: r.URL.Query().Get("billNumber"),
		Page:       page,
		PerPage:    perPage,
	}
	if raw := r.URL.Query().Get("cashierId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, r, shared.InvalidInput("cashierId must be a positive integer"))
			return
		}
		filter.CashierID = id
	}
	var err error
	if filter.From, filter.To, err = dateRange(r); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	sales, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{
		"sales":      sales,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, sale)
}

func (h *Handler) getByBillNumber(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetByBillNumber(r.Context(), chi.URLParam(r, "billNumber"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, sale)
}

func (h *Handler) receiptText(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(RenderReceipt(sale, h.receipt)))
}

func (h *Handler) dailyReport(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, r, shared.InvalidInput("date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	report, err := h.reports.Daily(r.Context(), day)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, report)
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if to.IsZero() {
		to = time.Now().AddDate(0, 0, 1)
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.RespondError(w, r, shared.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}
	products, err := h.reports.TopProducts(r.Context(), from, to, limit)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{
		"from":     from.Format("2006-01-02"),
		"to":       to.Format("2006-01-02"),
		"products": products,
	})
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.InvalidInput("id must be a positive integer")
	}
	return id, nil
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
