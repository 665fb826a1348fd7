package barcode

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-pos/atlas-pos/internal/catalog"
	"github.com/atlas-pos/atlas-pos/internal/platform/httpx"
	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// CatalogPort answers whether a barcode already maps to a local product.
type CatalogPort interface {
	GetByBarcode(ctx context.Context, barcode string) (catalog.Product, error)
}

// Handler exposes barcode lookup for the sale screen.
type Handler struct {
	client  *Client
	catalog CatalogPort
}

// NewHandler builds Handler. catalog may be nil, in which case every lookup
// goes straight to the upstream provider.
func NewHandler(client *Client, cat CatalogPort) *Handler {
	return &Handler{client: client, catalog: cat}
}

// MountRoutes registers barcode routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{code}", h.lookup)
}

type lookupResponse struct {
	Source  string       `json:"source"`
	Product *ProductInfo `json:"product,omitempty"`
	Local   any          `json:"local,omitempty"`
}

// lookup resolves a scanned barcode, preferring the local catalog so a
// product already on file never costs an upstream round trip.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := ValidateCode(code); err != nil {
		httpx.RespondError(w, r, err)
		return
	}

	if h.catalog != nil {
		product, err := h.catalog.GetByBarcode(r.Context(), code)
		if err == nil {
			httpx.Data(w, http.StatusOK, lookupResponse{Source: "local", Local: product})
			return
		}
		if !errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, r, err)
			return
		}
	}

	info, err := h.client.Lookup(r.Context(), code)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Data(w, http.StatusOK, lookupResponse{Source: "openfoodfacts", Product: &info})
}
