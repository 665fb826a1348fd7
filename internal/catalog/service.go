package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// RepositoryPort abstracts product persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, input CreateProductInput) (Product, error)
	GetByID(ctx context.Context, id int64) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	HasReferences(ctx context.Context, id int64) (bool, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// defaultReorderLevel is applied when a new product does not name its own
// restock threshold.
const defaultReorderLevel = 10

// Service coordinates catalog operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Barcode = strings.TrimSpace(input.Barcode)
	if input.Name == "" {
		return Product{}, shared.InvalidInput("product name is required")
	}
	if input.Barcode == "" {
		return Product{}, shared.InvalidInput("barcode is required")
	}
	if input.Price < 0 || input.Cost < 0 || input.WholesalePrice < 0 {
		return Product{}, shared.InvalidInput("price, cost and wholesale price must not be negative")
	}
	if input.Quantity < 0 {
		return Product{}, shared.InvalidInput("initial quantity must not be negative")
	}
	if input.ReorderLevel == 0 {
		input.ReorderLevel = defaultReorderLevel
	}
	if input.ReorderLevel < 0 {
		return Product{}, shared.InvalidInput("reorder level must not be negative")
	}
	product, err := s.repo.Insert(ctx, input)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, shared.AuditProductCreated, product.ID, map[string]any{
		"name":    product.Name,
		"barcode": product.Barcode,
	})
	return product, nil
}

// Get fetches a product by ID.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByBarcode fetches an active product by barcode, for the sale screen.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, shared.InvalidInput("barcode is required")
	}
	return s.repo.GetByBarcode(ctx, barcode)
}

// List returns products with pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, shared.Pagination, error) {
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return products, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Update rewrites the descriptive fields of an existing product.
func (s *Service) Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Barcode = strings.TrimSpace(input.Barcode)
	if input.Name == "" {
		return Product{}, shared.InvalidInput("product name is required")
	}
	if input.Barcode == "" {
		return Product{}, shared.InvalidInput("barcode is required")
	}
	if input.Price < 0 || input.Cost < 0 || input.WholesalePrice < 0 {
		return Product{}, shared.InvalidInput("price, cost and wholesale price must not be negative")
	}
	if input.ReorderLevel < 0 {
		return Product{}, shared.InvalidInput("reorder level must not be negative")
	}
	product, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, shared.AuditProductUpdated, product.ID, map[string]any{"name": product.Name})
	return product, nil
}

// Delete removes a product. Products referenced by sales, purchases or the
// ledger are deactivated instead so history stays intact.
func (s *Service) Delete(ctx context.Context, id int64) (deactivated bool, err error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return false, err
	}
	referenced, err := s.repo.HasReferences(ctx, id)
	if err != nil {
		return false, err
	}
	if referenced {
		if err := s.repo.SetActive(ctx, id, false); err != nil {
			return false, err
		}
		s.record(ctx, shared.AuditProductDeleted, id, map[string]any{"deactivated": true})
		return true, nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	s.record(ctx, shared.AuditProductDeleted, id, nil)
	return false, nil
}

// Reactivate makes a deactivated product sellable again.
func (s *Service) Reactivate(ctx context.Context, id int64) (Product, error) {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return Product{}, err
	}
	s.record(ctx, shared.AuditProductReactivate, id, nil)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) record(ctx context.Context, action string, productID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(productID, 10),
		Meta:     meta,
	})
}
