package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atlas-pos/atlas-pos/internal/shared"
	"github.com/atlas-pos/atlas-pos/internal/stock"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByID(ctx context.Context, id int64) (Sale, error)
	GetByBillNumber(ctx context.Context, billNumber string) (Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, int, error)
	DailyReport(ctx context.Context, day time.Time) (DailyReport, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort observes sale outcomes. May be nil.
type MetricsPort interface {
	ObserveSale(outcome string, grandTotal float64)
	ObserveStockMovement(reason string)
}

// IdempotencyPort guards against duplicate checkout submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Delete(ctx context.Context, key string) error
}

// CachePort invalidates cached reports after a sale commits. May be nil.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service coordinates checkout and sale queries.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
	cache       CachePort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, metrics MetricsPort, cache CachePort) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, metrics: metrics, cache: cache}
}

// CreateSale runs a checkout: each requested line locks its product row,
// checks availability, decrements stock and appends a sale ledger entry, then
// the sale document is written. Everything commits atomically. The first
// violation aborts the whole transaction and nothing persists.
func (s *Service) CreateSale(ctx context.Context, input CreateSaleInput) (Sale, error) {
	if len(input.Lines) == 0 {
		return Sale{}, shared.InvalidInput("at least one line is required")
	}
	for i, line := range input.Lines {
		if line.ProductID <= 0 {
			return Sale{}, shared.InvalidInput(fmt.Sprintf("line %d: productId is required", i+1))
		}
		if line.Quantity <= 0 {
			return Sale{}, shared.InvalidInput(fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
	}
	if !input.PaymentMethod.Valid() {
		return Sale{}, shared.InvalidInput(fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}
	if input.Discount < 0 {
		return Sale{}, shared.InvalidInput("discount must not be negative")
	}
	if input.CashReceived < 0 {
		return Sale{}, shared.InvalidInput("cashReceived must not be negative")
	}

	billNumber := generateNumber("INV")

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "sales"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Sale{}, shared.Conflict("sale already submitted with this idempotency key")
			}
			return Sale{}, err
		}
		insertedKey = true
	}

	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		subtotal := 0.0
		lines := make([]SaleLine, 0, len(input.Lines))
		ledger := make([]stock.LedgerEntry, 0, len(input.Lines))
		for _, in := range input.Lines {
			product, err := tx.GetProductForUpdate(ctx, in.ProductID)
			if err != nil {
				return err
			}
			if !product.Active {
				return shared.InvalidInput(fmt.Sprintf("product %s is not sellable", product.Name))
			}
			if product.Quantity < in.Quantity {
				return shared.InsufficientStock(product.Name, product.Quantity, in.Quantity)
			}
			lineTotal := shared.Round2(product.Price * float64(in.Quantity))
			subtotal = shared.Round2(subtotal + lineTotal)
			newQty := product.Quantity - in.Quantity
			if err := tx.UpdateProductQuantity(ctx, product.ID, newQty); err != nil {
				return err
			}
			lines = append(lines, SaleLine{
				ProductID:   product.ID,
				ProductName: product.Name,
				Barcode:     product.Barcode,
				Quantity:    in.Quantity,
				UnitPrice:   product.Price,
				LineTotal:   lineTotal,
			})
			ledger = append(ledger, stock.LedgerEntry{
				ProductID:      product.ID,
				ProductName:    product.Name,
				Barcode:        product.Barcode,
				Delta:          -in.Quantity,
				QuantityBefore: product.Quantity,
				QuantityAfter:  newQty,
				Reason:         stock.ReasonSale,
				RefDoc:         billNumber,
				CostImpact:     shared.Round2(-float64(in.Quantity) * product.Cost),
				ActorID:        input.CashierID,
			})
		}

		if input.Discount > subtotal {
			return shared.InvalidInput("discount exceeds subtotal")
		}
		tax := 0.0
		total := shared.Round2(subtotal - input.Discount + tax)

		cashReceived := 0.0
		changeDue := 0.0
		if input.PaymentMethod == PaymentCash {
			if input.CashReceived < total {
				return shared.InvalidInput(fmt.Sprintf("cash received %.2f is less than total %.2f", input.CashReceived, total))
			}
			cashReceived = input.CashReceived
			changeDue = shared.Round2(input.CashReceived - total)
		}

		sale = Sale{
			BillNumber:      billNumber,
			Subtotal:        subtotal,
			DiscountPercent: 0,
			Discount:        input.Discount,
			TaxPercent:      0,
			Tax:             tax,
			Total:           total,
			PaymentMethod:   input.PaymentMethod,
			CashReceived:    cashReceived,
			ChangeDue:       changeDue,
			CustomerName:    strings.TrimSpace(input.CustomerName),
			Status:          StatusCompleted,
			CashierID:       input.CashierID,
			CreatedAt:       time.Now().UTC(),
		}
		saleID, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = saleID
		if err := tx.InsertSaleLines(ctx, saleID, lines); err != nil {
			return err
		}
		for i := range lines {
			lines[i].SaleID = saleID
		}
		sale.Lines = lines
		for _, e := range ledger {
			if _, err := tx.InsertLedgerEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		if s.metrics != nil {
			s.metrics.ObserveSale("rejected", 0)
		}
		return Sale{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveSale("completed", sale.Total)
		for range sale.Lines {
			s.metrics.ObserveStockMovement(string(stock.ReasonSale))
		}
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.CashierID,
			Action:   shared.AuditSaleCreated,
			Entity:   "sale",
			EntityID: sale.BillNumber,
			Meta: map[string]any{
				"total":   sale.Total,
				"payment": string(sale.PaymentMethod),
				"lines":   len(sale.Lines),
			},
		})
	}
	return sale, nil
}

// Get fetches a sale with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByBillNumber fetches a sale by its bill number.
func (s *Service) GetByBillNumber(ctx context.Context, billNumber string) (Sale, error) {
	billNumber = strings.TrimSpace(billNumber)
	if billNumber == "" {
		return Sale{}, shared.InvalidInput("bill number is required")
	}
	return s.repo.GetByBillNumber(ctx, billNumber)
}

// List returns sales with pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, shared.Pagination, error) {
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
