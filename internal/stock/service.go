package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, int, error)
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	ListPurchases(ctx context.Context, filter PurchaseFilter) ([]Purchase, int, error)
	LowStock(ctx context.Context, threshold int64) ([]ProductState, error)
	OutOfStock(ctx context.Context) ([]ProductState, error)
	Expiring(ctx context.Context, cutoff time.Time) ([]ExpiringProduct, error)
	InventoryValue(ctx context.Context) (InventoryValue, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts ledger movements. May be nil.
type MetricsPort interface {
	ObserveStockMovement(reason string)
}

// IdempotencyPort guards against duplicate purchase submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Delete(ctx context.Context, key string) error
}

// Service coordinates stock movements.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, metrics: metrics}
}

// Adjust applies a manual quantity change to one product. The product row is
// locked, the new quantity checked against zero, and the ledger entry written
// in the same transaction.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (LedgerEntry, error) {
	if input.ProductID <= 0 {
		return LedgerEntry{}, shared.InvalidInput("productId is required")
	}
	if input.Delta == 0 {
		return LedgerEntry{}, shared.InvalidInput("delta must not be zero")
	}
	if !adjustmentReasons[input.Reason] {
		return LedgerEntry{}, shared.InvalidInput(fmt.Sprintf("reason %q is not valid for an adjustment", input.Reason))
	}

	var entry LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		newQty := product.Quantity + input.Delta
		if newQty < 0 {
			return shared.InvalidAdjustment(product.Name, product.Quantity, input.Delta)
		}
		if err := tx.UpdateProductQuantity(ctx, product.ID, newQty); err != nil {
			return err
		}
		entry = LedgerEntry{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Barcode:        product.Barcode,
			Delta:          input.Delta,
			QuantityBefore: product.Quantity,
			QuantityAfter:  newQty,
			Reason:         input.Reason,
			Note:           input.Note,
			CostImpact:     shared.Round2(float64(input.Delta) * product.Cost),
			ActorID:        input.ActorID,
			CreatedAt:      time.Now().UTC(),
		}
		id, err := tx.InsertLedgerEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveStockMovement(string(input.Reason))
	}
	s.recordAudit(ctx, shared.AuditStockAdjusted, input.ActorID, strconv.FormatInt(input.ProductID, 10), map[string]any{
		"delta":  input.Delta,
		"reason": string(input.Reason),
	})
	return entry, nil
}

// RecordPurchase receives supplier goods: every line locks its product, adds
// the received quantity, updates the product cost to the invoice cost and
// appends a ledger entry. The purchase document and all movements commit
// together or not at all.
func (s *Service) RecordPurchase(ctx context.Context, input PurchaseInput) (Purchase, error) {
	input.Supplier = strings.TrimSpace(input.Supplier)
	if input.Supplier == "" {
		return Purchase{}, shared.InvalidInput("supplier is required")
	}
	if len(input.Lines) == 0 {
		return Purchase{}, shared.InvalidInput("at least one line is required")
	}
	for i, line := range input.Lines {
		if line.ProductID <= 0 {
			return Purchase{}, shared.InvalidInput(fmt.Sprintf("line %d: productId is required", i+1))
		}
		if line.Quantity <= 0 {
			return Purchase{}, shared.InvalidInput(fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
		if line.UnitCost <= 0 {
			return Purchase{}, shared.InvalidInput(fmt.Sprintf("line %d: unitCost must be positive", i+1))
		}
	}
	paymentStatus := input.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = PaymentPending
	}
	if !paymentStatus.Valid() {
		return Purchase{}, shared.InvalidInput(fmt.Sprintf("unknown payment status %q", paymentStatus))
	}

	invoiceNumber := strings.TrimSpace(input.InvoiceNumber)
	if invoiceNumber == "" {
		invoiceNumber = generateNumber("PO")
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "purchases"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Purchase{}, shared.Conflict("purchase already submitted with this idempotency key")
			}
			return Purchase{}, err
		}
		insertedKey = true
	}

	var purchase Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		total := 0.0
		lines := make([]PurchaseLine, 0, len(input.Lines))
		ledger := make([]LedgerEntry, 0, len(input.Lines))
		for _, in := range input.Lines {
			product, err := tx.GetProductForUpdate(ctx, in.ProductID)
			if err != nil {
				return err
			}
			newQty := product.Quantity + in.Quantity
			if err := tx.UpdateProductQuantity(ctx, product.ID, newQty); err != nil {
				return err
			}
			if err := tx.UpdateProductCost(ctx, product.ID, in.UnitCost); err != nil {
				return err
			}
			lineTotal := shared.Round2(in.UnitCost * float64(in.Quantity))
			total = shared.Round2(total + lineTotal)
			lines = append(lines, PurchaseLine{
				ProductID:   product.ID,
				ProductName: product.Name,
				Barcode:     product.Barcode,
				Quantity:    in.Quantity,
				UnitCost:    in.UnitCost,
				LineTotal:   lineTotal,
			})
			ledger = append(ledger, LedgerEntry{
				ProductID:      product.ID,
				ProductName:    product.Name,
				Barcode:        product.Barcode,
				Delta:          in.Quantity,
				QuantityBefore: product.Quantity,
				QuantityAfter:  newQty,
				Reason:         ReasonPurchase,
				RefDoc:         invoiceNumber,
				CostImpact:     lineTotal,
				ActorID:        input.ActorID,
			})
		}
		now := time.Now().UTC()
		purchase = Purchase{
			InvoiceNumber:    invoiceNumber,
			Supplier:         input.Supplier,
			Note:             input.Note,
			Subtotal:         total,
			Tax:              0,
			Total:            total,
			PaymentStatus:    paymentStatus,
			DeliveryStatus:   DeliveryDelivered,
			ExpectedDelivery: input.ExpectedDelivery,
			DeliveredDate:    &now,
			CreatedBy:        input.ActorID,
			CreatedAt:        now,
		}
		id, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = id
		if err := tx.InsertPurchaseLines(ctx, id, lines); err != nil {
			return err
		}
		for i := range lines {
			lines[i].PurchaseID = id
		}
		purchase.Lines = lines
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
		return Purchase{}, err
	}
	if s.metrics != nil {
		for range purchase.Lines {
			s.metrics.ObserveStockMovement(string(ReasonPurchase))
		}
	}
	s.recordAudit(ctx, shared.AuditPurchaseRecorded, input.ActorID, purchase.InvoiceNumber, map[string]any{
		"supplier": purchase.Supplier,
		"total":    purchase.Total,
		"lines":    len(purchase.Lines),
	})
	return purchase, nil
}

// Ledger lists movements with pagination metadata.
func (s *Service) Ledger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, shared.Pagination, error) {
	if filter.Reason != "" && !filter.Reason.Valid() {
		return nil, shared.Pagination{}, shared.InvalidInput(fmt.Sprintf("unknown reason %q", filter.Reason))
	}
	entries, total, err := s.repo.ListLedger(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// GetPurchase fetches a purchase with lines.
func (s *Service) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// ListPurchases lists purchase headers with pagination metadata.
func (s *Service) ListPurchases(ctx context.Context, filter PurchaseFilter) ([]Purchase, shared.Pagination, error) {
	purchases, total, err := s.repo.ListPurchases(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return purchases, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// LowStock lists active products at or below the threshold.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]ProductState, error) {
	if threshold <= 0 {
		return nil, shared.InvalidInput("threshold must be positive")
	}
	return s.repo.LowStock(ctx, threshold)
}

// OutOfStock lists active products that sold out.
func (s *Service) OutOfStock(ctx context.Context) ([]ProductState, error) {
	return s.repo.OutOfStock(ctx)
}

// Expiring lists stocked products expiring within the given number of days.
func (s *Service) Expiring(ctx context.Context, days int) ([]ExpiringProduct, error) {
	if days <= 0 {
		return nil, shared.InvalidInput("days must be positive")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, days)
	return s.repo.Expiring(ctx, cutoff)
}

// InventoryValue sums the active stock holding at cost and at selling price.
func (s *Service) InventoryValue(ctx context.Context) (InventoryValue, error) {
	return s.repo.InventoryValue(ctx)
}

func (s *Service) recordAudit(ctx context.Context, action string, actorID int64, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock",
		EntityID: entityID,
		Meta:     meta,
	})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
