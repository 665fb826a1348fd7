package stock

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// memoryRepo implements RepositoryPort over maps. WithTx stages every write
// on a copy and publishes it only when the callback succeeds, so tests can
// observe rollback behaviour.
type memoryRepo struct {
	products  map[int64]ProductState
	expiry    map[int64]time.Time
	ledger    []LedgerEntry
	purchases []Purchase
	nextID    int64
}

func newMemoryRepo(products ...ProductState) *memoryRepo {
	repo := &memoryRepo{products: map[int64]ProductState{}, expiry: map[int64]time.Time{}, nextID: 1}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

type memoryTx struct {
	repo      *memoryRepo
	products  map[int64]ProductState
	ledger    []LedgerEntry
	purchases []Purchase
	nextID    int64
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: m, products: map[int64]ProductState{}, nextID: m.nextID}
	for id, p := range m.products {
		tx.products[id] = p
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.products = tx.products
	m.ledger = append(m.ledger, tx.ledger...)
	m.purchases = append(m.purchases, tx.purchases...)
	m.nextID = tx.nextID
	return nil
}

func (t *memoryTx) GetProductForUpdate(_ context.Context, productID int64) (ProductState, error) {
	p, ok := t.products[productID]
	if !ok {
		return ProductState{}, shared.NotFound("product", productID)
	}
	return p, nil
}

func (t *memoryTx) UpdateProductQuantity(_ context.Context, productID, quantity int64) error {
	p := t.products[productID]
	p.Quantity = quantity
	t.products[productID] = p
	return nil
}

func (t *memoryTx) UpdateProductCost(_ context.Context, productID int64, cost float64) error {
	p := t.products[productID]
	p.Cost = cost
	t.products[productID] = p
	return nil
}

func (t *memoryTx) InsertLedgerEntry(_ context.Context, entry LedgerEntry) (int64, error) {
	entry.ID = t.nextID
	t.nextID++
	t.ledger = append(t.ledger, entry)
	return entry.ID, nil
}

func (t *memoryTx) InsertPurchase(_ context.Context, purchase Purchase) (int64, error) {
	purchase.ID = t.nextID
	t.nextID++
	t.purchases = append(t.purchases, purchase)
	return purchase.ID, nil
}

func (t *memoryTx) InsertPurchaseLines(_ context.Context, purchaseID int64, lines []PurchaseLine) error {
	for i := range t.purchases {
		if t.purchases[i].ID == purchaseID {
			t.purchases[i].Lines = append(t.purchases[i].Lines, lines...)
		}
	}
	return nil
}

func (m *memoryRepo) ListLedger(_ context.Context, filter LedgerFilter) ([]LedgerEntry, int, error) {
	out := []LedgerEntry{}
	for _, e := range m.ledger {
		if filter.ProductID > 0 && e.ProductID != filter.ProductID {
			continue
		}
		if filter.Reason != "" && e.Reason != filter.Reason {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *memoryRepo) GetPurchase(_ context.Context, id int64) (Purchase, error) {
	for _, p := range m.purchases {
		if p.ID == id {
			return p, nil
		}
	}
	return Purchase{}, shared.NotFound("purchase", id)
}

func (m *memoryRepo) ListPurchases(_ context.Context, _ PurchaseFilter) ([]Purchase, int, error) {
	return m.purchases, len(m.purchases), nil
}

func (m *memoryRepo) LowStock(_ context.Context, threshold int64) ([]ProductState, error) {
	out := []ProductState{}
	for _, p := range m.products {
		if p.Active && p.Quantity <= threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) OutOfStock(_ context.Context) ([]ProductState, error) {
	out := []ProductState{}
	for _, p := range m.products {
		if p.Active && p.Quantity == 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) Expiring(_ context.Context, cutoff time.Time) ([]ExpiringProduct, error) {
	out := []ExpiringProduct{}
	for id, exp := range m.expiry {
		p := m.products[id]
		if p.Active && p.Quantity > 0 && !exp.After(cutoff) {
			out = append(out, ExpiringProduct{ID: p.ID, Name: p.Name, Barcode: p.Barcode, Quantity: p.Quantity, ExpiryDate: exp})
		}
	}
	return out, nil
}

func (m *memoryRepo) InventoryValue(_ context.Context) (InventoryValue, error) {
	v := InventoryValue{}
	for _, p := range m.products {
		if !p.Active {
			continue
		}
		v.Products++
		v.Units += p.Quantity
		v.TotalCost += float64(p.Quantity) * p.Cost
		v.TotalPrice += float64(p.Quantity) * p.Price
	}
	v.TotalCost = shared.Round2(v.TotalCost)
	v.TotalPrice = shared.Round2(v.TotalPrice)
	return v, nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: map[string]bool{}}
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, scope string) error {
	full := scope + ":" + key
	if m.keys[full] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[full] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	for full := range m.keys {
		if strings.HasSuffix(full, ":"+key) {
			delete(m.keys, full)
		}
	}
	return nil
}

func testProduct(id int64, name string, qty int64) ProductState {
	return ProductState{ID: id, Name: name, Barcode: "B" + name, Price: 10, Cost: 6, Quantity: qty, Active: true}
}

func TestAdjustIncreasesQuantityAndWritesLedger(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 10))
	svc := NewService(repo, nil, nil, nil)

	entry, err := svc.Adjust(context.Background(), AdjustInput{
		ProductID: 1,
		Delta:     5,
		Reason:    ReasonRestock,
		ActorID:   7,
	})
	require.NoError(t, err)
	require.EqualValues(t, 10, entry.QuantityBefore)
	require.EqualValues(t, 15, entry.QuantityAfter)
	require.InDelta(t, 30.0, entry.CostImpact, 1e-9)
	require.EqualValues(t, 15, repo.products[1].Quantity)
	require.Len(t, repo.ledger, 1)
	require.Equal(t, ReasonRestock, repo.ledger[0].Reason)
	require.Equal(t, "Milk", repo.ledger[0].ProductName)
}

func TestAdjustLedgerSnapshotsBeforeAndAfter(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 10))
	svc := NewService(repo, nil, nil, nil)

	entry, err := svc.Adjust(context.Background(), AdjustInput{
		ProductID: 1,
		Delta:     -4,
		Reason:    ReasonDamage,
	})
	require.NoError(t, err)
	require.EqualValues(t, 10, entry.QuantityBefore)
	require.EqualValues(t, 6, entry.QuantityAfter)
	require.Equal(t, entry.QuantityAfter, entry.QuantityBefore+entry.Delta)
	require.InDelta(t, -24.0, entry.CostImpact, 1e-9)
}

func TestAdjustBelowZeroRejectedAndNothingPersists(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 3))
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Adjust(context.Background(), AdjustInput{
		ProductID: 1,
		Delta:     -4,
		Reason:    ReasonDamage,
	})
	require.ErrorIs(t, err, shared.ErrInvalidAdjustment)
	require.EqualValues(t, 3, repo.products[1].Quantity)
	require.Empty(t, repo.ledger)
}

func TestAdjustToExactlyZeroAllowed(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 4))
	svc := NewService(repo, nil, nil, nil)

	entry, err := svc.Adjust(context.Background(), AdjustInput{
		ProductID: 1,
		Delta:     -4,
		Reason:    ReasonExpired,
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, entry.QuantityAfter)
}

func TestAdjustRejectsEngineOnlyReasons(t *testing.T) {
	svc := NewService(newMemoryRepo(testProduct(1, "Milk", 4)), nil, nil, nil)

	for _, reason := range []Reason{ReasonSale, ReasonPurchase, Reason("bogus"), ""} {
		_, err := svc.Adjust(context.Background(), AdjustInput{ProductID: 1, Delta: 1, Reason: reason})
		require.ErrorIs(t, err, shared.ErrInvalidInput, "reason %q", reason)
	}
}

func TestRecordPurchaseAddsStockAndUpdatesCost(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 10), testProduct(2, "Bread", 0))
	svc := NewService(repo, nil, nil, nil)

	purchase, err := svc.RecordPurchase(context.Background(), PurchaseInput{
		Supplier: "Acme Foods",
		Lines: []PurchaseLineInput{
			{ProductID: 1, Quantity: 20, UnitCost: 5.25},
			{ProductID: 2, Quantity: 30, UnitCost: 1.10},
		},
		ActorID: 7,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(purchase.InvoiceNumber, "PO-"))
	require.InDelta(t, 138.00, purchase.Subtotal, 1e-9)
	require.Zero(t, purchase.Tax)
	require.InDelta(t, 138.00, purchase.Total, 1e-9)
	require.Equal(t, PaymentPending, purchase.PaymentStatus)
	require.Equal(t, DeliveryDelivered, purchase.DeliveryStatus)
	require.NotNil(t, purchase.DeliveredDate)
	require.Len(t, purchase.Lines, 2)
	require.Equal(t, "BMilk", purchase.Lines[0].Barcode)

	require.EqualValues(t, 30, repo.products[1].Quantity)
	require.InDelta(t, 5.25, repo.products[1].Cost, 1e-9)
	require.EqualValues(t, 30, repo.products[2].Quantity)
	require.InDelta(t, 1.10, repo.products[2].Cost, 1e-9)

	require.Len(t, repo.ledger, 2)
	for _, e := range repo.ledger {
		require.Equal(t, ReasonPurchase, e.Reason)
		require.Equal(t, purchase.InvoiceNumber, e.RefDoc)
		require.Equal(t, e.QuantityAfter, e.QuantityBefore+e.Delta)
	}
	require.EqualValues(t, 10, repo.ledger[0].QuantityBefore)
	require.EqualValues(t, 30, repo.ledger[0].QuantityAfter)
	require.InDelta(t, 105.00, repo.ledger[0].CostImpact, 1e-9)
}

func TestRecordPurchaseUnknownProductRollsBackEverything(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 10))
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.RecordPurchase(context.Background(), PurchaseInput{
		Supplier: "Acme Foods",
		Lines: []PurchaseLineInput{
			{ProductID: 1, Quantity: 20, UnitCost: 5.25},
			{ProductID: 99, Quantity: 1, UnitCost: 1},
		},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.EqualValues(t, 10, repo.products[1].Quantity)
	require.InDelta(t, 6, repo.products[1].Cost, 1e-9)
	require.Empty(t, repo.ledger)
	require.Empty(t, repo.purchases)
}

func TestRecordPurchaseDuplicateIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 10))
	idem := newMemoryIdempotency()
	svc := NewService(repo, nil, idem, nil)

	input := PurchaseInput{
		Supplier:       "Acme Foods",
		Lines:          []PurchaseLineInput{{ProductID: 1, Quantity: 5, UnitCost: 2}},
		IdempotencyKey: "req-1",
	}
	_, err := svc.RecordPurchase(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.RecordPurchase(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.EqualValues(t, 15, repo.products[1].Quantity)
}

func TestRecordPurchaseFailureReleasesIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 10))
	idem := newMemoryIdempotency()
	svc := NewService(repo, nil, idem, nil)

	input := PurchaseInput{
		Supplier:       "Acme Foods",
		Lines:          []PurchaseLineInput{{ProductID: 99, Quantity: 5, UnitCost: 2}},
		IdempotencyKey: "req-2",
	}
	_, err := svc.RecordPurchase(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrNotFound)

	input.Lines[0].ProductID = 1
	_, err = svc.RecordPurchase(context.Background(), input)
	require.NoError(t, err)
}

func TestRecordPurchaseValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	_, err := svc.RecordPurchase(context.Background(), PurchaseInput{Supplier: " "})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.RecordPurchase(context.Background(), PurchaseInput{Supplier: "Acme", Lines: []PurchaseLineInput{}})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.RecordPurchase(context.Background(), PurchaseInput{
		Supplier: "Acme",
		Lines:    []PurchaseLineInput{{ProductID: 1, Quantity: 0, UnitCost: 1}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.RecordPurchase(context.Background(), PurchaseInput{
		Supplier: "Acme",
		Lines:    []PurchaseLineInput{{ProductID: 1, Quantity: 1, UnitCost: -1}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.RecordPurchase(context.Background(), PurchaseInput{
		Supplier: "Acme",
		Lines:    []PurchaseLineInput{{ProductID: 1, Quantity: 1, UnitCost: 0}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.RecordPurchase(context.Background(), PurchaseInput{
		Supplier:      "Acme",
		Lines:         []PurchaseLineInput{{ProductID: 1, Quantity: 1, UnitCost: 1}},
		PaymentStatus: PaymentStatus("settled"),
	})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestLowStock(t *testing.T) {
	inactive := testProduct(3, "Old", 1)
	inactive.Active = false
	repo := newMemoryRepo(testProduct(1, "Milk", 2), testProduct(2, "Bread", 50), inactive)
	svc := NewService(repo, nil, nil, nil)

	products, err := svc.LowStock(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "Milk", products[0].Name)

	_, err = svc.LowStock(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestOutOfStock(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 0), testProduct(2, "Bread", 5))
	svc := NewService(repo, nil, nil, nil)

	products, err := svc.OutOfStock(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "Milk", products[0].Name)
}

func TestExpiring(t *testing.T) {
	repo := newMemoryRepo(testProduct(1, "Milk", 5), testProduct(2, "Rice", 5))
	repo.expiry[1] = time.Now().UTC().AddDate(0, 0, 3)
	repo.expiry[2] = time.Now().UTC().AddDate(0, 0, 90)
	svc := NewService(repo, nil, nil, nil)

	products, err := svc.Expiring(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "Milk", products[0].Name)

	_, err = svc.Expiring(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestInventoryValue(t *testing.T) {
	inactive := testProduct(3, "Old", 10)
	inactive.Active = false
	repo := newMemoryRepo(testProduct(1, "Milk", 2), testProduct(2, "Bread", 3), inactive)
	svc := NewService(repo, nil, nil, nil)

	value, err := svc.InventoryValue(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, value.Products)
	require.EqualValues(t, 5, value.Units)
	require.InDelta(t, 30.0, value.TotalCost, 1e-9)
	require.InDelta(t, 50.0, value.TotalPrice, 1e-9)
}
