package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

type memoryRepo struct {
	nextID     int64
	products   map[int64]Product
	references map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, products: map[int64]Product{}, references: map[int64]bool{}}
}

func (m *memoryRepo) Insert(_ context.Context, input CreateProductInput) (Product, error) {
	if input.Barcode != "" {
		for _, p := range m.products {
			if p.Barcode == input.Barcode {
				return Product{}, shared.Conflict("barcode " + input.Barcode + " already in use")
			}
		}
	}
	p := Product{
		ID:             m.nextID,
		Name:           input.Name,
		Barcode:        input.Barcode,
		Category:       input.Category,
		Price:          input.Price,
		Cost:           input.Cost,
		WholesalePrice: input.WholesalePrice,
		Quantity:       input.Quantity,
		ReorderLevel:   input.ReorderLevel,
		ExpiryDate:     input.ExpiryDate,
		Active:         true,
	}
	m.products[p.ID] = p
	m.nextID++
	return p, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.NotFound("product", id)
	}
	return p, nil
}

func (m *memoryRepo) GetByBarcode(_ context.Context, barcode string) (Product, error) {
	for _, p := range m.products {
		if p.Barcode == barcode && p.Active {
			return p, nil
		}
	}
	return Product{}, shared.NotFound("product", barcode)
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Product, int, error) {
	out := []Product{}
	for _, p := range m.products {
		if !filter.IncludeHidden && !p.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.LowStockBelow > 0 && p.Quantity > filter.LowStockBelow {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, input UpdateProductInput) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.NotFound("product", id)
	}
	p.Name = input.Name
	p.Barcode = input.Barcode
	p.Category = input.Category
	p.Price = input.Price
	p.Cost = input.Cost
	p.WholesalePrice = input.WholesalePrice
	p.ReorderLevel = input.ReorderLevel
	p.ExpiryDate = input.ExpiryDate
	m.products[id] = p
	return p, nil
}

func (m *memoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return shared.NotFound("product", id)
	}
	p.Active = active
	m.products[id] = p
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return shared.NotFound("product", id)
	}
	delete(m.products, id)
	return nil
}

func (m *memoryRepo) HasReferences(_ context.Context, id int64) (bool, error) {
	return m.references[id], nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestCreateProduct(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit)

	product, err := svc.Create(context.Background(), CreateProductInput{
		Name:           "  Espresso Beans 1kg ",
		Barcode:        "8901234567890",
		Price:          18.50,
		Cost:           11.00,
		WholesalePrice: 15.00,
		Quantity:       40,
	})
	require.NoError(t, err)
	require.Equal(t, "Espresso Beans 1kg", product.Name)
	require.True(t, product.Active)
	require.EqualValues(t, 40, product.Quantity)
	require.InDelta(t, 15.00, product.WholesalePrice, 1e-9)
	require.EqualValues(t, 10, product.ReorderLevel)
	require.Len(t, audit.logs, 1)
	require.Equal(t, shared.AuditProductCreated, audit.logs[0].Action)
}

func TestCreateProductKeepsExplicitReorderLevel(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	product, err := svc.Create(context.Background(), CreateProductInput{
		Name:         "Milk 1L",
		Barcode:      "111",
		ReorderLevel: 3,
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, product.ReorderLevel)
}

func TestCreateProductRejectsInvalidInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateProductInput{Name: "   ", Barcode: "111"})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Create(context.Background(), CreateProductInput{Name: "Milk", Barcode: "  "})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Create(context.Background(), CreateProductInput{Name: "Milk", Barcode: "111", Price: -1})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Create(context.Background(), CreateProductInput{Name: "Milk", Barcode: "111", WholesalePrice: -1})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Create(context.Background(), CreateProductInput{Name: "Milk", Barcode: "111", Quantity: -5})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCreateProductDuplicateBarcode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateProductInput{Name: "Milk 1L", Barcode: "111"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateProductInput{Name: "Milk 2L", Barcode: "111"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteProductWithHistoryDeactivates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	product, err := svc.Create(context.Background(), CreateProductInput{Name: "Milk 1L", Barcode: "333"})
	require.NoError(t, err)
	repo.references[product.ID] = true

	deactivated, err := svc.Delete(context.Background(), product.ID)
	require.NoError(t, err)
	require.True(t, deactivated)

	stored, err := repo.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.False(t, stored.Active)

	_, err = svc.GetByBarcode(context.Background(), stored.Barcode)
	require.Error(t, err)
}

func TestDeleteProductWithoutHistoryRemovesRow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	product, err := svc.Create(context.Background(), CreateProductInput{Name: "Milk 1L", Barcode: "444"})
	require.NoError(t, err)

	deactivated, err := svc.Delete(context.Background(), product.ID)
	require.NoError(t, err)
	require.False(t, deactivated)

	_, err = repo.GetByID(context.Background(), product.ID)
	var appErr *shared.AppError
	require.True(t, errors.As(err, &appErr))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReactivateProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	product, err := svc.Create(context.Background(), CreateProductInput{Name: "Milk 1L", Barcode: "222"})
	require.NoError(t, err)
	repo.references[product.ID] = true

	_, err = svc.Delete(context.Background(), product.ID)
	require.NoError(t, err)

	restored, err := svc.Reactivate(context.Background(), product.ID)
	require.NoError(t, err)
	require.True(t, restored.Active)

	found, err := svc.GetByBarcode(context.Background(), "222")
	require.NoError(t, err)
	require.Equal(t, product.ID, found.ID)
}
