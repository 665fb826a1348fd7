package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

const productColumns = `id, name, COALESCE(barcode, ''), COALESCE(category, ''), price, cost, wholesale_price, quantity, reorder_level, expiry_date, active, created_at, updated_at`

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Barcode, &p.Category, &p.Price, &p.Cost, &p.WholesalePrice, &p.Quantity, &p.ReorderLevel, &p.ExpiryDate, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Insert stores a new product and returns it with generated fields.
func (r *Repository) Insert(ctx context.Context, input CreateProductInput) (Product, error) {
	if r == nil {
		return Product{}, errors.New("catalog repository not initialised")
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO products (name, barcode, category, price, cost, wholesale_price, quantity, reorder_level, expiry_date, active, created_at, updated_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, $9, TRUE, NOW(), NOW())
RETURNING `+productColumns,
		input.Name, input.Barcode, input.Category, input.Price, input.Cost, input.WholesalePrice, input.Quantity, input.ReorderLevel, input.ExpiryDate)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapUniqueViolation(err, input.Barcode)
	}
	return p, nil
}

// GetByID fetches a single product regardless of active flag.
func (r *Repository) GetByID(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.NotFound("product", id)
		}
		return Product{}, err
	}
	return p, nil
}

// GetByBarcode fetches an active product by barcode.
func (r *Repository) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode=$1 AND active`, barcode)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.NotFound("product", barcode)
		}
		return Product{}, err
	}
	return p, nil
}

// List returns products matching the filter plus the total row count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	conds := []string{"TRUE"}
	args := []any{}
	if !filter.IncludeHidden {
		conds = append(conds, "active")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		idx := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR barcode ILIKE $%d)", idx, idx))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.LowStockBelow > 0 {
		args = append(args, filter.LowStockBelow)
		conds = append(conds, fmt.Sprintf("quantity <= $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Update rewrites the descriptive fields of a product.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products
SET name=$2, barcode=NULLIF($3, ''), category=NULLIF($4, ''), price=$5, cost=$6, wholesale_price=$7, reorder_level=$8, expiry_date=$9, updated_at=NOW()
WHERE id=$1
RETURNING `+productColumns,
		id, input.Name, input.Barcode, input.Category, input.Price, input.Cost, input.WholesalePrice, input.ReorderLevel, input.ExpiryDate)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.NotFound("product", id)
		}
		return Product{}, mapUniqueViolation(err, input.Barcode)
	}
	return p, nil
}

// SetActive toggles product visibility.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("product", id)
	}
	return nil
}

// Delete removes a product row outright.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("product", id)
	}
	return nil
}

// HasReferences reports whether sale lines, purchase lines or ledger entries
// point at the product.
func (r *Repository) HasReferences(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sale_lines WHERE product_id=$1)
OR EXISTS (SELECT 1 FROM purchase_lines WHERE product_id=$1)
OR EXISTS (SELECT 1 FROM stock_ledger WHERE product_id=$1)`, id).Scan(&referenced)
	return referenced, err
}

func mapUniqueViolation(err error, barcode string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.Conflict(fmt.Sprintf("barcode %s already in use", barcode))
	}
	return err
}
