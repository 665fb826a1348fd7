package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// Repository persists stock movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a stock transaction.
// Every write path locks the product row first, so concurrent movements on
// the same product serialize.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error)
	UpdateProductQuantity(ctx context.Context, productID, quantity int64) error
	UpdateProductCost(ctx context.Context, productID int64, cost float64) error
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error)
	InsertPurchase(ctx context.Context, purchase Purchase) (int64, error)
	InsertPurchaseLines(ctx context.Context, purchaseID int64, lines []PurchaseLine) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a transaction. The product row locks
// taken via GetProductForUpdate hold until commit or rollback.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error) {
	var p ProductState
	err := r.tx.QueryRow(ctx, `SELECT id, name, COALESCE(barcode, ''), price, cost, quantity, active
FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.Cost, &p.Quantity, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductState{}, shared.NotFound("product", productID)
		}
		return ProductState{}, err
	}
	return p, nil
}

func (r *txRepository) UpdateProductQuantity(ctx context.Context, productID, quantity int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET quantity=$2, updated_at=NOW() WHERE id=$1`, productID, quantity)
	return err
}

func (r *txRepository) UpdateProductCost(ctx context.Context, productID int64, cost float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET cost=$2, updated_at=NOW() WHERE id=$1`, productID, cost)
	return err
}

func (r *txRepository) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_ledger (product_id, product_name, barcode, delta, quantity_before, quantity_after, reason, ref_doc, note, cost_impact, actor_id, created_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),$10,$11,NOW()) RETURNING id`,
		entry.ProductID, entry.ProductName, entry.Barcode, entry.Delta, entry.QuantityBefore, entry.QuantityAfter,
		string(entry.Reason), entry.RefDoc, entry.Note, entry.CostImpact, nullInt(entry.ActorID)).Scan(&id)
	return id, err
}

func (r *txRepository) InsertPurchase(ctx context.Context, purchase Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchases (invoice_number, supplier, note, subtotal, tax, total, payment_status, delivery_status, expected_delivery, delivered_date, created_by, created_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11,NOW()) RETURNING id`,
		purchase.InvoiceNumber, purchase.Supplier, purchase.Note, purchase.Subtotal, purchase.Tax, purchase.Total,
		string(purchase.PaymentStatus), string(purchase.DeliveryStatus), purchase.ExpectedDelivery, purchase.DeliveredDate,
		nullInt(purchase.CreatedBy)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.Conflict(fmt.Sprintf("invoice number %s already recorded", purchase.InvoiceNumber))
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertPurchaseLines(ctx context.Context, purchaseID int64, lines []PurchaseLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO purchase_lines (purchase_id, product_id, product_name, barcode, quantity, unit_cost, line_total)
VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7)`, purchaseID, line.ProductID, line.ProductName, line.Barcode, line.Quantity, line.UnitCost, line.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

// ListLedger returns ledger entries matching the filter, newest first, plus
// the total row count.
func (r *Repository) ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, int, error) {
	conds := []string{"TRUE"}
	args := []any{}
	if filter.ProductID > 0 {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("product_id=$%d", len(args)))
	}
	if filter.Reason != "" {
		args = append(args, string(filter.Reason))
		conds = append(conds, fmt.Sprintf("reason=$%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_ledger WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT id, product_id, product_name, COALESCE(barcode, ''), delta, quantity_before, quantity_after, reason, COALESCE(ref_doc, ''), COALESCE(note, ''), cost_impact, COALESCE(actor_id, 0), created_at
FROM stock_ledger WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	entries := []LedgerEntry{}
	for rows.Next() {
		var e LedgerEntry
		var reason string
		if err := rows.Scan(&e.ID, &e.ProductID, &e.ProductName, &e.Barcode, &e.Delta, &e.QuantityBefore, &e.QuantityAfter, &reason, &e.RefDoc, &e.Note, &e.CostImpact, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Reason = Reason(reason)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

const purchaseColumns = `id, invoice_number, supplier, COALESCE(note, ''), subtotal, tax, total, payment_status, delivery_status, expected_delivery, delivered_date, COALESCE(created_by, 0), created_at`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	var payment, delivery string
	err := row.Scan(&p.ID, &p.InvoiceNumber, &p.Supplier, &p.Note, &p.Subtotal, &p.Tax, &p.Total,
		&payment, &delivery, &p.ExpectedDelivery, &p.DeliveredDate, &p.CreatedBy, &p.CreatedAt)
	p.PaymentStatus = PaymentStatus(payment)
	p.DeliveryStatus = DeliveryStatus(delivery)
	return p, err
}

// GetPurchase fetches one purchase with its lines.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, shared.NotFound("purchase", id)
		}
		return Purchase{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_id, product_id, product_name, COALESCE(barcode, ''), quantity, unit_cost, line_total
FROM purchase_lines WHERE purchase_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Purchase{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line PurchaseLine
		if err := rows.Scan(&line.ID, &line.PurchaseID, &line.ProductID, &line.ProductName, &line.Barcode, &line.Quantity, &line.UnitCost, &line.LineTotal); err != nil {
			return Purchase{}, err
		}
		p.Lines = append(p.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// ListPurchases returns purchase headers matching the filter, newest first.
func (r *Repository) ListPurchases(ctx context.Context, filter PurchaseFilter) ([]Purchase, int, error) {
	conds := []string{"TRUE"}
	args := []any{}
	if filter.Supplier != "" {
		args = append(args, "%"+filter.Supplier+"%")
		conds = append(conds, fmt.Sprintf("supplier ILIKE $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM purchases WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		purchaseColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	purchases := []Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}

// LowStock lists active products at or below the threshold.
func (r *Repository) LowStock(ctx context.Context, threshold int64) ([]ProductState, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(barcode, ''), price, cost, quantity, active
FROM products WHERE active AND quantity <= $1 ORDER BY quantity ASC, name ASC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []ProductState{}
	for rows.Next() {
		var p ProductState
		if err := rows.Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.Cost, &p.Quantity, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// OutOfStock lists active products with zero quantity.
func (r *Repository) OutOfStock(ctx context.Context) ([]ProductState, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(barcode, ''), price, cost, quantity, active
FROM products WHERE active AND quantity = 0 ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []ProductState{}
	for rows.Next() {
		var p ProductState
		if err := rows.Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.Cost, &p.Quantity, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// Expiring lists active products with stock whose expiry date is on or before
// the cutoff.
func (r *Repository) Expiring(ctx context.Context, cutoff time.Time) ([]ExpiringProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(barcode, ''), quantity, expiry_date
FROM products WHERE active AND quantity > 0 AND expiry_date IS NOT NULL AND expiry_date <= $1
ORDER BY expiry_date ASC, name ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []ExpiringProduct{}
	for rows.Next() {
		var p ExpiringProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Barcode, &p.Quantity, &p.ExpiryDate); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// InventoryValue sums the stock holding of active products.
func (r *Repository) InventoryValue(ctx context.Context) (InventoryValue, error) {
	var v InventoryValue
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(quantity), 0),
COALESCE(SUM(quantity * cost), 0), COALESCE(SUM(quantity * price), 0)
FROM products WHERE active`).
		Scan(&v.Products, &v.Units, &v.TotalCost, &v.TotalPrice)
	if err != nil {
		return InventoryValue{}, err
	}
	v.TotalCost = shared.Round2(v.TotalCost)
	v.TotalPrice = shared.Round2(v.TotalPrice)
	return v, nil
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
