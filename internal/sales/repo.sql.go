package sales

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
	"github.com/atlas-pos/atlas-pos/internal/stock"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a checkout
// transaction. Product and ledger writes share the transaction with the sale
// document so a failed line aborts everything.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (stock.ProductState, error)
	UpdateProductQuantity(ctx context.Context, productID, quantity int64) error
	InsertLedgerEntry(ctx context.Context, entry stock.LedgerEntry) (int64, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleLines(ctx context.Context, saleID int64, lines []SaleLine) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
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

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (stock.ProductState, error) {
	var p stock.ProductState
	err := r.tx.QueryRow(ctx, `SELECT id, name, COALESCE(barcode, ''), price, cost, quantity, active
FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &p.Barcode, &p.Price, &p.Cost, &p.Quantity, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stock.ProductState{}, shared.NotFound("product", productID)
		}
		return stock.ProductState{}, err
	}
	return p, nil
}

func (r *txRepository) UpdateProductQuantity(ctx context.Context, productID, quantity int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET quantity=$2, updated_at=NOW() WHERE id=$1`, productID, quantity)
	return err
}

func (r *txRepository) InsertLedgerEntry(ctx context.Context, entry stock.LedgerEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_ledger (product_id, product_name, barcode, delta, quantity_before, quantity_after, reason, ref_doc, note, cost_impact, actor_id, created_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),$10,$11,NOW()) RETURNING id`,
		entry.ProductID, entry.ProductName, entry.Barcode, entry.Delta, entry.QuantityBefore, entry.QuantityAfter,
		string(entry.Reason), entry.RefDoc, entry.Note, entry.CostImpact, nullInt(entry.ActorID)).Scan(&id)
	return id, err
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (bill_number, subtotal, discount_percent, discount, tax_percent, tax, total, payment_method, cash_received, change_due, customer_name, status, cashier_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULLIF($11,''),$12,$13,NOW()) RETURNING id`,
		sale.BillNumber, sale.Subtotal, sale.DiscountPercent, sale.Discount, sale.TaxPercent, sale.Tax, sale.Total,
		string(sale.PaymentMethod), sale.CashReceived, sale.ChangeDue, sale.CustomerName, string(sale.Status), nullInt(sale.CashierID)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.Conflict(fmt.Sprintf("bill number %s already recorded", sale.BillNumber))
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertSaleLines(ctx context.Context, saleID int64, lines []SaleLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sale_lines (sale_id, product_id, product_name, barcode, quantity, unit_price, line_total)
VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7)`,
			saleID, line.ProductID, line.ProductName, line.Barcode, line.Quantity, line.UnitPrice, line.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

const saleColumns = `id, bill_number, subtotal, discount_percent, discount, tax_percent, tax, total, payment_method, cash_received, change_due, COALESCE(customer_name, ''), status, COALESCE(cashier_id, 0), created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var payment, status string
	err := row.Scan(&s.ID, &s.BillNumber, &s.Subtotal, &s.DiscountPercent, &s.Discount, &s.TaxPercent, &s.Tax, &s.Total, &payment,
		&s.CashReceived, &s.ChangeDue, &s.CustomerName, &status, &s.CashierID, &s.CreatedAt)
	s.PaymentMethod = PaymentMethod(payment)
	s.Status = SaleStatus(status)
	return s, err
}

// GetByID fetches a sale with its lines.
func (r *Repository) GetByID(ctx context.Context, id int64) (Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.NotFound("sale", id)
		}
		return Sale{}, err
	}
	if sale.Lines, err = r.saleLines(ctx, sale.ID); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// GetByBillNumber fetches a sale with its lines by bill number.
func (r *Repository) GetByBillNumber(ctx context.Context, billNumber string) (Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE bill_number=$1`, billNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.NotFound("sale", billNumber)
		}
		return Sale{}, err
	}
	if sale.Lines, err = r.saleLines(ctx, sale.ID); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func (r *Repository) saleLines(ctx context.Context, saleID int64) ([]SaleLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, product_name, COALESCE(barcode, ''), quantity, unit_price, line_total
FROM sale_lines WHERE sale_id=$1 ORDER BY id ASC`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []SaleLine{}
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ID, &line.SaleID, &line.ProductID, &line.ProductName, &line.Barcode, &line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// List returns sale headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	conds := []string{"TRUE"}
	args := []any{}
	if filter.BillNumber != "" {
		args = append(args, "%"+filter.BillNumber+"%")
		conds = append(conds, fmt.Sprintf("bill_number ILIKE $%d", len(args)))
	}
	if filter.CashierID > 0 {
		args = append(args, filter.CashierID)
		conds = append(conds, fmt.Sprintf("cashier_id=$%d", len(args)))
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM sales WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		saleColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	sales := []Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// DailyReport aggregates sales for one calendar day. Reads run in a single
// repeatable-read transaction so the numbers are mutually consistent.
func (r *Repository) DailyReport(ctx context.Context, day time.Time) (DailyReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	report := DailyReport{Date: start.Format("2006-01-02"), ByPayment: map[string]float64{}}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return DailyReport{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(subtotal), 0), COALESCE(SUM(discount), 0), COALESCE(SUM(total), 0),
COALESCE(MIN(total), 0), COALESCE(MAX(total), 0), COALESCE(AVG(total), 0)
FROM sales WHERE created_at >= $1 AND created_at < $2`, start, end).
		Scan(&report.SaleCount, &report.GrossSales, &report.DiscountTotal, &report.NetSales,
			&report.MinBill, &report.MaxBill, &report.AverageBill)
	if err != nil {
		return DailyReport{}, err
	}
	report.AverageBill = shared.Round2(report.AverageBill)

	err = tx.QueryRow(ctx, `SELECT COALESCE(SUM(l.quantity), 0)
FROM sale_lines l JOIN sales s ON s.id = l.sale_id
WHERE s.created_at >= $1 AND s.created_at < $2`, start, end).Scan(&report.ItemsSold)
	if err != nil {
		return DailyReport{}, err
	}

	rows, err := tx.Query(ctx, `SELECT payment_method, COALESCE(SUM(total), 0)
FROM sales WHERE created_at >= $1 AND created_at < $2 GROUP BY payment_method`, start, end)
	if err != nil {
		return DailyReport{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var amount float64
		if err := rows.Scan(&method, &amount); err != nil {
			return DailyReport{}, err
		}
		report.ByPayment[method] = amount
	}
	if err := rows.Err(); err != nil {
		return DailyReport{}, err
	}
	return report, tx.Commit(ctx)
}

// TopProducts ranks products by quantity sold within the window.
func (r *Repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `SELECT l.product_id, l.product_name, COALESCE(l.barcode, ''), SUM(l.quantity) AS qty, SUM(l.line_total) AS revenue, AVG(l.unit_price) AS avg_price
FROM sale_lines l JOIN sales s ON s.id = l.sale_id
WHERE s.created_at >= $1 AND s.created_at < $2
GROUP BY l.product_id, l.product_name, l.barcode
ORDER BY qty DESC, revenue DESC
LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []TopProduct{}
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Barcode, &p.QuantitySold, &p.Revenue, &p.AveragePrice); err != nil {
			return nil, err
		}
		p.AveragePrice = shared.Round2(p.AveragePrice)
		products = append(products, p)
	}
	return products, rows.Err()
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
