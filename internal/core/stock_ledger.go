package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type stockLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStockLedger constructs the PostgreSQL-backed stock ledger.
func NewStockLedger(pool *pgxpool.Pool, logger *zap.Logger) StockLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &stockLedger{pool: pool, logger: logger}
}

const stockColumns = `id, order_number, vendor_code, item_code, product_id, product_name, company_name,
	specification, barcode, rate, sale_rate, expire_date, total_qty, sale_qty, sale_return_qty,
	stock_return_qty, available_qty, updated_at`

func scanStockEntry(row pgx.Row) (*StockEntry, error) {
	e := &StockEntry{}
	err := row.Scan(
		&e.ID, &e.OrderNumber, &e.VendorCode, &e.ItemCode, &e.ProductID, &e.ProductName, &e.CompanyName,
		&e.Specification, &e.Barcode, &e.Rate, &e.SaleRate, &e.ExpireDate, &e.TotalQty, &e.SaleQty,
		&e.SaleReturnQty, &e.StockReturnQty, &e.AvailableQty, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (l *stockLedger) ReceiveTx(ctx context.Context, tx pgx.Tx, in NewStockEntry) (*StockEntry, error) {
	if in.Qty <= 0 {
		return nil, validationf("receive quantity must be positive for barcode %s, got %d", in.Barcode, in.Qty)
	}

	e, err := scanStockEntry(tx.QueryRow(ctx, `
		INSERT INTO item_stock (order_number, vendor_code, item_code, product_id, product_name, company_name,
		                        specification, barcode, rate, sale_rate, expire_date,
		                        total_qty, sale_qty, sale_return_qty, stock_return_qty, available_qty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, 0, 0, $12)
		RETURNING `+stockColumns,
		in.OrderNumber, in.VendorCode, in.Product.ItemCode, in.Product.ID, in.Product.ProductName,
		in.Product.CompanyName, in.Product.Specification, in.Barcode, in.Rate, in.SaleRate, in.ExpireDate,
		in.Qty,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicatef("barcode %s already exists", in.Barcode)
		}
		return nil, fmt.Errorf("failed to create stock entry for barcode %s: %w", in.Barcode, err)
	}
	return e, nil
}

// lockOrder returns the distinct non-blank barcodes in the order LockTx locks them.
func lockOrder(barcodes []string) []string {
	out := make([]string, 0, len(barcodes))
	for _, b := range barcodes {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (l *stockLedger) LockTx(ctx context.Context, tx pgx.Tx, barcodes []string) error {
	ordered := lockOrder(barcodes)
	if len(ordered) == 0 {
		return nil
	}

	rows, err := tx.Query(ctx, `
		SELECT id FROM item_stock
		WHERE barcode = ANY($1)
		ORDER BY barcode
		FOR UPDATE
	`, ordered)
	if err != nil {
		return classifyPgError(err, "failed to lock stock entries")
	}
	for rows.Next() {
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return classifyPgError(err, "failed to lock stock entries")
	}
	return nil
}

func (l *stockLedger) CommitSaleTx(ctx context.Context, tx pgx.Tx, barcode, itemCode string, qty int) (*StockEntry, error) {
	if qty <= 0 {
		return nil, validationf("sale quantity must be positive for barcode %s, got %d", barcode, qty)
	}

	// Row lock turns the availability check and the increment into one unit per barcode.
	var id, available int
	err := tx.QueryRow(ctx, `
		SELECT id, available_qty
		FROM item_stock
		WHERE barcode = $1 AND ($2 = '' OR LOWER(item_code) = LOWER($2))
		FOR UPDATE
	`, barcode, strings.TrimSpace(itemCode)).Scan(&id, &available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("no stock entry for barcode %s and item code %s", barcode, itemCode)
		}
		return nil, classifyPgError(err, "failed to lock stock entry "+barcode)
	}

	if qty > available {
		return nil, newError(KindInsufficientStock,
			"insufficient stock for barcode %s: available %d, requested %d", barcode, available, qty)
	}

	e, err := scanStockEntry(tx.QueryRow(ctx, `
		UPDATE item_stock
		SET sale_qty = sale_qty + $1,
		    available_qty = total_qty - (sale_qty + $1) + sale_return_qty - stock_return_qty,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING `+stockColumns,
		qty, id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to record sale for barcode %s: %w", barcode, err)
	}
	return e, nil
}

func (l *stockLedger) CommitSaleReturnTx(ctx context.Context, tx pgx.Tx, barcode string, qty int) (*StockEntry, error) {
	if qty <= 0 {
		return nil, validationf("return quantity must be positive for barcode %s, got %d", barcode, qty)
	}

	var id, sold, returned int
	err := tx.QueryRow(ctx, `
		SELECT id, sale_qty, sale_return_qty
		FROM item_stock
		WHERE barcode = $1
		FOR UPDATE
	`, barcode).Scan(&id, &sold, &returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyPgError(err, "failed to lock stock entry "+barcode)
	}

	if returned+qty > sold {
		return nil, newError(KindReturnExceedsSold,
			"return of %d for barcode %s exceeds sold quantity: sold %d, already returned %d",
			qty, barcode, sold, returned)
	}

	e, err := scanStockEntry(tx.QueryRow(ctx, `
		UPDATE item_stock
		SET sale_return_qty = sale_return_qty + $1,
		    available_qty = total_qty - sale_qty + (sale_return_qty + $1) - stock_return_qty,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING `+stockColumns,
		qty, id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to record sale return for barcode %s: %w", barcode, err)
	}
	return e, nil
}

func (l *stockLedger) CommitStockReturnTx(ctx context.Context, tx pgx.Tx, barcode string, qty int) (*StockEntry, error) {
	if qty <= 0 {
		return nil, validationf("vendor return quantity must be positive for barcode %s, got %d", barcode, qty)
	}

	var id, available int
	err := tx.QueryRow(ctx, `
		SELECT id, available_qty
		FROM item_stock
		WHERE barcode = $1
		FOR UPDATE
	`, barcode).Scan(&id, &available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("no stock entry for barcode %s", barcode)
		}
		return nil, classifyPgError(err, "failed to lock stock entry "+barcode)
	}

	if qty > available {
		return nil, newError(KindInsufficientStock,
			"cannot return %d of barcode %s to vendor: only %d on hand", qty, barcode, available)
	}

	e, err := scanStockEntry(tx.QueryRow(ctx, `
		UPDATE item_stock
		SET stock_return_qty = stock_return_qty + $1,
		    available_qty = total_qty - sale_qty + sale_return_qty - (stock_return_qty + $1),
		    updated_at = NOW()
		WHERE id = $2
		RETURNING `+stockColumns,
		qty, id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to record vendor return for barcode %s: %w", barcode, err)
	}
	return e, nil
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (l *stockLedger) ReturnToVendor(ctx context.Context, barcode string, qty int) (*StockEntry, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	e, err := l.CommitStockReturnTx(ctx, tx, strings.TrimSpace(barcode), qty)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit vendor return: %w", err)
	}

	l.logger.Info("stock returned to vendor",
		zap.String("barcode", e.Barcode),
		zap.Int("qty", qty),
		zap.Int("available_qty", e.AvailableQty),
	)
	return e, nil
}

func (l *stockLedger) Lookup(ctx context.Context, barcode string) (*ProductSnapshot, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, notFoundf("barcode is blank")
	}

	var snap ProductSnapshot
	var spec *string
	err := l.pool.QueryRow(ctx, `
		SELECT item_code, product_name, company_name, specification, sale_rate, available_qty
		FROM item_stock
		WHERE barcode = $1
	`, barcode).Scan(&snap.ItemCode, &snap.ProductName, &snap.CompanyName, &spec, &snap.SaleRate, &snap.AvailableQty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("barcode %s not found", barcode)
		}
		return nil, fmt.Errorf("lookup barcode %s: %w", barcode, err)
	}
	if spec != nil {
		snap.Specification = *spec
	}
	return &snap, nil
}

func (l *stockLedger) Get(ctx context.Context, barcode string) (*StockEntry, error) {
	e, err := scanStockEntry(l.pool.QueryRow(ctx,
		`SELECT `+stockColumns+` FROM item_stock WHERE barcode = $1`, strings.TrimSpace(barcode)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("barcode %s not found", barcode)
		}
		return nil, fmt.Errorf("get stock entry %s: %w", barcode, err)
	}
	return e, nil
}

func (l *stockLedger) List(ctx context.Context) ([]StockEntry, error) {
	return l.list(ctx, `SELECT `+stockColumns+` FROM item_stock ORDER BY order_number, barcode`)
}

func (l *stockLedger) ListOutOfStock(ctx context.Context) ([]StockEntry, error) {
	return l.list(ctx, `SELECT `+stockColumns+` FROM item_stock WHERE available_qty <= 0 ORDER BY order_number, barcode`)
}

func (l *stockLedger) list(ctx context.Context, query string) ([]StockEntry, error) {
	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock entries: %w", err)
	}
	defer rows.Close()

	entries := []StockEntry{}
	for rows.Next() {
		e, err := scanStockEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
