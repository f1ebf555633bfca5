package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type receivingService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
	ledger    StockLedger
	logger    *zap.Logger
}

func NewReceivingService(pool *pgxpool.Pool, sequences SequenceService, ledger StockLedger, logger *zap.Logger) ReceivingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &receivingService{pool: pool, sequences: sequences, ledger: ledger, logger: logger}
}

// today truncates now to a calendar date in UTC.
func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *receivingService) ReceiveShipment(ctx context.Context, input ReceivingInput) (*Receiving, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if input.OrderDate.IsZero() {
		input.OrderDate = today()
	}
	totalQty, totalAmount := input.Totals()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	vendor, err := vendorByCode(ctx, tx, input.VendorCode)
	if err != nil {
		return nil, err
	}

	// Barcodes are global: reject any that already exist in receiving history.
	barcodes := make([]string, len(input.Lines))
	for i, line := range input.Lines {
		barcodes[i] = strings.TrimSpace(line.Barcode)
	}
	rows, err := tx.Query(ctx, `SELECT barcode FROM stock_receiving_details WHERE barcode = ANY($1) ORDER BY barcode`, barcodes)
	if err != nil {
		return nil, fmt.Errorf("failed to check barcode history: %w", err)
	}
	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read barcode history: %w", err)
	}
	if len(existing) > 0 {
		return nil, duplicatef("barcode already received: %s", strings.Join(existing, ", "))
	}

	orderNumber, err := s.sequences.NextTx(ctx, tx, SeriesOrder)
	if err != nil {
		return nil, err
	}

	r := &Receiving{
		OrderNumber: orderNumber,
		OrderDate:   input.OrderDate,
		VendorCode:  vendor.VendorCode,
		VendorName:  vendor.VendorName,
		TotalQty:    totalQty,
		TotalAmount: totalAmount,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO stock_receivings (order_number, order_date, vendor_code, vendor_name, total_qty, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, r.OrderNumber, r.OrderDate, r.VendorCode, r.VendorName, r.TotalQty, r.TotalAmount).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return nil, classifyPgError(err, "failed to insert receiving header")
	}

	for i, in := range input.Lines {
		product, err := productByCode(ctx, tx, in.ItemCode)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		line := ReceivingLine{
			OrderNumber: orderNumber,
			OrderDate:   r.OrderDate,
			VendorID:    vendor.ID,
			ProductID:   product.ID,
			ItemCode:    product.ItemCode,
			Barcode:     barcodes[i],
			Qty:         in.Qty,
			Rate:        in.Rate,
			SaleRate:    in.SaleRate,
			ExpireDate:  in.ExpireDate,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO stock_receiving_details (order_number, order_date, vendor_id, product_id, barcode,
			                                     qty, rate, sale_rate, expire_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, line.OrderNumber, line.OrderDate, line.VendorID, line.ProductID, line.Barcode,
			line.Qty, line.Rate, line.SaleRate, line.ExpireDate,
		).Scan(&line.ID)
		if err != nil {
			return nil, classifyPgError(err, fmt.Sprintf("insert receiving line %d", i+1))
		}

		if _, err := s.ledger.ReceiveTx(ctx, tx, NewStockEntry{
			OrderNumber: orderNumber,
			VendorCode:  vendor.VendorCode,
			Product:     *product,
			Barcode:     line.Barcode,
			Qty:         line.Qty,
			Rate:        line.Rate,
			SaleRate:    line.SaleRate,
			ExpireDate:  line.ExpireDate,
		}); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		r.Lines = append(r.Lines, line)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit receiving: %w", err)
	}

	s.logger.Info("shipment received",
		zap.String("order_number", r.OrderNumber),
		zap.String("vendor_code", r.VendorCode),
		zap.Int("lines", len(r.Lines)),
		zap.Int("total_qty", r.TotalQty),
	)
	return r, nil
}

const receivingColumns = `id, order_number, order_date, vendor_code, vendor_name, total_qty, total_amount, created_at`

func scanReceiving(row pgx.Row) (*Receiving, error) {
	r := &Receiving{}
	if err := row.Scan(&r.ID, &r.OrderNumber, &r.OrderDate, &r.VendorCode, &r.VendorName,
		&r.TotalQty, &r.TotalAmount, &r.CreatedAt); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *receivingService) GetReceiving(ctx context.Context, orderNumber string) (*Receiving, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	r, err := scanReceiving(s.pool.QueryRow(ctx,
		`SELECT `+receivingColumns+` FROM stock_receivings WHERE order_number = $1`, orderNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("receiving %s not found", orderNumber)
		}
		return nil, fmt.Errorf("get receiving %s: %w", orderNumber, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.order_number, d.order_date, d.vendor_id, d.product_id, p.item_code,
		       d.barcode, d.qty, d.rate, d.sale_rate, d.expire_date
		FROM stock_receiving_details d
		JOIN products p ON p.id = d.product_id
		WHERE d.order_number = $1
		ORDER BY d.id
	`, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query receiving lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l ReceivingLine
		if err := rows.Scan(&l.ID, &l.OrderNumber, &l.OrderDate, &l.VendorID, &l.ProductID, &l.ItemCode,
			&l.Barcode, &l.Qty, &l.Rate, &l.SaleRate, &l.ExpireDate); err != nil {
			return nil, fmt.Errorf("failed to scan receiving line: %w", err)
		}
		r.Lines = append(r.Lines, l)
	}
	return r, rows.Err()
}

func (s *receivingService) ListReceivings(ctx context.Context) ([]Receiving, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+receivingColumns+` FROM stock_receivings ORDER BY order_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query receivings: %w", err)
	}
	defer rows.Close()

	receivings := []Receiving{}
	for rows.Next() {
		r, err := scanReceiving(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receiving: %w", err)
		}
		receivings = append(receivings, *r)
	}
	return receivings, rows.Err()
}
