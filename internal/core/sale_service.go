package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type saleService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
	ledger    StockLedger
	logger    *zap.Logger
}

func NewSaleService(pool *pgxpool.Pool, sequences SequenceService, ledger StockLedger, logger *zap.Logger) SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &saleService{pool: pool, sequences: sequences, ledger: ledger, logger: logger}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// buildSaleLine fills blank descriptive and pricing fields from the committed ledger entry.
func buildSaleLine(n int, in SaleLineInput, entry *StockEntry) SaleLine {
	line := SaleLine{
		LineNumber:  n,
		Barcode:     strings.TrimSpace(in.Barcode),
		ItemCode:    entry.ItemCode,
		ProductName: firstNonBlank(in.ProductName, entry.ProductName),
		CompanyName: firstNonBlank(in.CompanyName, entry.CompanyName),
		Qty:         in.Qty,
		SaleRate:    entry.SaleRate,
	}
	if spec := strings.TrimSpace(in.Specification); spec != "" {
		line.Specification = &spec
	} else {
		line.Specification = entry.Specification
	}
	if in.SaleRate != nil {
		line.SaleRate = *in.SaleRate
	}
	line.Amount = line.SaleRate.Mul(decimal.NewFromInt(int64(in.Qty)))
	if in.Amount != nil {
		line.Amount = *in.Amount
	}
	return line
}

func (s *saleService) RecordSale(ctx context.Context, input SaleInput) (*Sale, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if input.SaleDate.IsZero() {
		input.SaleDate = today()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	saleNumber, err := s.sequences.NextTx(ctx, tx, SeriesSale)
	if err != nil {
		return nil, err
	}

	// Lines are committed in submission order; the first shortage aborts everything.
	accepted := input.AcceptedLines()
	barcodes := make([]string, len(accepted))
	for i, in := range accepted {
		barcodes[i] = in.Barcode
	}
	if err := s.ledger.LockTx(ctx, tx, barcodes); err != nil {
		return nil, err
	}
	lines := make([]SaleLine, 0, len(accepted))
	for i, in := range accepted {
		entry, err := s.ledger.CommitSaleTx(ctx, tx, strings.TrimSpace(in.Barcode), in.ItemCode, in.Qty)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, buildSaleLine(i+1, in, entry))
	}

	totals, err := ResolveTotals(input, lines)
	if err != nil {
		return nil, err
	}

	sale := &Sale{
		SaleNumber:      saleNumber,
		SaleDate:        input.SaleDate,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerContact: nullable(input.CustomerContact),
		TotalQuantity:   totals.TotalQuantity,
		TotalAmount:     totals.TotalAmount,
		CashReceived:    totals.CashReceived,
		CashReturn:      totals.CashReturn,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO sales (sale_number, sale_date, customer_name, customer_contact,
		                   total_quantity, total_amount, cash_received, cash_return)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, sale.SaleNumber, sale.SaleDate, sale.CustomerName, sale.CustomerContact,
		sale.TotalQuantity, sale.TotalAmount, sale.CashReceived, sale.CashReturn,
	).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		return nil, classifyPgError(err, "failed to insert sale header")
	}

	for i := range lines {
		l := &lines[i]
		l.SaleID = sale.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO sale_details (sale_id, line_number, barcode, item_code, product_name, company_name,
			                          specification, qty, sale_rate, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`, l.SaleID, l.LineNumber, l.Barcode, l.ItemCode, l.ProductName, l.CompanyName,
			l.Specification, l.Qty, l.SaleRate, l.Amount,
		).Scan(&l.ID)
		if err != nil {
			return nil, fmt.Errorf("insert sale line %d: %w", l.LineNumber, err)
		}
	}
	sale.Lines = lines

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	s.logger.Info("sale recorded",
		zap.String("sale_number", sale.SaleNumber),
		zap.Int("lines", len(sale.Lines)),
		zap.Int("total_quantity", sale.TotalQuantity),
		zap.String("total_amount", sale.TotalAmount.StringFixed(2)),
	)
	return sale, nil
}

const saleColumns = `id, sale_number, sale_date, customer_name, customer_contact,
	total_quantity, total_amount, cash_received, cash_return, created_at`

func scanSale(row pgx.Row) (*Sale, error) {
	s := &Sale{}
	if err := row.Scan(&s.ID, &s.SaleNumber, &s.SaleDate, &s.CustomerName, &s.CustomerContact,
		&s.TotalQuantity, &s.TotalAmount, &s.CashReceived, &s.CashReturn, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *saleService) GetSale(ctx context.Context, saleNumber string) (*Sale, error) {
	saleNumber = strings.TrimSpace(saleNumber)
	sale, err := scanSale(s.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE sale_number = $1`, saleNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("sale %s not found", saleNumber)
		}
		return nil, fmt.Errorf("get sale %s: %w", saleNumber, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, sale_id, line_number, barcode, item_code, product_name, company_name,
		       specification, qty, sale_rate, amount
		FROM sale_details
		WHERE sale_id = $1
		ORDER BY line_number
	`, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.LineNumber, &l.Barcode, &l.ItemCode, &l.ProductName,
			&l.CompanyName, &l.Specification, &l.Qty, &l.SaleRate, &l.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan sale line: %w", err)
		}
		sale.Lines = append(sale.Lines, l)
	}
	return sale, rows.Err()
}

func (s *saleService) ListSales(ctx context.Context) ([]Sale, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY sale_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}
