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

type returnService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
	ledger    StockLedger
	logger    *zap.Logger
}

func NewReturnService(pool *pgxpool.Pool, sequences SequenceService, ledger StockLedger, logger *zap.Logger) ReturnService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &returnService{pool: pool, sequences: sequences, ledger: ledger, logger: logger}
}

func (s *returnService) RecordReturn(ctx context.Context, input ReturnInput) (*SaleReturn, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	returnNumber := strings.TrimSpace(input.ReturnNumber)
	explicit := returnNumber != ""
	if explicit {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM sale_returns WHERE return_number = $1)`, returnNumber,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check return number: %w", err)
		}
		if exists {
			return nil, duplicatef("return %s already recorded", returnNumber)
		}
		if err := s.sequences.ObserveTx(ctx, tx, SeriesReturn, returnNumber); err != nil {
			return nil, err
		}
	} else {
		returnNumber, err = s.sequences.NextTx(ctx, tx, SeriesReturn)
		if err != nil {
			return nil, err
		}
	}

	accepted := input.AcceptedLines()
	lines := make([]ReturnLine, 0, len(accepted))
	for i, in := range accepted {
		l := ReturnLine{
			LineNumber:  i + 1,
			Barcode:     strings.TrimSpace(in.Barcode),
			Description: strings.TrimSpace(in.Description),
			Qty:         in.Qty,
			SaleAmount:  in.SaleAmount,
			TotalAmount: in.SaleAmount.Mul(decimal.NewFromInt(int64(in.Qty))),
		}
		l.Specification = nullable(in.Specification)
		lines = append(lines, l)
	}
	qty, total, refunded := ReturnTotals(lines)

	barcodes := make([]string, len(lines))
	for i, l := range lines {
		barcodes[i] = l.Barcode
	}
	if err := s.ledger.LockTx(ctx, tx, barcodes); err != nil {
		return nil, err
	}

	ret := &SaleReturn{
		ReturnNumber:    returnNumber,
		SaleNumber:      strings.TrimSpace(input.SaleNumber),
		SaleDate:        input.SaleDate,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerContact: nullable(input.CustomerContact),
		ReturnDate:      input.ReturnDate,
		Reason:          nullable(input.Reason),
		TotalQuantity:   qty,
		TotalAmount:     total,
		AmountRefunded:  refunded,
	}
	if ret.ReturnDate == nil {
		d := today()
		ret.ReturnDate = &d
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO sale_returns (return_number, sale_number, sale_date, customer_name, customer_contact,
		                          return_date, reason, total_quantity, total_amount, amount_refunded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, ret.ReturnNumber, ret.SaleNumber, ret.SaleDate, ret.CustomerName, ret.CustomerContact,
		ret.ReturnDate, ret.Reason, ret.TotalQuantity, ret.TotalAmount, ret.AmountRefunded,
	).Scan(&ret.ID, &ret.CreatedAt)
	if err != nil {
		if explicit && isUniqueViolation(err) {
			return nil, duplicatef("return %s already recorded", returnNumber)
		}
		return nil, classifyPgError(err, "failed to insert return header")
	}

	for i := range lines {
		l := &lines[i]
		l.ReturnID = ret.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO sale_return_items (return_id, line_number, barcode, description, specification,
			                               qty, sale_amount, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, l.ReturnID, l.LineNumber, l.Barcode, l.Description, l.Specification,
			l.Qty, l.SaleAmount, l.TotalAmount,
		).Scan(&l.ID)
		if err != nil {
			return nil, fmt.Errorf("insert return line %d: %w", l.LineNumber, err)
		}

		entry, err := s.ledger.CommitSaleReturnTx(ctx, tx, l.Barcode, l.Qty)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.LineNumber, err)
		}
		if entry == nil {
			ret.UnmatchedBarcodes = append(ret.UnmatchedBarcodes, l.Barcode)
		}
	}
	ret.Lines = lines

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit return: %w", err)
	}

	for _, barcode := range ret.UnmatchedBarcodes {
		s.logger.Warn("returned barcode has no stock entry, stock not adjusted",
			zap.String("return_number", ret.ReturnNumber),
			zap.String("barcode", barcode),
		)
	}
	s.logger.Info("sale return recorded",
		zap.String("return_number", ret.ReturnNumber),
		zap.String("sale_number", ret.SaleNumber),
		zap.Int("lines", len(ret.Lines)),
		zap.String("amount_refunded", ret.AmountRefunded.StringFixed(2)),
	)
	return ret, nil
}

const returnColumns = `id, return_number, sale_number, sale_date, customer_name, customer_contact,
	return_date, reason, total_quantity, total_amount, amount_refunded, created_at`

func scanReturn(row pgx.Row) (*SaleReturn, error) {
	r := &SaleReturn{}
	if err := row.Scan(&r.ID, &r.ReturnNumber, &r.SaleNumber, &r.SaleDate, &r.CustomerName, &r.CustomerContact,
		&r.ReturnDate, &r.Reason, &r.TotalQuantity, &r.TotalAmount, &r.AmountRefunded, &r.CreatedAt); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *returnService) GetReturn(ctx context.Context, returnNumber string) (*SaleReturn, error) {
	returnNumber = strings.TrimSpace(returnNumber)
	ret, err := scanReturn(s.pool.QueryRow(ctx,
		`SELECT `+returnColumns+` FROM sale_returns WHERE return_number = $1`, returnNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("return %s not found", returnNumber)
		}
		return nil, fmt.Errorf("get return %s: %w", returnNumber, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, return_id, line_number, barcode, description, specification, qty, sale_amount, total_amount
		FROM sale_return_items
		WHERE return_id = $1
		ORDER BY line_number
	`, ret.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query return lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l ReturnLine
		if err := rows.Scan(&l.ID, &l.ReturnID, &l.LineNumber, &l.Barcode, &l.Description, &l.Specification,
			&l.Qty, &l.SaleAmount, &l.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan return line: %w", err)
		}
		ret.Lines = append(ret.Lines, l)
	}
	return ret, rows.Err()
}

func (s *returnService) ListReturns(ctx context.Context) ([]SaleReturn, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+returnColumns+` FROM sale_returns ORDER BY return_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query returns: %w", err)
	}
	defer rows.Close()

	returns := []SaleReturn{}
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		returns = append(returns, *r)
	}
	return returns, rows.Err()
}
