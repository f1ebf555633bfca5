package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Series is a named document-numbering stream.
type Series string

const (
	SeriesProduct Series = "product"
	SeriesVendor  Series = "vendor"
	SeriesReturn  Series = "return"
	SeriesOrder   Series = "order"
	SeriesSale    Series = "sale"
)

type seriesDef struct {
	width  int
	table  string
	column string
}

var seriesDefs = map[Series]seriesDef{
	SeriesProduct: {width: 6, table: "products", column: "item_code"},
	SeriesVendor:  {width: 6, table: "vendors", column: "vendor_code"},
	SeriesReturn:  {width: 6, table: "sale_returns", column: "return_number"},
	SeriesOrder:   {width: 7, table: "stock_receivings", column: "order_number"},
	SeriesSale:    {width: 7, table: "sales", column: "sale_number"},
}

// ParseSeries resolves a series name, case-insensitively.
func ParseSeries(name string) (Series, error) {
	s := Series(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := seriesDefs[s]; !ok {
		return "", validationf("unknown series %q", name)
	}
	return s, nil
}

// Width is the minimum number of digits the series is padded to.
func (s Series) Width() int { return seriesDefs[s].width }

// FormatSequence zero-pads n to width digits. Width is a minimum; larger values keep all digits.
func FormatSequence(n int64, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}

// maxSeqDigits keeps numeric identifiers inside BIGINT when cast in SQL.
const maxSeqDigits = 18

// parseSequence returns the numeric value of a purely numeric identifier.
func parseSequence(id string) (int64, bool) {
	if id == "" || len(id) > maxSeqDigits {
		return 0, false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SequenceService allocates gapless, monotonically increasing identifiers per series.
type SequenceService interface {
	// Next allocates in its own transaction.
	Next(ctx context.Context, series Series) (string, error)
	// NextTx allocates inside the caller's transaction. The counter row stays locked until
	// that transaction ends, so a rolled-back caller releases its number.
	NextTx(ctx context.Context, tx pgx.Tx, series Series) (string, error)
	// Peek previews the number the next allocation would return without reserving it.
	Peek(ctx context.Context, series Series) (string, error)
	// ObserveTx advances the counter to at least id when id is numeric.
	ObserveTx(ctx context.Context, tx pgx.Tx, series Series, id string) error
}

type sequenceService struct {
	pool *pgxpool.Pool
}

func NewSequenceService(pool *pgxpool.Pool) SequenceService {
	return &sequenceService{pool: pool}
}

// maxScanSQL returns the largest purely numeric identifier already stored for the series.
// Identifiers with any non-digit are ignored rather than resetting the series, so a legacy
// "LEGACY-1" next to "0000999" still allocates "0001000".
func maxScanSQL(def seriesDef) string {
	return fmt.Sprintf(
		`SELECT COALESCE(MAX(%[2]s::BIGINT), 0) FROM %[1]s WHERE %[2]s ~ '^[0-9]{1,%[3]d}$'`,
		def.table, def.column, maxSeqDigits,
	)
}

// seedCounter creates the counter row from a max-scan of the series' table. It runs only
// when the row is missing, so the scan happens once per series rather than per allocation.
// A concurrent seeder blocks on the conflicting insert and then does nothing.
func seedCounter(ctx context.Context, q pgxQuerier, series Series, def seriesDef) error {
	query := fmt.Sprintf(`
		INSERT INTO document_sequences (series, last_number)
		VALUES ($1, (%s))
		ON CONFLICT (series) DO NOTHING
	`, maxScanSQL(def))
	if _, err := q.Exec(ctx, query, string(series)); err != nil {
		return fmt.Errorf("failed to seed %s counter: %w", series, err)
	}
	return nil
}

func (s *sequenceService) Next(ctx context.Context, series Series) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err := s.NextTx(ctx, tx, series)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

func (s *sequenceService) NextTx(ctx context.Context, tx pgx.Tx, series Series) (string, error) {
	def, ok := seriesDefs[series]
	if !ok {
		return "", validationf("unknown series %q", series)
	}

	// Gapless allocation: the UPDATE takes the counter row lock until tx ends.
	const bump = `
		UPDATE document_sequences
		SET last_number = last_number + 1, updated_at = NOW()
		WHERE series = $1
		RETURNING last_number
	`
	var lastNumber int64
	err := tx.QueryRow(ctx, bump, string(series)).Scan(&lastNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := seedCounter(ctx, tx, series, def); err != nil {
			return "", err
		}
		err = tx.QueryRow(ctx, bump, string(series)).Scan(&lastNumber)
	}
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s number: %w", series, err)
	}
	return FormatSequence(lastNumber, def.width), nil
}

func (s *sequenceService) Peek(ctx context.Context, series Series) (string, error) {
	def, ok := seriesDefs[series]
	if !ok {
		return "", validationf("unknown series %q", series)
	}

	var lastNumber int64
	query := fmt.Sprintf(`
		SELECT COALESCE(
			(SELECT last_number FROM document_sequences WHERE series = $1),
			(%s)
		)
	`, maxScanSQL(def))
	if err := s.pool.QueryRow(ctx, query, string(series)).Scan(&lastNumber); err != nil {
		return "", fmt.Errorf("failed to read %s counter: %w", series, err)
	}
	return FormatSequence(lastNumber+1, def.width), nil
}

func (s *sequenceService) ObserveTx(ctx context.Context, tx pgx.Tx, series Series, id string) error {
	def, ok := seriesDefs[series]
	if !ok {
		return validationf("unknown series %q", series)
	}
	n, ok := parseSequence(id)
	if !ok {
		return nil
	}

	const advance = `
		UPDATE document_sequences
		SET last_number = GREATEST(last_number, $2::BIGINT), updated_at = NOW()
		WHERE series = $1
	`
	tag, err := tx.Exec(ctx, advance, string(series), n)
	if err == nil && tag.RowsAffected() == 0 {
		if err := seedCounter(ctx, tx, series, def); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, advance, string(series), n)
	}
	if err != nil {
		return fmt.Errorf("failed to advance %s counter: %w", series, err)
	}
	return nil
}
