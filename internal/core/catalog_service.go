package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type catalogService struct {
	pool      *pgxpool.Pool
	sequences SequenceService
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool, sequences SequenceService) CatalogService {
	return &catalogService{pool: pool, sequences: sequences}
}

// nullable maps a blank optional form value to NULL.
func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

const productColumns = `id, item_code, product_name, company_name, specification, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	if err := row.Scan(&p.ID, &p.ItemCode, &p.ProductName, &p.CompanyName, &p.Specification, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (in *ProductInput) normalize() error {
	in.ItemCode = strings.TrimSpace(in.ItemCode)
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if in.ProductName == "" {
		return validationf("product name is required")
	}
	if in.CompanyName == "" {
		return validationf("company name is required")
	}
	return nil
}

// assignCode returns code unchanged after advancing the series past it, or allocates a new
// one when code is blank.
func (s *catalogService) assignCode(ctx context.Context, tx pgx.Tx, series Series, code string) (string, error) {
	if code == "" {
		return s.sequences.NextTx(ctx, tx, series)
	}
	if err := s.sequences.ObserveTx(ctx, tx, series, code); err != nil {
		return "", err
	}
	return code, nil
}

// ── Products ─────────────────────────────────────────────────────────────────

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, err := s.assignCode(ctx, tx, SeriesProduct, input.ItemCode)
	if err != nil {
		return nil, err
	}

	p, err := scanProduct(tx.QueryRow(ctx, `
		INSERT INTO products (item_code, product_name, company_name, specification)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productColumns,
		code, input.ProductName, input.CompanyName, nullable(input.Specification),
	))
	if err != nil {
		return nil, classifyPgError(err, fmt.Sprintf("create product %q", code))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("product %d not found", id)
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *catalogService) GetProductByCode(ctx context.Context, itemCode string) (*Product, error) {
	return productByCode(ctx, s.pool, itemCode)
}

// productByCode is shared with the receiving flow, which resolves products inside its TX.
func productByCode(ctx context.Context, q pgxQuerier, itemCode string) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE LOWER(item_code) = LOWER($1)`,
		strings.TrimSpace(itemCode),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("product %q not found", itemCode)
		}
		return nil, fmt.Errorf("get product %q: %w", itemCode, err)
	}
	return p, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY item_code`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *catalogService) UpdateProduct(ctx context.Context, id int, input ProductInput) (*Product, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if input.ItemCode != "" {
		if err := s.sequences.ObserveTx(ctx, tx, SeriesProduct, input.ItemCode); err != nil {
			return nil, err
		}
	}

	p, err := scanProduct(tx.QueryRow(ctx, `
		UPDATE products
		SET item_code = COALESCE(NULLIF($2, ''), item_code),
		    product_name = $3, company_name = $4, specification = $5
		WHERE id = $1
		RETURNING `+productColumns,
		id, input.ItemCode, input.ProductName, input.CompanyName, nullable(input.Specification),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("product %d not found", id)
		}
		return nil, classifyPgError(err, fmt.Sprintf("update product %d", id))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return classifyPgError(err, fmt.Sprintf("delete product %d", id))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("product %d not found", id)
	}
	return nil
}

// ── Vendors ──────────────────────────────────────────────────────────────────

const vendorColumns = `id, vendor_code, vendor_name, phone, company_name, created_at`

func scanVendor(row pgx.Row) (*Vendor, error) {
	v := &Vendor{}
	if err := row.Scan(&v.ID, &v.VendorCode, &v.VendorName, &v.Phone, &v.CompanyName, &v.CreatedAt); err != nil {
		return nil, err
	}
	return v, nil
}

func (in *VendorInput) normalize() error {
	in.VendorCode = strings.TrimSpace(in.VendorCode)
	in.VendorName = strings.TrimSpace(in.VendorName)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if in.VendorName == "" {
		return validationf("vendor name is required")
	}
	if in.CompanyName == "" {
		return validationf("company name is required")
	}
	return nil
}

func (s *catalogService) CreateVendor(ctx context.Context, input VendorInput) (*Vendor, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, err := s.assignCode(ctx, tx, SeriesVendor, input.VendorCode)
	if err != nil {
		return nil, err
	}

	v, err := scanVendor(tx.QueryRow(ctx, `
		INSERT INTO vendors (vendor_code, vendor_name, phone, company_name)
		VALUES ($1, $2, $3, $4)
		RETURNING `+vendorColumns,
		code, input.VendorName, nullable(input.Phone), input.CompanyName,
	))
	if err != nil {
		return nil, classifyPgError(err, fmt.Sprintf("create vendor %q", code))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return v, nil
}

func (s *catalogService) GetVendor(ctx context.Context, id int) (*Vendor, error) {
	v, err := scanVendor(s.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("vendor %d not found", id)
		}
		return nil, fmt.Errorf("get vendor %d: %w", id, err)
	}
	return v, nil
}

func (s *catalogService) GetVendorByCode(ctx context.Context, vendorCode string) (*Vendor, error) {
	return vendorByCode(ctx, s.pool, vendorCode)
}

func vendorByCode(ctx context.Context, q pgxQuerier, vendorCode string) (*Vendor, error) {
	v, err := scanVendor(q.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE LOWER(vendor_code) = LOWER($1)`,
		strings.TrimSpace(vendorCode),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("vendor %q not found", vendorCode)
		}
		return nil, fmt.Errorf("get vendor %q: %w", vendorCode, err)
	}
	return v, nil
}

func (s *catalogService) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY vendor_code`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	vendors := []Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, *v)
	}
	return vendors, rows.Err()
}

func (s *catalogService) UpdateVendor(ctx context.Context, id int, input VendorInput) (*Vendor, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if input.VendorCode != "" {
		if err := s.sequences.ObserveTx(ctx, tx, SeriesVendor, input.VendorCode); err != nil {
			return nil, err
		}
	}

	v, err := scanVendor(tx.QueryRow(ctx, `
		UPDATE vendors
		SET vendor_code = COALESCE(NULLIF($2, ''), vendor_code),
		    vendor_name = $3, phone = $4, company_name = $5
		WHERE id = $1
		RETURNING `+vendorColumns,
		id, input.VendorCode, input.VendorName, nullable(input.Phone), input.CompanyName,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("vendor %d not found", id)
		}
		return nil, classifyPgError(err, fmt.Sprintf("update vendor %d", id))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return v, nil
}

func (s *catalogService) DeleteVendor(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return classifyPgError(err, fmt.Sprintf("delete vendor %d", id))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("vendor %d not found", id)
	}
	return nil
}
