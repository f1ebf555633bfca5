package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"general-store/internal/core"
	"general-store/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// setupTestDB migrates and empties the database named by TEST_DATABASE_URL.
// Integration tests are skipped when it is unset so the live database is never touched.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	m, err := db.NewMigrator(dbURL, nil)
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(), "apply migrations")
	require.NoError(t, m.Close())

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE exchange_sale_details, exchange_sales, sale_return_items, sale_returns,
		               sale_details, sales, item_stock, stock_receiving_details, stock_receivings,
		               document_sequences, vendors, products
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err, "clean test database")
	return pool
}

type store struct {
	catalog   core.CatalogService
	sequences core.SequenceService
	ledger    core.StockLedger
	receiving core.ReceivingService
	sales     core.SaleService
	returns   core.ReturnService
	registry  core.RegistryService
}

func newStore(pool *pgxpool.Pool) store {
	seq := core.NewSequenceService(pool)
	ledger := core.NewStockLedger(pool, nil)
	return store{
		catalog:   core.NewCatalogService(pool, seq),
		sequences: seq,
		ledger:    ledger,
		receiving: core.NewReceivingService(pool, seq, ledger, nil),
		sales:     core.NewSaleService(pool, seq, ledger, nil),
		returns:   core.NewReturnService(pool, seq, ledger, nil),
		registry:  core.NewRegistryService(pool, nil),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedCatalog creates vendor 000001 and products 000001 (Rice) and 000002 (Soap).
func seedCatalog(t *testing.T, s store) (*core.Vendor, []*core.Product) {
	t.Helper()
	ctx := context.Background()

	v, err := s.catalog.CreateVendor(ctx, core.VendorInput{VendorName: "Main Supplier", CompanyName: "Acme Wholesale"})
	require.NoError(t, err)

	rice, err := s.catalog.CreateProduct(ctx, core.ProductInput{ProductName: "Rice", CompanyName: "Acme", Specification: "5kg"})
	require.NoError(t, err)
	soap, err := s.catalog.CreateProduct(ctx, core.ProductInput{ProductName: "Soap", CompanyName: "Clean Co"})
	require.NoError(t, err)

	return v, []*core.Product{rice, soap}
}

// receive books a single-line shipment of qty units of barcode at rate.
func receive(t *testing.T, s store, vendorCode, itemCode, barcode string, qty int, rate, saleRate string) *core.Receiving {
	t.Helper()
	r, err := s.receiving.ReceiveShipment(context.Background(), core.ReceivingInput{
		VendorCode: vendorCode,
		OrderDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: []core.ReceivingLineInput{
			{ItemCode: itemCode, Barcode: barcode, Qty: qty, Rate: dec(rate), SaleRate: dec(saleRate)},
		},
	})
	require.NoError(t, err)
	return r
}

// requireConsistent checks the available_qty invariant on every ledger row.
func requireConsistent(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	var bad int
	err := pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM item_stock
		WHERE available_qty <> total_qty - sale_qty + sale_return_qty - stock_return_qty
	`).Scan(&bad)
	require.NoError(t, err)
	require.Zero(t, bad, "ledger rows violate available_qty invariant")
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
