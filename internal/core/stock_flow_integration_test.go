package core_test

import (
	"context"
	"sync"
	"testing"

	"general-store/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockLedger_RoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	s := newStore(pool)
	ctx := context.Background()

	vendor, products := seedCatalog(t, s)

	r := receive(t, s, vendor.VendorCode, products[0].ItemCode, "B1", 10, "5.00", "7.50")
	assert.Equal(t, "0000001", r.OrderNumber)
	assert.Equal(t, 10, r.TotalQty)
	assert.True(t, r.TotalAmount.Equal(dec("50")))

	entry, err := s.ledger.Get(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 10, entry.AvailableQty)
	assert.Equal(t, "Rice", entry.ProductName)
	requireConsistent(t, pool)

	sale, err := s.sales.RecordSale(ctx, core.SaleInput{
		CustomerName: "Walk-in",
		Lines: []core.SaleLineInput{
			{Barcode: "B1", ItemCode: products[0].ItemCode, Qty: 4},
			{Barcode: ""},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "0000001", sale.SaleNumber)
	require.Len(t, sale.Lines, 1)
	assert.True(t, sale.TotalAmount.Equal(dec("30")))

	entry, err = s.ledger.Get(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 6, entry.AvailableQty)
	assert.Equal(t, 4, entry.SaleQty)
	requireConsistent(t, pool)

	ret, err := s.returns.RecordReturn(ctx, core.ReturnInput{
		SaleNumber:   sale.SaleNumber,
		CustomerName: "Walk-in",
		Reason:       "damaged",
		Lines:        []core.ReturnLineInput{{Barcode: "B1", Qty: 1, SaleAmount: dec("7.50")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "000001", ret.ReturnNumber)
	assert.Empty(t, ret.UnmatchedBarcodes)

	entry, err = s.ledger.Get(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 7, entry.AvailableQty)
	assert.Equal(t, 1, entry.SaleReturnQty)
	requireConsistent(t, pool)

	entry, err = s.ledger.ReturnToVendor(ctx, "B1", 2)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.AvailableQty)
	assert.Equal(t, 2, entry.StockReturnQty)
	assert.True(t, entry.Consistent())
	requireConsistent(t, pool)

	snap, err := s.ledger.Lookup(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.AvailableQty)
	assert.Equal(t, "5kg", snap.Specification)
}

func TestReceiving_DuplicateBarcodeAbortsShipment(t *testing.T) {
	pool := setupTestDB(t)
	s := newStore(pool)
	ctx := context.Background()

	vendor, products := seedCatalog(t, s)
	receive(t, s, vendor.VendorCode, products[0].ItemCode, "B1", 10, "5.00", "7.50")

	before := countRows(t, pool, "item_stock")

	_, err := s.receiving.ReceiveShipment(ctx, core.ReceivingInput{
		VendorCode: vendor.VendorCode,
		Lines: []core.ReceivingLineInput{
			{ItemCode: products[1].ItemCode, Barcode: "B2", Qty: 3, Rate: dec("1"), SaleRate: dec("2")},
			{ItemCode: products[0].ItemCode, Barcode: "B1", Qty: 1, Rate: dec("1"), SaleRate: dec("2")},
		},
	})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	assert.Equal(t, before, countRows(t, pool, "item_stock"))
	assert.Equal(t, 1, countRows(t, pool, "stock_receivings"))
	assert.Equal(t, 1, countRows(t, pool, "stock_receiving_details"))

	_, err = s.ledger.Get(ctx, "B2")
	assert.ErrorIs(t, err, core.ErrNotFound)

	t.Run("unknown product aborts the shipment", func(t *testing.T) {
		_, err := s.receiving.ReceiveShipment(ctx, core.ReceivingInput{
			VendorCode: vendor.VendorCode,
			Lines: []core.ReceivingLineInput{
				{ItemCode: products[1].ItemCode, Barcode: "B3", Qty: 3, Rate: dec("1"), SaleRate: dec("2")},
				{ItemCode: "NOPE", Barcode: "B4", Qty: 1, Rate: dec("1"), SaleRate: dec("2")},
			},
		})
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.Equal(t, before, countRows(t, pool, "item_stock"))
	})

	t.Run("unknown vendor", func(t *testing.T) {
		_, err := s.receiving.ReceiveShipment(ctx, core.ReceivingInput{
			VendorCode: "999999",
			Lines:      []core.ReceivingLineInput{{ItemCode: products[1].ItemCode, Barcode: "B5", Qty: 1}},
		})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("failed shipments do not consume order numbers", func(t *testing.T) {
		next, err := s.sequences.Peek(ctx, core.SeriesOrder)
		require.NoError(t, err)
		assert.Equal(t, "0000002", next)
	})

	t.Run("read back", func(t *testing.T) {
		r, err := s.receiving.GetReceiving(ctx, "0000001")
		require.NoError(t, err)
		require.Len(t, r.Lines, 1)
		assert.Equal(t, products[0].ItemCode, r.Lines[0].ItemCode)

		list, err := s.receiving.ListReceivings(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestSale_InsufficientStockLeavesNothingWritten(t *testing.T) {
	pool := setupTestDB(t)
	s := newStore(pool)
	ctx := context.Background()

	vendor, products := seedCatalog(t, s)
	receive(t, s, vendor.VendorCode, products[0].ItemCode, "B1", 10, "5.00", "7.50")
	receive(t, s, vendor.VendorCode, products[1].ItemCode, "B2", 2, "1.00", "1.50")

	_, err := s.sales.RecordSale(ctx, core.SaleInput{
		CustomerName: "Walk-in",
		Lines: []core.SaleLineInput{
			{Barcode: "B1", Qty: 3},
			{Barcode: "B2", Qty: 5},
		},
	})
	require.ErrorIs(t, err, core.ErrInsufficientStock)

	b1, err := s.ledger.Get(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 0, b1.SaleQty)
	assert.Equal(t, 10, b1.AvailableQty)
	assert.Zero(t, countRows(t, pool, "sales"))
	assert.Zero(t, countRows(t, pool, "sale_details"))

	t.Run("mismatched total aborts after ledger checks", func(t *testing.T) {
		wrong := dec("1.00")
		_, err := s.sales.RecordSale(ctx, core.SaleInput{
			CustomerName: "Walk-in",
			Lines:        []core.SaleLineInput{{Barcode: "B1", Qty: 1}},
			TotalAmount:  &wrong,
		})
		assert.ErrorIs(t, err, core.ErrValidation)

		b1, err := s.ledger.Get(ctx, "B1")
		require.NoError(t, err)
		assert.Equal(t, 10, b1.AvailableQty)
	})

	t.Run("wrong item code for barcode", func(t *testing.T) {
		_, err := s.sales.RecordSale(ctx, core.SaleInput{
			CustomerName: "Walk-in",
			Lines:        []core.SaleLineInput{{Barcode: "B1", ItemCode: products[1].ItemCode, Qty: 1}},
		})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("read back a sale", func(t *testing.T) {
		sale, err := s.sales.RecordSale(ctx, core.SaleInput{
			CustomerName:    "Asha",
			CustomerContact: "555-0101",
			Lines:           []core.SaleLineInput{{Barcode: "B2", Qty: 2}},
		})
		require.NoError(t, err)

		got, err := s.sales.GetSale(ctx, sale.SaleNumber)
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, "Soap", got.Lines[0].ProductName)
		assert.True(t, got.Lines[0].Amount.Equal(dec("3")))

		snap, err := s.ledger.Lookup(ctx, "B2")
		require.NoError(t, err)
		assert.False(t, snap.InStock())

		out, err := s.ledger.ListOutOfStock(ctx)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "B2", out[0].Barcode)
	})
}

func TestSale_ConcurrentSalesOnOneBarcode(t *testing.T) {
	pool := setupTestDB(t)
	s := newStore(pool)
	ctx := context.Background()

	vendor, products := seedCatalog(t, s)
	receive(t, s, vendor.VendorCode, products[0].ItemCode, "B1", 5, "5.00", "7.50")

	const attempts = 2
	var wg sync.WaitGroup
	errCh := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.sales.RecordSale(ctx, core.SaleInput{
				CustomerName: "Walk-in",
				Lines:        []core.SaleLineInput{{Barcode: "B1", Qty: 3}},
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var succeeded, short int
	for err := range errCh {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, core.ErrInsufficientStock):
			short++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, short)

	entry, err := s.ledger.Get(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.SaleQty)
	assert.Equal(t, 2, entry.AvailableQty)
	requireConsistent(t, pool)
}

func TestReturn_Policies(t *testing.T) {
	pool := setupTestDB(t)
	s := newStore(pool)
	ctx := context.Background()

	vendor, products := seedCatalog(t, s)
	receive(t, s, vendor.VendorCode, products[0].ItemCode, "B1", 10, "5.00", "7.50")
	_, err := s.sales.RecordSale(ctx, core.SaleInput{
		CustomerName: "Walk-in",
		Lines:        []core.SaleLineInput{{Barcode: "B1", Qty: 2}},
	})
	require.NoError(t, err)

	t.Run("unknown barcode keeps the record and skips stock", func(t *testing.T) {
		stockBefore := countRows(t, pool, "item_stock")

		ret, err := s.returns.RecordReturn(ctx, core.ReturnInput{
			CustomerName: "Walk-in",
			Lines: []core.ReturnLineInput{
				{Barcode: "GHOST", Qty: 1, SaleAmount: dec("3")},
				{Barcode: "", Qty: 4, SaleAmount: dec("3")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"GHOST"}, ret.UnmatchedBarcodes)
		require.Len(t, ret.Lines, 1)
		assert.True(t, ret.AmountRefunded.Equal(dec("3")))

		got, err := s.returns.GetReturn(ctx, ret.ReturnNumber)
		require.NoError(t, err)
		assert.Len(t, got.Lines, 1)
		assert.Equal(t, stockBefore, countRows(t, pool, "item_stock"))
		requireConsistent(t, pool)
	})

	t.Run("return above sold quantity is capped", func(t *testing.T) {
		_, err := s.returns.RecordReturn(ctx, core.ReturnInput{
			CustomerName: "Walk-in",
			Lines:        []core.ReturnLineInput{{Barcode: "B1", Qty: 3, SaleAmount: dec("7.50")}},
		})
		assert.ErrorIs(t, err, core.ErrReturnExceedsSold)

		entry, err := s.ledger.Get(ctx, "B1")
		require.NoError(t, err)
		assert.Equal(t, 0, entry.SaleReturnQty)
	})

	t.Run("explicit return number", func(t *testing.T) {
		ret, err := s.returns.RecordReturn(ctx, core.ReturnInput{
			ReturnNumber: "000050",
			CustomerName: "Walk-in",
			Lines:        []core.ReturnLineInput{{Barcode: "B1", Qty: 1, SaleAmount: dec("7.50")}},
		})
		require.NoError(t, err)
		assert.Equal(t, "000050", ret.ReturnNumber)

		_, err = s.returns.RecordReturn(ctx, core.ReturnInput{
			ReturnNumber: "000050",
			CustomerName: "Walk-in",
			Lines:        []core.ReturnLineInput{{Barcode: "B1", Qty: 1, SaleAmount: dec("7.50")}},
		})
		assert.ErrorIs(t, err, core.ErrDuplicateKey)

		next, err := s.sequences.Peek(ctx, core.SeriesReturn)
		require.NoError(t, err)
		assert.Equal(t, "000051", next)
	})

	t.Run("vendor return cannot exceed stock on hand", func(t *testing.T) {
		_, err := s.ledger.ReturnToVendor(ctx, "B1", 100)
		assert.ErrorIs(t, err, core.ErrInsufficientStock)

		_, err = s.ledger.ReturnToVendor(ctx, "GHOST", 1)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("registry lists returns", func(t *testing.T) {
		page, err := s.registry.ListEntity(ctx, "returns", "", 0)
		require.NoError(t, err)
		assert.Len(t, page.Rows, 2)

		_, err = s.registry.ListEntity(ctx, "users", "", 0)
		assert.ErrorIs(t, err, core.ErrNotFound)

		page, err = s.registry.ListEntity(ctx, "stock", "b1", 10)
		require.NoError(t, err)
		require.Len(t, page.Rows, 1)
	})
}

func TestSaleAndReturn_OppositeLineOrderDoNotDeadlock(t *testing.T) {
	pool := setupTestDB(t)
	s := newStore(pool)
	ctx := context.Background()

	vendor, products := seedCatalog(t, s)
	receive(t, s, vendor.VendorCode, products[0].ItemCode, "B1", 50, "5.00", "7.50")
	receive(t, s, vendor.VendorCode, products[0].ItemCode, "B2", 50, "5.00", "7.50")
	_, err := s.sales.RecordSale(ctx, core.SaleInput{
		CustomerName: "Walk-in",
		Lines:        []core.SaleLineInput{{Barcode: "B1", Qty: 10}, {Barcode: "B2", Qty: 10}},
	})
	require.NoError(t, err)

	const rounds = 10
	var wg sync.WaitGroup
	errCh := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.sales.RecordSale(ctx, core.SaleInput{
				CustomerName: "Walk-in",
				Lines:        []core.SaleLineInput{{Barcode: "B2", Qty: 1}, {Barcode: "B1", Qty: 1}},
			})
			errCh <- err
		}()
		go func() {
			defer wg.Done()
			_, err := s.returns.RecordReturn(ctx, core.ReturnInput{
				CustomerName: "Walk-in",
				Lines: []core.ReturnLineInput{
					{Barcode: "B1", Qty: 1, SaleAmount: dec("7.50")},
					{Barcode: "B2", Qty: 1, SaleAmount: dec("7.50")},
				},
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		assert.NoError(t, err)
	}
	for _, barcode := range []string{"B1", "B2"} {
		entry, err := s.ledger.Get(ctx, barcode)
		require.NoError(t, err)
		assert.Equal(t, 20, entry.SaleQty, barcode)
		assert.Equal(t, 10, entry.SaleReturnQty, barcode)
		assert.Equal(t, 40, entry.AvailableQty, barcode)
	}
	requireConsistent(t, pool)
}
