package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// StockEntry is the ledger record for one received lot, keyed by its barcode.
//
// ProductName, CompanyName and Specification are copies taken when the lot was received.
// They are not refreshed by later catalog edits.
type StockEntry struct {
	ID             int             `json:"id"`
	OrderNumber    string          `json:"order_number"`
	VendorCode     string          `json:"vendor_code"`
	ItemCode       string          `json:"item_code"`
	ProductID      int             `json:"product_id"`
	ProductName    string          `json:"product_name"`
	CompanyName    string          `json:"company_name"`
	Specification  *string         `json:"specification,omitempty"`
	Barcode        string          `json:"barcode"`
	Rate           decimal.Decimal `json:"rate"`
	SaleRate       decimal.Decimal `json:"sale_rate"`
	ExpireDate     *time.Time      `json:"expire_date,omitempty"`
	TotalQty       int             `json:"total_qty"`
	SaleQty        int             `json:"sale_qty"`
	SaleReturnQty  int             `json:"sale_return_qty"`
	StockReturnQty int             `json:"stock_return_qty"`
	AvailableQty   int             `json:"available_qty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AvailableQty derives on-hand quantity from the four ledger counters.
func AvailableQty(total, sold, saleReturned, stockReturned int) int {
	return total - sold + saleReturned - stockReturned
}

// Consistent reports whether the stored available quantity matches its counters.
func (e StockEntry) Consistent() bool {
	return e.AvailableQty == AvailableQty(e.TotalQty, e.SaleQty, e.SaleReturnQty, e.StockReturnQty)
}

// InStock reports whether any quantity is left to sell.
func (e StockEntry) InStock() bool { return e.AvailableQty > 0 }

// NewStockEntry carries the values for a freshly received lot.
type NewStockEntry struct {
	OrderNumber string
	VendorCode  string
	Product     Product
	Barcode     string
	Qty         int
	Rate        decimal.Decimal
	SaleRate    decimal.Decimal
	ExpireDate  *time.Time
}

// ProductSnapshot is the point-of-sale view of a barcode.
type ProductSnapshot struct {
	ItemCode      string          `json:"item_code"`
	ProductName   string          `json:"product_name"`
	CompanyName   string          `json:"company_name"`
	Specification string          `json:"specification"`
	SaleRate      decimal.Decimal `json:"sale_rate"`
	AvailableQty  int             `json:"available_qty"`
}

// InStock reports whether the snapshot has quantity left to sell.
func (p ProductSnapshot) InStock() bool { return p.AvailableQty > 0 }

// StockLedger owns every mutation of item_stock. Each mutation updates its counter and
// available_qty in a single statement.
type StockLedger interface {
	// TX-scoped mutations, used by the receiving, sale and return flows.

	// LockTx takes the row locks of every listed lot in ascending barcode order. Multi-line
	// flows call it before their first counter change so transactions over the same lots
	// queue instead of deadlocking. Unknown barcodes are ignored.
	LockTx(ctx context.Context, tx pgx.Tx, barcodes []string) error

	// ReceiveTx creates the entry for a new lot. An existing barcode is ErrDuplicateKey.
	ReceiveTx(ctx context.Context, tx pgx.Tx, in NewStockEntry) (*StockEntry, error)
	// CommitSaleTx locks the entry and moves qty into sale_qty. A blank itemCode matches any
	// entry with the barcode. Fails with ErrInsufficientStock when qty exceeds available_qty.
	CommitSaleTx(ctx context.Context, tx pgx.Tx, barcode, itemCode string, qty int) (*StockEntry, error)
	// CommitSaleReturnTx moves qty into sale_return_qty. It returns (nil, nil) when the
	// barcode is unknown so the caller can keep the return record without a stock change.
	CommitSaleReturnTx(ctx context.Context, tx pgx.Tx, barcode string, qty int) (*StockEntry, error)
	// CommitStockReturnTx moves qty into stock_return_qty for a return to the vendor.
	CommitStockReturnTx(ctx context.Context, tx pgx.Tx, barcode string, qty int) (*StockEntry, error)

	// Standalone operations.

	ReturnToVendor(ctx context.Context, barcode string, qty int) (*StockEntry, error)
	Lookup(ctx context.Context, barcode string) (*ProductSnapshot, error)
	Get(ctx context.Context, barcode string) (*StockEntry, error)
	List(ctx context.Context) ([]StockEntry, error)
	ListOutOfStock(ctx context.Context) ([]StockEntry, error)
}
