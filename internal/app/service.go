package app

import (
	"context"
	"io"

	"general-store/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind. Form values arrive as text and are
// parsed here; malformed values fail with a core.ErrValidation error.
type ApplicationService interface {
	// ── Catalog ─────────────────────────────────────────────────────────────

	ListProducts(ctx context.Context) (*ProductListResult, error)
	GetProduct(ctx context.Context, id int) (*core.Product, error)
	CreateProduct(ctx context.Context, req ProductRequest) (*core.Product, error)
	UpdateProduct(ctx context.Context, id int, req ProductRequest) (*core.Product, error)
	// DeleteProduct fails with core.ErrReferenceInUse while receiving history points at it.
	DeleteProduct(ctx context.Context, id int) error

	ListVendors(ctx context.Context) (*VendorListResult, error)
	GetVendor(ctx context.Context, id int) (*core.Vendor, error)
	CreateVendor(ctx context.Context, req VendorRequest) (*core.Vendor, error)
	UpdateVendor(ctx context.Context, id int, req VendorRequest) (*core.Vendor, error)
	DeleteVendor(ctx context.Context, id int) error

	// ── Receiving ───────────────────────────────────────────────────────────

	// ReceiveShipment books a vendor shipment and opens one ledger entry per lot.
	ReceiveShipment(ctx context.Context, req ReceivingRequest) (*core.Receiving, error)
	GetReceiving(ctx context.Context, orderNumber string) (*core.Receiving, error)
	ListReceivings(ctx context.Context) (*ReceivingListResult, error)

	// ── Sales and returns ───────────────────────────────────────────────────

	// RecordSale checks out the non-blank rows of the sale grid.
	RecordSale(ctx context.Context, req SaleRequest) (*core.Sale, error)
	GetSale(ctx context.Context, saleNumber string) (*core.Sale, error)
	// GetSaleDetails returns the return-form prefill for a sale. A blank number is a
	// validation error; an unknown one is core.ErrNotFound.
	GetSaleDetails(ctx context.Context, saleNumber string) (*SaleDetailResult, error)
	ListSales(ctx context.Context) (*SaleListResult, error)

	// RecordReturn books a customer return and restocks the lots it names.
	RecordReturn(ctx context.Context, req ReturnRequest) (*core.SaleReturn, error)
	GetReturn(ctx context.Context, returnNumber string) (*core.SaleReturn, error)
	ListReturns(ctx context.Context) (*ReturnListResult, error)

	// ── Stock ───────────────────────────────────────────────────────────────

	ListStock(ctx context.Context) (*StockResult, error)
	ListOutOfStock(ctx context.Context) (*StockResult, error)
	GetStock(ctx context.Context, barcode string) (*core.StockEntry, error)
	// LookupProduct never fails for a blank or unknown barcode; it returns an empty result.
	LookupProduct(ctx context.Context, barcode string) (*LookupResult, error)
	// ReturnToVendor sends units of a lot back to the supplier.
	ReturnToVendor(ctx context.Context, req VendorReturnRequest) (*core.StockEntry, error)
	// ExportStock writes the stock ledger as an xlsx workbook.
	ExportStock(ctx context.Context, w io.Writer) error

	// ── Sequences and registry ──────────────────────────────────────────────

	// PeekSequence previews the next identifier of a series without reserving it.
	PeekSequence(ctx context.Context, series string) (*SequenceResult, error)
	ListEntities() []string
	ListEntity(ctx context.Context, name, search string, limit int) (*core.EntityPage, error)
}
