package app

import (
	"context"
	"errors"
	"io"
	"strings"

	"general-store/internal/cache"
	"general-store/internal/core"
	"general-store/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Services bundles the core services the application layer drives.
type Services struct {
	Catalog   core.CatalogService
	Sequences core.SequenceService
	Ledger    core.StockLedger
	Receiving core.ReceivingService
	Sales     core.SaleService
	Returns   core.ReturnService
	Registry  core.RegistryService
}

// NewServices wires the core services against one pool.
func NewServices(pool *pgxpool.Pool, log *zap.Logger) Services {
	seq := core.NewSequenceService(pool)
	ledger := core.NewStockLedger(pool, log)
	return Services{
		Catalog:   core.NewCatalogService(pool, seq),
		Sequences: seq,
		Ledger:    ledger,
		Receiving: core.NewReceivingService(pool, seq, ledger, log),
		Sales:     core.NewSaleService(pool, seq, ledger, log),
		Returns:   core.NewReturnService(pool, seq, ledger, log),
		Registry:  core.NewRegistryService(pool, nil),
	}
}

type appService struct {
	svc    Services
	cache  cache.LookupCache
	logger *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
// A nil cache disables lookup caching.
func NewAppService(svc Services, lookupCache cache.LookupCache, log *zap.Logger) ApplicationService {
	if lookupCache == nil {
		lookupCache = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &appService{svc: svc, cache: lookupCache, logger: log}
}

func (s *appService) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.logger)
}

// invalidate drops cached snapshots for lots whose counters just changed. A cache failure
// is logged and otherwise ignored; the entry expires on its own.
func (s *appService) invalidate(ctx context.Context, barcodes ...string) {
	if len(barcodes) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, barcodes...); err != nil {
		s.log(ctx).Warn("lookup cache invalidation failed",
			zap.Strings("barcodes", barcodes), zap.Error(err))
	}
}

// ── Catalog ─────────────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.svc.Catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) GetProduct(ctx context.Context, id int) (*core.Product, error) {
	return s.svc.Catalog.GetProduct(ctx, id)
}

func (s *appService) CreateProduct(ctx context.Context, req ProductRequest) (*core.Product, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Catalog.CreateProduct(ctx, in)
}

func (s *appService) UpdateProduct(ctx context.Context, id int, req ProductRequest) (*core.Product, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Catalog.UpdateProduct(ctx, id, in)
}

func (s *appService) DeleteProduct(ctx context.Context, id int) error {
	return s.svc.Catalog.DeleteProduct(ctx, id)
}

func (s *appService) ListVendors(ctx context.Context) (*VendorListResult, error) {
	vendors, err := s.svc.Catalog.ListVendors(ctx)
	if err != nil {
		return nil, err
	}
	return &VendorListResult{Vendors: vendors}, nil
}

func (s *appService) GetVendor(ctx context.Context, id int) (*core.Vendor, error) {
	return s.svc.Catalog.GetVendor(ctx, id)
}

func (s *appService) CreateVendor(ctx context.Context, req VendorRequest) (*core.Vendor, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Catalog.CreateVendor(ctx, in)
}

func (s *appService) UpdateVendor(ctx context.Context, id int, req VendorRequest) (*core.Vendor, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	return s.svc.Catalog.UpdateVendor(ctx, id, in)
}

func (s *appService) DeleteVendor(ctx context.Context, id int) error {
	return s.svc.Catalog.DeleteVendor(ctx, id)
}

// ── Receiving ───────────────────────────────────────────────────────────────

func (s *appService) ReceiveShipment(ctx context.Context, req ReceivingRequest) (*core.Receiving, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	rec, err := s.svc.Receiving.ReceiveShipment(ctx, in)
	if err != nil {
		return nil, err
	}
	barcodes := make([]string, 0, len(rec.Lines))
	for _, l := range rec.Lines {
		barcodes = append(barcodes, l.Barcode)
	}
	s.invalidate(ctx, barcodes...)
	return rec, nil
}

func (s *appService) GetReceiving(ctx context.Context, orderNumber string) (*core.Receiving, error) {
	return s.svc.Receiving.GetReceiving(ctx, strings.TrimSpace(orderNumber))
}

func (s *appService) ListReceivings(ctx context.Context) (*ReceivingListResult, error) {
	receivings, err := s.svc.Receiving.ListReceivings(ctx)
	if err != nil {
		return nil, err
	}
	return &ReceivingListResult{Receivings: receivings}, nil
}

// ── Sales and returns ───────────────────────────────────────────────────────

func (s *appService) RecordSale(ctx context.Context, req SaleRequest) (*core.Sale, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	sale, err := s.svc.Sales.RecordSale(ctx, in)
	if err != nil {
		return nil, err
	}
	barcodes := make([]string, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		barcodes = append(barcodes, l.Barcode)
	}
	s.invalidate(ctx, barcodes...)
	return sale, nil
}

func (s *appService) GetSale(ctx context.Context, saleNumber string) (*core.Sale, error) {
	return s.svc.Sales.GetSale(ctx, strings.TrimSpace(saleNumber))
}

func (s *appService) GetSaleDetails(ctx context.Context, saleNumber string) (*SaleDetailResult, error) {
	saleNumber = strings.TrimSpace(saleNumber)
	if saleNumber == "" {
		return nil, invalid("sale number not provided")
	}
	sale, err := s.svc.Sales.GetSale(ctx, saleNumber)
	if err != nil {
		return nil, err
	}
	return newSaleDetailResult(sale), nil
}

func (s *appService) ListSales(ctx context.Context) (*SaleListResult, error) {
	sales, err := s.svc.Sales.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return &SaleListResult{Sales: sales}, nil
}

func (s *appService) RecordReturn(ctx context.Context, req ReturnRequest) (*core.SaleReturn, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	ret, err := s.svc.Returns.RecordReturn(ctx, in)
	if err != nil {
		return nil, err
	}
	barcodes := make([]string, 0, len(ret.Lines))
	for _, l := range ret.Lines {
		barcodes = append(barcodes, l.Barcode)
	}
	s.invalidate(ctx, barcodes...)
	return ret, nil
}

func (s *appService) GetReturn(ctx context.Context, returnNumber string) (*core.SaleReturn, error) {
	return s.svc.Returns.GetReturn(ctx, strings.TrimSpace(returnNumber))
}

func (s *appService) ListReturns(ctx context.Context) (*ReturnListResult, error) {
	returns, err := s.svc.Returns.ListReturns(ctx)
	if err != nil {
		return nil, err
	}
	return &ReturnListResult{Returns: returns}, nil
}

// ── Stock ───────────────────────────────────────────────────────────────────

func (s *appService) ListStock(ctx context.Context) (*StockResult, error) {
	entries, err := s.svc.Ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	return &StockResult{Entries: entries}, nil
}

func (s *appService) ListOutOfStock(ctx context.Context) (*StockResult, error) {
	entries, err := s.svc.Ledger.ListOutOfStock(ctx)
	if err != nil {
		return nil, err
	}
	return &StockResult{Entries: entries, OutOfStock: true}, nil
}

func (s *appService) GetStock(ctx context.Context, barcode string) (*core.StockEntry, error) {
	return s.svc.Ledger.Get(ctx, strings.TrimSpace(barcode))
}

// LookupProduct reads through the cache. Cache errors degrade to a database read.
// The snapshot is cached under the generation seen before the ledger read, so a sale
// committed in between leaves the cache empty instead of holding the older counters.
func (s *appService) LookupProduct(ctx context.Context, barcode string) (*LookupResult, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return &LookupResult{}, nil
	}

	cacheable := true
	snap, gen, err := s.cache.Get(ctx, barcode)
	if err != nil {
		s.log(ctx).Warn("lookup cache read failed", zap.String("barcode", barcode), zap.Error(err))
		snap, cacheable = nil, false
	}
	if snap != nil {
		return newLookupResult(snap), nil
	}

	snap, err = s.svc.Ledger.Lookup(ctx, barcode)
	if errors.Is(err, core.ErrNotFound) {
		return &LookupResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.Set(ctx, barcode, gen, snap); err != nil {
			s.log(ctx).Warn("lookup cache write failed", zap.String("barcode", barcode), zap.Error(err))
		}
	}
	return newLookupResult(snap), nil
}

func (s *appService) ReturnToVendor(ctx context.Context, req VendorReturnRequest) (*core.StockEntry, error) {
	barcode, qty, err := req.parse()
	if err != nil {
		return nil, err
	}
	entry, err := s.svc.Ledger.ReturnToVendor(ctx, barcode, qty)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, barcode)
	s.log(ctx).Info("stock returned to vendor",
		zap.String("barcode", barcode),
		zap.Int("qty", qty),
		zap.Int("available_qty", entry.AvailableQty))
	return entry, nil
}

func (s *appService) ExportStock(ctx context.Context, w io.Writer) error {
	entries, err := s.svc.Ledger.List(ctx)
	if err != nil {
		return err
	}
	return core.WriteStockReport(w, entries)
}

// ── Sequences and registry ──────────────────────────────────────────────────

func (s *appService) PeekSequence(ctx context.Context, series string) (*SequenceResult, error) {
	parsed, err := core.ParseSeries(series)
	if err != nil {
		return nil, err
	}
	next, err := s.svc.Sequences.Peek(ctx, parsed)
	if err != nil {
		return nil, err
	}
	return &SequenceResult{Series: string(parsed), Next: next}, nil
}

func (s *appService) ListEntities() []string {
	return s.svc.Registry.Entities()
}

func (s *appService) ListEntity(ctx context.Context, name, search string, limit int) (*core.EntityPage, error) {
	return s.svc.Registry.ListEntity(ctx, name, strings.TrimSpace(search), limit)
}
