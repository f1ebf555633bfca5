package app

import (
	"general-store/internal/core"

	"github.com/shopspring/decimal"
)

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// VendorListResult is returned by ListVendors.
type VendorListResult struct {
	Vendors []core.Vendor `json:"vendors"`
}

// ReceivingListResult is returned by ListReceivings.
type ReceivingListResult struct {
	Receivings []core.Receiving `json:"receivings"`
}

// SaleListResult is returned by ListSales.
type SaleListResult struct {
	Sales []core.Sale `json:"sales"`
}

// ReturnListResult is returned by ListReturns.
type ReturnListResult struct {
	Returns []core.SaleReturn `json:"returns"`
}

// StockResult is returned by ListStock and ListOutOfStock.
type StockResult struct {
	Entries    []core.StockEntry `json:"entries"`
	OutOfStock bool              `json:"out_of_stock"`
}

// SequenceResult previews the next identifier of a series.
type SequenceResult struct {
	Series string `json:"series"`
	Next   string `json:"next"`
}

// LookupResult is the point-of-sale answer for a scanned barcode. It has three shapes:
// empty for a blank or unknown barcode, item code with qty 0 when the lot is sold out,
// and the full snapshot with qty 1 otherwise.
type LookupResult struct {
	ItemCode      string   `json:"item_code,omitempty"`
	ProductName   *string  `json:"product_name,omitempty"`
	CompanyName   *string  `json:"company_name,omitempty"`
	Specification *string  `json:"specification,omitempty"`
	SaleRate      *float64 `json:"sale_rate,omitempty"`
	Qty           *int     `json:"qty,omitempty"`
	AvailableQty  *int     `json:"available_qty,omitempty"`
}

// Found reports whether the barcode matched a ledger entry.
func (r LookupResult) Found() bool { return r.ItemCode != "" }

func newLookupResult(snap *core.ProductSnapshot) *LookupResult {
	if snap == nil {
		return &LookupResult{}
	}
	if !snap.InStock() {
		zero := 0
		return &LookupResult{ItemCode: snap.ItemCode, Qty: &zero}
	}
	one := 1
	rate := money(snap.SaleRate)
	available := snap.AvailableQty
	return &LookupResult{
		ItemCode:      snap.ItemCode,
		ProductName:   &snap.ProductName,
		CompanyName:   &snap.CompanyName,
		Specification: &snap.Specification,
		SaleRate:      &rate,
		Qty:           &one,
		AvailableQty:  &available,
	}
}

// SaleDetailResult is the sale summary used to prefill the return form.
type SaleDetailResult struct {
	SaleDate        string           `json:"sale_date"`
	CustomerName    string           `json:"customer_name"`
	CustomerContact *string          `json:"customer_contact"`
	Items           []SaleDetailItem `json:"items"`
}

// SaleDetailItem is one sold line in a SaleDetailResult.
type SaleDetailItem struct {
	Barcode       string  `json:"barcode"`
	ItemCode      string  `json:"item_code"`
	Description   string  `json:"description"`
	Specification string  `json:"specification"`
	Qty           int     `json:"qty"`
	SaleRate      float64 `json:"sale_rate"`
	Amount        float64 `json:"amount"`
}

func newSaleDetailResult(sale *core.Sale) *SaleDetailResult {
	res := &SaleDetailResult{
		SaleDate:        sale.SaleDate.Format(DateLayout),
		CustomerName:    sale.CustomerName,
		CustomerContact: sale.CustomerContact,
		Items:           make([]SaleDetailItem, 0, len(sale.Lines)),
	}
	for _, l := range sale.Lines {
		spec := ""
		if l.Specification != nil {
			spec = *l.Specification
		}
		res.Items = append(res.Items, SaleDetailItem{
			Barcode:       l.Barcode,
			ItemCode:      l.ItemCode,
			Description:   l.ProductName,
			Specification: spec,
			Qty:           l.Qty,
			SaleRate:      money(l.SaleRate),
			Amount:        money(l.Amount),
		})
	}
	return res
}

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }
