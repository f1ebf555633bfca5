package core

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Receiving is a stock receiving (purchase order) header with its lines.
type Receiving struct {
	ID          int             `json:"id"`
	OrderNumber string          `json:"order_number"`
	OrderDate   time.Time       `json:"order_date"`
	VendorCode  string          `json:"vendor_code"`
	VendorName  string          `json:"vendor_name"`
	TotalQty    int             `json:"total_qty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Lines       []ReceivingLine `json:"lines,omitempty"`
}

// ReceivingLine is one received lot.
type ReceivingLine struct {
	ID          int             `json:"id"`
	OrderNumber string          `json:"order_number"`
	OrderDate   time.Time       `json:"order_date"`
	VendorID    int             `json:"vendor_id"`
	ProductID   int             `json:"product_id"`
	ItemCode    string          `json:"item_code"` // joined from products
	Barcode     string          `json:"barcode"`
	Qty         int             `json:"qty"`
	Rate        decimal.Decimal `json:"rate"`
	SaleRate    decimal.Decimal `json:"sale_rate"`
	ExpireDate  *time.Time      `json:"expire_date,omitempty"`
}

// ReceivingLineInput describes one lot to receive.
type ReceivingLineInput struct {
	ItemCode   string
	Barcode    string
	Qty        int
	Rate       decimal.Decimal
	SaleRate   decimal.Decimal
	ExpireDate *time.Time
}

// ReceivingInput is a shipment from one vendor. A zero OrderDate means today.
type ReceivingInput struct {
	VendorCode string
	OrderDate  time.Time
	Lines      []ReceivingLineInput
}

// Validate checks the shipment before anything is written: a vendor, at least one line,
// complete lines with positive quantities and non-negative rates, and no barcode repeated
// inside the batch.
func (in ReceivingInput) Validate() error {
	if strings.TrimSpace(in.VendorCode) == "" {
		return validationf("vendor code is required")
	}
	if len(in.Lines) == 0 {
		return validationf("at least one receiving line is required")
	}

	seen := make(map[string]int, len(in.Lines))
	for i, line := range in.Lines {
		n := i + 1
		barcode := strings.TrimSpace(line.Barcode)
		if strings.TrimSpace(line.ItemCode) == "" {
			return validationf("line %d: item code is required", n)
		}
		if barcode == "" {
			return validationf("line %d: barcode is required", n)
		}
		if line.Qty <= 0 {
			return validationf("line %d: quantity must be positive, got %d", n, line.Qty)
		}
		if line.Rate.IsNegative() {
			return validationf("line %d: rate cannot be negative", n)
		}
		if line.SaleRate.IsNegative() {
			return validationf("line %d: sale rate cannot be negative", n)
		}
		if prev, ok := seen[barcode]; ok {
			return duplicatef("barcode %s appears on lines %d and %d", barcode, prev, n)
		}
		seen[barcode] = n
	}
	return nil
}

// Totals returns the header aggregates: Σ qty and Σ qty*rate.
func (in ReceivingInput) Totals() (int, decimal.Decimal) {
	qty := 0
	amount := decimal.Zero
	for _, line := range in.Lines {
		qty += line.Qty
		amount = amount.Add(line.Rate.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	return qty, amount
}

// ReceivingService records incoming shipments.
type ReceivingService interface {
	// ReceiveShipment writes the header, every line and every ledger entry in one
	// transaction. Any failing line aborts the whole shipment.
	ReceiveShipment(ctx context.Context, input ReceivingInput) (*Receiving, error)
	GetReceiving(ctx context.Context, orderNumber string) (*Receiving, error)
	ListReceivings(ctx context.Context) ([]Receiving, error)
}
