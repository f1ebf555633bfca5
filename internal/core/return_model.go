package core

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SaleReturn is a customer return header. SaleNumber and SaleDate echo the original sale
// as typed by the clerk; they are not foreign keys.
type SaleReturn struct {
	ID              int             `json:"id"`
	ReturnNumber    string          `json:"return_number"`
	SaleNumber      string          `json:"sale_number"`
	SaleDate        *time.Time      `json:"sale_date,omitempty"`
	CustomerName    string          `json:"customer_name"`
	CustomerContact *string         `json:"customer_contact,omitempty"`
	ReturnDate      *time.Time      `json:"return_date,omitempty"`
	Reason          *string         `json:"reason,omitempty"`
	TotalQuantity   int             `json:"total_quantity"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AmountRefunded  decimal.Decimal `json:"amount_refunded"`
	CreatedAt       time.Time       `json:"created_at"`
	Lines           []ReturnLine    `json:"lines,omitempty"`

	// UnmatchedBarcodes lists recorded lines whose barcode has no ledger entry, so no
	// stock was adjusted for them. Only populated on the RecordReturn result.
	UnmatchedBarcodes []string `json:"unmatched_barcodes,omitempty"`
}

// ReturnLine is one returned item.
type ReturnLine struct {
	ID            int             `json:"id"`
	ReturnID      int             `json:"return_id"`
	LineNumber    int             `json:"line_number"`
	Barcode       string          `json:"barcode"`
	Description   string          `json:"description"`
	Specification *string         `json:"specification,omitempty"`
	Qty           int             `json:"qty"`
	SaleAmount    decimal.Decimal `json:"sale_amount"`  // per unit
	TotalAmount   decimal.Decimal `json:"total_amount"` // qty * sale_amount
}

// ReturnLineInput is one row of the return grid.
type ReturnLineInput struct {
	Barcode       string
	Description   string
	Specification string
	Qty           int
	SaleAmount    decimal.Decimal
}

// Accepted reports whether the row takes part in the return.
func (l ReturnLineInput) Accepted() bool {
	return strings.TrimSpace(l.Barcode) != "" && l.Qty > 0
}

// ReturnInput is a customer return request. A blank ReturnNumber is allocated from the
// return series.
type ReturnInput struct {
	ReturnNumber    string
	SaleNumber      string
	SaleDate        *time.Time
	CustomerName    string
	CustomerContact string
	ReturnDate      *time.Time
	Reason          string
	Lines           []ReturnLineInput
}

// AcceptedLines drops rows with a blank barcode or a non-positive quantity.
func (in ReturnInput) AcceptedLines() []ReturnLineInput {
	var lines []ReturnLineInput
	for _, l := range in.Lines {
		if l.Accepted() {
			lines = append(lines, l)
		}
	}
	return lines
}

// Validate rejects negative unit amounts on accepted rows.
func (in ReturnInput) Validate() error {
	for i, l := range in.AcceptedLines() {
		if l.SaleAmount.IsNegative() {
			return validationf("line %d (barcode %s): amount cannot be negative", i+1, l.Barcode)
		}
	}
	return nil
}

// ReturnTotals sums quantity and value over accepted lines. Refunded equals the line value;
// there is no restocking fee.
func ReturnTotals(lines []ReturnLine) (qty int, total, refunded decimal.Decimal) {
	total = decimal.Zero
	for _, l := range lines {
		qty += l.Qty
		total = total.Add(l.TotalAmount)
	}
	return qty, total, total
}

// ReturnService records customer returns.
type ReturnService interface {
	// RecordReturn writes the header and accepted lines and puts returned quantities back
	// into stock, all in one transaction. Lines for unknown barcodes are kept without a
	// stock change and reported in UnmatchedBarcodes.
	RecordReturn(ctx context.Context, input ReturnInput) (*SaleReturn, error)
	GetReturn(ctx context.Context, returnNumber string) (*SaleReturn, error)
	ListReturns(ctx context.Context) ([]SaleReturn, error)
}
