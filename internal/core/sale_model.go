package core

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a point-of-sale header with its lines.
type Sale struct {
	ID              int             `json:"id"`
	SaleNumber      string          `json:"sale_number"`
	SaleDate        time.Time       `json:"sale_date"`
	CustomerName    string          `json:"customer_name"`
	CustomerContact *string         `json:"customer_contact,omitempty"`
	TotalQuantity   int             `json:"total_quantity"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CashReceived    decimal.Decimal `json:"cash_received"`
	CashReturn      decimal.Decimal `json:"cash_return"`
	CreatedAt       time.Time       `json:"created_at"`
	Lines           []SaleLine      `json:"lines,omitempty"`
}

// SaleLine is one sold lot. Descriptive fields are copied from the ledger snapshot unless
// the caller supplied them.
type SaleLine struct {
	ID            int             `json:"id"`
	SaleID        int             `json:"sale_id"`
	LineNumber    int             `json:"line_number"`
	Barcode       string          `json:"barcode"`
	ItemCode      string          `json:"item_code"`
	ProductName   string          `json:"product_name"`
	CompanyName   string          `json:"company_name"`
	Specification *string         `json:"specification,omitempty"`
	Qty           int             `json:"qty"`
	SaleRate      decimal.Decimal `json:"sale_rate"`
	Amount        decimal.Decimal `json:"amount"`
}

// SaleLineInput is one row of the checkout grid. Nil SaleRate or Amount means the field
// was left blank.
type SaleLineInput struct {
	Barcode       string
	ItemCode      string
	ProductName   string
	CompanyName   string
	Specification string
	Qty           int
	SaleRate      *decimal.Decimal
	Amount        *decimal.Decimal
}

// Blank reports whether the row is an unused grid row.
func (l SaleLineInput) Blank() bool { return strings.TrimSpace(l.Barcode) == "" }

// SaleInput is a checkout request. Nil totals are computed from the accepted lines;
// supplied totals must agree with them. A zero SaleDate means today.
type SaleInput struct {
	CustomerName    string
	CustomerContact string
	SaleDate        time.Time
	Lines           []SaleLineInput
	TotalQuantity   *int
	TotalAmount     *decimal.Decimal
	CashReceived    *decimal.Decimal
	CashReturn      *decimal.Decimal
}

// AcceptedLines returns the non-blank rows in submission order.
func (in SaleInput) AcceptedLines() []SaleLineInput {
	var lines []SaleLineInput
	for _, l := range in.Lines {
		if !l.Blank() {
			lines = append(lines, l)
		}
	}
	return lines
}

// Validate checks what can be checked without touching the ledger.
func (in SaleInput) Validate() error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return validationf("customer name is required")
	}
	lines := in.AcceptedLines()
	if len(lines) == 0 {
		return validationf("at least one sale line with a barcode is required")
	}
	for i, l := range lines {
		if l.Qty <= 0 {
			return validationf("line %d (barcode %s): quantity must be positive, got %d", i+1, l.Barcode, l.Qty)
		}
		if l.SaleRate != nil && l.SaleRate.IsNegative() {
			return validationf("line %d (barcode %s): sale rate cannot be negative", i+1, l.Barcode)
		}
		if l.Amount != nil && l.Amount.IsNegative() {
			return validationf("line %d (barcode %s): amount cannot be negative", i+1, l.Barcode)
		}
	}
	return nil
}

// SaleTotals are the header aggregates persisted with a sale.
type SaleTotals struct {
	TotalQuantity int
	TotalAmount   decimal.Decimal
	CashReceived  decimal.Decimal
	CashReturn    decimal.Decimal
}

// ResolveTotals reconciles the caller's header figures with the line sums.
// Blank figures are filled in; supplied ones that disagree are a validation error.
// Cash received defaults to the total; cash return defaults to cash received minus total.
func ResolveTotals(in SaleInput, lines []SaleLine) (SaleTotals, error) {
	var t SaleTotals
	t.TotalAmount = decimal.Zero
	for _, l := range lines {
		t.TotalQuantity += l.Qty
		t.TotalAmount = t.TotalAmount.Add(l.Amount)
	}

	if in.TotalQuantity != nil && *in.TotalQuantity != t.TotalQuantity {
		return t, validationf("total quantity %d does not match line sum %d", *in.TotalQuantity, t.TotalQuantity)
	}
	if in.TotalAmount != nil && !in.TotalAmount.Equal(t.TotalAmount) {
		return t, validationf("total amount %s does not match line sum %s",
			in.TotalAmount.StringFixed(2), t.TotalAmount.StringFixed(2))
	}

	t.CashReceived = t.TotalAmount
	if in.CashReceived != nil {
		if in.CashReceived.LessThan(t.TotalAmount) {
			return t, validationf("cash received %s is less than total %s",
				in.CashReceived.StringFixed(2), t.TotalAmount.StringFixed(2))
		}
		t.CashReceived = *in.CashReceived
	}

	change := t.CashReceived.Sub(t.TotalAmount)
	t.CashReturn = change
	if in.CashReturn != nil {
		if !in.CashReturn.Equal(change) {
			return t, validationf("cash return %s does not match cash received minus total %s",
				in.CashReturn.StringFixed(2), change.StringFixed(2))
		}
	}
	return t, nil
}

// SaleService records checkouts.
type SaleService interface {
	// RecordSale allocates the sale number, commits every accepted line against the ledger
	// and writes the header and lines in one transaction. Any shortage aborts the sale.
	RecordSale(ctx context.Context, input SaleInput) (*Sale, error)
	GetSale(ctx context.Context, saleNumber string) (*Sale, error)
	ListSales(ctx context.Context) ([]Sale, error)
}
