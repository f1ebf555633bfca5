package app

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FormValue is a raw form field. JSON clients may send it as a string or a bare number;
// either way it is kept as text and parsed by the service.
type FormValue string

func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}
	*v = FormValue(data)
	return nil
}

// String returns the value with surrounding whitespace removed.
func (v FormValue) String() string { return strings.TrimSpace(string(v)) }

// Blank reports whether the field was left empty.
func (v FormValue) Blank() bool { return v.String() == "" }

// ProductRequest is the product create/update form.
type ProductRequest struct {
	ItemCode      string `json:"item_code" validate:"max=50"`
	ProductName   string `json:"product_name" validate:"required,max=100"`
	CompanyName   string `json:"company_name" validate:"required,max=100"`
	Specification string `json:"specification" validate:"max=255"`
}

// VendorRequest is the vendor create/update form.
type VendorRequest struct {
	VendorCode  string `json:"vendor_code" validate:"max=50"`
	VendorName  string `json:"vendor_name" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"max=20"`
	CompanyName string `json:"company_name" validate:"required,max=100"`
}

// ReceivingRequest is the stock receiving form: one vendor, one or more lots.
type ReceivingRequest struct {
	VendorCode string                 `json:"vendor_code" validate:"required,max=50"`
	OrderDate  FormValue              `json:"order_date"`
	Lines      []ReceivingLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ReceivingLineRequest is one row of the receiving grid.
type ReceivingLineRequest struct {
	ItemCode   string    `json:"item_code" validate:"required,max=50"`
	Barcode    string    `json:"barcode" validate:"required,max=50"`
	Qty        FormValue `json:"qty"`
	Rate       FormValue `json:"rate"`
	SaleRate   FormValue `json:"sale_rate"`
	ExpireDate FormValue `json:"expire_date"`
}

// SaleRequest is the checkout form. Blank totals are computed; supplied ones are checked.
type SaleRequest struct {
	CustomerName    string            `json:"customer_name" validate:"required,max=100"`
	CustomerContact string            `json:"contact_number" validate:"max=20"`
	SaleDate        FormValue         `json:"sale_date"`
	Lines           []SaleLineRequest `json:"lines" validate:"dive"`
	TotalQuantity   FormValue         `json:"total_quantity"`
	TotalAmount     FormValue         `json:"total_amount"`
	CashReceived    FormValue         `json:"cash_received"`
	CashReturn      FormValue         `json:"cash_return"`
}

// SaleLineRequest is one row of the checkout grid. Rows with a blank barcode are ignored.
type SaleLineRequest struct {
	Barcode       string    `json:"barcode" validate:"max=50"`
	ItemCode      string    `json:"item_code" validate:"max=50"`
	ProductName   string    `json:"product_name" validate:"max=100"`
	CompanyName   string    `json:"company_name" validate:"max=100"`
	Specification string    `json:"specification" validate:"max=255"`
	Qty           FormValue `json:"qty"`
	SaleRate      FormValue `json:"sale_rate"`
	Amount        FormValue `json:"amount"`
}

// ReturnRequest is the customer return form.
type ReturnRequest struct {
	ReturnNumber    string              `json:"return_number" validate:"max=50"`
	SaleNumber      string              `json:"sale_number" validate:"max=50"`
	SaleDate        FormValue           `json:"sale_date"`
	CustomerName    string              `json:"customer_name" validate:"max=100"`
	CustomerContact string              `json:"contact_number" validate:"max=20"`
	ReturnDate      FormValue           `json:"return_date"`
	Reason          string              `json:"return_reason"`
	Lines           []ReturnLineRequest `json:"lines" validate:"dive"`
}

// ReturnLineRequest is one row of the return grid. Rows with a blank barcode or a
// non-positive quantity are ignored.
type ReturnLineRequest struct {
	Barcode       string    `json:"barcode" validate:"max=50"`
	Description   string    `json:"description" validate:"max=255"`
	Specification string    `json:"specification" validate:"max=255"`
	Qty           FormValue `json:"qty"`
	SaleAmount    FormValue `json:"sale_rate"`
}

// VendorReturnRequest sends qty units of a lot back to its vendor.
type VendorReturnRequest struct {
	Barcode string    `json:"barcode" validate:"required,max=50"`
	Qty     FormValue `json:"qty"`
}
