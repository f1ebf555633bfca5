package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"general-store/internal/app"
)

// The checkout, return and receiving screens post HTML forms. Grid rows arrive as
// parallel "name[]" lists; the receiving grid arrives as a JSON array in "rows".

const maxFormMemory = 1 << 20

func parseForm(r *http.Request) (url.Values, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}

// column returns the i-th entry of a parallel list, or "" when the list is short.
func column(form url.Values, name string, i int) string {
	values := form[name+"[]"]
	if i < len(values) {
		return values[i]
	}
	return ""
}

func saleRequestFromForm(form url.Values) app.SaleRequest {
	req := app.SaleRequest{
		CustomerName:    form.Get("customer_name"),
		CustomerContact: form.Get("contact_number"),
		SaleDate:        app.FormValue(form.Get("sale_date")),
		TotalQuantity:   app.FormValue(form.Get("total_quantity")),
		TotalAmount:     app.FormValue(form.Get("total_amount")),
		CashReceived:    app.FormValue(form.Get("cash_received")),
		CashReturn:      app.FormValue(form.Get("cash_return")),
	}
	for i := range form["barcode[]"] {
		req.Lines = append(req.Lines, app.SaleLineRequest{
			Barcode:       column(form, "barcode", i),
			ItemCode:      column(form, "item_code", i),
			ProductName:   column(form, "product_name", i),
			CompanyName:   column(form, "company_name", i),
			Specification: column(form, "specification", i),
			Qty:           app.FormValue(column(form, "qty", i)),
			SaleRate:      app.FormValue(column(form, "sale_rate", i)),
			Amount:        app.FormValue(column(form, "amount", i)),
		})
	}
	return req
}

func returnRequestFromForm(form url.Values) app.ReturnRequest {
	req := app.ReturnRequest{
		ReturnNumber:    form.Get("return_number"),
		SaleNumber:      form.Get("sale_number"),
		SaleDate:        app.FormValue(form.Get("sale_date")),
		CustomerName:    form.Get("customer_name"),
		CustomerContact: form.Get("contact_number"),
		ReturnDate:      app.FormValue(form.Get("return_date")),
		Reason:          form.Get("return_reason"),
	}
	for i := range form["barcode[]"] {
		req.Lines = append(req.Lines, app.ReturnLineRequest{
			Barcode:       column(form, "barcode", i),
			Description:   column(form, "description", i),
			Specification: column(form, "specification", i),
			Qty:           app.FormValue(column(form, "qty", i)),
			SaleAmount:    app.FormValue(column(form, "sale_rate", i)),
		})
	}
	return req
}

// receivingRow is one entry of the receiving grid's "rows" JSON.
type receivingRow struct {
	ItemCode string        `json:"item_code"`
	Barcode  string        `json:"barcode_number"`
	Qty      app.FormValue `json:"qty"`
	Rate     app.FormValue `json:"rate"`
	SaleRate app.FormValue `json:"sale_rate"`
	ExpDate  app.FormValue `json:"exp_date"`
}

// receivingRequestFromForm reads the vendor picker ("code-name") and the rows JSON.
func receivingRequestFromForm(form url.Values) (app.ReceivingRequest, error) {
	vendor := strings.TrimSpace(form.Get("vendor"))
	if code, _, ok := strings.Cut(vendor, "-"); ok {
		vendor = strings.TrimSpace(code)
	}
	req := app.ReceivingRequest{
		VendorCode: vendor,
		OrderDate:  app.FormValue(form.Get("order_date")),
	}

	raw := form.Get("rows")
	if strings.TrimSpace(raw) == "" {
		raw = "[]"
	}
	var rows []receivingRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return req, fmt.Errorf("invalid product data format: %w", err)
	}
	for _, row := range rows {
		req.Lines = append(req.Lines, app.ReceivingLineRequest{
			ItemCode:   row.ItemCode,
			Barcode:    row.Barcode,
			Qty:        row.Qty,
			Rate:       row.Rate,
			SaleRate:   row.SaleRate,
			ExpireDate: row.ExpDate,
		})
	}
	return req, nil
}
