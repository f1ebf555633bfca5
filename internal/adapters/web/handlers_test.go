package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"general-store/internal/app"
	"general-store/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeApp answers the calls the handlers make. Unused methods panic via the embedded nil
// interface, which Recoverer turns into a 500.
type fakeApp struct {
	app.ApplicationService

	err          error
	lookup       *app.LookupResult
	sale         *core.Sale
	saleReq      app.SaleRequest
	returnReq    app.ReturnRequest
	receivingReq app.ReceivingRequest
	vendorReturn app.VendorReturnRequest
	entityLimit  int
}

func (f *fakeApp) LookupProduct(_ context.Context, barcode string) (*app.LookupResult, error) {
	if f.lookup == nil || barcode == "" {
		return &app.LookupResult{}, nil
	}
	return f.lookup, nil
}

func (f *fakeApp) RecordSale(_ context.Context, req app.SaleRequest) (*core.Sale, error) {
	f.saleReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &core.Sale{SaleNumber: "0000001", CustomerName: req.CustomerName}, nil
}

func (f *fakeApp) GetSaleDetails(_ context.Context, number string) (*app.SaleDetailResult, error) {
	if number == "" {
		return nil, &core.Error{Kind: core.KindValidation, Message: "sale number not provided"}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &app.SaleDetailResult{SaleDate: "2026-03-01", CustomerName: "Ann", Items: []app.SaleDetailItem{}}, nil
}

func (f *fakeApp) RecordReturn(_ context.Context, req app.ReturnRequest) (*core.SaleReturn, error) {
	f.returnReq = req
	return &core.SaleReturn{ReturnNumber: "000001", UnmatchedBarcodes: []string{"ZZZ"}}, nil
}

func (f *fakeApp) ReceiveShipment(_ context.Context, req app.ReceivingRequest) (*core.Receiving, error) {
	f.receivingReq = req
	return &core.Receiving{OrderNumber: "0000001", VendorCode: req.VendorCode}, nil
}

func (f *fakeApp) GetProduct(_ context.Context, id int) (*core.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &core.Product{ID: id, ItemCode: "000001", ProductName: "Rice"}, nil
}

func (f *fakeApp) DeleteProduct(context.Context, int) error { return f.err }

func (f *fakeApp) ReturnToVendor(_ context.Context, req app.VendorReturnRequest) (*core.StockEntry, error) {
	f.vendorReturn = req
	return &core.StockEntry{Barcode: req.Barcode, AvailableQty: 5}, nil
}

func (f *fakeApp) ExportStock(_ context.Context, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK-fake-workbook"))
	return err
}

func (f *fakeApp) ListEntity(_ context.Context, name, _ string, limit int) (*core.EntityPage, error) {
	f.entityLimit = limit
	if name != "products" {
		return nil, &core.Error{Kind: core.KindNotFound, Message: fmt.Sprintf("unknown entity %q", name)}
	}
	return &core.EntityPage{Entity: name, Columns: []string{"id"}, Rows: [][]*string{}}, nil
}

func serve(t *testing.T, svc app.ApplicationService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewHandler(svc, Options{}, nil).ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeApp{}, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_KeepsSafeCallerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "till-7-abc")
	rec := serve(t, &fakeApp{}, req)
	assert.Equal(t, "till-7-abc", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "bad id; drop table")
	rec = serve(t, &fakeApp{}, req)
	assert.NotEqual(t, "bad id; drop table", rec.Header().Get("X-Request-ID"))
}

func TestLookupEndpoint(t *testing.T) {
	zero := 0
	svc := &fakeApp{lookup: &app.LookupResult{ItemCode: "000002", Qty: &zero}}

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/ajax/get-product", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = serve(t, svc, httptest.NewRequest(http.MethodGet, "/ajax/get-product?barcode=B2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"item_code":"000002","qty":0}`, rec.Body.String())
}

func TestSaleDetailsEndpoint(t *testing.T) {
	rec := serve(t, &fakeApp{}, httptest.NewRequest(http.MethodGet, "/get-sale-details", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, rec).Code)

	missing := &fakeApp{err: fmt.Errorf("get sale: %w", &core.Error{Kind: core.KindNotFound, Message: "sale 0009999 not found"})}
	rec = serve(t, missing, httptest.NewRequest(http.MethodGet, "/get-sale-details?sale_number=0009999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, &fakeApp{}, httptest.NewRequest(http.MethodGet, "/get-sale-details?sale_number=0000001", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"customer_name":"Ann"`)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &core.Error{Kind: core.KindValidation, Message: "customer name is required"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"shortage", fmt.Errorf("line 2: %w", &core.Error{Kind: core.KindInsufficientStock, Message: "only 3 left"}), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"duplicate", &core.Error{Kind: core.KindDuplicateKey, Message: "barcode already exists"}, http.StatusConflict, "DUPLICATE_KEY"},
		{"race", &core.Error{Kind: core.KindSequenceRace, Message: "sale number was taken"}, http.StatusConflict, "SEQUENCE_RACE"},
		{"deadlock", fmt.Errorf("line 1: %w", &core.Error{Kind: core.KindConcurrentUpdate, Message: "stock was changed by a concurrent request, please retry"}), http.StatusConflict, "CONCURRENT_UPDATE"},
		{"not found", &core.Error{Kind: core.KindNotFound, Message: "barcode not found"}, http.StatusNotFound, "NOT_FOUND"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/sales", strings.NewReader(`{"customer_name":"A"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := serve(t, &fakeApp{err: tc.err}, req)

			assert.Equal(t, tc.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.RequestID)
			if tc.code == "INTERNAL_ERROR" {
				assert.NotContains(t, body.Error, "connection reset")
			} else {
				assert.Equal(t, tc.err.Error(), body.Error)
			}
			assert.Equal(t, tc.code == "SEQUENCE_RACE" || tc.code == "CONCURRENT_UPDATE", body.Retryable)
		})
	}
}

func TestRecordSale_FormPost(t *testing.T) {
	form := url.Values{
		"customer_name":  {"Walk-in"},
		"contact_number": {"555"},
		"total_amount":   {"15.00"},
		"barcode[]":      {"B1", "", "B2"},
		"qty[]":          {"2", "", "1"},
		"sale_rate[]":    {"7.50", "", "4"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/sales", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	svc := &fakeApp{}
	rec := serve(t, svc, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Walk-in", svc.saleReq.CustomerName)
	assert.Equal(t, app.FormValue("15.00"), svc.saleReq.TotalAmount)
	require.Len(t, svc.saleReq.Lines, 3)
	assert.Equal(t, "B2", svc.saleReq.Lines[2].Barcode)
	assert.Equal(t, app.FormValue("4"), svc.saleReq.Lines[2].SaleRate)
	assert.Equal(t, app.FormValue(""), svc.saleReq.Lines[2].Amount)
}

func TestRecordSale_JSONNumbers(t *testing.T) {
	body := `{"customer_name":"A","lines":[{"barcode":"B1","qty":2,"sale_rate":7.5}],"cash_received":20}`
	req := httptest.NewRequest(http.MethodPost, "/api/sales", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	svc := &fakeApp{}
	rec := serve(t, svc, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.saleReq.Lines, 1)
	assert.Equal(t, "2", svc.saleReq.Lines[0].Qty.String())
	assert.Equal(t, "20", svc.saleReq.CashReceived.String())
}

func TestRecordReturn_FormPost(t *testing.T) {
	form := url.Values{
		"sale_number":   {"0000001"},
		"return_reason": {"damaged"},
		"barcode[]":     {"B1", "ZZZ"},
		"description[]": {"Rice", "Unknown"},
		"qty[]":         {"1", "1"},
		"sale_rate[]":   {"7.50", "2"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/returns", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	svc := &fakeApp{}
	rec := serve(t, svc, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "damaged", svc.returnReq.Reason)
	require.Len(t, svc.returnReq.Lines, 2)
	assert.Equal(t, "Rice", svc.returnReq.Lines[0].Description)
	assert.Contains(t, rec.Body.String(), `"unmatched_barcodes":["ZZZ"]`)
}

func TestReceiveShipment_FormPost(t *testing.T) {
	form := url.Values{
		"vendor": {"000001-Main Supplier"},
		"rows":   {`[{"item_code":"000001","barcode_number":"B1","qty":10,"rate":"5.00","sale_rate":"7.50","exp_date":""}]`},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/receivings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	svc := &fakeApp{}
	rec := serve(t, svc, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "000001", svc.receivingReq.VendorCode)
	require.Len(t, svc.receivingReq.Lines, 1)
	assert.Equal(t, "B1", svc.receivingReq.Lines[0].Barcode)
	assert.Equal(t, "10", svc.receivingReq.Lines[0].Qty.String())

	bad := url.Values{"vendor": {"000001"}, "rows": {"not json"}}
	req = httptest.NewRequest(http.MethodPost, "/api/receivings", strings.NewReader(bad.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = serve(t, svc, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductRoutes(t *testing.T) {
	rec := serve(t, &fakeApp{}, httptest.NewRequest(http.MethodGet, "/api/products/7", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":7`)

	rec = serve(t, &fakeApp{}, httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, &fakeApp{}, httptest.NewRequest(http.MethodDelete, "/api/products/7", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	inUse := &fakeApp{err: &core.Error{Kind: core.KindReferenceInUse, Message: "record is still referenced"}}
	rec = serve(t, inUse, httptest.NewRequest(http.MethodDelete, "/api/products/7", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "REFERENCE_IN_USE", decodeError(t, rec).Code)
}

func TestVendorReturnRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/stock/B1/vendor-return", strings.NewReader(`{"qty":2}`))
	req.Header.Set("Content-Type", "application/json")
	svc := &fakeApp{}
	rec := serve(t, svc, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "B1", svc.vendorReturn.Barcode)
	assert.Equal(t, "2", svc.vendorReturn.Qty.String())
}

func TestExportRoute(t *testing.T) {
	rec := serve(t, &fakeApp{}, httptest.NewRequest(http.MethodGet, "/api/stock/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "stock.xlsx")
	assert.Equal(t, "PK-fake-workbook", rec.Body.String())
}

func TestAdminRoutes(t *testing.T) {
	svc := &fakeApp{}
	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/admin/products?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.entityLimit)

	rec = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/admin/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.DefaultEntityLimit, svc.entityLimit)

	rec = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/admin/products?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, svc, httptest.NewRequest(http.MethodGet, "/api/admin/widgets", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoverer(t *testing.T) {
	// ListSales is not implemented by fakeApp, so the embedded nil interface panics.
	rec := serve(t, &fakeApp{}, httptest.NewRequest(http.MethodGet, "/api/sales", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestRequestBodyLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewHandler(&fakeApp{}, Options{MaxBodyBytes: 16}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/sales", strings.NewReader(`{"customer_name":"`+strings.Repeat("x", 64)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewHandler(&fakeApp{}, Options{AllowedOrigins: "http://till.local"}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/sales", nil)
	req.Header.Set("Origin", "http://till.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://till.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
