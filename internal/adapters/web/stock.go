package web

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"general-store/internal/app"
	"general-store/internal/core"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// apiListStock handles GET /api/stock. ?out_of_stock=true limits the list to sold-out lots.
func (h *Handler) apiListStock(w http.ResponseWriter, r *http.Request) {
	outOnly, _ := strconv.ParseBool(r.URL.Query().Get("out_of_stock"))

	var (
		result *app.StockResult
		err    error
	)
	if outOnly {
		result, err = h.svc.ListOutOfStock(r.Context())
	} else {
		result, err = h.svc.ListStock(r.Context())
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Entries)
}

// apiGetStock handles GET /api/stock/{barcode}.
func (h *Handler) apiGetStock(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.GetStock(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, entry)
}

// apiVendorReturn handles POST /api/stock/{barcode}/vendor-return.
// Body: { qty }
func (h *Handler) apiVendorReturn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Qty app.FormValue `json:"qty"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	entry, err := h.svc.ReturnToVendor(r.Context(), app.VendorReturnRequest{
		Barcode: chi.URLParam(r, "barcode"),
		Qty:     body.Qty,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, entry)
}

// apiExportStock handles GET /api/stock/export. The workbook is rendered in memory so a
// failure can still be reported as JSON.
func (h *Handler) apiExportStock(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportStock(r.Context(), &buf); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="stock.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("stock export write failed", zap.Error(err))
	}
}

// lookupProduct handles GET /ajax/get-product?barcode=... for the checkout scanner.
// Blank and unknown barcodes answer {} with status 200.
func (h *Handler) lookupProduct(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.LookupProduct(r.Context(), r.URL.Query().Get("barcode"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPeekSequence handles GET /api/sequences/{series}/next.
func (h *Handler) apiPeekSequence(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.PeekSequence(r.Context(), chi.URLParam(r, "series"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListEntities handles GET /api/admin.
func (h *Handler) apiListEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.ListEntities())
}

// apiListEntity handles GET /api/admin/{entity}?search=...&limit=...
func (h *Handler) apiListEntity(w http.ResponseWriter, r *http.Request) {
	limit := core.DefaultEntityLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, "limit must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		limit = n
	}

	page, err := h.svc.ListEntity(r.Context(), chi.URLParam(r, "entity"), r.URL.Query().Get("search"), limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, page)
}
