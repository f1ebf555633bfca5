package web

import (
	"net/http"

	"general-store/internal/app"

	"github.com/go-chi/chi/v5"
)

// ── Receiving ─────────────────────────────────────────────────────────────────

// apiListReceivings handles GET /api/receivings.
func (h *Handler) apiListReceivings(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListReceivings(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Receivings)
}

// apiReceiveShipment handles POST /api/receivings.
// JSON body: { vendor_code, order_date?, lines: [{item_code, barcode, qty, rate, sale_rate, expire_date?}] }
// Form body: vendor=<code>-<name>, rows=<JSON array of grid rows>.
func (h *Handler) apiReceiveShipment(w http.ResponseWriter, r *http.Request) {
	var body app.ReceivingRequest
	if isFormPost(r) {
		form, err := parseForm(r)
		if err != nil {
			writeDecodeError(w, r, err)
			return
		}
		if body, err = receivingRequestFromForm(form); err != nil {
			writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
	} else if !decodeJSON(w, r, &body) {
		return
	}

	rec, err := h.svc.ReceiveShipment(r.Context(), body)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

// apiGetReceiving handles GET /api/receivings/{number}.
func (h *Handler) apiGetReceiving(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetReceiving(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

// ── Sales ─────────────────────────────────────────────────────────────────────

// apiListSales handles GET /api/sales.
func (h *Handler) apiListSales(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListSales(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Sales)
}

// apiRecordSale handles POST /api/sales. Accepts JSON or the checkout form.
func (h *Handler) apiRecordSale(w http.ResponseWriter, r *http.Request) {
	var body app.SaleRequest
	if isFormPost(r) {
		form, err := parseForm(r)
		if err != nil {
			writeDecodeError(w, r, err)
			return
		}
		body = saleRequestFromForm(form)
	} else if !decodeJSON(w, r, &body) {
		return
	}

	sale, err := h.svc.RecordSale(r.Context(), body)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, sale)
}

// apiGetSale handles GET /api/sales/{number}.
func (h *Handler) apiGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.svc.GetSale(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, sale)
}

// saleDetails handles GET /get-sale-details?sale_number=... for the return screen.
func (h *Handler) saleDetails(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetSaleDetails(r.Context(), r.URL.Query().Get("sale_number"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// ── Returns ───────────────────────────────────────────────────────────────────

// apiListReturns handles GET /api/returns.
func (h *Handler) apiListReturns(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListReturns(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Returns)
}

// apiRecordReturn handles POST /api/returns. Accepts JSON or the return form.
// Lines whose barcode has no stock entry are kept and listed in unmatched_barcodes.
func (h *Handler) apiRecordReturn(w http.ResponseWriter, r *http.Request) {
	var body app.ReturnRequest
	if isFormPost(r) {
		form, err := parseForm(r)
		if err != nil {
			writeDecodeError(w, r, err)
			return
		}
		body = returnRequestFromForm(form)
	} else if !decodeJSON(w, r, &body) {
		return
	}

	ret, err := h.svc.RecordReturn(r.Context(), body)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, ret)
}

// apiGetReturn handles GET /api/returns/{number}.
func (h *Handler) apiGetReturn(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.GetReturn(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, ret)
}
