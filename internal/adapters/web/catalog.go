package web

import (
	"net/http"

	"general-store/internal/app"
)

// ── Products ──────────────────────────────────────────────────────────────────

// apiListProducts handles GET /api/products.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Products)
}

// apiCreateProduct handles POST /api/products.
// Body: { item_code?, product_name, company_name, specification? }
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var body app.ProductRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), body)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, product)
}

// apiGetProduct handles GET /api/products/{id}.
func (h *Handler) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, product)
}

// apiUpdateProduct handles PUT /api/products/{id}. A blank item_code keeps the current one.
func (h *Handler) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body app.ProductRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	product, err := h.svc.UpdateProduct(r.Context(), id, body)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, product)
}

// apiDeleteProduct handles DELETE /api/products/{id}.
func (h *Handler) apiDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Vendors ───────────────────────────────────────────────────────────────────

// apiListVendors handles GET /api/vendors.
func (h *Handler) apiListVendors(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListVendors(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Vendors)
}

// apiCreateVendor handles POST /api/vendors.
// Body: { vendor_code?, vendor_name, phone?, company_name }
func (h *Handler) apiCreateVendor(w http.ResponseWriter, r *http.Request) {
	var body app.VendorRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	vendor, err := h.svc.CreateVendor(r.Context(), body)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, vendor)
}

// apiGetVendor handles GET /api/vendors/{id}.
func (h *Handler) apiGetVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	vendor, err := h.svc.GetVendor(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, vendor)
}

// apiUpdateVendor handles PUT /api/vendors/{id}.
func (h *Handler) apiUpdateVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body app.VendorRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	vendor, err := h.svc.UpdateVendor(r.Context(), id, body)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, vendor)
}

// apiDeleteVendor handles DELETE /api/vendors/{id}.
func (h *Handler) apiDeleteVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteVendor(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
