package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"general-store/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins string // comma-separated; empty disables CORS
	MaxBodyBytes   int64  // request body cap for write endpoints; 0 means 1 MB
}

// Handler holds the ApplicationService behind every route.
type Handler struct {
	svc    app.ApplicationService
	logger *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	h := &Handler{svc: svc, logger: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(RequestBodyLimit(opts.MaxBodyBytes))

	r.Get("/api/health", h.health)

	// ── Point-of-sale endpoints used by the checkout and return screens ──────
	r.Get("/ajax/get-product", h.lookupProduct)
	r.Get("/get-sale-details", h.saleDetails)

	r.Route("/api", func(r chi.Router) {
		// ── Catalog ───────────────────────────────────────────────────────────
		r.Get("/products", h.apiListProducts)
		r.Post("/products", h.apiCreateProduct)
		r.Get("/products/{id}", h.apiGetProduct)
		r.Put("/products/{id}", h.apiUpdateProduct)
		r.Delete("/products/{id}", h.apiDeleteProduct)

		r.Get("/vendors", h.apiListVendors)
		r.Post("/vendors", h.apiCreateVendor)
		r.Get("/vendors/{id}", h.apiGetVendor)
		r.Put("/vendors/{id}", h.apiUpdateVendor)
		r.Delete("/vendors/{id}", h.apiDeleteVendor)

		// ── Receiving ─────────────────────────────────────────────────────────
		r.Get("/receivings", h.apiListReceivings)
		r.Post("/receivings", h.apiReceiveShipment)
		r.Get("/receivings/{number}", h.apiGetReceiving)

		// ── Sales and returns ─────────────────────────────────────────────────
		r.Get("/sales", h.apiListSales)
		r.Post("/sales", h.apiRecordSale)
		r.Get("/sales/{number}", h.apiGetSale)

		r.Get("/returns", h.apiListReturns)
		r.Post("/returns", h.apiRecordReturn)
		r.Get("/returns/{number}", h.apiGetReturn)

		// ── Stock ─────────────────────────────────────────────────────────────
		r.Get("/stock", h.apiListStock)
		r.Get("/stock/export", h.apiExportStock)
		r.Get("/stock/{barcode}", h.apiGetStock)
		r.Post("/stock/{barcode}/vendor-return", h.apiVendorReturn)

		// ── Sequences and registry ────────────────────────────────────────────
		r.Get("/sequences/{series}/next", h.apiPeekSequence)
		r.Get("/admin", h.apiListEntities)
		r.Get("/admin/{entity}", h.apiListEntity)
	})

	return r
}

// health reports liveness.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDecodeError(w, r, err)
		return false
	}
	return true
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
		return
	}
	writeError(w, r, "invalid request body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
}

// isFormPost reports whether the body is an HTML form rather than JSON.
func isFormPost(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// pathID parses the {id} URL parameter, writing a 400 when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id: "+chi.URLParam(r, "id"), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
