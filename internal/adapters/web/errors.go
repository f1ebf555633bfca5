package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"general-store/internal/core"
	"general-store/internal/logger"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeJSONStatus(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

var kindStatus = map[core.Kind]int{
	core.KindValidation:        http.StatusBadRequest,
	core.KindNotFound:          http.StatusNotFound,
	core.KindDuplicateKey:      http.StatusConflict,
	core.KindInsufficientStock: http.StatusConflict,
	core.KindReferenceInUse:    http.StatusConflict,
	core.KindReturnExceedsSold: http.StatusConflict,
	core.KindSequenceRace:      http.StatusConflict,
	core.KindConcurrentUpdate:  http.StatusConflict,
}

// writeAppError maps a service error onto an HTTP response. Domain errors keep their
// message and code; anything else is logged and reported as a bare 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var de *core.Error
	if errors.As(err, &de) {
		status, ok := kindStatus[de.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeJSONStatus(w, status, errorResponse{
			Error:     err.Error(),
			Code:      de.Code(),
			Retryable: de.Retryable(),
			RequestID: requestIDFromContext(r.Context()),
		})
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	logger.FromContext(r.Context(), zap.NewNop()).Error("request failed",
		zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus writes a JSON response with the given status.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
