package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a domain failure. Its string value is the stable code sent to clients.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_FAILED"
	KindDuplicateKey      Kind = "DUPLICATE_KEY"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindNotFound          Kind = "NOT_FOUND"
	KindReferenceInUse    Kind = "REFERENCE_IN_USE"
	KindReturnExceedsSold Kind = "RETURN_EXCEEDS_SOLD"
	KindSequenceRace      Kind = "SEQUENCE_RACE"
	KindConcurrentUpdate  Kind = "CONCURRENT_UPDATE"
)

// Error is a classified domain failure. Match kinds with errors.Is against the Err* sentinels.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the client-facing error code.
func (e *Error) Code() string { return string(e.Kind) }

// Retryable reports whether the same request may succeed if submitted again.
func (e *Error) Retryable() bool {
	return e.Kind == KindSequenceRace || e.Kind == KindConcurrentUpdate
}

// Is matches any *Error of the same kind when the target carries no message (a sentinel).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrDuplicateKey      = &Error{Kind: KindDuplicateKey}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrReferenceInUse    = &Error{Kind: KindReferenceInUse}
	ErrReturnExceedsSold = &Error{Kind: KindReturnExceedsSold}
	ErrSequenceRace      = &Error{Kind: KindSequenceRace}
	ErrConcurrentUpdate  = &Error{Kind: KindConcurrentUpdate}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func notFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func duplicatef(format string, args ...any) *Error {
	return newError(KindDuplicateKey, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Document number constraints. A violation on one of these means two writers were handed
// the same number, which the counter row should make impossible short of manual edits.
var documentNumberConstraints = map[string]string{
	"stock_receivings_order_number_key": "order number",
	"sales_sale_number_key":             "sale number",
	"sale_returns_return_number_key":    "return number",
}

var constraintLabels = map[string]string{
	"products_item_code_key":              "item code",
	"vendors_vendor_code_key":             "vendor code",
	"item_stock_barcode_key":              "barcode",
	"stock_receiving_details_barcode_key": "barcode",
}

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// classifyPgError maps constraint violations onto domain kinds and wraps anything else
// with the operation name.
func classifyPgError(err error, op string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		if label, ok := documentNumberConstraints[pgErr.ConstraintName]; ok {
			return &Error{
				Kind:    KindSequenceRace,
				Message: fmt.Sprintf("%s was taken by a concurrent request, please retry", label),
				Err:     err,
			}
		}
		label := constraintLabels[pgErr.ConstraintName]
		if label == "" {
			label = "value"
		}
		return &Error{Kind: KindDuplicateKey, Message: fmt.Sprintf("%s already exists", label), Err: err}
	case pgForeignKeyViolation:
		return &Error{
			Kind:    KindReferenceInUse,
			Message: fmt.Sprintf("record is still referenced (%s)", pgErr.ConstraintName),
			Err:     err,
		}
	case pgSerializationFailure, pgDeadlockDetected:
		return &Error{
			Kind:    KindConcurrentUpdate,
			Message: "stock was changed by a concurrent request, please retry",
			Err:     err,
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
