package app

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"general-store/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for every date field.
const DateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names so messages match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func invalid(format string, args ...any) error {
	return &core.Error{Kind: core.KindValidation, Message: fmt.Sprintf(format, args...)}
}

// validateRequest runs the struct tags and folds every failure into one validation error.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return invalid("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s row(s)", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// ── Field parsers ───────────────────────────────────────────────────────────
// A blank field parses to the zero value (or nil for optional fields).

func parseInt(name string, v FormValue) (int, error) {
	if v.Blank() {
		return 0, nil
	}
	n, err := strconv.Atoi(v.String())
	if err != nil {
		return 0, invalid("%s: %q is not a whole number", name, v.String())
	}
	return n, nil
}

func parseOptionalInt(name string, v FormValue) (*int, error) {
	if v.Blank() {
		return nil, nil
	}
	n, err := parseInt(name, v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseDecimal(name string, v FormValue) (decimal.Decimal, error) {
	if v.Blank() {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, invalid("%s: %q is not a number", name, v.String())
	}
	return d, nil
}

func parseOptionalDecimal(name string, v FormValue) (*decimal.Decimal, error) {
	if v.Blank() {
		return nil, nil
	}
	d, err := parseDecimal(name, v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDate(name string, v FormValue) (*time.Time, error) {
	if v.Blank() {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, v.String())
	if err != nil {
		return nil, invalid("%s: %q is not a YYYY-MM-DD date", name, v.String())
	}
	return &t, nil
}

func dateOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// ── Form conversion ─────────────────────────────────────────────────────────

func (req ProductRequest) toInput() (core.ProductInput, error) {
	if err := validateRequest(req); err != nil {
		return core.ProductInput{}, err
	}
	return core.ProductInput{
		ItemCode:      req.ItemCode,
		ProductName:   req.ProductName,
		CompanyName:   req.CompanyName,
		Specification: req.Specification,
	}, nil
}

func (req VendorRequest) toInput() (core.VendorInput, error) {
	if err := validateRequest(req); err != nil {
		return core.VendorInput{}, err
	}
	return core.VendorInput{
		VendorCode:  req.VendorCode,
		VendorName:  req.VendorName,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
	}, nil
}

func (req ReceivingRequest) toInput() (core.ReceivingInput, error) {
	if err := validateRequest(req); err != nil {
		return core.ReceivingInput{}, err
	}
	orderDate, err := parseDate("order_date", req.OrderDate)
	if err != nil {
		return core.ReceivingInput{}, err
	}

	in := core.ReceivingInput{
		VendorCode: strings.TrimSpace(req.VendorCode),
		OrderDate:  dateOrZero(orderDate),
		Lines:      make([]core.ReceivingLineInput, 0, len(req.Lines)),
	}
	for i, l := range req.Lines {
		prefix := fmt.Sprintf("line %d", i+1)
		qty, err := parseInt(prefix+" qty", l.Qty)
		if err != nil {
			return in, err
		}
		rate, err := parseDecimal(prefix+" rate", l.Rate)
		if err != nil {
			return in, err
		}
		saleRate, err := parseDecimal(prefix+" sale_rate", l.SaleRate)
		if err != nil {
			return in, err
		}
		expire, err := parseDate(prefix+" expire_date", l.ExpireDate)
		if err != nil {
			return in, err
		}
		in.Lines = append(in.Lines, core.ReceivingLineInput{
			ItemCode:   strings.TrimSpace(l.ItemCode),
			Barcode:    strings.TrimSpace(l.Barcode),
			Qty:        qty,
			Rate:       rate,
			SaleRate:   saleRate,
			ExpireDate: expire,
		})
	}
	return in, nil
}

func (req SaleRequest) toInput() (core.SaleInput, error) {
	if err := validateRequest(req); err != nil {
		return core.SaleInput{}, err
	}
	saleDate, err := parseDate("sale_date", req.SaleDate)
	if err != nil {
		return core.SaleInput{}, err
	}

	in := core.SaleInput{
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		SaleDate:        dateOrZero(saleDate),
	}
	if in.TotalQuantity, err = parseOptionalInt("total_quantity", req.TotalQuantity); err != nil {
		return in, err
	}
	if in.TotalAmount, err = parseOptionalDecimal("total_amount", req.TotalAmount); err != nil {
		return in, err
	}
	if in.CashReceived, err = parseOptionalDecimal("cash_received", req.CashReceived); err != nil {
		return in, err
	}
	if in.CashReturn, err = parseOptionalDecimal("cash_return", req.CashReturn); err != nil {
		return in, err
	}

	for i, l := range req.Lines {
		if strings.TrimSpace(l.Barcode) == "" {
			continue
		}
		prefix := fmt.Sprintf("line %d", i+1)
		qty, err := parseInt(prefix+" qty", l.Qty)
		if err != nil {
			return in, err
		}
		rate, err := parseOptionalDecimal(prefix+" sale_rate", l.SaleRate)
		if err != nil {
			return in, err
		}
		amount, err := parseOptionalDecimal(prefix+" amount", l.Amount)
		if err != nil {
			return in, err
		}
		in.Lines = append(in.Lines, core.SaleLineInput{
			Barcode:       strings.TrimSpace(l.Barcode),
			ItemCode:      strings.TrimSpace(l.ItemCode),
			ProductName:   l.ProductName,
			CompanyName:   l.CompanyName,
			Specification: l.Specification,
			Qty:           qty,
			SaleRate:      rate,
			Amount:        amount,
		})
	}
	return in, nil
}

func (req ReturnRequest) toInput() (core.ReturnInput, error) {
	if err := validateRequest(req); err != nil {
		return core.ReturnInput{}, err
	}
	in := core.ReturnInput{
		ReturnNumber:    strings.TrimSpace(req.ReturnNumber),
		SaleNumber:      strings.TrimSpace(req.SaleNumber),
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		Reason:          req.Reason,
	}
	var err error
	if in.SaleDate, err = parseDate("sale_date", req.SaleDate); err != nil {
		return in, err
	}
	if in.ReturnDate, err = parseDate("return_date", req.ReturnDate); err != nil {
		return in, err
	}

	for i, l := range req.Lines {
		if strings.TrimSpace(l.Barcode) == "" {
			continue
		}
		prefix := fmt.Sprintf("line %d", i+1)
		qty, err := parseInt(prefix+" qty", l.Qty)
		if err != nil {
			return in, err
		}
		amount, err := parseDecimal(prefix+" sale_rate", l.SaleAmount)
		if err != nil {
			return in, err
		}
		in.Lines = append(in.Lines, core.ReturnLineInput{
			Barcode:       strings.TrimSpace(l.Barcode),
			Description:   l.Description,
			Specification: l.Specification,
			Qty:           qty,
			SaleAmount:    amount,
		})
	}
	return in, nil
}

func (req VendorReturnRequest) parse() (string, int, error) {
	if err := validateRequest(req); err != nil {
		return "", 0, err
	}
	qty, err := parseInt("qty", req.Qty)
	if err != nil {
		return "", 0, err
	}
	if qty <= 0 {
		return "", 0, invalid("qty must be positive, got %d", qty)
	}
	return strings.TrimSpace(req.Barcode), qty, nil
}
