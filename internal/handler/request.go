package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

type placeOrderRequest struct {
	UserID   string          `json:"userId" validate:"required"`
	Items    []orderItem     `json:"items"`
	Amount   decimal.Decimal `json:"amount"`
	Address  json.RawMessage `json:"address"`
	Discount decimal.Decimal `json:"discount"`
	Delivery decimal.Decimal `json:"delivery"`
}

type orderItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

type verifyOrderRequest struct {
	OrderID string   `json:"orderId" validate:"required"`
	Success flexBool `json:"success"`
}

type userOrdersRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type updateStatusRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

// flexBool accepts a JSON boolean or the strings "true" and "false", since
// the verify page forwards its query string values as-is. null and a missing
// field read as false.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*b = false
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return errors.Errorf("invalid boolean %q", s)
	}
	*b = flexBool(v)
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a malformed or invalid request body.
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return "Invalid request: " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

// decode reads the JSON body into dst. Empty bodies decode as {}.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &requestError{err: errors.New("malformed JSON body")}
	}
	return nil
}

func (h *Handler) check(dst any) error {
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &requestError{err: errors.Errorf("%s is %s", verrs[0].Field(), verrs[0].Tag())}
		}
		return &requestError{err: err}
	}
	return nil
}
