package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-checkout/internal/domain/order"
)

// response is the uniform envelope every endpoint answers with:
// {success, message?, data?, session_url?}.
type response struct {
	success    bool
	message    string
	sessionURL string
	// data is written only when hasData is set, so an empty list still
	// encodes as "data":[].
	data    []*order.Order
	hasData bool
}

func failure(message string) response {
	return response{message: message}
}

// writeResponse always answers 200; the outcome is carried by success.
func writeResponse(w http.ResponseWriter, resp response) {
	var e jx.Encoder
	encodeResponse(&e, resp)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Bytes())
}

func encodeResponse(e *jx.Encoder, resp response) {
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(resp.success)
	if resp.message != "" {
		e.FieldStart("message")
		e.Str(resp.message)
	}
	if resp.sessionURL != "" {
		e.FieldStart("session_url")
		e.Str(resp.sessionURL)
	}
	if resp.hasData {
		e.FieldStart("data")
		e.ArrStart()
		for _, o := range resp.data {
			encodeOrder(e, o)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("_id")
	e.Str(o.ID)
	e.FieldStart("userId")
	e.Str(o.UserID)

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		encodeDecimal(e, it.Price)
		e.FieldStart("quantity")
		e.Int64(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("amount")
	encodeDecimal(e, o.Amount)
	e.FieldStart("address")
	if len(o.Address) == 0 {
		e.Null()
	} else {
		e.Raw(o.Address)
	}
	e.FieldStart("discount")
	encodeDecimal(e, o.Discount)
	e.FieldStart("delivery")
	encodeDecimal(e, o.Delivery)
	e.FieldStart("status")
	e.Str(o.Status)
	e.FieldStart("payment")
	e.Bool(o.Payment)
	e.FieldStart("date")
	e.Str(o.Date.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
}

// encodeDecimal writes d as a JSON number.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}
