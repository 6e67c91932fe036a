package order

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-checkout/internal/domain/payment"
)

// DeliveryItemName is the name of the synthetic delivery line item.
const DeliveryItemName = "Delivery Charges"

// MaxMinorUnits is the largest amount accepted by the gateway for a single
// unit price or coupon, in minor units.
const MaxMinorUnits = 99_999_999

var (
	hundred  = decimal.NewFromInt(100)
	maxMinor = decimal.NewFromInt(MaxMinorUnits)
)

// MinorUnits converts a major-unit amount to an integer count of minor units,
// rounding half away from zero.
func MinorUnits(d decimal.Decimal) (int64, error) {
	m := d.Mul(hundred).Round(0)
	if m.Abs().GreaterThan(maxMinor) {
		return 0, errors.Wrapf(ErrAmountOutOfRange, "%s", d)
	}
	return m.IntPart(), nil
}

// BuildLineItems converts order items to gateway line items and appends a
// delivery line when delivery is positive. Every item must have a positive
// price within MaxMinorUnits and a positive quantity.
func BuildLineItems(items []Item, delivery decimal.Decimal) ([]payment.LineItem, error) {
	lines := make([]payment.LineItem, 0, len(items)+1)
	for i, item := range items {
		if !item.Price.IsPositive() || item.Quantity <= 0 {
			return nil, &InvalidItemError{Index: i, Name: item.Name}
		}
		amount, err := MinorUnits(item.Price)
		if err != nil {
			return nil, &InvalidItemError{Index: i, Name: item.Name}
		}
		lines = append(lines, payment.LineItem{
			Name:       item.Name,
			UnitAmount: amount,
			Quantity:   item.Quantity,
		})
	}

	if delivery.IsPositive() {
		amount, err := MinorUnits(delivery)
		if err != nil {
			return nil, &ValidationError{Field: "delivery", Message: "Invalid delivery charge"}
		}
		lines = append(lines, payment.LineItem{
			Name:       DeliveryItemName,
			UnitAmount: amount,
			Quantity:   1,
		})
	}
	return lines, nil
}
