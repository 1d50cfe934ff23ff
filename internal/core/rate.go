package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidRate is returned for exchange rates that are malformed or not positive.
var ErrInvalidRate = errors.New("tasa de cambio inválida")

// RatePlaces is the number of decimals a rate is stored and applied with.
const RatePlaces = 4

// Rate is the exchange rate expressed as bolívares per US dollar.
type Rate struct {
	decimal.Decimal
}

// NewRate builds a Rate from a decimal value, rounded to RatePlaces.
func NewRate(d decimal.Decimal) Rate { return Rate{Decimal: d.Round(RatePlaces)} }

// ParseRate parses "36.50" or "36,50". The rate must be strictly positive.
func ParseRate(s string) (Rate, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Rate{}, ErrInvalidRate
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, ErrInvalidRate
	}
	r := NewRate(d)
	if err := r.Validate(); err != nil {
		return Rate{}, err
	}
	return r, nil
}

// Validate requires a positive rate.
func (r Rate) Validate() error {
	if !r.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}

// String renders the rate with four decimals, the precision it is stored with.
func (r Rate) String() string { return r.StringFixed(RatePlaces) }

// ConvertToBs converts a USD amount to bolívares, rounding half away from zero to cents.
func ConvertToBs(usd Money, r Rate) Money {
	bs := decimal.New(usd.Cents, -2).Mul(r.Decimal).Round(2)
	return Money{Cents: bs.Shift(2).IntPart()}
}

// ConvertToUSD converts a bolívar amount to USD, rounding to cents.
// A zero rate yields zero rather than dividing by zero.
func ConvertToUSD(bs Money, r Rate) Money {
	if r.IsZero() {
		return Money{}
	}
	usd := decimal.New(bs.Cents, -2).Div(r.Decimal).Round(2)
	return Money{Cents: usd.Shift(2).IntPart()}
}
