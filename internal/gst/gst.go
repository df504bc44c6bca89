// Package gst computes Goods and Services Tax on amounts held in integer
// minor currency units. Every function is pure and safe for concurrent use.
package gst

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "ledgerwise/internal/errors"
)

// Rate is a GST slab in whole percent.
type Rate int

// Supported GST slabs.
const (
	RateExempt Rate = 0
	Rate5      Rate = 5
	Rate12     Rate = 12
	Rate18     Rate = 18
	Rate28     Rate = 28
)

// MaxAmount caps base amounts so base+tax always fits in an int64.
const MaxAmount int64 = 1_000_000_000_000_000

var (
	validRates = []Rate{RateExempt, Rate5, Rate12, Rate18, Rate28}
	hundred    = decimal.NewFromInt(100)
)

// Rates returns the supported slabs in ascending order.
func Rates() []Rate {
	out := make([]Rate, len(validRates))
	copy(out, validRates)
	return out
}

// Valid reports whether r is one of the supported slabs.
func (r Rate) Valid() bool {
	for _, v := range validRates {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRate converts a percentage into a Rate.
func ParseRate(percent int) (Rate, error) {
	r := Rate(percent)
	if !r.Valid() {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("gst rate must be one of %s", RatesString()))
	}
	return r, nil
}

// RatesString renders the supported slabs as "0, 5, 12, 18, 28".
func RatesString() string {
	parts := make([]string, len(validRates))
	for i, r := range validRates {
		parts[i] = strconv.Itoa(int(r))
	}
	return strings.Join(parts, ", ")
}

// Breakdown is the result of a GST computation, all in minor units.
type Breakdown struct {
	BaseAmount  int64 `json:"base_amount"`
	Rate        Rate  `json:"gst_rate"`
	GSTAmount   int64 `json:"gst_amount"`
	TotalAmount int64 `json:"total_amount"`
}

// Compute returns the tax and total for a base amount at the given rate.
// The tax is base*rate/100 rounded half away from zero to the nearest minor
// unit; the total is base+tax with no further rounding.
func Compute(baseAmount int64, rate Rate) (Breakdown, error) {
	if baseAmount <= 0 {
		return Breakdown{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "base amount must be greater than zero")
	}
	if baseAmount > MaxAmount {
		return Breakdown{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "base amount is too large")
	}
	if !rate.Valid() {
		return Breakdown{}, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("gst rate must be one of %s", RatesString()))
	}

	tax := decimal.NewFromInt(baseAmount).
		Mul(decimal.NewFromInt(int64(rate))).
		Div(hundred).
		Round(0).
		IntPart()

	return Breakdown{
		BaseAmount:  baseAmount,
		Rate:        rate,
		GSTAmount:   tax,
		TotalAmount: baseAmount + tax,
	}, nil
}

// BaseFromTotal inverts Compute: it returns the base amount whose total at
// rate is closest to total. Callers should recompute and compare, since not
// every total is reachable.
func BaseFromTotal(total int64, rate Rate) (int64, error) {
	if total <= 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "total amount must be greater than zero")
	}
	if !rate.Valid() {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("gst rate must be one of %s", RatesString()))
	}
	return decimal.NewFromInt(total).
		Mul(hundred).
		Div(hundred.Add(decimal.NewFromInt(int64(rate)))).
		Round(0).
		IntPart(), nil
}
