package gst

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Errors returned by ParseAmount and FromMajor.
var (
	ErrNotNumeric     = errors.New("must be a number")
	ErrTooPrecise     = errors.New("must have at most two decimal places")
	ErrAmountTooLarge = errors.New("is too large")
)

// maxExponent bounds the decimal exponent accepted from text. Rescaling a
// decimal costs time in the size of its exponent.
const maxExponent = 20

// plainAmount is an optional minus sign, up to 19 integer digits and an
// optional fraction. Exponents are not accepted.
var plainAmount = regexp.MustCompile(`^-?\d{1,19}(\.\d+)?$`)

// ParseAmount parses a major-unit amount such as "1,180.50" or "₹118" into
// minor units. Grouping commas, surrounding spaces and a leading rupee sign
// are accepted.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "Rs.")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if !plainAmount.MatchString(s) {
		return 0, ErrNotNumeric
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrNotNumeric
	}
	return FromMajor(d)
}

// FromMajor converts a major-unit decimal into minor units, rejecting
// fractions of a minor unit.
func FromMajor(d decimal.Decimal) (int64, error) {
	if d.Exponent() < -maxExponent {
		return 0, ErrTooPrecise
	}
	if d.Exponent() > maxExponent {
		return 0, ErrAmountTooLarge
	}
	minor := d.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	if minor.Abs().GreaterThan(decimal.NewFromInt(MaxAmount)) {
		return 0, ErrAmountTooLarge
	}
	return minor.IntPart(), nil
}

// Bounded reports whether d has an exponent small enough to rescale cheaply.
// Numbers decoded from untrusted JSON must pass it before any arithmetic.
func Bounded(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -maxExponent && exp <= maxExponent
}

// ToMajor converts minor units into a major-unit decimal.
func ToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatINR renders minor units as rupees with Indian digit grouping,
// e.g. 12500000 -> "₹1,25,000.00".
func FormatINR(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	rupees := strconv.FormatInt(minor/100, 10)
	paise := minor % 100

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("₹")
	b.WriteString(groupIndian(rupees))
	b.WriteByte('.')
	if paise < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(paise, 10))
	return b.String()
}

// groupIndian inserts commas after the last three digits and then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
