package extraction

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerwise/internal/gst"
)

// dateFormats accepted for invoice_date. Day-first layouts come before
// month-first ones since Indian invoices print dates as DD/MM/YYYY.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"02 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02/01/06",
}

// decoder reads typed values out of the raw model object, collecting a
// warning for every field it has to drop.
type decoder struct {
	fields   map[string]json.RawMessage
	warnings []string
}

func (d *decoder) warn(w string) {
	d.warnings = append(d.warnings, w)
}

// lookup returns the raw value of a field, treating JSON null as absent.
func (d *decoder) lookup(field string) (json.RawMessage, bool) {
	raw, ok := d.fields[field]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

func (d *decoder) vendorName() string {
	raw, ok := d.lookup(FieldVendorName)
	if !ok {
		d.warn(Missing(FieldVendorName))
		return ""
	}
	s, ok := decodeString(raw)
	if !ok {
		d.warn(Invalid(FieldVendorName))
		return ""
	}
	if s == "" {
		d.warn(Missing(FieldVendorName))
	}
	return s
}

func (d *decoder) invoiceDate() string {
	raw, ok := d.lookup(FieldInvoiceDate)
	if !ok {
		return ""
	}
	s, ok := decodeString(raw)
	if !ok || s == "" {
		d.warn(Invalid(FieldInvoiceDate))
		return ""
	}
	t, ok := parseFlexibleDate(s)
	if !ok {
		d.warn(Invalid(FieldInvoiceDate))
		return ""
	}
	return t.Format("2006-01-02")
}

func (d *decoder) invoiceNumber() string {
	raw, ok := d.lookup(FieldInvoiceNumber)
	if !ok {
		return ""
	}
	if s, ok := decodeString(raw); ok {
		return s
	}
	// Numeric invoice numbers are common; keep their digits verbatim.
	if n, ok := decodeNumber(raw); ok && n.IsInteger() {
		return n.String()
	}
	d.warn(Invalid(FieldInvoiceNumber))
	return ""
}

// amount decodes a major-unit amount into minor units. Negative amounts and,
// for totals, zero are rejected.
func (d *decoder) amount(field string, required bool) *int64 {
	raw, ok := d.lookup(field)
	if !ok {
		if required {
			d.warn(Missing(field))
		}
		return nil
	}
	minor, ok := decodeAmount(raw)
	if !ok || minor < 0 || (required && minor == 0) {
		d.warn(Invalid(field))
		return nil
	}
	return &minor
}

func (d *decoder) rate() *gst.Rate {
	raw, ok := d.lookup(FieldGSTRate)
	if !ok {
		d.warn(Missing(FieldGSTRate))
		return nil
	}

	var n decimal.Decimal
	if s, isString := decodeString(raw); isString {
		parsed, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(s, "%")))
		if err != nil || !gst.Bounded(parsed) {
			d.warn(Invalid(FieldGSTRate))
			return nil
		}
		n = parsed
	} else if parsed, ok := decodeNumber(raw); ok {
		n = parsed
	} else {
		d.warn(Invalid(FieldGSTRate))
		return nil
	}

	if !n.IsInteger() || !gst.Rate(n.IntPart()).Valid() {
		d.warn(Invalid(FieldGSTRate))
		return nil
	}
	r := gst.Rate(n.IntPart())
	return &r
}

// lineItems keeps every well-formed item and warns once if any had to be
// dropped.
func (d *decoder) lineItems() []LineItem {
	raw, ok := d.lookup(FieldLineItems)
	if !ok {
		return nil
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.warn(Invalid(FieldLineItems))
		return nil
	}

	out := make([]LineItem, 0, len(items))
	dropped := false
	for _, item := range items {
		desc, okDesc := decodeString(item["description"])
		amount, okAmount := decodeAmount(item["amount"])
		if !okDesc || desc == "" || !okAmount || amount < 0 {
			dropped = true
			continue
		}
		out = append(out, LineItem{Description: desc, Amount: amount})
	}
	if dropped {
		d.warn(Invalid(FieldLineItems))
	}
	return out
}

// decodeString accepts only JSON strings and returns them trimmed.
func decodeString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// decodeNumber accepts only JSON numbers with a bounded exponent.
func decodeNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return decimal.Zero, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || !gst.Bounded(d) {
		return decimal.Zero, false
	}
	return d, true
}

// decodeAmount accepts a JSON number or a numeric string such as "₹1,180.00"
// in major units and returns minor units.
func decodeAmount(raw json.RawMessage) (int64, bool) {
	if s, ok := decodeString(raw); ok {
		minor, err := gst.ParseAmount(s)
		return minor, err == nil
	}
	n, ok := decodeNumber(raw)
	if !ok {
		return 0, false
	}
	minor, err := gst.FromMajor(n)
	if err != nil {
		// Models occasionally emit float noise such as 1180.0000001.
		minor, err = gst.FromMajor(n.Round(2))
		if err != nil {
			return 0, false
		}
	}
	return minor, true
}

// parseFlexibleDate tries each known layout in turn.
func parseFlexibleDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
