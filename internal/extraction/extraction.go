// Package extraction reconciles the free text returned by an OCR model into a
// transaction candidate. The input is untrusted: Reconcile never fails and
// never panics, it degrades to a labelled result with warnings instead.
package extraction

import (
	"encoding/json"
	"strings"

	"ledgerwise/internal/gst"
)

// Prompt is the instruction sent to the model alongside the invoice file.
const Prompt = "Extract the following information from this invoice image in JSON format: " +
	"vendor_name, invoice_date, total_amount, gst_amount, gst_rate, " +
	"line_items (array with description, amount for each item), invoice_number. " +
	"Return only valid JSON."

// Status tags a Result as clean or degraded.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

// Warnings attached to degraded results. Field-level warnings are built with
// Invalid and Missing.
const (
	WarningParseFailed = "extraction-parse-failed"
	WarningGSTMismatch = "gst-mismatch"
)

// Invalid is the warning for a field that was present but could not be decoded.
func Invalid(field string) string { return "invalid:" + field }

// Missing is the warning for a required field that was absent.
func Missing(field string) string { return "missing:" + field }

// Recognized field names in the model output.
const (
	FieldVendorName    = "vendor_name"
	FieldInvoiceDate   = "invoice_date"
	FieldTotalAmount   = "total_amount"
	FieldGSTAmount     = "gst_amount"
	FieldGSTRate       = "gst_rate"
	FieldInvoiceNumber = "invoice_number"
	FieldLineItems     = "line_items"
)

// LineItem is one invoice line. Amount is in minor units.
type LineItem struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// Candidate is a partially filled transaction proposed for user review.
// Nil pointers are fields that could not be extracted. Amounts are in minor
// units. BaseAmount is only set when it is consistent with the rate.
type Candidate struct {
	VendorName    string     `json:"vendor_name,omitempty"`
	InvoiceDate   string     `json:"invoice_date,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	BaseAmount    *int64     `json:"base_amount,omitempty"`
	GSTRate       *gst.Rate  `json:"gst_rate,omitempty"`
	GSTAmount     *int64     `json:"gst_amount,omitempty"`
	TotalAmount   *int64     `json:"total_amount,omitempty"`
	LineItems     []LineItem `json:"line_items,omitempty"`
	Placeholder   bool       `json:"placeholder,omitempty"`
}

// Result is the outcome of Reconcile. Callers must check Status: a degraded
// result carries at least one warning and may hold placeholder values.
type Result struct {
	Status     Status    `json:"status"`
	Candidate  Candidate `json:"candidate"`
	Warnings   []string  `json:"warnings"`
	Confidence float64   `json:"confidence"`
}

// Degraded reports whether the result needs the user's attention.
func (r Result) Degraded() bool {
	return r.Status == StatusDegraded
}

// Reconcile extracts the JSON object embedded in raw and decodes it into a
// Candidate. GST amounts are recomputed from the rate and checked against the
// extracted figures within one minor unit.
func Reconcile(raw string) Result {
	fields, ok := locateObject(raw)
	if !ok {
		return placeholderResult()
	}

	d := &decoder{fields: fields}
	c := Candidate{
		VendorName:    d.vendorName(),
		InvoiceDate:   d.invoiceDate(),
		InvoiceNumber: d.invoiceNumber(),
	}
	c.TotalAmount = d.amount(FieldTotalAmount, true)
	c.GSTAmount = d.amount(FieldGSTAmount, false)
	c.GSTRate = d.rate()
	c.LineItems = d.lineItems()

	if c.GSTRate != nil && c.TotalAmount != nil {
		if !reconcileGST(&c) {
			d.warn(WarningGSTMismatch)
		}
	}

	return newResult(c, d.warnings)
}

// reconcileGST derives the base amount and replaces the extracted tax and total
// with recomputed values. It reports false when the figures disagree by more
// than one minor unit, leaving the extracted values untouched.
func reconcileGST(c *Candidate) bool {
	rate, total := *c.GSTRate, *c.TotalAmount

	var base int64
	if c.GSTAmount != nil {
		base = total - *c.GSTAmount
	} else {
		var err error
		if base, err = gst.BaseFromTotal(total, rate); err != nil {
			return false
		}
	}

	computed, err := gst.Compute(base, rate)
	if err != nil {
		return false
	}
	if c.GSTAmount != nil && abs(computed.GSTAmount-*c.GSTAmount) > 1 {
		return false
	}
	if c.GSTAmount == nil && abs(computed.TotalAmount-total) > 1 {
		return false
	}

	c.BaseAmount = &computed.BaseAmount
	c.GSTAmount = &computed.GSTAmount
	c.TotalAmount = &computed.TotalAmount
	return true
}

func newResult(c Candidate, warnings []string) Result {
	r := Result{
		Status:     StatusOK,
		Candidate:  c,
		Warnings:   warnings,
		Confidence: confidence(c, warnings),
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if len(r.Warnings) > 0 {
		r.Status = StatusDegraded
	}
	return r
}

// confidence is 1 for a clean result and drops by 0.2 per warning, never
// below 0.1. Placeholder candidates score 0.
func confidence(c Candidate, warnings []string) float64 {
	if c.Placeholder {
		return 0
	}
	score := 1 - 0.2*float64(len(warnings))
	if score < 0.1 {
		score = 0.1
	}
	return score
}

// locateObject parses the text between the first '{' and the last '}' as a
// JSON object.
func locateObject(raw string) (map[string]json.RawMessage, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return nil, false
	}
	if fields == nil {
		return nil, false
	}
	return fields, true
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
