package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerwise/internal/gst"
)

func TestReconcile_EmbeddedObject(t *testing.T) {
	raw := `Here is the data: {"vendor_name":"Acme","total_amount":11800,"gst_amount":1800,"gst_rate":18} Thanks`

	r := Reconcile(raw)

	assert.Equal(t, StatusOK, r.Status)
	assert.False(t, r.Degraded())
	assert.Empty(t, r.Warnings)
	assert.Equal(t, 1.0, r.Confidence)

	c := r.Candidate
	assert.Equal(t, "Acme", c.VendorName)
	require.NotNil(t, c.BaseAmount)
	require.NotNil(t, c.GSTAmount)
	require.NotNil(t, c.TotalAmount)
	require.NotNil(t, c.GSTRate)
	assert.Equal(t, int64(1_000_000), *c.BaseAmount)
	assert.Equal(t, int64(180_000), *c.GSTAmount)
	assert.Equal(t, int64(1_180_000), *c.TotalAmount)
	assert.Equal(t, gst.Rate18, *c.GSTRate)
	assert.False(t, c.Placeholder)
}

func TestReconcile_Garbage(t *testing.T) {
	inputs := []string{
		"",
		"I could not read this invoice, sorry.",
		"}{",
		"{not json}",
		`{"vendor_name": "Acme"`,
		"[1, 2, 3]",
		"{} trailing } braces {",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			r := Reconcile(raw)
			assert.Equal(t, StatusDegraded, r.Status)
			assert.Equal(t, []string{WarningParseFailed}, r.Warnings)
			assert.Zero(t, r.Confidence)
			assert.True(t, r.Candidate.Placeholder)
			assert.Equal(t, PlaceholderCandidate(), r.Candidate)
		})
	}
}

func TestPlaceholderCandidate(t *testing.T) {
	c := PlaceholderCandidate()
	assert.Equal(t, "Sample Vendor Ltd", c.VendorName)
	assert.Equal(t, "2024-06-10", c.InvoiceDate)
	assert.Equal(t, "INV-2024-001", c.InvoiceNumber)
	assert.Equal(t, int64(1_180_000), *c.TotalAmount)
	assert.Equal(t, int64(180_000), *c.GSTAmount)
	assert.Equal(t, gst.Rate18, *c.GSTRate)
	require.Len(t, c.LineItems, 1)
	assert.Equal(t, "Software Development Services", c.LineItems[0].Description)

	// Copies must not share pointers.
	*c.TotalAmount = 1
	assert.Equal(t, int64(1_180_000), *PlaceholderCandidate().TotalAmount)
}

func TestReconcile_CodeFence(t *testing.T) {
	raw := "```json\n{\n  \"vendor_name\": \"Blue Dart\",\n  \"invoice_date\": \"15/03/2024\",\n" +
		"  \"total_amount\": \"₹1,050.00\",\n  \"gst_amount\": \"50.00\",\n  \"gst_rate\": \"5%\",\n" +
		"  \"invoice_number\": \"BD-99\",\n  \"line_items\": [{\"description\": \"Courier\", \"amount\": 1000}]\n}\n```"

	r := Reconcile(raw)

	require.Empty(t, r.Warnings)
	c := r.Candidate
	assert.Equal(t, "Blue Dart", c.VendorName)
	assert.Equal(t, "2024-03-15", c.InvoiceDate)
	assert.Equal(t, "BD-99", c.InvoiceNumber)
	assert.Equal(t, int64(100_000), *c.BaseAmount)
	assert.Equal(t, int64(5_000), *c.GSTAmount)
	assert.Equal(t, int64(105_000), *c.TotalAmount)
	assert.Equal(t, []LineItem{{Description: "Courier", Amount: 100_000}}, c.LineItems)
}

func TestReconcile_GSTMismatch(t *testing.T) {
	r := Reconcile(`{"vendor_name":"Acme","total_amount":11800,"gst_amount":2000,"gst_rate":18}`)

	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, []string{WarningGSTMismatch}, r.Warnings)
	assert.Nil(t, r.Candidate.BaseAmount)
	require.NotNil(t, r.Candidate.TotalAmount)
	assert.Equal(t, int64(1_180_000), *r.Candidate.TotalAmount)
	assert.Equal(t, int64(200_000), *r.Candidate.GSTAmount)
	assert.InDelta(t, 0.8, r.Confidence, 1e-9)
}

func TestReconcile_ToleratesOneMinorUnit(t *testing.T) {
	// 99.99 at 18% is 18.00 after rounding; the invoice printed 17.99.
	r := Reconcile(`{"vendor_name":"Acme","total_amount":117.98,"gst_amount":17.99,"gst_rate":18}`)

	require.Empty(t, r.Warnings)
	assert.Equal(t, int64(9_999), *r.Candidate.BaseAmount)
	assert.Equal(t, int64(1_800), *r.Candidate.GSTAmount)
	assert.Equal(t, int64(11_799), *r.Candidate.TotalAmount)
}

func TestReconcile_DerivesBaseFromTotal(t *testing.T) {
	t.Run("consistent_total", func(t *testing.T) {
		r := Reconcile(`{"vendor_name":"Acme","total_amount":11800,"gst_rate":18}`)
		require.Empty(t, r.Warnings)
		assert.Equal(t, int64(1_000_000), *r.Candidate.BaseAmount)
		assert.Equal(t, int64(180_000), *r.Candidate.GSTAmount)
		assert.Equal(t, int64(1_180_000), *r.Candidate.TotalAmount)
	})

	t.Run("exempt_rate", func(t *testing.T) {
		r := Reconcile(`{"vendor_name":"Acme","total_amount":500,"gst_rate":0}`)
		require.Empty(t, r.Warnings)
		assert.Equal(t, int64(50_000), *r.Candidate.BaseAmount)
		assert.Equal(t, int64(0), *r.Candidate.GSTAmount)
	})

	t.Run("gst_larger_than_total", func(t *testing.T) {
		r := Reconcile(`{"vendor_name":"Acme","total_amount":100,"gst_amount":150,"gst_rate":18}`)
		assert.Equal(t, []string{WarningGSTMismatch}, r.Warnings)
		assert.Nil(t, r.Candidate.BaseAmount)
	})
}

func TestReconcile_FieldWarnings(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		warnings []string
	}{
		{
			name:     "missing_core_fields",
			raw:      `{"invoice_number":"X-1"}`,
			warnings: []string{Missing(FieldVendorName), Missing(FieldTotalAmount), Missing(FieldGSTRate)},
		},
		{
			name:     "null_is_missing",
			raw:      `{"vendor_name":null,"total_amount":11800,"gst_rate":18}`,
			warnings: []string{Missing(FieldVendorName)},
		},
		{
			name:     "blank_vendor",
			raw:      `{"vendor_name":"  ","total_amount":11800,"gst_rate":18}`,
			warnings: []string{Missing(FieldVendorName)},
		},
		{
			name:     "vendor_wrong_type",
			raw:      `{"vendor_name":42,"total_amount":11800,"gst_rate":18}`,
			warnings: []string{Invalid(FieldVendorName)},
		},
		{
			name:     "total_not_numeric",
			raw:      `{"vendor_name":"Acme","total_amount":"eleven","gst_rate":18}`,
			warnings: []string{Invalid(FieldTotalAmount)},
		},
		{
			name:     "total_is_object",
			raw:      `{"vendor_name":"Acme","total_amount":{"value":1},"gst_rate":18}`,
			warnings: []string{Invalid(FieldTotalAmount)},
		},
		{
			name:     "negative_gst",
			raw:      `{"vendor_name":"Acme","total_amount":11800,"gst_amount":-5,"gst_rate":18}`,
			warnings: []string{Invalid(FieldGSTAmount)},
		},
		{
			name:     "unsupported_rate",
			raw:      `{"vendor_name":"Acme","total_amount":11800,"gst_rate":15}`,
			warnings: []string{Invalid(FieldGSTRate)},
		},
		{
			name:     "fractional_rate",
			raw:      `{"vendor_name":"Acme","total_amount":11800,"gst_rate":18.5}`,
			warnings: []string{Invalid(FieldGSTRate)},
		},
		{
			name:     "bad_date",
			raw:      `{"vendor_name":"Acme","total_amount":11800,"gst_rate":18,"invoice_date":"sometime in June"}`,
			warnings: []string{Invalid(FieldInvoiceDate)},
		},
		{
			name:     "line_items_not_array",
			raw:      `{"vendor_name":"Acme","total_amount":11800,"gst_rate":18,"line_items":"many"}`,
			warnings: []string{Invalid(FieldLineItems)},
		},
		{
			name:     "invoice_number_wrong_type",
			raw:      `{"vendor_name":"Acme","total_amount":11800,"gst_rate":18,"invoice_number":true}`,
			warnings: []string{Invalid(FieldInvoiceNumber)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reconcile(tt.raw)
			assert.Equal(t, StatusDegraded, r.Status)
			assert.Equal(t, tt.warnings, r.Warnings)
			assert.False(t, r.Candidate.Placeholder)
		})
	}
}

func TestReconcile_HugeExponents(t *testing.T) {
	raw := `{"vendor_name":"Acme","total_amount":1e-20000000,"gst_amount":"1e-20000000","gst_rate":"1e-20000000",` +
		`"line_items":[{"description":"Design","amount":1E2000000000}]}`

	start := time.Now()
	r := Reconcile(raw)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Contains(t, r.Warnings, Invalid(FieldTotalAmount))
	assert.Contains(t, r.Warnings, Invalid(FieldGSTAmount))
	assert.Contains(t, r.Warnings, Invalid(FieldGSTRate))
	assert.Contains(t, r.Warnings, Invalid(FieldLineItems))
	assert.Nil(t, r.Candidate.TotalAmount)
	assert.Empty(t, r.Candidate.LineItems)
}

func TestReconcile_LineItems(t *testing.T) {
	raw := `{"vendor_name":"Acme","total_amount":11800,"gst_rate":18,"line_items":[
		{"description":"Design","amount":6000},
		{"description":"","amount":100},
		{"description":"Build","amount":"4,000.00"},
		{"amount":5}
	]}`

	r := Reconcile(raw)

	assert.Equal(t, []string{Invalid(FieldLineItems)}, r.Warnings)
	assert.Equal(t, []LineItem{
		{Description: "Design", Amount: 600_000},
		{Description: "Build", Amount: 400_000},
	}, r.Candidate.LineItems)
}

func TestReconcile_NumericInvoiceNumber(t *testing.T) {
	r := Reconcile(`{"vendor_name":"Acme","total_amount":11800,"gst_rate":18,"invoice_number":20240017}`)
	require.Empty(t, r.Warnings)
	assert.Equal(t, "20240017", r.Candidate.InvoiceNumber)
}

func TestParseFlexibleDate(t *testing.T) {
	tests := map[string]string{
		"2024-06-10":    "2024-06-10",
		"10/06/2024":    "2024-06-10",
		"10-06-2024":    "2024-06-10",
		"10 Jun 2024":   "2024-06-10",
		"10 June 2024":  "2024-06-10",
		"Jun 10, 2024":  "2024-06-10",
		"June 10, 2024": "2024-06-10",
		"10/06/24":      "2024-06-10",
	}
	for in, want := range tests {
		got, ok := parseFlexibleDate(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got.Format("2006-01-02"), in)
	}

	_, ok := parseFlexibleDate("31/02/2024")
	assert.False(t, ok)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 1.0, confidence(Candidate{}, nil))
	assert.InDelta(t, 0.6, confidence(Candidate{}, []string{"a", "b"}), 1e-9)
	assert.InDelta(t, 0.1, confidence(Candidate{}, make([]string, 10)), 1e-9)
	assert.Zero(t, confidence(Candidate{Placeholder: true}, []string{WarningParseFailed}))
}
