package extraction

import "ledgerwise/internal/gst"

// Placeholder values shown when the model output cannot be parsed at all.
// They give the user a filled form to correct, and are always labelled.
const (
	placeholderVendor        = "Sample Vendor Ltd"
	placeholderDate          = "2024-06-10"
	placeholderInvoiceNumber = "INV-2024-001"
	placeholderLineItem      = "Software Development Services"
)

const (
	placeholderBase  int64 = 1_000_000
	placeholderGST   int64 = 180_000
	placeholderTotal int64 = 1_180_000
)

// PlaceholderCandidate returns a fresh copy of the placeholder set.
func PlaceholderCandidate() Candidate {
	base, tax, total := placeholderBase, placeholderGST, placeholderTotal
	rate := gst.Rate18
	return Candidate{
		VendorName:    placeholderVendor,
		InvoiceDate:   placeholderDate,
		InvoiceNumber: placeholderInvoiceNumber,
		BaseAmount:    &base,
		GSTRate:       &rate,
		GSTAmount:     &tax,
		TotalAmount:   &total,
		LineItems:     []LineItem{{Description: placeholderLineItem, Amount: placeholderBase}},
		Placeholder:   true,
	}
}

func placeholderResult() Result {
	return newResult(PlaceholderCandidate(), []string{WarningParseFailed})
}
