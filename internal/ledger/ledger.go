// Package ledger assembles validated, GST-complete transactions from raw
// form input. It performs no I/O.
package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/gst"
	"ledgerwise/internal/models"
	"ledgerwise/internal/uuid"
	appvalidator "ledgerwise/internal/validator"
)

var validate = appvalidator.New()

// Amount is a major-unit amount as typed by a user. It unmarshals from either
// a JSON number or a JSON string so that "1,180.50" and 1180.5 are both
// accepted; anything else is kept verbatim and rejected by Assemble.
type Amount string

// UnmarshalJSON implements json.Unmarshaler. It never fails, so a bad amount
// is reported together with the other invalid fields.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*a = Amount(s)
			return nil
		}
	}
	*a = Amount(b)
	return nil
}

// AmountFromMinor renders minor units as an Amount with two decimals.
func AmountFromMinor(minor int64) Amount {
	return Amount(gst.ToMajor(minor).StringFixed(2))
}

// Input is the unvalidated form of a transaction.
type Input struct {
	Date          string  `json:"date" validate:"required,calendar_date"`
	Vendor        string  `json:"vendor" validate:"notblank"`
	BaseAmount    Amount  `json:"base_amount" validate:"amount"`
	GSTRate       *int    `json:"gst_rate" validate:"required,gst_rate"`
	Type          string  `json:"type" validate:"required,transaction_type"`
	CategoryID    *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Description   string  `json:"description" validate:"max=500"`
	InvoiceNumber string  `json:"invoice_number,omitempty" validate:"max=100"`

	Source       models.TransactionSource `json:"-"`
	ExtractionID *string                  `json:"-"`

	// decodeErrs holds fields whose JSON value had the wrong type.
	decodeErrs map[string]string
}

// fieldOrder is the order in which Validate reports fields.
var fieldOrder = []string{
	"date", "vendor", "base_amount", "gst_rate", "type",
	"category_id", "description", "invoice_number",
}

// UnmarshalJSON implements json.Unmarshaler. Only a body that is not a JSON
// object fails; a field of the wrong type is kept for Validate, which lists
// it with the other invalid fields.
func (in *Input) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*in = Input{}
	in.decode(raw, "date", &in.Date, "must be a string")
	in.decode(raw, "vendor", &in.Vendor, "must be a string")
	if v, ok := raw["base_amount"]; ok {
		_ = in.BaseAmount.UnmarshalJSON(v)
	}
	in.decode(raw, "gst_rate", &in.GSTRate, "must be a whole number")
	in.decode(raw, "type", &in.Type, "must be a string")
	in.decode(raw, "category_id", &in.CategoryID, "must be a string")
	in.decode(raw, "description", &in.Description, "must be a string")
	in.decode(raw, "invoice_number", &in.InvoiceNumber, "must be a string")
	return nil
}

func (in *Input) decode(raw map[string]json.RawMessage, field string, dst interface{}, msg string) {
	v, ok := raw[field]
	if !ok {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		if in.decodeErrs == nil {
			in.decodeErrs = make(map[string]string)
		}
		in.decodeErrs[field] = msg
	}
}

// Assemble validates in and returns a transaction whose GST amount and total
// are computed from the base amount and rate. Every invalid field is listed in
// the returned VALIDATION_FAILED error. The transaction is not persisted and
// carries no owner.
func Assemble(in Input) (*models.Transaction, error) {
	if fields := Validate(in); len(fields) > 0 {
		return nil, apperrors.NewValidationError(fields)
	}

	date, _ := time.Parse(appvalidator.DateLayout, strings.TrimSpace(in.Date))
	base, _ := gst.ParseAmount(string(in.BaseAmount))

	breakdown, err := gst.Compute(base, gst.Rate(*in.GSTRate))
	if err != nil {
		return nil, err
	}

	source := in.Source
	if source == "" {
		source = models.TransactionSourceManual
	}

	tx := &models.Transaction{
		Type:          models.TransactionType(in.Type),
		Date:          date.UTC(),
		Vendor:        strings.TrimSpace(in.Vendor),
		BaseAmount:    breakdown.BaseAmount,
		GSTRate:       breakdown.Rate,
		GSTAmount:     breakdown.GSTAmount,
		TotalAmount:   breakdown.TotalAmount,
		Description:   strings.TrimSpace(in.Description),
		Source:        source,
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
		ExtractionID:  in.ExtractionID,
	}
	if in.CategoryID != nil && *in.CategoryID != "" {
		id, _ := uuid.Parse(*in.CategoryID)
		tx.CategoryID = &id
	}
	return tx, nil
}

// Validate returns one FieldError per invalid field, in field order.
func Validate(in Input) []apperrors.FieldError {
	byField := make(map[string]string, len(in.decodeErrs))
	for field, msg := range in.decodeErrs {
		byField[field] = msg
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []apperrors.FieldError{{Field: "input", Message: err.Error()}}
		}
		for _, fe := range verrs {
			if _, seen := byField[fe.Field()]; !seen {
				byField[fe.Field()] = message(fe, in)
			}
		}
	}
	if len(byField) == 0 {
		return nil
	}

	fields := make([]apperrors.FieldError, 0, len(byField))
	for _, field := range fieldOrder {
		if msg, ok := byField[field]; ok {
			fields = append(fields, apperrors.FieldError{Field: field, Message: msg})
		}
	}
	return fields
}

func message(fe validator.FieldError, in Input) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "calendar_date":
		return "must be a valid date in YYYY-MM-DD format"
	case "amount":
		return amountMessage(string(in.BaseAmount))
	case "gst_rate":
		return "must be one of " + gst.RatesString()
	case "transaction_type":
		return "must be income or expense"
	case "uuid":
		return "must be a valid UUID"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}

func amountMessage(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "is required"
	}
	minor, err := gst.ParseAmount(raw)
	if err != nil {
		return err.Error()
	}
	if minor <= 0 {
		return "must be greater than zero"
	}
	return "is invalid"
}
