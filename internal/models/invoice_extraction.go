package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ExtractionStatus mirrors the outcome of reconciling an AI response.
type ExtractionStatus string

const (
	ExtractionStatusOK       ExtractionStatus = "ok"
	ExtractionStatusDegraded ExtractionStatus = "degraded"
)

// InvoiceExtraction stores one OCR run over an uploaded invoice so that the
// reviewed candidate can later be confirmed into the ledger.
type InvoiceExtraction struct {
	Base
	UserID        string           `gorm:"type:uuid;not null;index" json:"user_id"`
	FileName      string           `json:"file_name"`
	MimeType      string           `json:"mime_type"`
	FileSize      int64            `json:"file_size"`
	Model         string           `json:"model"`
	RawText       string           `gorm:"type:text" json:"-"`
	Status        ExtractionStatus `gorm:"not null" json:"status"`
	Confidence    float64          `json:"confidence"`
	Warnings      datatypes.JSON   `json:"warnings"`
	Candidate     datatypes.JSON   `json:"candidate"`
	TransactionID *string          `gorm:"type:uuid" json:"transaction_id,omitempty"`
	ConfirmedAt   *time.Time       `json:"confirmed_at,omitempty"`
}

// WarningList decodes the stored warnings.
func (e *InvoiceExtraction) WarningList() []string {
	var out []string
	if len(e.Warnings) == 0 {
		return out
	}
	_ = json.Unmarshal(e.Warnings, &out)
	return out
}

// IsConfirmed reports whether the extraction was already added to the ledger.
func (e *InvoiceExtraction) IsConfirmed() bool {
	return e.TransactionID != nil
}
