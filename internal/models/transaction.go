package models

import (
	"time"

	"ledgerwise/internal/gst"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// TransactionSource records how a transaction entered the ledger.
type TransactionSource string

const (
	TransactionSourceManual  TransactionSource = "manual"
	TransactionSourceInvoice TransactionSource = "invoice"
)

// Transaction is a ledger entry. Amounts are in minor units (paise).
// GSTAmount and TotalAmount are always derived from BaseAmount and GSTRate.
type Transaction struct {
	Base
	UserID        string            `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID    *string           `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Type          TransactionType   `gorm:"not null" json:"type"`
	Date          time.Time         `gorm:"not null;index" json:"date"`
	Vendor        string            `gorm:"not null" json:"vendor"`
	BaseAmount    int64             `gorm:"type:bigint;not null" json:"base_amount"`
	GSTRate       gst.Rate          `gorm:"not null" json:"gst_rate"`
	GSTAmount     int64             `gorm:"type:bigint;not null" json:"gst_amount"`
	TotalAmount   int64             `gorm:"type:bigint;not null" json:"total_amount"`
	Description   string            `json:"description"`
	Source        TransactionSource `gorm:"not null;default:manual" json:"source"`
	InvoiceNumber string            `json:"invoice_number,omitempty"`
	ExtractionID  *string           `gorm:"type:uuid" json:"extraction_id,omitempty"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
