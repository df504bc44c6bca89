package services

import (
	"context"
	"time"

	"ledgerwise/internal/ai"
	"ledgerwise/internal/extraction"
	"ledgerwise/internal/ledger"
	"ledgerwise/internal/models"
	"ledgerwise/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, name string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
	UpdateProfile(userID, name string) (*models.User, error)
}

// CategoryServicer defines the contract for category-related business logic.
// A nil owner addresses the global categories managed by admins.
type CategoryServicer interface {
	CreateCategory(ownerID *string, name, description string) (*models.Category, error)
	ListCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	ListGlobalCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(ownerID *string, categoryID, name, description string) (*models.Category, error)
	DeleteCategory(ownerID *string, categoryID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	Source     *models.TransactionSource
	Search     string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, in ledger.Input) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, in ledger.Input) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetSummary(userID string, from, to *time.Time) (*LedgerSummary, error)
}

// CategoryTotal is the spend for one category in a summary.
type CategoryTotal struct {
	CategoryID *string `json:"category_id,omitempty"`
	Name       string  `json:"name"`
	Total      int64   `json:"total"`
}

// LedgerSummary aggregates a user's ledger over a period. All amounts are in
// minor units. GSTCollected is tax on income, GSTPaid tax on expenses.
type LedgerSummary struct {
	From             *time.Time      `json:"from,omitempty"`
	To               *time.Time      `json:"to,omitempty"`
	TotalIncome      int64           `json:"total_income"`
	TotalExpenses    int64           `json:"total_expenses"`
	NetProfit        int64           `json:"net_profit"`
	GSTCollected     int64           `json:"gst_collected"`
	GSTPaid          int64           `json:"gst_paid"`
	NetGSTPayable    int64           `json:"net_gst_payable"`
	TransactionCount int64           `json:"transaction_count"`
	TopCategories    []CategoryTotal `json:"top_categories"`
	LargestExpense   *CategoryTotal  `json:"largest_expense,omitempty"`
}

// Generator is the model client used by the invoice and assistant services.
type Generator interface {
	ExtractInvoice(ctx context.Context, file ai.File) (string, error)
	Ask(ctx context.Context, prompt string) (string, error)
	Model() string
}

// InvoiceUpload is an invoice file received from a client.
type InvoiceUpload struct {
	FileName string
	MIMEType string
	Data     []byte
}

// ExtractionResponse is returned after an invoice has been read.
type ExtractionResponse struct {
	ExtractionID string               `json:"extraction_id"`
	Status       extraction.Status    `json:"status"`
	Warnings     []string             `json:"warnings"`
	Confidence   float64              `json:"confidence"`
	Candidate    extraction.Candidate `json:"candidate"`
}

// InvoiceServicer defines the contract for invoice extraction and confirmation.
type InvoiceServicer interface {
	ExtractInvoice(ctx context.Context, userID string, upload InvoiceUpload) (*ExtractionResponse, error)
	GetExtraction(userID, extractionID string) (*models.InvoiceExtraction, error)
	ConfirmExtraction(userID, extractionID string, in ledger.Input) (*models.Transaction, error)
}

// AssistantAnswer is the reply to a ledger question.
type AssistantAnswer struct {
	Answer  string         `json:"answer"`
	Source  string         `json:"source"`
	Summary *LedgerSummary `json:"summary,omitempty"`

	// Retryable is set when the model failed and asking again may succeed.
	Retryable bool `json:"retryable,omitempty"`
}

// AssistantServicer answers questions about a user's ledger.
type AssistantServicer interface {
	Ask(ctx context.Context, userID, question string) (*AssistantAnswer, error)
	Suggestions() []string
}

// AdminStats are platform-wide usage figures.
type AdminStats struct {
	TotalUsers        int64 `json:"total_users"`
	ActiveUsers       int64 `json:"active_users"`
	TotalTransactions int64 `json:"total_transactions"`
	TotalGST          int64 `json:"total_gst"`
	InvoicesProcessed int64 `json:"invoices_processed"`
}

// UserActivity is one row of the admin user listing.
type UserActivity struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	Name             string      `json:"name"`
	Role             models.Role `json:"role"`
	IsActive         bool        `json:"is_active"`
	TransactionCount int64       `json:"transaction_count"`
	GSTTotal         int64       `json:"gst_total"`
	LastLoginAt      *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Settings are the bookkeeping defaults exposed to admins.
type Settings struct {
	DefaultGSTRate int    `json:"default_gst_rate"`
	Timezone       string `json:"timezone"`
	Currency       string `json:"currency"`
	SupportedRates []int  `json:"supported_rates"`
	AIConfigured   bool   `json:"ai_configured"`
}

// AdminServicer defines the contract for admin reporting.
type AdminServicer interface {
	GetStats() (*AdminStats, error)
	ListUsers(page pagination.PageRequest, search string) (*pagination.PageResponse[UserActivity], error)
	GetSettings() *Settings
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
