package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/ledger"
	"ledgerwise/internal/models"
	"ledgerwise/internal/pagination"
)

const topCategoryCount = 3

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// CreateTransaction assembles in and stores it for the user.
func (s *transactionService) CreateTransaction(userID string, in ledger.Input) (*models.Transaction, error) {
	transaction, err := ledger.Assemble(in)
	if err != nil {
		return nil, err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return insertTransaction(tx, userID, transaction)
	}); err != nil {
		return nil, err
	}
	return transaction, nil
}

// insertTransaction checks the category reference and stores an assembled
// transaction with the given database connection.
func insertTransaction(tx *gorm.DB, userID string, transaction *models.Transaction) error {
	if err := checkCategory(tx, userID, transaction.CategoryID); err != nil {
		return err
	}
	transaction.UserID = userID
	if err := tx.Create(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// checkCategory verifies that a referenced category is visible to the user.
func checkCategory(db *gorm.DB, userID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	var count int64
	if err := visibleTo(db.Model(&models.Category{}).Where("id = ?", *categoryID), userID).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.NewValidationError([]apperrors.FieldError{
			{Field: "category_id", Message: "category not found"},
		})
	}
	return nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's
// transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Preload("Category").
		Order("date DESC, created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("transactions.date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("transactions.date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("transactions.type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("transactions.category_id = ?", *f.CategoryID)
	}
	if f.Source != nil {
		q = q.Where("transactions.source = ?", *f.Source)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(transactions.vendor) LIKE ? OR LOWER(transactions.description) LIKE ?)", like, like)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction replaces a transaction with a freshly assembled one, so
// the GST amount and total are always recomputed. Source and extraction link
// are kept.
func (s *transactionService) UpdateTransaction(userID, transactionID string, in ledger.Input) (*models.Transaction, error) {
	existing, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	in.Source = existing.Source
	in.ExtractionID = existing.ExtractionID
	assembled, err := ledger.Assemble(in)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"type":           assembled.Type,
		"date":           assembled.Date,
		"vendor":         assembled.Vendor,
		"base_amount":    assembled.BaseAmount,
		"gst_rate":       assembled.GSTRate,
		"gst_amount":     assembled.GSTAmount,
		"total_amount":   assembled.TotalAmount,
		"category_id":    assembled.CategoryID,
		"description":    assembled.Description,
		"invoice_number": assembled.InvoiceNumber,
	}
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := checkCategory(tx, userID, assembled.CategoryID); err != nil {
			return err
		}
		if err := tx.Model(existing).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction deletes a transaction
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

type typeTotals struct {
	Type  models.TransactionType
	Base  int64
	GST   int64
	Count int64
}

// GetSummary aggregates the user's ledger between from and to, inclusive.
// Income and expense totals are pre-tax amounts.
func (s *transactionService) GetSummary(userID string, from, to *time.Time) (*LedgerSummary, error) {
	filter := TransactionFilter{FromDate: from, ToDate: to}
	summary := &LedgerSummary{From: from, To: to, TopCategories: []CategoryTotal{}}

	var totals []typeTotals
	if err := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter).
		Select("transactions.type AS type, COALESCE(SUM(transactions.base_amount), 0) AS base, "+
			"COALESCE(SUM(transactions.gst_amount), 0) AS gst, COUNT(*) AS count").
		Where("transactions.user_id = ?", userID).
		Group("transactions.type").
		Scan(&totals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, t := range totals {
		summary.TransactionCount += t.Count
		switch t.Type {
		case models.TransactionTypeIncome:
			summary.TotalIncome = t.Base
			summary.GSTCollected = t.GST
		case models.TransactionTypeExpense:
			summary.TotalExpenses = t.Base
			summary.GSTPaid = t.GST
		}
	}
	summary.NetProfit = summary.TotalIncome - summary.TotalExpenses
	summary.NetGSTPayable = summary.GSTCollected - summary.GSTPaid

	expenseType := models.TransactionTypeExpense
	filter.Type = &expenseType

	var top []CategoryTotal
	if err := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter).
		Select("transactions.category_id AS category_id, COALESCE(categories.name, ?) AS name, "+
			"SUM(transactions.base_amount) AS total", uncategorised).
		Joins("LEFT JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.user_id = ?", userID).
		Group("transactions.category_id, categories.name").
		Order("total DESC").
		Limit(topCategoryCount).
		Scan(&top).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(top) > 0 {
		summary.TopCategories = top
	}

	var largest models.Transaction
	err := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter).
		Where("transactions.user_id = ?", userID).
		Order("transactions.base_amount DESC").
		Limit(1).
		Find(&largest).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if largest.ID != "" {
		summary.LargestExpense = &CategoryTotal{
			CategoryID: largest.CategoryID,
			Name:       largest.Vendor,
			Total:      largest.BaseAmount,
		}
	}

	return summary, nil
}

const uncategorised = "Uncategorised"
