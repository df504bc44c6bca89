package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/gst"
	"ledgerwise/internal/ledger"
	"ledgerwise/internal/models"
	"ledgerwise/internal/pagination"
	"ledgerwise/internal/services"
	"ledgerwise/internal/uuid"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// QuoteResponse is a live GST calculation.
type QuoteResponse struct {
	gst.Breakdown
	Formatted FormattedQuote `json:"formatted"`
}

// FormattedQuote holds the quote amounts rendered in rupees.
type FormattedQuote struct {
	BaseAmount  string `json:"base_amount"`
	GSTAmount   string `json:"gst_amount"`
	TotalAmount string `json:"total_amount"`
}

func bindLedgerInput(c *gin.Context) (ledger.Input, error) {
	var in ledger.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "request body must be a JSON object")
	}
	return in, nil
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record an income or expense. GST amount and total are computed from base_amount and gst_rate.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ledger.Input true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input, with per-field details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	in, err := bindLedgerInput(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionCreate, "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{
			"type":         transaction.Type,
			"base_amount":  transaction.BaseAmount,
			"gst_rate":     transaction.GSTRate,
			"total_amount": transaction.TotalAmount,
		})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetUserTransactions lists the user's transactions
// @Summary     List transactions
// @Description List transactions newest first with optional filters
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page        query int    false "Page number"
// @Param       page_size   query int    false "Page size (max 100)"
// @Param       from_date   query string false "Earliest date (YYYY-MM-DD)"
// @Param       to_date     query string false "Latest date (YYYY-MM-DD)"
// @Param       type        query string false "income or expense"
// @Param       category_id query string false "Category ID"
// @Param       source      query string false "manual or invoice"
// @Param       search      query string false "Vendor or description contains"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if err := parsePeriod(c, &filter); err != nil {
		return filter, err
	}

	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(v)
		switch txType {
		case models.TransactionTypeIncome, models.TransactionTypeExpense:
			filter.Type = &txType
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be income or expense")
		}
	}

	if v := c.Query("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category_id")
		}
		filter.CategoryID = &id
	}

	if v := c.Query("source"); v != "" {
		source := models.TransactionSource(v)
		switch source {
		case models.TransactionSourceManual, models.TransactionSourceInvoice:
			filter.Source = &source
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid source, must be manual or invoice")
		}
	}

	filter.Search = strings.TrimSpace(c.Query("search"))

	return filter, nil
}

// parsePeriod reads from_date and to_date into filter.
func parsePeriod(c *gin.Context, filter *services.TransactionFilter) error {
	if v := c.Query("from_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	if filter.FromDate != nil && filter.ToDate != nil && filter.ToDate.Before(*filter.FromDate) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date must not be before from_date")
	}
	return nil
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating an existing transaction
// @Summary     Update transaction
// @Description Replace a transaction. All fields are required and the GST amount and total are recomputed.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string       true "Transaction ID"
// @Param       request body ledger.Input true "Transaction details"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	txID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	in, err := bindLedgerInput(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, txID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionUpdate, "transaction", txID, c.ClientIP(),
		map[string]interface{}{
			"base_amount":  transaction.BaseAmount,
			"gst_rate":     transaction.GSTRate,
			"total_amount": transaction.TotalAmount,
		})

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles the deletion of a transaction
// @Summary     Delete transaction
// @Description Delete a transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionDelete, "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Transaction deleted successfully"})
}

// GetSummary aggregates the ledger
// @Summary     Ledger summary
// @Description Income, expenses, GST collected and paid, net GST payable and top expense categories for a period
// @Tags        ledger
// @Produce     json
// @Security    BearerAuth
// @Param       from_date query string false "Earliest date (YYYY-MM-DD)"
// @Param       to_date   query string false "Latest date (YYYY-MM-DD)"
// @Success     200 {object} services.LedgerSummary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid period"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /ledger/summary [get]
func (h *TransactionHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var filter services.TransactionFilter
	if err := parsePeriod(c, &filter); err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.transactionService.GetSummary(userID, filter.FromDate, filter.ToDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// Quote computes GST without storing anything
// @Summary     GST quote
// @Description Compute the GST amount and total for a base amount in rupees
// @Tags        ledger
// @Produce     json
// @Security    BearerAuth
// @Param       base_amount query string true "Base amount in rupees, e.g. 1180.50"
// @Param       gst_rate    query int    true "GST rate: 0, 5, 12, 18 or 28"
// @Success     200 {object} QuoteResponse "Quote"
// @Failure     400 {object} ErrorResponse "Invalid amount or rate"
// @Router      /gst/quote [get]
func (h *TransactionHandler) Quote(c *gin.Context) {
	var fields []apperrors.FieldError

	base, err := gst.ParseAmount(c.Query("base_amount"))
	switch {
	case err != nil:
		fields = append(fields, apperrors.FieldError{Field: "base_amount", Message: err.Error()})
	case base <= 0:
		fields = append(fields, apperrors.FieldError{Field: "base_amount", Message: "must be greater than zero"})
	}

	rate, err := strconv.Atoi(strings.TrimSpace(c.Query("gst_rate")))
	if err != nil || !gst.Rate(rate).Valid() {
		fields = append(fields, apperrors.FieldError{Field: "gst_rate", Message: "must be one of " + gst.RatesString()})
	}

	if len(fields) > 0 {
		respondWithError(c, apperrors.NewValidationError(fields))
		return
	}

	breakdown, err := gst.Compute(base, gst.Rate(rate))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, QuoteResponse{
		Breakdown: breakdown,
		Formatted: FormattedQuote{
			BaseAmount:  gst.FormatINR(breakdown.BaseAmount),
			GSTAmount:   gst.FormatINR(breakdown.GSTAmount),
			TotalAmount: gst.FormatINR(breakdown.TotalAmount),
		},
	})
}
