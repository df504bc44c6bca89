package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/services"
)

// InvoiceHandler handles invoice upload and confirmation requests.
type InvoiceHandler struct {
	invoiceService services.InvoiceServicer
	auditService   services.AuditServicer
	maxUploadBytes int64
}

// NewInvoiceHandler creates a new InvoiceHandler. Request bodies larger than
// maxUploadBytes are rejected before they reach the service.
func NewInvoiceHandler(invoiceService services.InvoiceServicer, auditService services.AuditServicer, maxUploadBytes int64) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		auditService:   auditService,
		maxUploadBytes: maxUploadBytes,
	}
}

// multipartOverhead leaves room for form boundaries and headers around the file.
const multipartOverhead = 64 << 10

// ExtractInvoice reads an uploaded invoice
// @Summary     Extract invoice
// @Description Upload a PDF, PNG or JPEG invoice. The fields read from it are returned for review and nothing is added to the ledger.
// @Tags        invoices
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "Invoice file"
// @Success     201 {object} services.ExtractionResponse "Extraction result"
// @Failure     400 {object} ErrorResponse "Missing or empty file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     413 {object} ErrorResponse "File too large"
// @Failure     415 {object} ErrorResponse "Unsupported file type"
// @Failure     502 {object} ErrorResponse "Model request failed"
// @Failure     503 {object} ErrorResponse "Model not configured"
// @Router      /invoices/extract [post]
func (h *InvoiceHandler) ExtractInvoice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(c, apperrors.ErrFileTooLarge)
			return
		}
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is required"))
		return
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		respondWithError(c, apperrors.ErrFileTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	result, err := h.invoiceService.ExtractInvoice(c.Request.Context(), userID, services.InvoiceUpload{
		FileName: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionExtract, "invoice_extraction", result.ExtractionID, c.ClientIP(),
		map[string]interface{}{
			"file_name":  header.Filename,
			"status":     result.Status,
			"confidence": result.Confidence,
		})

	c.JSON(http.StatusCreated, result)
}

// GetExtraction returns a stored extraction
// @Summary     Get extraction
// @Description Get a stored invoice extraction by ID
// @Tags        invoices
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Extraction ID"
// @Success     200 {object} models.InvoiceExtraction "Extraction"
// @Failure     400 {object} ErrorResponse "Invalid extraction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Extraction not found"
// @Router      /invoices/{id} [get]
func (h *InvoiceHandler) GetExtraction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	extractionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.invoiceService.GetExtraction(userID, extractionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"extraction": record})
}

// ConfirmExtraction adds a reviewed invoice to the ledger
// @Summary     Confirm extraction
// @Description Add the reviewed invoice fields to the ledger as a transaction. An extraction can only be confirmed once.
// @Tags        invoices
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string       true "Extraction ID"
// @Param       request body ledger.Input true "Reviewed transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Extraction not found"
// @Failure     409 {object} ErrorResponse "Extraction already confirmed"
// @Router      /invoices/{id}/confirm [post]
func (h *InvoiceHandler) ConfirmExtraction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	extractionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	in, err := bindLedgerInput(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.invoiceService.ConfirmExtraction(userID, extractionID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionConfirm, "invoice_extraction", extractionID, c.ClientIP(),
		map[string]interface{}{
			"transaction_id": transaction.ID,
			"total_amount":   transaction.TotalAmount,
		})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}
