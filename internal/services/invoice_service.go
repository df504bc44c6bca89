package services

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ledgerwise/internal/ai"
	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/extraction"
	"ledgerwise/internal/ledger"
	"ledgerwise/internal/logger"
	"ledgerwise/internal/models"
)

// supportedInvoiceTypes maps accepted file extensions to the MIME type sent
// to the model.
var supportedInvoiceTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// invoiceService handles invoice extraction and confirmation.
type invoiceService struct {
	db       *gorm.DB
	gen      Generator
	maxBytes int64
}

// NewInvoiceService creates a new InvoiceServicer. gen may be nil when no
// model is configured, in which case extraction fails with AI_NOT_CONFIGURED.
// A maxBytes of zero or less disables the size check.
func NewInvoiceService(db *gorm.DB, gen Generator, maxBytes int64) InvoiceServicer {
	return &invoiceService{db: db, gen: gen, maxBytes: maxBytes}
}

// invoiceMIMEType resolves the MIME type of an upload from its extension.
// A declared type that disagrees with the extension is rejected.
func invoiceMIMEType(upload InvoiceUpload) (string, error) {
	ext := strings.ToLower(filepath.Ext(upload.FileName))
	mimeType, ok := supportedInvoiceTypes[ext]
	if !ok {
		return "", apperrors.ErrUnsupportedFile
	}

	declared := strings.TrimSpace(upload.MIMEType)
	if declared == "" || declared == "application/octet-stream" {
		return mimeType, nil
	}
	parsed, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", apperrors.ErrUnsupportedFile
	}
	if parsed == "image/jpg" {
		parsed = "image/jpeg"
	}
	if parsed != mimeType {
		return "", apperrors.ErrUnsupportedFile
	}
	return mimeType, nil
}

// ExtractInvoice sends the upload to the model, reconciles the reply and
// stores the result for later confirmation. A degraded reconciliation is not
// an error.
func (s *invoiceService) ExtractInvoice(ctx context.Context, userID string, upload InvoiceUpload) (*ExtractionResponse, error) {
	if s.gen == nil {
		return nil, apperrors.ErrAINotConfigured
	}
	if len(upload.Data) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invoice file is empty")
	}
	if s.maxBytes > 0 && int64(len(upload.Data)) > s.maxBytes {
		return nil, apperrors.ErrFileTooLarge
	}
	mimeType, err := invoiceMIMEType(upload)
	if err != nil {
		return nil, err
	}

	raw, err := s.gen.ExtractInvoice(ctx, ai.File{MIMEType: mimeType, Data: upload.Data})
	if err != nil {
		return nil, err
	}

	result := extraction.Reconcile(raw)
	if result.Degraded() {
		logger.Get().Infow("invoice extraction degraded",
			"user_id", userID,
			"file_name", upload.FileName,
			"warnings", result.Warnings,
		)
	}

	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	candidate, err := json.Marshal(result.Candidate)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	record := &models.InvoiceExtraction{
		UserID:     userID,
		FileName:   filepath.Base(upload.FileName),
		MimeType:   mimeType,
		FileSize:   int64(len(upload.Data)),
		Model:      s.gen.Model(),
		RawText:    raw,
		Status:     models.ExtractionStatus(result.Status),
		Confidence: result.Confidence,
		Warnings:   datatypes.JSON(warnings),
		Candidate:  datatypes.JSON(candidate),
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &ExtractionResponse{
		ExtractionID: record.ID,
		Status:       result.Status,
		Warnings:     result.Warnings,
		Confidence:   result.Confidence,
		Candidate:    result.Candidate,
	}, nil
}

// GetExtraction retrieves a stored extraction owned by the user.
func (s *invoiceService) GetExtraction(userID, extractionID string) (*models.InvoiceExtraction, error) {
	return getExtraction(s.db, userID, extractionID)
}

func getExtraction(db *gorm.DB, userID, extractionID string) (*models.InvoiceExtraction, error) {
	var record models.InvoiceExtraction
	if err := db.Where("id = ? AND user_id = ?", extractionID, userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExtractionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &record, nil
}

// ConfirmExtraction adds the reviewed invoice fields to the ledger and links
// the new transaction to the extraction. An extraction can be confirmed once.
func (s *invoiceService) ConfirmExtraction(userID, extractionID string, in ledger.Input) (*models.Transaction, error) {
	if _, err := getExtraction(s.db, userID, extractionID); err != nil {
		return nil, err
	}

	in.Source = models.TransactionSourceInvoice
	in.ExtractionID = &extractionID
	transaction, err := ledger.Assemble(in)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		record, err := getExtraction(tx, userID, extractionID)
		if err != nil {
			return err
		}
		if record.IsConfirmed() {
			return apperrors.ErrExtractionConfirmed
		}

		if err := insertTransaction(tx, userID, transaction); err != nil {
			return err
		}

		result := tx.Model(&models.InvoiceExtraction{}).
			Where("id = ? AND transaction_id IS NULL", extractionID).
			Updates(map[string]interface{}{
				"transaction_id": transaction.ID,
				"confirmed_at":   time.Now(),
			})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrExtractionConfirmed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}
