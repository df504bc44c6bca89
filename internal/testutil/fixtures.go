package testutil

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"ledgerwise/internal/ledger"
	"ledgerwise/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestAdmin creates a user holding the admin role.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := CreateTestUserWithEmail(t, db, fmt.Sprintf("admin%d@test.com", nextID()))
	if err := db.Model(user).Update("role", models.RoleAdmin).Error; err != nil {
		t.Fatalf("failed to promote test admin: %v", err)
	}
	user.Role = models.RoleAdmin
	return user
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     fmt.Sprintf("Test User %d", nextID()),
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category owned by userID, or a global one
// when userID is nil.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID *string) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// TestInput returns a valid assembler input for the given type, base amount
// in rupees and GST rate, dated 2024-03-15.
func TestInput(txType models.TransactionType, base string, rate int) ledger.Input {
	return ledger.Input{
		Date:       "2024-03-15",
		Vendor:     fmt.Sprintf("Vendor %d", nextID()),
		BaseAmount: ledger.Amount(base),
		GSTRate:    &rate,
		Type:       string(txType),
	}
}

// CreateTestTransaction assembles and stores a transaction for userID.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, in ledger.Input) *models.Transaction {
	t.Helper()

	tx, err := ledger.Assemble(in)
	if err != nil {
		t.Fatalf("failed to assemble test transaction: %v", err)
	}
	tx.UserID = userID
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestExtraction stores an unconfirmed invoice extraction for userID.
func CreateTestExtraction(t *testing.T, db *gorm.DB, userID string) *models.InvoiceExtraction {
	t.Helper()

	candidate, err := json.Marshal(map[string]any{"vendor_name": "Acme Supplies"})
	if err != nil {
		t.Fatalf("failed to marshal test candidate: %v", err)
	}
	record := &models.InvoiceExtraction{
		UserID:     userID,
		FileName:   fmt.Sprintf("invoice-%d.pdf", nextID()),
		MimeType:   "application/pdf",
		FileSize:   1024,
		Model:      "test-model",
		Status:     models.ExtractionStatusOK,
		Confidence: 1,
		Warnings:   datatypes.JSON("[]"),
		Candidate:  datatypes.JSON(candidate),
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test extraction: %v", err)
	}
	return record
}
