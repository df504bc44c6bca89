package testutil_test

import (
	"testing"

	"ledgerwise/internal/errors"
	"ledgerwise/internal/models"
	"ledgerwise/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "categories", "transactions", "invoice_extractions", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have an ID")
	}
	if user.Role != models.RoleUser {
		t.Errorf("expected role user, got %s", user.Role)
	}

	admin := testutil.CreateTestAdmin(t, db)
	if !admin.IsAdmin() {
		t.Error("expected admin fixture to hold the admin role")
	}

	global := testutil.CreateTestCategory(t, db, nil)
	if !global.IsGlobal() {
		t.Error("expected category without owner to be global")
	}

	tx := testutil.CreateTestTransaction(t, db, user.ID, testutil.TestInput(models.TransactionTypeExpense, "100", 18))
	if tx.BaseAmount != 10000 || tx.GSTAmount != 1800 || tx.TotalAmount != 11800 {
		t.Errorf("expected 10000/1800/11800, got %d/%d/%d", tx.BaseAmount, tx.GSTAmount, tx.TotalAmount)
	}

	extraction := testutil.CreateTestExtraction(t, db, user.ID)
	if extraction.IsConfirmed() {
		t.Error("new extraction should not be confirmed")
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrCategoryNotFound, "custom message")
	testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
}

func TestAssertFieldError(t *testing.T) {
	err := errors.NewValidationError([]errors.FieldError{{Field: "vendor", Message: "is required"}})
	testutil.AssertFieldError(t, err, "vendor")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
