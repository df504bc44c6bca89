package services

import (
	"testing"
	"time"

	"ledgerwise/internal/models"
	"ledgerwise/internal/pagination"
	"ledgerwise/internal/testutil"
)

func TestAdminGetStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAdminService(db, Settings{})

	recent := testutil.CreateTestUser(t, db)
	stale := testutil.CreateTestUser(t, db)
	testutil.CreateTestUser(t, db)
	db.Model(recent).Update("last_login_at", time.Now().Add(-24*time.Hour))
	db.Model(stale).Update("last_login_at", time.Now().Add(-45*24*time.Hour))

	testutil.CreateTestTransaction(t, db, recent.ID, testutil.TestInput(models.TransactionTypeExpense, "100", 18))
	testutil.CreateTestTransaction(t, db, stale.ID, testutil.TestInput(models.TransactionTypeIncome, "200", 5))
	testutil.CreateTestExtraction(t, db, recent.ID)

	stats, err := svc.GetStats()
	testutil.AssertNoError(t, err)

	if stats.TotalUsers != 3 {
		t.Errorf("expected 3 users, got %d", stats.TotalUsers)
	}
	if stats.ActiveUsers != 1 {
		t.Errorf("expected 1 active user, got %d", stats.ActiveUsers)
	}
	if stats.TotalTransactions != 2 {
		t.Errorf("expected 2 transactions, got %d", stats.TotalTransactions)
	}
	if stats.TotalGST != 1800+1000 {
		t.Errorf("expected total GST 2800, got %d", stats.TotalGST)
	}
	if stats.InvoicesProcessed != 1 {
		t.Errorf("expected 1 invoice, got %d", stats.InvoicesProcessed)
	}
}

func TestAdminListUsers(t *testing.T) {
	t.Run("activity_per_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAdminService(db, Settings{})

		busy := testutil.CreateTestUserWithEmail(t, db, "busy@example.com")
		testutil.CreateTestUserWithEmail(t, db, "idle@example.com")
		testutil.CreateTestTransaction(t, db, busy.ID, testutil.TestInput(models.TransactionTypeExpense, "100", 18))
		testutil.CreateTestTransaction(t, db, busy.ID, testutil.TestInput(models.TransactionTypeExpense, "100", 28))

		result, err := svc.ListUsers(pagination.PageRequest{}, "")
		testutil.AssertNoError(t, err)

		if result.TotalItems != 2 {
			t.Fatalf("expected 2 users, got %d", result.TotalItems)
		}
		byEmail := map[string]UserActivity{}
		for _, u := range result.Data {
			byEmail[u.Email] = u
		}
		if got := byEmail["busy@example.com"]; got.TransactionCount != 2 || got.GSTTotal != 4600 {
			t.Errorf("expected 2 transactions and 4600 GST, got %d/%d", got.TransactionCount, got.GSTTotal)
		}
		if got := byEmail["idle@example.com"]; got.TransactionCount != 0 || got.GSTTotal != 0 {
			t.Errorf("expected no activity, got %d/%d", got.TransactionCount, got.GSTTotal)
		}
	})

	t.Run("search", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAdminService(db, Settings{})

		testutil.CreateTestUserWithEmail(t, db, "priya@example.com")
		testutil.CreateTestUserWithEmail(t, db, "rahul@example.com")

		result, err := svc.ListUsers(pagination.PageRequest{}, "PRIYA")
		testutil.AssertNoError(t, err)

		if result.TotalItems != 1 || result.Data[0].Email != "priya@example.com" {
			t.Errorf("expected only priya, got %+v", result.Data)
		}
	})
}

func TestAdminGetSettings(t *testing.T) {
	svc := NewAdminService(nil, Settings{DefaultGSTRate: 18, Timezone: "Asia/Kolkata", Currency: "INR", AIConfigured: true})

	settings := svc.GetSettings()
	if settings.DefaultGSTRate != 18 || settings.Currency != "INR" || settings.Timezone != "Asia/Kolkata" {
		t.Errorf("unexpected settings %+v", settings)
	}
	want := []int{0, 5, 12, 18, 28}
	if len(settings.SupportedRates) != len(want) {
		t.Fatalf("expected %v, got %v", want, settings.SupportedRates)
	}
	for i := range want {
		if settings.SupportedRates[i] != want[i] {
			t.Errorf("expected %v, got %v", want, settings.SupportedRates)
		}
	}

	settings.SupportedRates[0] = 99
	if svc.GetSettings().SupportedRates[0] != 0 {
		t.Error("expected GetSettings to return a copy")
	}
}
