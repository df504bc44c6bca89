package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCategoryFlow_ScopesAndInUse(t *testing.T) {
	app := setupApp(t, nil)
	adminToken, _, _ := app.registerUser(t, adminEmail, "password123")
	userToken, _, _ := app.registerUser(t, "cat@test.com", "password123")
	otherToken, _, _ := app.registerUser(t, "cat2@test.com", "password123")

	// Admin adds a global category
	rec := app.request("POST", "/api/v1/admin/categories", `{"name":"Travel"}`, adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create global category failed: %d %s", rec.Code, rec.Body.String())
	}

	// User adds a private one
	rec = app.request("POST", "/api/v1/categories", `{"name":"Coffee","description":"Client meetings"}`, userToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category failed: %d %s", rec.Code, rec.Body.String())
	}
	coffeeID := parseJSON(t, rec)["category"].(map[string]interface{})["id"].(string)

	// Names are unique per scope, ignoring case
	rec = app.request("POST", "/api/v1/categories", `{"name":"COFFEE"}`, userToken)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for a duplicate name, got %d", rec.Code)
	}
	rec = app.request("POST", "/api/v1/categories", `{"name":"Coffee"}`, otherToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected another user to reuse the name, got %d: %s", rec.Code, rec.Body.String())
	}

	// Listing shows global plus own, ordered by name
	rec = app.request("GET", "/api/v1/categories", "", userToken)
	data := parseJSON(t, rec)["data"].([]interface{})
	if len(data) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(data))
	}
	if data[0].(map[string]interface{})["name"] != "Coffee" {
		t.Errorf("expected Coffee first, got %v", data[0].(map[string]interface{})["name"])
	}

	// Others see the global one and their own
	rec = app.request("GET", "/api/v1/categories", "", otherToken)
	for _, c := range parseJSON(t, rec)["data"].([]interface{}) {
		if c.(map[string]interface{})["id"] == coffeeID {
			t.Error("another user's category leaked into the listing")
		}
	}
	rec = app.request("GET", "/api/v1/categories/"+coffeeID, "", otherToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user's category, got %d", rec.Code)
	}

	// A used category cannot be deleted
	app.createTransaction(t, userToken, fmt.Sprintf(
		`{"date":"2024-04-02","vendor":"Cafe","base_amount":250,"gst_rate":5,"type":"expense","category_id":%q}`, coffeeID))
	rec = app.request("DELETE", "/api/v1/categories/"+coffeeID, "", userToken)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 deleting a used category, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "CATEGORY_IN_USE" {
		t.Errorf("expected CATEGORY_IN_USE, got %v", code)
	}

	// The summary groups expenses by category
	rec = app.request("GET", "/api/v1/ledger/summary", "", userToken)
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	top := summary["top_categories"].([]interface{})
	if len(top) != 1 || top[0].(map[string]interface{})["name"] != "Coffee" {
		t.Errorf("expected Coffee as the top category, got %v", top)
	}
}

func TestCategoryFlow_UserCannotManageGlobal(t *testing.T) {
	app := setupApp(t, nil)
	userToken, _, _ := app.registerUser(t, "plain@test.com", "password123")

	rec := app.request("POST", "/api/v1/admin/categories", `{"name":"Travel"}`, userToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
