package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledgerwise/internal/ledger"
)

func intPtr(v int) *int { return &v }

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "asha@example.com" || body["password"] != "password123" {
			t.Errorf("unexpected body: %v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    900,
			"user":          map[string]any{"id": "u1", "email": "asha@example.com", "name": "Asha", "role": "user"},
		})
	}))
	defer server.Close()

	c := NewLedgerwiseClient(server.URL+"/", Tokens{}, server.Client())
	result, err := c.Login(context.Background(), "asha@example.com", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.User.Email != "asha@example.com" {
		t.Errorf("expected user email, got %+v", result.User)
	}
	if c.Tokens().AccessToken != "access-1" || c.Tokens().RefreshToken != "refresh-1" {
		t.Errorf("expected tokens to be kept, got %+v", c.Tokens())
	}
}

func TestCreateTransaction_ValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			t.Errorf("missing or wrong authorization header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    "VALIDATION_FAILED",
				"message": "Validation failed",
				"details": []map[string]string{{"field": "vendor", "message": "is required"}},
			},
		})
	}))
	defer server.Close()

	c := NewLedgerwiseClient(server.URL, Tokens{AccessToken: "access"}, server.Client())
	_, err := c.CreateTransaction(context.Background(), ledger.Input{Date: "2024-04-01", GSTRate: intPtr(18), Type: "expense"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "VALIDATION_FAILED" || len(apiErr.Details) != 1 {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if !strings.Contains(err.Error(), "vendor is required") {
		t.Errorf("error %q should name the field", err.Error())
	}
}

func TestDo_RefreshesExpiredAccessToken(t *testing.T) {
	var refreshed bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			refreshed = true
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "new-access", "refresh_token": "new-refresh"})
		case "/api/v1/profile":
			if r.Header.Get("Authorization") != "Bearer new-access" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": "INVALID_TOKEN", "message": "Invalid token"}})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]string{"id": "u1", "email": "asha@example.com"}})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewLedgerwiseClient(server.URL, Tokens{AccessToken: "old", RefreshToken: "refresh"}, server.Client())
	var saved Tokens
	c.OnRefresh = func(r AuthResponse) { saved = r.Tokens }

	user, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !refreshed {
		t.Error("expected a refresh call")
	}
	if user.Email != "asha@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	if saved.RefreshToken != "new-refresh" {
		t.Errorf("expected OnRefresh to receive new tokens, got %+v", saved)
	}
}

func TestDo_RefreshRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": "INVALID_TOKEN", "message": "Invalid token"}})
	}))
	defer server.Close()

	c := NewLedgerwiseClient(server.URL, Tokens{AccessToken: "old", RefreshToken: "stale"}, server.Client())
	_, err := c.Profile(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestQuote_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/gst/quote" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("base_amount") != "1,000" || r.URL.Query().Get("gst_rate") != "18" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"base_amount": 100000, "gst_rate": 18, "gst_amount": 18000, "total_amount": 118000,
			"formatted": map[string]string{"base_amount": "₹1,000.00", "gst_amount": "₹180.00", "total_amount": "₹1,180.00"},
		})
	}))
	defer server.Close()

	c := NewLedgerwiseClient(server.URL, Tokens{AccessToken: "access"}, server.Client())
	quote, err := c.Quote(context.Background(), "1,000", 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.TotalAmount != 118000 || quote.Formatted.TotalAmount != "₹1,180.00" {
		t.Errorf("unexpected quote: %+v", quote)
	}
}

func TestExtractInvoice_Multipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("expected multipart file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "acme.pdf" {
			t.Errorf("unexpected file name: %s", header.Filename)
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"extraction_id": "ext-1",
			"status":        "degraded",
			"warnings":      []string{"missing:invoice_date"},
			"confidence":    0.8,
			"candidate":     map[string]any{"vendor_name": "Acme", "total_amount": 118000},
		})
	}))
	defer server.Close()

	c := NewLedgerwiseClient(server.URL, Tokens{AccessToken: "access"}, server.Client())
	result, err := c.ExtractInvoice(context.Background(), "acme.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExtractionID != "ext-1" || result.Status != "degraded" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Candidate.TotalAmount == nil || *result.Candidate.TotalAmount != 118000 {
		t.Errorf("unexpected candidate: %+v", result.Candidate)
	}
}

func TestAsk_UnexpectedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	c := NewLedgerwiseClient(server.URL, Tokens{AccessToken: "access"}, server.Client())
	_, err := c.Ask(context.Background(), "How much GST do I owe?")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "unexpected status 502") {
		t.Errorf("error %q should contain the status", err.Error())
	}
}
