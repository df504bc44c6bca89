// Package client provides an HTTP client for the LedgerWise API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"ledgerwise/internal/gst"
	"ledgerwise/internal/ledger"
	"ledgerwise/internal/session"
)

// APIError is an error response returned by the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []FieldError
	Retryable  bool
}

// FieldError names one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.Field + " " + d.Message
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, "; "))
}

// Tokens is an access and refresh token pair.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	Tokens
	ExpiresIn int          `json:"expires_in"`
	User      session.User `json:"user"`
}

// Transaction is a ledger entry. Amounts are in minor units.
type Transaction struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Date          string   `json:"date"`
	Vendor        string   `json:"vendor"`
	BaseAmount    int64    `json:"base_amount"`
	GSTRate       gst.Rate `json:"gst_rate"`
	GSTAmount     int64    `json:"gst_amount"`
	TotalAmount   int64    `json:"total_amount"`
	Source        string   `json:"source"`
	InvoiceNumber string   `json:"invoice_number,omitempty"`
}

// Quote is a live GST calculation.
type Quote struct {
	gst.Breakdown
	Formatted struct {
		BaseAmount  string `json:"base_amount"`
		GSTAmount   string `json:"gst_amount"`
		TotalAmount string `json:"total_amount"`
	} `json:"formatted"`
}

// Candidate is the transaction proposed from an invoice.
type Candidate struct {
	VendorName    string    `json:"vendor_name,omitempty"`
	InvoiceDate   string    `json:"invoice_date,omitempty"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	BaseAmount    *int64    `json:"base_amount,omitempty"`
	GSTRate       *gst.Rate `json:"gst_rate,omitempty"`
	GSTAmount     *int64    `json:"gst_amount,omitempty"`
	TotalAmount   *int64    `json:"total_amount,omitempty"`
	Placeholder   bool      `json:"placeholder,omitempty"`
}

// Extraction is the result of reading an invoice.
type Extraction struct {
	ExtractionID string    `json:"extraction_id"`
	Status       string    `json:"status"`
	Warnings     []string  `json:"warnings"`
	Confidence   float64   `json:"confidence"`
	Candidate    Candidate `json:"candidate"`
}

// Answer is the assistant's reply.
type Answer struct {
	Answer string `json:"answer"`
	Source string `json:"source"`
}

// LedgerwiseClient communicates with the LedgerWise API on behalf of one user.
type LedgerwiseClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     Tokens

	// OnRefresh is called with the new tokens after an expired access token
	// has been renewed.
	OnRefresh func(AuthResponse)
}

// NewLedgerwiseClient creates a new API client. tokens may be empty before login.
func NewLedgerwiseClient(baseURL string, tokens Tokens, httpClient *http.Client) *LedgerwiseClient {
	return &LedgerwiseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// Tokens returns the tokens currently in use.
func (c *LedgerwiseClient) Tokens() Tokens {
	return c.tokens
}

// request is a single API call. body is rebuilt for every attempt.
type request struct {
	method      string
	path        string
	contentType string
	body        func() (io.Reader, error)
	auth        bool
}

func jsonBody(v interface{}) (func() (io.Reader, error), error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	return func() (io.Reader, error) { return bytes.NewReader(data), nil }, nil
}

func (c *LedgerwiseClient) send(ctx context.Context, r request) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		var err error
		if body, err = r.body(); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.auth {
		req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken)
	}
	return c.httpClient.Do(req)
}

// do performs r and decodes a successful response into out. An authenticated
// call rejected with 401 is retried once after refreshing the tokens.
func (c *LedgerwiseClient) do(ctx context.Context, r request, want int, out interface{}) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && r.auth && c.tokens.RefreshToken != "" {
		_ = resp.Body.Close()
		if _, err := c.Refresh(ctx); err != nil {
			return err
		}
		if resp, err = c.send(ctx, r); err != nil {
			return fmt.Errorf("%s %s: %w", r.method, r.path, err)
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", r.path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error struct {
			Code      string       `json:"code"`
			Message   string       `json:"message"`
			Details   []FieldError `json:"details"`
			Retryable bool         `json:"retryable"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error.Code == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: "UNEXPECTED_STATUS", Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       payload.Error.Code,
		Message:    payload.Error.Message,
		Details:    payload.Error.Details,
		Retryable:  payload.Error.Retryable,
	}
}

// Login signs in and keeps the returned tokens.
func (c *LedgerwiseClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	var result AuthResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/v1/auth/login", contentType: "application/json", body: body}, http.StatusOK, &result); err != nil {
		return nil, err
	}
	c.tokens = result.Tokens
	return &result, nil
}

// Refresh exchanges the refresh token for a new token pair.
func (c *LedgerwiseClient) Refresh(ctx context.Context) (*AuthResponse, error) {
	body, err := jsonBody(map[string]string{"refresh_token": c.tokens.RefreshToken})
	if err != nil {
		return nil, err
	}

	var result AuthResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/v1/auth/refresh", contentType: "application/json", body: body}, http.StatusOK, &result); err != nil {
		return nil, err
	}
	c.tokens = result.Tokens
	if c.OnRefresh != nil {
		c.OnRefresh(result)
	}
	return &result, nil
}

// Profile returns the signed-in user.
func (c *LedgerwiseClient) Profile(ctx context.Context) (*session.User, error) {
	var result struct {
		User session.User `json:"user"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/profile", auth: true}, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result.User, nil
}

// CreateTransaction adds a transaction to the ledger.
func (c *LedgerwiseClient) CreateTransaction(ctx context.Context, in ledger.Input) (*Transaction, error) {
	body, err := jsonBody(in)
	if err != nil {
		return nil, err
	}

	var result struct {
		Transaction Transaction `json:"transaction"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/v1/transactions", contentType: "application/json", body: body, auth: true}, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result.Transaction, nil
}

// Quote calculates GST on a base amount without storing anything.
func (c *LedgerwiseClient) Quote(ctx context.Context, baseAmount string, rate int) (*Quote, error) {
	q := url.Values{}
	q.Set("base_amount", baseAmount)
	q.Set("gst_rate", fmt.Sprint(rate))

	var result Quote
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/gst/quote?" + q.Encode(), auth: true}, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExtractInvoice uploads an invoice file for reading.
func (c *LedgerwiseClient) ExtractInvoice(ctx context.Context, fileName string, data []byte) (*Extraction, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	payload := buf.Bytes()

	var result Extraction
	r := request{
		method:      http.MethodPost,
		path:        "/api/v1/invoices/extract",
		contentType: w.FormDataContentType(),
		body:        func() (io.Reader, error) { return bytes.NewReader(payload), nil },
		auth:        true,
	}
	if err := c.do(ctx, r, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConfirmExtraction adds the reviewed invoice to the ledger.
func (c *LedgerwiseClient) ConfirmExtraction(ctx context.Context, extractionID string, in ledger.Input) (*Transaction, error) {
	body, err := jsonBody(in)
	if err != nil {
		return nil, err
	}

	var result struct {
		Transaction Transaction `json:"transaction"`
	}
	path := "/api/v1/invoices/" + url.PathEscape(extractionID) + "/confirm"
	if err := c.do(ctx, request{method: http.MethodPost, path: path, contentType: "application/json", body: body, auth: true}, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result.Transaction, nil
}

// Ask puts a question to the ledger assistant.
func (c *LedgerwiseClient) Ask(ctx context.Context, question string) (*Answer, error) {
	body, err := jsonBody(map[string]string{"question": question})
	if err != nil {
		return nil, err
	}

	var result Answer
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/v1/assistant/ask", contentType: "application/json", body: body, auth: true}, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IsUnauthorized reports whether err means the session is no longer valid.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
