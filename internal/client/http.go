package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/finance"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// HTTPClient implements RulesClient using the rules engine HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ RulesClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Config ---

func (c *HTTPClient) ListConfigs(ctx context.Context, category string) ([]*model.ConfigEntry, error) {
	path := "/v1/configs"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var resp struct {
		Configs []*model.ConfigEntry `json:"configs"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Configs, nil
}

func (c *HTTPClient) GetConfig(ctx context.Context, key string) (*model.ConfigEntry, error) {
	var entry model.ConfigEntry
	if err := c.doJSON(ctx, http.MethodGet, "/v1/configs/"+url.PathEscape(key), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *HTTPClient) SetConfig(ctx context.Context, key string, value any, actor string) (*model.ConfigEntry, error) {
	body := map[string]any{"value": value}
	if actor != "" {
		body["actor"] = actor
	}
	var entry model.ConfigEntry
	if err := c.doJSON(ctx, http.MethodPut, "/v1/configs/"+url.PathEscape(key), body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *HTTPClient) ConfigHistory(ctx context.Context, key string, limit int) ([]*model.ConfigChange, error) {
	path := "/v1/configs/" + url.PathEscape(key) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Changes []*model.ConfigChange `json:"changes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Changes, nil
}

// --- Eligibility ---

func (c *HTTPClient) LoanEligibility(ctx context.Context, memberID int64, amount float64, loanTypeID int64) (*Eligibility, error) {
	body := map[string]any{"amount": amount, "loan_type_id": loanTypeID}
	return c.eligibility(ctx, memberID, "loan", body)
}

func (c *HTTPClient) DepositEligibility(ctx context.Context, memberID int64, amount float64, account model.Account) (*Eligibility, error) {
	body := map[string]any{"amount": amount, "account": account}
	return c.eligibility(ctx, memberID, "deposit", body)
}

func (c *HTTPClient) WithdrawalEligibility(ctx context.Context, memberID int64, amount float64, account model.Account) (*Eligibility, error) {
	body := map[string]any{"amount": amount, "account": account}
	return c.eligibility(ctx, memberID, "withdrawal", body)
}

func (c *HTTPClient) eligibility(ctx context.Context, memberID int64, kind string, body any) (*Eligibility, error) {
	var resp Eligibility
	path := fmt.Sprintf("/v1/members/%d/eligibility/%s", memberID, kind)
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Violations == nil {
		resp.Violations = []string{}
	}
	return &resp, nil
}

// --- Calculations ---

func (c *HTTPClient) CreditScore(ctx context.Context, memberID int64) (*model.CreditScoreResult, error) {
	var res model.CreditScoreResult
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/members/%d/credit-score", memberID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Penalty(ctx context.Context, loanID int64, dueDate time.Time) (*finance.PenaltyResult, error) {
	path := fmt.Sprintf("/v1/loans/%d/penalty?due_date=%s", loanID, dueDate.Format(time.DateOnly))
	var res finance.PenaltyResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Schedule(ctx context.Context, principal float64, termMonths int, firstDue time.Time) (*finance.Schedule, error) {
	body := map[string]any{
		"principal":   principal,
		"term_months": termMonths,
		"first_due":   firstDue.Format(time.DateOnly),
	}
	var res finance.Schedule
	if err := c.doJSON(ctx, http.MethodPost, "/v1/loans/schedule", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) SavingsInterest(ctx context.Context, balance float64) (*finance.InterestResult, error) {
	path := "/v1/savings/interest?balance=" + strconv.FormatFloat(balance, 'f', -1, 64)
	var res finance.InterestResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
