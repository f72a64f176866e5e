// Package crossengage is a client for the CrossEngage platform, covering the
// machine-to-machine statistics API, the UI session API, and the public
// tracking webhook. Authentication state (company id, bearer token) lives on
// the Client and is written once during session setup, read-only afterwards.
package crossengage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/that-one-tom/crossengage-ops/internal/pkg/httpretry"
)

// Config holds everything needed to construct a Client.
type Config struct {
	APIKey          string
	Username        string
	Password        string
	WebTrackingKey  string
	APIBaseURL      string
	UIBaseURL       string
	TrackingBaseURL string
	// APIVersion is sent as X-XNG-ApiVersion on the statistics API surface.
	// The stats export uses 2, the opt-out sync uses 1. UI calls always use 2.
	APIVersion int
	Timeout    time.Duration
}

// Client is the CrossEngage API client.
type Client struct {
	apiBaseURL      string
	uiBaseURL       string
	trackingBaseURL string
	apiKey          string
	username        string
	password        string
	trackingKey     string
	apiVersion      string

	companyID int64
	token     string

	httpClient httpretry.HTTPDoer
}

// NewClient creates a new CrossEngage API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	apiVersion := cfg.APIVersion
	if apiVersion == 0 {
		apiVersion = 1
	}
	return &Client{
		apiBaseURL:      cfg.APIBaseURL,
		uiBaseURL:       cfg.UIBaseURL,
		trackingBaseURL: cfg.TrackingBaseURL,
		apiKey:          cfg.APIKey,
		username:        cfg.Username,
		password:        cfg.Password,
		trackingKey:     cfg.WebTrackingKey,
		apiVersion:      strconv.Itoa(apiVersion),
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// CompanyID returns the company id resolved by IdentifyCompany.
func (c *Client) CompanyID() int64 { return c.companyID }

// do executes a request and returns the status code and response body.
// Transport-level retries happen inside the HTTP client; non-2xx statuses
// are returned for the caller to classify.
func (c *Client) do(ctx context.Context, method, url string, body interface{}, headers map[string]string) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// apiHeaders is the static API-key header set for the statistics API.
func (c *Client) apiHeaders() map[string]string {
	return map[string]string{
		"Content-Type":     "application/json",
		"X-XNG-ApiVersion": c.apiVersion,
		"X-XNG-AuthToken":  c.apiKey,
	}
}

// uiHeaders is the bearer-token header set for the UI session API.
func (c *Client) uiHeaders() map[string]string {
	return map[string]string{
		"Accept":           "application/json",
		"Content-Type":     "application/json",
		"Company-ID":       strconv.FormatInt(c.companyID, 10),
		"X-XNG-ApiVersion": "2",
		"Authorization":    "Bearer " + c.token,
	}
}

// IdentifyCompany resolves the company id for the configured credential.
// Exactly one company id must be returned; zero or several is an
// ambiguous-identity failure.
func (c *Client) IdentifyCompany(ctx context.Context) error {
	payload := map[string]string{"email": c.username}
	status, body, err := c.do(ctx, http.MethodPost, c.uiBaseURL+"/managers/companies", payload,
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return fmt.Errorf("identifying company: %w", err)
	}
	if status != http.StatusOK {
		return newStatusError(ErrAuth, "identifying company", status, body)
	}

	var companyIDs []int64
	if err := json.Unmarshal(body, &companyIDs); err != nil {
		return fmt.Errorf("parsing company ids: %w", err)
	}
	if len(companyIDs) != 1 {
		return fmt.Errorf("%w: got %d company ids", ErrAmbiguousIdentity, len(companyIDs))
	}

	c.companyID = companyIDs[0]
	return nil
}

// Login obtains the UI API bearer token. IdentifyCompany must have been
// called first so the Company-ID header can be sent.
func (c *Client) Login(ctx context.Context) error {
	payload := map[string]string{
		"email":    c.username,
		"password": c.password,
	}
	headers := map[string]string{
		"Content-Type": "application/json",
		"Company-ID":   strconv.FormatInt(c.companyID, 10),
	}
	status, body, err := c.do(ctx, http.MethodPost, c.uiBaseURL+"/managers/login", payload, headers)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if status != http.StatusOK {
		return newStatusError(ErrAuth, "logging in", status, body)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parsing login response: %w", err)
	}
	if result.Token == "" {
		return fmt.Errorf("%w: login returned no token", ErrAuth)
	}

	c.token = result.Token
	return nil
}
