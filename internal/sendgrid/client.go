// Package sendgrid is a minimal client for the SendGrid v3 suppression API.
package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/that-one-tom/crossengage-ops/internal/pkg/httpretry"
	"github.com/that-one-tom/crossengage-ops/internal/pkg/logger"
)

// ErrSuppressionFetch classifies any non-200 page while walking the global
// unsubscribe list.
var ErrSuppressionFetch = errors.New("sendgrid: fetching global unsubscribes failed")

// Config holds SendGrid client settings.
type Config struct {
	APIKey   string
	BaseURL  string
	PageSize int
	Timeout  time.Duration
}

// Client is the SendGrid API client.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new SendGrid API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = 500 // protocol maximum
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// FetchAllUnsubscribed walks the link-paginated global unsubscribe list and
// returns the deduplicated emails in first-seen order. Pagination stops when
// the rel="next" link is absent or points at the page just fetched, which
// guards against a cursor that never terminates.
func (c *Client) FetchAllUnsubscribed(ctx context.Context) ([]string, error) {
	pageURL := fmt.Sprintf("%s/suppression/unsubscribes?limit=%d&offset=0", c.baseURL, c.pageSize)

	seen := make(map[string]struct{})
	var emails []string

	for {
		entries, next, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if _, ok := seen[entry.Email]; ok {
				continue
			}
			seen[entry.Email] = struct{}{}
			emails = append(emails, entry.Email)
		}
		logger.Info("retrieved global unsubscribe page", "count", len(entries))

		if next == "" || next == pageURL {
			return emails, nil
		}
		pageURL = next
	}
}

type unsubscribeEntry struct {
	Created int64  `json:"created"`
	Email   string `json:"email"`
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]unsubscribeEntry, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: status %d: %s", ErrSuppressionFetch, resp.StatusCode, body)
	}

	var entries []unsubscribeEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, "", fmt.Errorf("parsing unsubscribe page: %w", err)
	}

	next := nextLink(resp.Header.Get("Link"))
	if next != "" {
		// SendGrid sends absolute links; resolve anyway in case they aren't.
		if resolved, err := url.Parse(pageURL); err == nil {
			if nextURL, err := resolved.Parse(next); err == nil {
				next = nextURL.String()
			}
		}
	}
	return entries, next, nil
}

// nextLink extracts the rel="next" target from an RFC 8288 Link header.
// Returns "" when no next link is present.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if param == `rel="next"` || param == "rel=next" {
				return target
			}
		}
	}
	return ""
}
