// Package bili implements the stateless client for the remote favorites
// collection service. It classifies HTTP 412 as the upstream's distinguished
// rate-limit condition; every other non-2xx or non-JSON response is an
// ordinary transport error.
package bili

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bilisort/internal/common"
)

// API endpoints, relative to the base URL.
const (
	pathNav          = "/x/web-interface/nav"
	pathFolderList   = "/x/v3/fav/folder/created/list-all"
	pathResourceList = "/x/v3/fav/resource/list"
	pathMove         = "/x/v3/fav/resource/move"
	pathFolderSort   = "/x/v3/fav/folder/sort"
	pathFolderEdit   = "/x/v3/fav/folder/edit"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.bilibili.com"

// PageSize is the fixed page size of the item-list endpoint.
const PageSize = 20

// codeAlreadyInTarget is returned by the move endpoint when the resource is
// already in the destination folder; treated as success.
const codeAlreadyInTarget = 72010002

// Credentials are the session cookies the upstream expects. How they are
// obtained is outside this core; they arrive via configuration.
type Credentials struct {
	SESSDATA   string
	BiliJCT    string
	DedeUserID string
}

// Config holds configuration for the collection client.
type Config struct {
	BaseURL           string
	Credentials       Credentials
	PageDelay         time.Duration // delay between consecutive page fetches in a window
	RateLimitCooldown time.Duration // wait before the single in-place retry of a rate-limited page
	Timeout           time.Duration
}

// Client is a stateless HTTP client for the collection service.
type Client struct {
	httpClient        *http.Client
	baseURL           string
	creds             Credentials
	pageDelay         time.Duration
	rateLimitCooldown time.Duration
}

// NewClient creates a collection client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pageDelay := cfg.PageDelay
	if pageDelay == 0 {
		pageDelay = 500 * time.Millisecond
	}
	cooldown := cfg.RateLimitCooldown
	if cooldown == 0 {
		cooldown = 3 * time.Second
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		creds:             cfg.Credentials,
		pageDelay:         pageDelay,
		rateLimitCooldown: cooldown,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// envelope is the common response wrapper of every collection endpoint.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) cookieHeader() string {
	parts := []string{"SESSDATA=" + c.creds.SESSDATA}
	if c.creds.BiliJCT != "" {
		parts = append(parts, "bili_jct="+c.creds.BiliJCT)
	}
	if c.creds.DedeUserID != "" {
		parts = append(parts, "DedeUserID="+c.creds.DedeUserID)
	}
	return strings.Join(parts, "; ")
}

// setHeaders attaches the cookie and referer headers the upstream requires
// to avoid anti-hotlinking HTML responses.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Cookie", c.cookieHeader())
	req.Header.Set("Referer", "https://www.bilibili.com")
	req.Header.Set("Origin", "https://www.bilibili.com")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
}

// get performs a GET request and decodes the response envelope.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*envelope, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeEnvelope(resp)
}

// postForm performs a form-encoded POST and decodes the response envelope.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeEnvelope(resp)
}

// decodeEnvelope classifies the HTTP response. 412 is the upstream's
// rate-limit signal; anything else non-2xx or non-JSON is a transport error.
func decodeEnvelope(resp *http.Response) (*envelope, error) {
	if resp.StatusCode == http.StatusPreconditionFailed {
		return nil, fmt.Errorf("%w: HTTP 412 from %s", common.ErrRateLimited, resp.Request.URL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, resp.Request.URL, preview(body))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "json") {
		return nil, fmt.Errorf("expected JSON but got %q from %s: %s", contentType, resp.Request.URL, preview(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", resp.Request.URL, err)
	}
	return &env, nil
}

func preview(body []byte) string {
	const max = 200
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
