package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	baseURL    = "https://gmail.googleapis.com/gmail/v1"
	maxRetries = 12  // Covers ~10 minutes of network outages
	maxBackoff = 600 // Max backoff in seconds
)

// Client implements the Gmail API interface.
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	logger      *slog.Logger
	userID      string // "me" for authenticated user
	concurrency int    // Max parallel requests for batch operations
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithConcurrency sets the max concurrent requests for batch operations.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		c.concurrency = n
	}
}

// WithRateLimiter sets a custom rate limiter.
func WithRateLimiter(rl *RateLimiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = rl
	}
}

// NewClient creates a new Gmail API client.
func NewClient(tokenSource oauth2.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  oauth2.NewClient(context.Background(), tokenSource),
		userID:      "me",
		concurrency: 10,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.rateLimiter == nil {
		c.rateLimiter = NewRateLimiter(5.0)
	}

	return c
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	// HTTP client doesn't need explicit closing
	return nil
}

// request makes a GET request with rate limiting and retry logic.
func (c *Client) request(ctx context.Context, op Operation, path string) ([]byte, error) {
	// Acquire rate limit tokens
	if err := c.rateLimiter.Acquire(ctx, op); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	reqURL := baseURL + path

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("retrying request", "attempt", attempt, "backoff", backoff, "path", path)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue // Retry on network errors
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		switch resp.StatusCode {
		case 429: // Rate limited
			// Debug level: throttling is expected during high-volume fetches
			// and the retry logic handles it automatically
			c.logger.Debug("rate limited, backing off 30s", "path", path, "attempt", attempt)
			c.rateLimiter.Throttle(30 * time.Second)
			lastErr = fmt.Errorf("rate limited (429)")
			continue

		case 403: // Could be rate limit or permission error
			// Gmail returns 403 for quota exceeded with "rateLimitExceeded" reason
			if isRateLimitError(respBody) {
				c.logger.Debug("quota exceeded, backing off 60s", "path", path, "attempt", attempt)
				c.rateLimiter.Throttle(60 * time.Second)
				lastErr = fmt.Errorf("quota exceeded (403)")
				continue
			}
			// Actual permission error - don't retry
			return nil, fmt.Errorf("forbidden (403): %s", string(respBody))

		case 500, 502, 503, 504: // Server errors
			lastErr = fmt.Errorf("server error (%d)", resp.StatusCode)
			continue

		case 401: // Unauthorized - token might be expired
			// oauth2.Client should auto-refresh, but if it fails, don't retry
			return nil, fmt.Errorf("unauthorized (401): token may be invalid")

		case 404:
			return nil, &NotFoundError{Path: path}

		default: // Other client errors - don't retry
			return nil, fmt.Errorf("request failed (%d): %s", resp.StatusCode, string(respBody))
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// calculateBackoff returns the backoff duration for a retry attempt.
// Uses exponential backoff with full jitter.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	// Exponential: 1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 600, 600...
	base := float64(uint(1) << uint(attempt))
	if base > maxBackoff {
		base = maxBackoff
	}

	// Full jitter: random value between 0 and base
	jittered := rand.Float64() * base
	return time.Duration(jittered * float64(time.Second))
}

// NotFoundError indicates a 404 response.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// isRateLimitError checks if a 403 response is actually a rate limit error.
// Gmail returns 403 with "rateLimitExceeded" for quota exceeded instead of 429.
func isRateLimitError(body []byte) bool {
	return bytes.Contains(body, []byte("rateLimitExceeded")) ||
		bytes.Contains(body, []byte("RATE_LIMIT_EXCEEDED")) ||
		bytes.Contains(body, []byte("Quota exceeded")) ||
		bytes.Contains(body, []byte("userRateLimitExceeded"))
}

// decodeBase64URL decodes a base64url-encoded string, tolerating optional padding.
// Gmail typically returns unpadded base64url, but this function handles both cases.
func decodeBase64URL(s string) ([]byte, error) {
	if strings.ContainsRune(s, '=') {
		// Input has padding - use URLEncoding which validates padding correctness
		return base64.URLEncoding.DecodeString(s)
	}
	// No padding - use RawURLEncoding for unpadded base64url
	return base64.RawURLEncoding.DecodeString(s)
}

// DecodeBase64URL exposes the padding-tolerant base64url decoder for row assembly.
func DecodeBase64URL(s string) ([]byte, error) {
	return decodeBase64URL(s)
}

// Gmail API JSON response types (unexported, used only for JSON unmarshaling).

type profileResponse struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
	HistoryID     string `json:"historyId"`
}

type messageDetailResponse struct {
	ID       string       `json:"id"`
	ThreadID string       `json:"threadId"`
	LabelIDs []string     `json:"labelIds"`
	Snippet  string       `json:"snippet"`
	Payload  *MessagePart `json:"payload"`
}

// GetProfile returns the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	path := fmt.Sprintf("/users/%s/profile", c.userID)
	data, err := c.request(ctx, OpProfile, path)
	if err != nil {
		return nil, err
	}

	var resp profileResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	historyID, _ := strconv.ParseUint(resp.HistoryID, 10, 64)

	return &Profile{
		EmailAddress:  resp.EmailAddress,
		MessagesTotal: resp.MessagesTotal,
		ThreadsTotal:  resp.ThreadsTotal,
		HistoryID:     historyID,
	}, nil
}

// List returns one page of items from the given collection.
// The response envelope keys items by collection name and may carry a
// nextPageToken cursor at the page level.
func (c *Client) List(ctx context.Context, coll Collection, params Params) (*ListPage, error) {
	query := params.Values()
	// userId travels in the path, not the query string
	query.Del("userId")

	path := fmt.Sprintf("/users/%s/%s", c.userID, coll)
	if enc := query.Encode(); enc != "" {
		path += "?" + enc
	}

	data, err := c.request(ctx, coll.listOp(), path)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse %s list: %w", coll, err)
	}

	page := &ListPage{}
	if raw, ok := envelope["nextPageToken"]; ok {
		if err := json.Unmarshal(raw, &page.NextPageToken); err != nil {
			return nil, fmt.Errorf("parse page token: %w", err)
		}
	}
	if raw, ok := envelope["resultSizeEstimate"]; ok {
		_ = json.Unmarshal(raw, &page.ResultSizeEstimate)
	}

	raw, ok := envelope[string(coll)]
	if !ok {
		return page, nil // empty page: no items key at all
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse %s items: %w", coll, err)
	}

	page.Items = make([]ListItem, len(items))
	for i, fields := range items {
		id, _ := fields["id"].(string)
		page.Items[i] = ListItem{ID: id, Fields: fields}
	}
	return page, nil
}

// GetMessage fetches full details for one message, including the payload tree.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*MessageDetail, error) {
	path := fmt.Sprintf("/users/%s/messages/%s?format=full", c.userID, messageID)
	data, err := c.request(ctx, OpMessagesGet, path)
	if err != nil {
		return nil, err
	}

	var resp messageDetailResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	return &MessageDetail{
		ID:       resp.ID,
		ThreadID: resp.ThreadID,
		LabelIDs: resp.LabelIDs,
		Snippet:  resp.Snippet,
		Payload:  resp.Payload,
	}, nil
}

// GetMessageBatch fetches multiple messages in parallel with rate limiting.
// Per-item failures are recorded in the corresponding BatchResult so one bad
// message never fails the whole batch.
func (c *Client) GetMessageBatch(ctx context.Context, messageIDs []string) ([]BatchResult, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	results := make([]BatchResult, len(messageIDs))
	sem := make(chan struct{}, c.concurrency)

	g, ctx := errgroup.WithContext(ctx)

	for i, id := range messageIDs {
		i, id := i, id // Capture for goroutine

		g.Go(func() error {
			// Acquire semaphore
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			msg, err := c.GetMessage(ctx, id)
			results[i] = BatchResult{ID: id, Message: msg, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// listOp returns the rate-limit operation for listing a collection.
func (coll Collection) listOp() Operation {
	switch coll {
	case CollectionMessages:
		return OpMessagesList
	case CollectionThreads:
		return OpThreadsList
	case CollectionDrafts:
		return OpDraftsList
	default:
		return OpLabelsList
	}
}

// Ensure Client implements API interface.
var _ API = (*Client)(nil)
