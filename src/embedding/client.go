package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"esgrag/src/log"
)

const (
	DefaultURL   = "https://api.openai.com/v1"
	DefaultModel = "text-embedding-3-small"

	// DefaultMaxTextChars is the per-text character ceiling. Longer texts
	// are truncated before estimation or submission.
	DefaultMaxTextChars = 32000

	// DefaultMaxBatchTexts and DefaultMaxBatchTokens bound a single
	// provider request by count and by estimated token load.
	DefaultMaxBatchTexts  = 100
	DefaultMaxBatchTokens = 8000

	// DefaultConcurrency bounds simultaneous in-flight batch requests.
	DefaultConcurrency = 5
)

// defaultBackoff is the fixed delay schedule applied between retries of a
// transiently failing batch call.
var defaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Error is the typed embedding failure raised after retries are
// exhausted. It aborts the enclosing EmbedMany call; partial vectors are
// never returned.
type Error struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding failed after %d attempts (status %d): %v", e.Attempts, e.StatusCode, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusError carries a non-2xx provider response through retry
// classification.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.code, e.body)
}

// retryable reports whether a batch call error is worth retrying: rate
// limits, server errors, and connection failures are; everything else
// (quota and size errors included) propagates immediately.
func retryable(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// Request-level failures (connection refused, reset) have no status.
	return true
}

// embedRequest is the request structure for the embeddings endpoint
type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embedResponse is the response structure from the embeddings endpoint
type embedResponse struct {
	Data []embedData `json:"data"`
}

type embedData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// Client is an embedding provider client. It owns truncation, batching,
// bounded concurrency and the retry policy; callers see only ordered
// vectors or a single failure.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	model          string
	maxTextChars   int
	maxBatchTexts  int
	maxBatchTokens int
	concurrency    int
	backoff        []time.Duration
}

type Option func(*Client)

// WithModel overrides the embedding model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTextChars overrides the per-text truncation ceiling.
func WithMaxTextChars(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTextChars = n
		}
	}
}

// WithBatchLimits overrides the per-batch text count and estimated-token
// budgets.
func WithBatchLimits(maxTexts, maxTokens int) Option {
	return func(c *Client) {
		if maxTexts > 0 {
			c.maxBatchTexts = maxTexts
		}
		if maxTokens > 0 {
			c.maxBatchTokens = maxTokens
		}
	}
}

// WithConcurrency overrides the in-flight batch limit.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithBackoffSchedule overrides the fixed retry delay schedule. The
// number of delays bounds the number of retries.
func WithBackoffSchedule(delays []time.Duration) Option {
	return func(c *Client) {
		if len(delays) > 0 {
			c.backoff = append([]time.Duration(nil), delays...)
		}
	}
}

// NewClient creates a new embedding provider client.
func NewClient(baseURL, apiKey string, httpClient *http.Client, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	c := &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		model:          DefaultModel,
		maxTextChars:   DefaultMaxTextChars,
		maxBatchTexts:  DefaultMaxBatchTexts,
		maxBatchTokens: DefaultMaxBatchTokens,
		concurrency:    DefaultConcurrency,
		backoff:        defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// truncate enforces the character ceiling. Truncation is a logged
// degradation, not an error.
func (c *Client) truncate(text string) string {
	if len(text) <= c.maxTextChars {
		return text
	}
	log.Info("truncating oversized text before embedding",
		"length", len(text), "ceiling", c.maxTextChars)
	return text[:c.maxTextChars]
}

// EmbedOne returns the embedding vector for a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedBatchWithRetry(ctx, []string{c.truncate(text)})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatchWithRetry submits one batch, retrying transient provider
// failures on the fixed backoff schedule. Exhausting the schedule yields
// the typed *Error.
func (c *Client) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	attempts := len(c.backoff) + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff[attempt-1]
			log.Info("retrying embedding batch", "attempt", attempt+1, "delay", delay.String())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		vectors, err := c.embedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if !retryable(err) {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		lastErr = err
	}

	status := 0
	if se, ok := lastErr.(*statusError); ok {
		status = se.code
	}
	return nil, &Error{StatusCode: status, Attempts: attempts, Err: lastErr}
}

// embedBatch performs one provider call and returns vectors in the order
// of the submitted texts, reordering by the response index field.
func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embedRequest{
		Input: texts,
		Model: c.model,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var response embedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(response.Data), len(texts))
	}

	// The provider may answer out of order; the index field restores the
	// submission order.
	vectors := make([][]float32, len(texts))
	for _, d := range response.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("provider returned out-of-range index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("provider returned no embedding for input %d", i)
		}
	}
	return vectors, nil
}
