package stellar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"aidchain/internal/errs"
)

// RetryConfig controls backoff for read-only gateway calls. Submissions
// are never retried here: a repeated submit is a potential double
// payment (the dedupe key lives one layer up).
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	JitterFactor   float64
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	BackoffFactor:  2.0,
	JitterFactor:   0.2,
}

// Client talks to the ledger gateway's REST API. In-flight requests are
// bounded by a weighted semaphore sized to what the upstream endpoint
// tolerates.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig RetryConfig
	inflight    *semaphore.Weighted
}

// NewClient builds a gateway client. maxInflight <= 0 gets a default of 8.
func NewClient(baseURL string, retryConfig *RetryConfig, maxInflight int64) *Client {
	config := DefaultRetryConfig
	if retryConfig != nil {
		config = *retryConfig
	}
	if maxInflight <= 0 {
		maxInflight = 8
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		retryConfig: config,
		inflight:    semaphore.NewWeighted(maxInflight),
	}
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.retryConfig.InitialBackoff) * math.Pow(c.retryConfig.BackoffFactor, float64(attempt))
	if backoff > float64(c.retryConfig.MaxBackoff) {
		backoff = float64(c.retryConfig.MaxBackoff)
	}
	jitter := (rand.Float64()*2 - 1) * c.retryConfig.JitterFactor * backoff
	return time.Duration(backoff + jitter)
}

// LoadAccount fetches the current sequence number and balances for an
// address. Unknown accounts surface as NotFoundError.
func (c *Client) LoadAccount(ctx context.Context, pubkey string) (*AccountDetail, error) {
	if !IsValidAddress(pubkey) {
		return nil, &errs.ValidationError{Field: "pubkey", Reason: "not a valid ledger address"}
	}

	var detail AccountDetail
	if err := c.getWithRetry(ctx, "/accounts/"+pubkey, "account", pubkey, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetTransaction looks up a transaction by hash. A missing transaction
// is a NotFoundError, the signal the donation recorder relies on.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*TransactionRecord, error) {
	if hash == "" {
		return nil, &errs.ValidationError{Field: "hash", Reason: "empty transaction hash"}
	}

	var record TransactionRecord
	if err := c.getWithRetry(ctx, "/transactions/"+hash, "transaction", hash, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SubmitTransaction posts a signed envelope and waits for the gateway's
// verdict. Exactly one attempt: the caller decides what a failure means.
func (c *Client) SubmitTransaction(ctx context.Context, env *SignedEnvelope) (*SubmitResponse, error) {
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.inflight.Release(1)

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.NetworkError{Op: "submit transaction", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var problem gatewayProblem
		if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil {
			return nil, &errs.NetworkError{Op: "submit transaction", Err: fmt.Errorf("status %d with undecodable body: %w", resp.StatusCode, err)}
		}
		codes := problem.Extras.ResultCodes
		return nil, &errs.ChainError{
			Op:          "submit transaction",
			Code:        codes.Transaction,
			ResultCodes: codes.Operations,
			Detail:      problem.Detail,
		}
	}

	var submitted SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return nil, &errs.NetworkError{Op: "submit transaction", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if !submitted.Successful {
		return nil, &errs.ChainError{Op: "submit transaction", Code: "tx_failed", Detail: "gateway reported unsuccessful transaction"}
	}
	return &submitted, nil
}

// getWithRetry performs a read-only call with exponential backoff.
// 404 is a definitive answer and is never retried.
func (c *Client) getWithRetry(ctx context.Context, path, kind, id string, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		retryable, err := c.doGet(ctx, path, kind, id, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}

	return &errs.NetworkError{Op: "get " + kind, Err: fmt.Errorf("max retries exceeded: %w", lastErr)}
}

func (c *Client) doGet(ctx context.Context, path, kind, id string, out any) (retryable bool, err error) {
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer c.inflight.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, &errs.NetworkError{Op: "get " + kind, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, &errs.NotFoundError{Kind: kind, ID: id}
	case resp.StatusCode >= 500:
		return true, &errs.NetworkError{Op: "get " + kind, Err: fmt.Errorf("gateway status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return false, &errs.NetworkError{Op: "get " + kind, Err: fmt.Errorf("gateway status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, &errs.NetworkError{Op: "get " + kind, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return false, nil
}
