// Package remote is the HTTP client for the Shelfmark sync endpoint. Every
// call is rate-limited, bounded by a timeout, and retried on transient
// failures; transport-level failures surface as ErrOffline so the sync
// manager can fail fast instead of guessing.
package remote

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/ratelimit"
)

const (
	defaultRPS     = 2.0
	defaultBurst   = 4
	defaultTimeout = 30 * time.Second

	defaultRetryAttempts = 3
	retryBaseDelay       = 500 * time.Millisecond
)

// Rate limiter keys, one per endpoint so a chatty pull never starves a push.
const (
	keyPush   = "push"
	keyPull   = "pull"
	keyFull   = "full"
	keyStatus = "status"
)

// TokenProvider supplies the bearer token for sync calls. Token issuance and
// refresh live outside this process; the client just asks at request time.
type TokenProvider func() string

// StaticToken returns a TokenProvider for a fixed token.
func StaticToken(token string) TokenProvider {
	return func() string { return token }
}

// Client talks to the remote sync endpoint.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
	token   TokenProvider

	baseURL  string
	deviceID string
	attempts int
}

// New creates a sync endpoint client from configuration.
func New(cfg config.RemoteConfig, deviceID string, token TokenProvider, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	if token == nil {
		token = StaticToken(cfg.Token)
	}

	return &Client{
		http:     &http.Client{Timeout: timeout},
		limiter:  ratelimit.New(rps, burst),
		logger:   logger,
		token:    token,
		baseURL:  cfg.BaseURL,
		deviceID: deviceID,
		attempts: attempts,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Configured reports whether a remote endpoint is set up at all. An
// unconfigured remote is the local-only mode, not an error.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// PushOperations sends the pending mutation queue as one batch and returns
// per-operation results. The remote applies operations idempotently, so
// re-pushing an already-applied entry reports success.
func (c *Client) PushOperations(ctx context.Context, ops []*domain.Mutation) (*PushResult, error) {
	body, err := json.Marshal(pushRequest{DeviceID: c.deviceID, Operations: ops})
	if err != nil {
		return nil, fmt.Errorf("marshal push request: %w", err)
	}

	data, err := c.doRequest(ctx, keyPush, http.MethodPost, "/sync/operations", nil, body)
	if err != nil {
		return nil, err
	}

	var result PushResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal push response: %w", err)
	}
	return &result, nil
}

// Changes fetches everything that changed remotely since the boundary.
func (c *Client) Changes(ctx context.Context, since time.Time) (*ChangeSet, error) {
	query := url.Values{}
	query.Set("since", since.UTC().Format(time.RFC3339Nano))

	data, err := c.doRequest(ctx, keyPull, http.MethodGet, "/sync/changes", query, nil)
	if err != nil {
		return nil, err
	}

	var cs ChangeSet
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("unmarshal change set: %w", err)
	}
	return &cs, nil
}

// FullSync uploads the entire local catalog as the authoritative state.
// The reconcile step uses this when the remote reports drift after a push.
func (c *Client) FullSync(ctx context.Context, snapshot *domain.Snapshot) (*FullSyncResult, error) {
	body, err := json.Marshal(fullSyncRequest{DeviceID: c.deviceID, Snapshot: snapshot})
	if err != nil {
		return nil, fmt.Errorf("marshal full sync request: %w", err)
	}

	data, err := c.doRequest(ctx, keyFull, http.MethodPost, "/sync/full", nil, body)
	if err != nil {
		return nil, err
	}

	var result FullSyncResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal full sync response: %w", err)
	}
	return &result, nil
}

// Status fetches the remote's view of this account's sync state. Also serves
// as the connectivity probe: ErrOffline from here means no sync this cycle.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	data, err := c.doRequest(ctx, keyStatus, http.MethodGet, "/sync/status", nil, nil)
	if err != nil {
		return nil, err
	}

	var status StatusInfo
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	return &status, nil
}

// doRequest executes one endpoint call: rate limit, bearer auth, bounded
// retry with exponential backoff on transient failures.
func (c *Client) doRequest(ctx context.Context, limiterKey, method, path string, query url.Values, body []byte) ([]byte, error) {
	if !c.Configured() {
		return nil, domainerrors.Offline("no remote endpoint configured")
	}
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			delay := retryBaseDelay << (attempt - 2)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		data, retryable, err := c.doOnce(ctx, method, path, query, body)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}

		c.logger.Debug("remote call failed, will retry",
			"path", path,
			"attempt", attempt,
			"error", err,
		)
	}
	return nil, lastErr
}

// doOnce performs a single HTTP round trip. The second return reports whether
// the failure is worth retrying.
func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, bool, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Shelfmark/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		// Transport-level failure: no route, refused, DNS, timeout.
		return nil, true, domainerrors.ErrOffline.WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return data, false, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, false, domainerrors.Remote("sync endpoint rejected credentials")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, domainerrors.Remote("sync endpoint rate limited us")
	case resp.StatusCode >= 500:
		return nil, true, domainerrors.Remote("sync endpoint error " + strconv.Itoa(resp.StatusCode))
	default:
		return nil, false, domainerrors.Remote(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)))
	}
}
