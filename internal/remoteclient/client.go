// Package remoteclient is the typed facade over the control-plane document
// store: node registration, heartbeats, entity upserts, pane-session
// bookkeeping, action claim/complete, the inbound-action push subscription,
// and best-effort telemetry.
//
// All RPCs serialize on a single mutex — the remote client is "held behind
// a single asynchronous mutex" per spec §5 — and retry transport-level
// failures with exponential backoff; application-level errors (4xx) are
// never retried.
package remoteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/joshuabates/tina-daemon/internal/models"
)

// Client is a typed, mutex-serialized HTTP+WebSocket facade over the remote
// document store.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client

	mu sync.Mutex
}

// New constructs a Client for baseURL, authenticating every request with
// authToken as a bearer token.
func New(baseURL, authToken string) *Client {
	return &Client{
		baseURL:   baseURL,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// doJSON performs one JSON-over-HTTP round trip, holding the client mutex
// for its duration, and retries transport errors (not application errors)
// with exponential backoff.
func (c *Client) doJSON(ctx context.Context, op, method, path string, reqBody, respBody any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request for %s: %w", op, err)
		}
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.authToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network-level failure: retryable.
			return &models.TransportError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 500 {
			return &models.TransportError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, body))
		}

		if respBody != nil && len(body) > 0 {
			if err := json.Unmarshal(body, respBody); err != nil {
				return backoff.Permanent(fmt.Errorf("%s: decode response: %w", op, err))
			}
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(c.newBackoff(), ctx))
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// The context ended while transport failures were still being
		// retried: report it as a transport failure of op.
		return &models.TransportError{Op: op, Err: err}
	}
	return err
}
