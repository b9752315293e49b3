package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dispatched-dev/dispatched"
)

// Forwarder performs one authenticated POST of an envelope to the
// configured destination. Implementations return nil when the
// destination answered with a success status, and an error for a
// non-success status or a transport-level failure.
type Forwarder interface {
	Forward(ctx context.Context, env *Envelope) error
}

// HTTPForwarder delivers envelopes over plain HTTP with a bearer token
// derived from the shared webhook secret.
type HTTPForwarder struct {
	url     string
	secret  string
	client  *http.Client
	timeout time.Duration
}

// HTTPForwarderOption configures an HTTPForwarder.
type HTTPForwarderOption func(*HTTPForwarder)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPForwarderOption {
	return func(f *HTTPForwarder) { f.client = c }
}

// WithTimeout bounds each delivery call. Zero leaves the transport's own
// timeout in effect. The timeout applies regardless of option order.
func WithTimeout(d time.Duration) HTTPForwarderOption {
	return func(f *HTTPForwarder) { f.timeout = d }
}

// NewHTTPForwarder creates a forwarder that posts to forwardURL.
func NewHTTPForwarder(forwardURL, secret string, opts ...HTTPForwarderOption) *HTTPForwarder {
	f := &HTTPForwarder{
		url:    forwardURL,
		secret: secret,
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.timeout > 0 {
		f.client.Timeout = f.timeout
	}
	return f
}

// Forward implements Forwarder.
func (f *HTTPForwarder) Forward(ctx context.Context, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("delivery: marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("delivery: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.secret)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivery: post %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("delivery: destination returned status %d: %w",
			resp.StatusCode, dispatched.ErrDeliveryFailed)
	}

	return nil
}
