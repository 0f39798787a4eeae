package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type HTTP struct {
	c        *http.Client
	retries  uint64
	interval time.Duration
}

// NewHTTP returns a client that retries transport failures and 5xx answers up to
// retries times with exponential backoff.
func NewHTTP(retries int) *HTTP {
	if retries < 0 {
		retries = 0
	}
	return &HTTP{
		c:        &http.Client{Timeout: 60 * time.Second},
		retries:  uint64(retries),
		interval: 500 * time.Millisecond,
	}
}

type statusError struct {
	op     string
	status string
	code   int
	body   string
}

func (e *statusError) Error() string { return fmt.Sprintf("%s %s: %s", e.op, e.status, e.body) }

func (h *HTTP) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = h.interval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, h.retries), ctx)
}

// postJSON sends in to url+path and decodes the 200 answer into out.
func (h *HTTP) postJSON(ctx context.Context, op, url, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", op, err)
	}

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.c.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			serr := &statusError{op: op, status: resp.Status, code: resp.StatusCode, body: string(body)}
			if resp.StatusCode >= 500 {
				return serr
			}
			return backoff.Permanent(serr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("%s decode: %w", op, err))
		}
		return nil
	}, h.policy(ctx))
}
