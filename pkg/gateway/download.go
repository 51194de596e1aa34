package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlrickert/cli-toolkit/mylog"
)

// RetryPolicy bounds image downloads: a fixed number of attempts separated by
// a fixed delay, each attempt limited by Timeout.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Timeout     time.Duration
}

// DefaultRetryPolicy is three attempts, one second apart, sixty seconds each.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Delay:       time.Second,
	Timeout:     60 * time.Second,
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultRetryPolicy.Timeout
	}
	return p
}

// Downloader fetches generated images.
type Downloader struct {
	Client *http.Client
	Policy RetryPolicy
}

// NewDownloader returns a Downloader using http.DefaultClient.
func NewDownloader(policy RetryPolicy) *Downloader {
	return &Downloader{Client: http.DefaultClient, Policy: policy}
}

// Fetch downloads url. A transport error, a non-2xx status or an empty body
// fails the attempt; after the last failed attempt a *TransportError carrying
// the attempt count is returned.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	policy := d.Policy.normalized()
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	lg := mylog.LoggerFromContext(ctx)

	attempts := 0
	var data []byte
	op := func() error {
		attempts++
		body, err := d.fetchOnce(ctx, client, url, policy.Timeout)
		if err != nil {
			lg.Warn("image_download_attempt_failed", "attempt", attempts, "max", policy.MaxAttempts, "error", err)
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		data = body
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return nil, &TransportError{URL: url, Attempts: attempts, Cause: err}
	}
	lg.Debug("image_downloaded", "bytes", len(data), "attempts", attempts)
	return data, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}
	return body, nil
}
