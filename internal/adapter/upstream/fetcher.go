// Package upstream holds the GET+JSON plumbing shared by the HTTP sources.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apierr "eth_history_api/internal/errors"
	"eth_history_api/internal/retry"
	"eth_history_api/pkg/metrics"
)

type Fetcher struct {
	source     string
	httpClient *http.Client
	headers    http.Header
	maxRetries int
	backoff    time.Duration
}

func NewFetcher(source string, timeout time.Duration, maxRetries int, backoff time.Duration, headers http.Header) *Fetcher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if headers == nil {
		headers = http.Header{}
	}
	return &Fetcher{
		source:     source,
		httpClient: &http.Client{Timeout: timeout},
		headers:    headers,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// GetJSON fetches url and decodes the body into out. 5xx and 429 responses
// are retried; other non-2xx statuses fail at once with an UpstreamError.
func (f *Fetcher) GetJSON(ctx context.Context, url string, out any) error {
	start := time.Now()
	body, err := f.get(ctx, url)
	metrics.UpstreamDuration.WithLabelValues(f.source).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(f.source, "error").Inc()
		zap.L().Warn("upstream request failed", zap.String("source", f.source), zap.String("url", url), zap.Error(err))
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.UpstreamRequests.WithLabelValues(f.source, "decode_error").Inc()
		zap.L().Error("decoding upstream response failed", zap.String("source", f.source), zap.Error(err))
		return &apierr.DecodeError{Field: f.source + " response", Err: err}
	}
	metrics.UpstreamRequests.WithLabelValues(f.source, "ok").Inc()
	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, f.maxRetries, f.backoff, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		for k, vs := range f.headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return &apierr.UpstreamError{Source: f.source, Err: err}
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return &apierr.UpstreamError{Source: f.source, Err: err}
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body = b
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return &apierr.UpstreamError{Source: f.source, Status: resp.StatusCode, Err: fmt.Errorf("transient status %d", resp.StatusCode)}
		default:
			return retry.Permanent(&apierr.UpstreamError{Source: f.source, Status: resp.StatusCode})
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, &apierr.UpstreamError{Source: f.source, Err: err}
		}
		return nil, err
	}
	return body, nil
}
