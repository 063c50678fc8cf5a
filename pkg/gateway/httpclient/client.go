package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/clerapp/platform/pkg/common/logger"
)

const maxRetryDelay = 5 * time.Second

// New creates an HTTP client for calls to the identity provider.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Retry runs fn up to attempts times with exponential backoff capped at
// maxRetryDelay. It is used for startup dependencies only; request handling
// never retries.
func Retry(ctx context.Context, what string, attempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"dependency": what,
			"attempt":    i,
			"retry_in":   delay.String(),
		}).Warn("dependency unavailable, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	return err
}
