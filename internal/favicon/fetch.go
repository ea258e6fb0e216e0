package favicon

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
)

// Fetcher downloads the body of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is a Fetcher backed by a req client with a bounded timeout
// and redirect count.
type HTTPFetcher struct {
	client *req.Client
}

// NewHTTPFetcher returns an HTTPFetcher. A non-positive timeout selects
// DefaultTimeout and an empty userAgent selects DefaultUserAgent.
func NewHTTPFetcher(timeout time.Duration, maxRedirects int, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxRedirects < 0 {
		maxRedirects = 0
	}

	client := req.C().
		SetTimeout(timeout).
		SetUserAgent(userAgent).
		SetRedirectPolicy(req.MaxRedirectPolicy(maxRedirects)).
		DisableAutoDecode()
	return &HTTPFetcher{client: client}
}

// Fetch returns the body of url. Non-2xx responses and empty bodies are
// errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	body, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetching %s: empty body", url)
	}
	return body, nil
}
