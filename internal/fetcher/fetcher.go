package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/IshaanNene/skatefeed/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// Router sends requests that ask for rendering to the browser fetcher and
// everything else to the HTTP fetcher.
type Router struct {
	http    Fetcher
	browser Fetcher
}

// NewRouter creates a Router. browser may be nil, in which case render
// requests fall back to plain HTTP.
func NewRouter(http, browser Fetcher) *Router {
	return &Router{http: http, browser: browser}
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req.Render && r.browser != nil {
		return r.browser.Fetch(ctx, req)
	}
	if r.http == nil {
		return nil, types.ErrNoFetcher
	}
	return r.http.Fetch(ctx, req)
}

// Close closes both underlying fetchers.
func (r *Router) Close() error {
	var errs []error
	if r.http != nil {
		errs = append(errs, r.http.Close())
	}
	if r.browser != nil {
		errs = append(errs, r.browser.Close())
	}
	return errors.Join(errs...)
}

// Type returns the fetcher type identifier.
func (r *Router) Type() string {
	if r.browser != nil {
		return "router(http+browser)"
	}
	return "router(http)"
}

// Get is a convenience wrapper that builds a GET request for rawURL.
func Get(ctx context.Context, f Fetcher, rawURL string, render bool) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	req.Render = render
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, &types.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: types.ErrEmptyResponse}
	}
	return resp, nil
}

// errStatus builds the error carried by a FetchError for a non-2xx status.
func errStatus(code int, body []byte) error {
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("HTTP %d: %s", code, string(body))
}
