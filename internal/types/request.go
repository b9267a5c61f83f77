package types

import (
	"fmt"
	"net/http"
	"net/url"
)

// Request describes a page to fetch.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are extra HTTP headers sent with the request.
	Headers http.Header

	// Render asks for a JavaScript-rendering fetcher when one is available.
	Render bool
}

// NewRequest creates a GET request for rawURL. Only absolute http(s) URLs
// are accepted.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return &Request{
		URL:     u,
		Method:  http.MethodGet,
		Headers: make(http.Header),
	}, nil
}

// URLString returns the request URL as a string.
func (r *Request) URLString() string {
	return r.URL.String()
}
