package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrEmptyResponse   = errors.New("empty response body")
	ErrInvalidURL      = errors.New("invalid URL")
	ErrNoContainer     = errors.New("no content container matched")
	ErrNoEntries       = errors.New("feed has no entries")
	ErrNoResults       = errors.New("search returned no usable results")
	ErrNoCredentials   = errors.New("rewriting service credentials missing")
	ErrVersionConflict = errors.New("post store changed during write")
	ErrNoFetcher       = errors.New("no fetcher available for request")
	ErrRunInProgress   = errors.New("a run is already in progress")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur reading or writing the post store.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RewriteError wraps failures of the external rewriting service.
type RewriteError struct {
	Provider string
	Err      error
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("rewrite error (%s): %v", e.Provider, e.Err)
}

func (e *RewriteError) Unwrap() error { return e.Err }
