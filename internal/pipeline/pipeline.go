// Package pipeline runs candidate articles through an ordered chain of
// gates before they are rewritten.
package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/skatefeed/internal/types"
)

// Middleware processes an article and returns the (possibly modified)
// article. Return nil to reject the article.
type Middleware interface {
	// Name returns the middleware's identifier. It doubles as the
	// rejection reason.
	Name() string

	// Process transforms an article. Return nil to reject it.
	Process(a *types.Article) (*types.Article, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the article through all middleware in order. A rejected
// article comes back nil together with the name of the rejecting stage.
func (p *Pipeline) Process(a *types.Article) (*types.Article, string, error) {
	current := a

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, mw.Name(), err
		}
		if result == nil {
			p.logger.Debug("article rejected", "stage", mw.Name(), "url", a.URL, "title", a.Title)
			return nil, mw.Name(), nil
		}
		current = result
	}

	return current, "", nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
