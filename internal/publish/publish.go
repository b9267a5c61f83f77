// Package publish turns candidate articles into published posts.
//
// Each candidate moves through CANDIDATE, VALIDATED, REWRITTEN and
// PUBLISHED, or ends REJECTED at a gate. Rewriting failures never reject
// a candidate; they switch it to the deterministic fallback copy.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/skatefeed/internal/notify"
	"github.com/IshaanNene/skatefeed/internal/observability"
	"github.com/IshaanNene/skatefeed/internal/pipeline"
	"github.com/IshaanNene/skatefeed/internal/rewrite"
	"github.com/IshaanNene/skatefeed/internal/storage"
	"github.com/IshaanNene/skatefeed/internal/types"
)

const (
	dateLayout        = "2.1.2006"
	descriptionRunes  = 200
	rewriteConcurrent = 4
)

// Rewriter produces bilingual copy. *rewrite.Rewriter satisfies it.
type Rewriter interface {
	Rewrite(ctx context.Context, in rewrite.Input) (rewrite.Output, error)
}

// Options tune a Publisher.
type Options struct {
	// MinTextLength is the quality gate threshold.
	MinTextLength int

	// DryRun runs gates and rewriting but skips persistence and
	// announcements.
	DryRun bool

	// Now overrides the clock used for ids and dates.
	Now func() time.Time
}

// Summary reports one publish pass.
type Summary struct {
	Candidates int            `json:"candidates"`
	Rejected   map[string]int `json:"rejected"`
	Rewritten  int            `json:"rewritten"`
	Fallbacks  int            `json:"fallbacks"`
	Published  int            `json:"published"`
	DryRun     bool           `json:"dryRun,omitempty"`
	Posts      []types.Post   `json:"posts"`
}

// Publisher validates, rewrites and stores candidates.
type Publisher struct {
	store    storage.PostStore
	rewriter Rewriter
	notifier notify.Notifier
	metrics  *observability.Metrics
	opts     Options
	logger   *slog.Logger

	mu     sync.Mutex
	lastID int64
}

// New creates a Publisher. notifier and metrics may be nil.
func New(store storage.PostStore, rw Rewriter, notifier notify.Notifier, metrics *observability.Metrics,
	opts Options, logger *slog.Logger) *Publisher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Publisher{
		store:    store,
		rewriter: rw,
		notifier: notifier,
		metrics:  metrics,
		opts:     opts,
		logger:   logger.With("component", "publisher"),
	}
}

type rewritten struct {
	article  types.Article
	output   rewrite.Output
	fallback bool
}

// Publish runs the candidates through the gates, rewrites the survivors
// and prepends them to the store. Only store failures are returned as
// errors.
func (p *Publisher) Publish(ctx context.Context, articles []types.Article) (Summary, error) {
	summary := Summary{
		Candidates: len(articles),
		Rejected:   map[string]int{},
		DryRun:     p.opts.DryRun,
		Posts:      []types.Post{},
	}
	p.metrics.RecordCandidates(len(articles))

	existing, err := p.store.Posts(ctx)
	if err != nil {
		return summary, fmt.Errorf("read post store: %w", err)
	}

	validated := p.validate(articles, existing, &summary)

	results, err := p.rewriteAll(ctx, validated)
	if err != nil {
		return summary, err
	}

	posts := make([]types.Post, 0, len(results))
	for _, r := range results {
		summary.Rewritten++
		if r.fallback {
			summary.Fallbacks++
		}
		posts = append(posts, p.assemble(r))
	}
	// Newest first, the order the store keeps.
	slices.Reverse(posts)

	if p.opts.DryRun || len(posts) == 0 {
		summary.Posts = posts
		p.logSummary(summary)
		return summary, nil
	}

	added, err := p.store.Prepend(ctx, posts)
	if err != nil {
		return summary, fmt.Errorf("write post store: %w", err)
	}
	if added < len(posts) {
		// Another writer stored some of these meanwhile.
		posts, err = p.stored(ctx, posts)
		if err != nil {
			return summary, err
		}
	}
	summary.Published = added
	summary.Posts = posts
	p.metrics.RecordPublished(added, len(existing)+added)

	if err := p.notifier.Announce(ctx, posts); err != nil {
		p.logger.Warn("announcing posts failed", "error", err)
	}

	p.logSummary(summary)
	return summary, nil
}

func (p *Publisher) validate(articles []types.Article, existing []types.Post, summary *Summary) []types.Article {
	chain := pipeline.New(p.logger)
	chain.Use(&pipeline.TrimMiddleware{})
	chain.Use(pipeline.NewHTMLSanitizeMiddleware())
	chain.Use(pipeline.NewQualityMiddleware(p.opts.MinTextLength))
	chain.Use(pipeline.NewDedupMiddleware(existing))

	var out []types.Article
	for i := range articles {
		a := articles[i]
		res, stage, err := chain.Process(&a)
		if err != nil {
			p.logger.Warn("gate failed", "stage", stage, "url", a.URL, "error", err)
		}
		if res == nil {
			summary.Rejected[stage]++
			p.metrics.RecordRejected(stage)
			continue
		}
		out = append(out, *res)
	}
	return out
}

// rewriteAll rewrites candidates concurrently, keeping their order.
func (p *Publisher) rewriteAll(ctx context.Context, articles []types.Article) ([]rewritten, error) {
	results := make([]rewritten, len(articles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rewriteConcurrent)
	for i, a := range articles {
		g.Go(func() error {
			results[i] = p.rewriteOne(gctx, a)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Publisher) rewriteOne(ctx context.Context, a types.Article) rewritten {
	in := rewrite.Input{Title: a.Title, Text: a.Text, Source: a.Source}
	if p.rewriter != nil {
		out, err := p.rewriter.Rewrite(ctx, in)
		if err == nil {
			p.metrics.RecordRewrite(false)
			return rewritten{article: a, output: out}
		}
		if errors.Is(err, types.ErrNoCredentials) {
			p.logger.Debug("rewriting disabled, using fallback", "title", a.Title)
		} else {
			p.logger.Warn("rewrite failed, using fallback", "title", a.Title, "error", err)
		}
	}
	p.metrics.RecordRewrite(true)
	return rewritten{article: a, output: rewrite.Fallback(in), fallback: true}
}

// assemble builds the stored record for a rewritten candidate.
func (p *Publisher) assemble(r rewritten) types.Post {
	a := r.article
	now := p.opts.Now()

	images := a.Media.Images
	if images == nil {
		images = []string{}
	}
	video := a.Media.VideoURL
	if video == "" && a.MediaType == types.MediaVideo {
		video = a.MediaURL
	}

	content := video
	if content == "" {
		content = a.MediaURL
	}
	if content == "" && len(images) > 0 {
		content = images[0]
	}
	if content == "" {
		content = a.URL
	}

	return types.Post{
		ID:           p.nextID(now),
		Title:        r.output.DE.Title,
		Description:  rewrite.Truncate(r.output.EN.Content, descriptionRunes),
		Translations: types.Translations{DE: r.output.DE, EN: r.output.EN},
		Type:         string(a.MediaType),
		Content:      content,
		Media: types.PostMedia{
			Images:       images,
			VideoURL:     video,
			ExternalLink: a.URL,
		},
		Source:      a.Source,
		OriginalURL: a.URL,
		Date:        now.Format(dateLayout),
		Tags:        r.output.Tags,
		Status:      types.StatusPublished,
	}
}

// nextID returns a Unix-millisecond id strictly greater than any id this
// publisher handed out before.
func (p *Publisher) nextID(now time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := now.UnixMilli()
	if id <= p.lastID {
		id = p.lastID + 1
	}
	p.lastID = id
	return strconv.FormatInt(id, 10)
}

// stored narrows posts to those the store actually holds.
func (p *Publisher) stored(ctx context.Context, posts []types.Post) ([]types.Post, error) {
	current, err := p.store.Posts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read post store: %w", err)
	}
	ids := make(map[string]bool, len(current))
	for _, c := range current {
		ids[c.ID] = true
	}
	var out []types.Post
	for _, post := range posts {
		if ids[post.ID] {
			out = append(out, post)
		}
	}
	return out, nil
}

func (p *Publisher) logSummary(s Summary) {
	rejected := 0
	for _, n := range s.Rejected {
		rejected += n
	}
	p.logger.Info("publish complete",
		"candidates", s.Candidates,
		"rejected", rejected,
		"rewritten", s.Rewritten,
		"fallbacks", s.Fallbacks,
		"published", s.Published,
		"dry_run", s.DryRun,
	)
}
