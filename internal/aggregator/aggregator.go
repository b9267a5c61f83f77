// Package aggregator fans out over every configured source, channel and
// hashtag and merges the results into one candidate list.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/instagram"
	"github.com/IshaanNene/skatefeed/internal/observability"
	"github.com/IshaanNene/skatefeed/internal/types"
)

// Task kinds, also used as metric labels.
const (
	KindNews      = "news"
	KindYouTube   = "youtube"
	KindInstagram = "instagram"
)

// NewsScraper scrapes one news source. *scraper.Scraper satisfies it.
type NewsScraper interface {
	Scrape(ctx context.Context, src types.Source) types.Result[[]types.Article]
}

// ChannelFetcher fetches the newest video of a channel. *youtube.Client
// satisfies it.
type ChannelFetcher interface {
	Latest(ctx context.Context, ch types.Channel) types.Result[*types.Video]
}

// HashtagSearcher finds posts for a hashtag. *instagram.Searcher
// satisfies it.
type HashtagSearcher interface {
	Lookup(ctx context.Context, hashtag string) types.Result[[]types.InstaPost]
}

// TaskFailure describes a task that contributed nothing because it failed.
type TaskFailure struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Report summarizes one aggregation.
type Report struct {
	Tasks     int           `json:"tasks"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Panicked  int           `json:"panicked"`
	Articles  int           `json:"articles"`
	Failures  []TaskFailure `json:"failures,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Aggregator runs every registry entry through its scraper.
type Aggregator struct {
	news     NewsScraper
	channels ChannelFetcher
	hashtags HashtagSearcher
	cfg      config.AggregatorConfig
	top      int
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates an Aggregator. Any of the scrapers may be nil, in which
// case the matching registry entries are skipped. top is the number of
// Instagram posts kept per hashtag.
func New(news NewsScraper, channels ChannelFetcher, hashtags HashtagSearcher,
	cfg config.AggregatorConfig, top int, metrics *observability.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		news:     news,
		channels: channels,
		hashtags: hashtags,
		cfg:      cfg,
		top:      top,
		metrics:  metrics,
		logger:   logger.With("component", "aggregator"),
	}
}

type task struct {
	kind string
	name string
	run  func(ctx context.Context) types.Result[[]types.Article]
}

type outcome struct {
	index    int
	task     task
	result   types.Result[[]types.Article]
	panicked bool
}

// AggregateAll scrapes the whole registry. It never fails: a failing or
// panicking task contributes nothing and is listed in the report. Articles
// come back in registry order (news, then YouTube, then Instagram).
func (a *Aggregator) AggregateAll(ctx context.Context, reg *config.Registry) ([]types.Article, Report) {
	start := time.Now()
	tasks := a.tasks(reg)

	p := pool.NewWithResults[outcome]().WithMaxGoroutines(max(a.cfg.MaxConcurrency, 1))
	for i, t := range tasks {
		p.Go(func() outcome {
			out := outcome{index: i, task: t}
			var pc panics.Catcher
			pc.Try(func() { out.result = t.run(ctx) })
			if r := pc.Recovered(); r != nil {
				out.result = types.Fail[[]types.Article](r.AsError())
				out.panicked = true
			}
			return out
		})
	}
	outcomes := p.Wait()
	slices.SortFunc(outcomes, func(x, y outcome) int { return x.index - y.index })

	report := Report{Tasks: len(tasks)}
	articles := []types.Article{}
	for _, out := range outcomes {
		switch {
		case out.panicked:
			report.Panicked++
			a.fail(&report, out)
			a.metrics.RecordTask(out.task.kind, "panic")
		case !out.result.IsOk():
			report.Failed++
			a.fail(&report, out)
			a.metrics.RecordTask(out.task.kind, "failed")
		default:
			report.Succeeded++
			articles = append(articles, out.result.Value...)
			a.metrics.RecordTask(out.task.kind, "ok")
		}
	}
	report.Articles = len(articles)
	report.Duration = time.Since(start)

	a.logger.Info("aggregation complete",
		"tasks", report.Tasks,
		"succeeded", report.Succeeded,
		"failed", report.Failed+report.Panicked,
		"articles", report.Articles,
		"duration", report.Duration,
	)
	return articles, report
}

func (a *Aggregator) fail(report *Report, out outcome) {
	a.logger.Warn("task contributed nothing",
		"kind", out.task.kind,
		"name", out.task.name,
		"panic", out.panicked,
		"error", out.result.Err,
	)
	report.Failures = append(report.Failures, TaskFailure{
		Kind:  out.task.kind,
		Name:  out.task.name,
		Error: out.result.Err.Error(),
	})
}

func (a *Aggregator) tasks(reg *config.Registry) []task {
	var tasks []task
	if reg == nil {
		return tasks
	}
	if a.news != nil {
		for _, src := range reg.Sources {
			tasks = append(tasks, task{kind: KindNews, name: src.Name, run: func(ctx context.Context) types.Result[[]types.Article] {
				return a.news.Scrape(ctx, src)
			}})
		}
	}
	if a.channels != nil {
		for _, ch := range reg.Channels {
			tasks = append(tasks, task{kind: KindYouTube, name: ch.Name, run: func(ctx context.Context) types.Result[[]types.Article] {
				res := a.channels.Latest(ctx, ch)
				if !res.IsOk() {
					return types.Fail[[]types.Article](res.Err)
				}
				if res.Value == nil {
					return types.Ok([]types.Article{})
				}
				return types.Ok([]types.Article{res.Value.Article()})
			}})
		}
	}
	if a.hashtags != nil {
		for _, tag := range reg.Hashtags {
			tasks = append(tasks, task{kind: KindInstagram, name: "#" + tag, run: func(ctx context.Context) types.Result[[]types.Article] {
				res := a.hashtags.Lookup(ctx, tag)
				if !res.IsOk() {
					return types.Fail[[]types.Article](fmt.Errorf("hashtag %s: %w", tag, res.Err))
				}
				posts := instagram.Top(res.Value, a.top)
				articles := make([]types.Article, 0, len(posts))
				for _, p := range posts {
					articles = append(articles, p.Article())
				}
				return types.Ok(articles)
			}})
		}
	}
	return tasks
}
