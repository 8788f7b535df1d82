// Package ingest orchestrates one run: fetch, enrich, group, and the two
// independent sink pushes.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gauthierbraillon/newstream/internal/config"
	"github.com/gauthierbraillon/newstream/internal/loki"
	"github.com/gauthierbraillon/newstream/internal/metrics"
	"github.com/gauthierbraillon/newstream/internal/newsdata"
	"github.com/gauthierbraillon/newstream/internal/sentiment"
	"github.com/gauthierbraillon/newstream/internal/stream"
)

// previewBytes bounds the dry-run payload preview written to stdout.
const previewBytes = 1000

// Fetcher fetches the raw article set from the upstream feed.
type Fetcher interface {
	FetchLatest(ctx context.Context, p newsdata.FetchParams) ([]newsdata.Article, error)
}

// LogSink pushes an assembled log payload.
type LogSink interface {
	Push(ctx context.Context, p loki.Payload) error
}

// MetricsSink imports an exposition-format sample batch.
type MetricsSink interface {
	Import(ctx context.Context, body string) error
}

// Runner holds the collaborators for one ingest run.
type Runner struct {
	Log  *slog.Logger
	Feed Fetcher

	// LogSink receives the stream payload. Required unless dry-run.
	LogSink LogSink

	// MetricsSink receives sentiment samples; nil when no aggregator
	// target is configured.
	MetricsSink MetricsSink

	// Scorer annotates lines and feeds the aggregation; nil when sentiment
	// was not requested or the engine is unavailable.
	Scorer sentiment.Scorer

	// Out receives the dry-run preview.
	Out io.Writer

	// Now allows tests to pin the metrics batch timestamp.
	Now func() time.Time
}

// Run performs one full ingest pass. The returned error is fatal to the run:
// a fetch failure or a log-sink push failure. Metrics-sink failures are
// logged and swallowed; metrics are a best-effort secondary output.
func (r *Runner) Run(ctx context.Context, opts config.Options) error {
	now := r.Now
	if now == nil {
		now = time.Now
	}

	r.Log.Info("fetching news", "base_url", opts.BaseURL, "pages", opts.Pages)
	articles, err := r.Feed.FetchLatest(ctx, newsdata.FetchParams{
		Query:     opts.Query,
		Country:   opts.Country,
		Category:  opts.Category,
		Language:  opts.Language,
		Domain:    opts.Domain,
		PageSize:  opts.PageSize,
		Pages:     opts.Pages,
		StartPage: opts.Page,
	})
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	r.Log.Info("fetched articles", "count", len(articles))

	baseLabels := opts.BaseLabels()

	r.emitMetrics(ctx, opts, articles, baseLabels, now)

	streams := stream.Group(articles, stream.Options{
		BaseLabels: baseLabels,
		IngestTime: opts.IngestTime,
		Scorer:     r.Scorer,
	})
	payload := loki.BuildPayload(streams)

	if opts.DryRun {
		fmt.Fprintln(r.Out, preview(payload))
		return nil
	}

	r.Log.Info("pushing to log sink", "url", opts.LokiURL, "streams", len(payload.Streams))
	if err := r.LogSink.Push(ctx, payload); err != nil {
		return fmt.Errorf("log sink push: %w", err)
	}
	if len(payload.Streams) > 0 {
		// Query hint: show one label set the push just created.
		r.Log.Info("log sink push ok", "example_labels", payload.Streams[0].Stream)
	} else {
		r.Log.Info("log sink push ok", "streams", 0)
	}
	return nil
}

// emitMetrics runs the metrics branch. Nothing here fails the run: skips are
// reported as notices and push errors as warnings.
func (r *Runner) emitMetrics(ctx context.Context, opts config.Options, articles []newsdata.Article, baseLabels map[string]string, now func() time.Time) {
	if !opts.EmitMetrics {
		if opts.VMURL != "" {
			r.Log.Info("metrics sink configured but --emit-metrics not set; skipping metrics")
		}
		return
	}
	if opts.VMURL == "" || r.MetricsSink == nil {
		r.Log.Info("--emit-metrics set but no metrics sink configured; skipping metrics")
		return
	}
	if !opts.UseSentiment {
		r.Log.Info("--emit-metrics set but --use-sentiment is off; skipping metrics")
		return
	}

	tsMS := now().UTC().UnixMilli()
	samples := metrics.SentimentSamples(articles, r.Scorer, baseLabels, tsMS)
	if len(samples) == 0 {
		r.Log.Info("no sentiment samples to emit (no scorable articles or scoring engine unavailable)")
		return
	}
	if opts.DryRun {
		r.Log.Info("dry-run: skipping metrics import", "samples", len(samples))
		return
	}
	if err := r.MetricsSink.Import(ctx, metrics.Render(samples)); err != nil {
		r.Log.Warn("metrics import failed", "err", err)
		return
	}
	r.Log.Info("metrics import ok", "samples", len(samples))
}

// preview clips the encoded payload for the dry-run output.
func preview(p loki.Payload) string {
	encoded := p.Encode()
	if len(encoded) <= previewBytes {
		return string(encoded)
	}
	return string(encoded[:previewBytes]) + "..."
}
