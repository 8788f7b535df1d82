// Package main provides the newstream CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gauthierbraillon/newstream/internal/config"
	"github.com/gauthierbraillon/newstream/internal/ingest"
	"github.com/gauthierbraillon/newstream/internal/logger"
	"github.com/gauthierbraillon/newstream/internal/loki"
	"github.com/gauthierbraillon/newstream/internal/newsdata"
	"github.com/gauthierbraillon/newstream/internal/sentiment"
	"github.com/gauthierbraillon/newstream/internal/victoria"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var cfgErr *configError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// configError marks failures detected before any network activity.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// newRootCmd creates the root command for the newstream CLI.
func newRootCmd() *cobra.Command {
	opts := config.Options{}

	cmd := &cobra.Command{
		Use:     "newstream",
		Short:   "Fetch the latest news and push them to Loki and VictoriaMetrics",
		Long:    "Newstream fetches time-stamped news from a NewsData-compatible feed, enriches them with a sentiment signal, and fans them out to a Loki log sink and a VictoriaMetrics time-series sink.",
		Version: version,
		// Runtime failures should not dump the flag table.
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; missing files are fine.
			_ = godotenv.Load()
			opts.ApplyEnvDefaults()
			if err := opts.Validate(); err != nil {
				return &configError{err: err}
			}
			return run(cmd.Context(), cmd, opts)
		},
	}

	cmd.SetVersionTemplate("newstream version {{.Version}}\n")

	f := cmd.Flags()
	f.StringVar(&opts.APIKey, "api-key", "", "feed API key (or set NEWSDATA_API_KEY)")
	f.StringVar(&opts.BaseURL, "base-url", config.DefaultBaseURL, "feed latest endpoint")
	f.StringVar(&opts.Query, "q", "", "query string, e.g. 'bitcoin OR crypto'")
	f.StringVar(&opts.Country, "country", "", "country code(s), comma-separated")
	f.StringVar(&opts.Category, "category", "", "category(ies), e.g. 'business,technology'")
	f.StringVar(&opts.Language, "language", "", "language code(s), e.g. 'en,de'")
	f.StringVar(&opts.Domain, "domain", "", "restrict to domains, comma-separated")
	f.StringVar(&opts.Page, "page", "", "cursor token to start from")
	f.IntVar(&opts.Pages, "pages", config.DefaultPages, "how many pages to fetch")
	f.IntVar(&opts.PageSize, "page-size", 0, "page size if supported by your plan")
	f.StringVar(&opts.LokiURL, "loki-url", "", "Loki base URL, e.g. http://localhost:3100 (or set NEWSTREAM_LOKI_URL)")
	f.StringVar(&opts.Tenant, "tenant", "", "X-Scope-OrgID header value for multi-tenant Loki")
	f.StringVar(&opts.Job, "job", config.DefaultJob, "Loki label: job")
	f.StringArrayVar(&opts.StaticLabels, "labels", nil, "extra static labels key=value (repeatable)")
	f.StringVar(&opts.VMURL, "vm-url", "", "VictoriaMetrics base URL (or set NEWSTREAM_VM_URL)")
	f.BoolVar(&opts.UseSentiment, "use-sentiment", false, "compute sentiment; adds sentiment fields to each log line")
	f.BoolVar(&opts.EmitMetrics, "emit-metrics", false, "send per-group sentiment averages to VictoriaMetrics")
	f.DurationVar(&opts.Timeout, "timeout", config.DefaultTimeout, "HTTP timeout")
	f.BoolVar(&opts.IngestTime, "ts-ingest", false, "stamp entries with ingestion time instead of publish date")
	f.BoolVar(&opts.DryRun, "dry-run", false, "do not push; print a payload preview")
	f.BoolVar(&opts.Verbose, "verbose", false, "verbose logging")

	return cmd
}

// run wires the concrete clients and executes one ingest pass.
func run(ctx context.Context, cmd *cobra.Command, opts config.Options) error {
	log := logger.New(cmd.ErrOrStderr(), opts.Verbose)
	runID := uuid.NewString()
	log = log.With("run_id", runID)

	userAgent := fmt.Sprintf("newstream/%s", version)
	httpClient := &http.Client{
		Timeout:   opts.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	feed := newsdata.NewClient(opts.APIKey,
		newsdata.WithBaseURL(opts.BaseURL),
		newsdata.WithHTTPClient(httpClient),
		newsdata.WithUserAgent(userAgent),
	)
	logSink := loki.NewClient(opts.LokiURL,
		loki.WithHTTPClient(httpClient),
		loki.WithTenant(opts.Tenant),
		loki.WithUserAgent(userAgent),
		loki.WithRequestID(runID),
	)

	runner := &ingest.Runner{
		Log:     log,
		Feed:    feed,
		LogSink: logSink,
		Out:     cmd.OutOrStdout(),
	}
	if opts.VMURL != "" {
		runner.MetricsSink = victoria.NewClient(opts.VMURL,
			victoria.WithHTTPClient(httpClient),
			victoria.WithUserAgent(userAgent),
			victoria.WithRequestID(runID),
		)
	}
	if opts.UseSentiment {
		runner.Scorer = sentiment.NewVader()
	}

	if err := runner.Run(ctx, opts); err != nil {
		log.Error("run failed", "err", err)
		return err
	}
	return nil
}
