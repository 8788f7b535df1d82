// Package config resolves and validates the option set for one ingest run.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults mirrored by the CLI flag definitions.
const (
	DefaultBaseURL = "https://newsdata.io/api/1/latest"
	DefaultJob     = "newsdata"
	DefaultPages   = 1
	DefaultTimeout = 15 * time.Second
)

// Options is the full option set for one run.
type Options struct {
	// Upstream feed.
	APIKey   string
	BaseURL  string
	Query    string
	Country  string
	Category string
	Language string
	Domain   string
	Page     string // optional cursor to start from
	Pages    int
	PageSize int

	// Log sink.
	LokiURL string
	Tenant  string
	Job     string

	// StaticLabels holds extra key=value labels attached to every stream.
	StaticLabels []string

	// Metrics sink.
	VMURL        string
	UseSentiment bool
	EmitMetrics  bool

	// Behavior.
	Timeout    time.Duration
	IngestTime bool
	DryRun     bool
	Verbose    bool
}

// ApplyEnvDefaults fills credentials and sink addresses left empty on the
// command line from the environment.
func (o *Options) ApplyEnvDefaults() {
	if o.APIKey == "" {
		o.APIKey = getEnv("NEWSDATA_API_KEY", "")
	}
	if o.LokiURL == "" {
		o.LokiURL = getEnv("NEWSTREAM_LOKI_URL", "")
	}
	if o.VMURL == "" {
		o.VMURL = getEnv("NEWSTREAM_VM_URL", "")
	}
}

// Validate reports configuration errors before any network activity.
func (o *Options) Validate() error {
	if o.APIKey == "" {
		return fmt.Errorf("missing API key: pass --api-key or set NEWSDATA_API_KEY")
	}
	if o.LokiURL == "" {
		return fmt.Errorf("missing log sink address: pass --loki-url or set NEWSTREAM_LOKI_URL")
	}
	if o.Pages < 1 {
		return fmt.Errorf("--pages must be at least 1")
	}
	if o.PageSize < 0 {
		return fmt.Errorf("--page-size cannot be negative")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	for _, item := range o.StaticLabels {
		if !strings.Contains(item, "=") {
			return fmt.Errorf("invalid label %q: expected key=value", item)
		}
	}
	return nil
}

// BaseLabels builds the label set attached to every stream: the job label,
// any static labels, and the query label when a query is set.
func (o *Options) BaseLabels() map[string]string {
	labels := map[string]string{"job": o.Job}
	for k, v := range ParseStaticLabels(o.StaticLabels) {
		labels[k] = v
	}
	if o.Query != "" {
		labels["q"] = o.Query
	}
	return labels
}

// ParseStaticLabels converts "key=value" items into a label map. Items
// without "=" are ignored; values may contain "=".
func ParseStaticLabels(items []string) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k != "" {
			out[k] = v
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
