// Package pipeline runs the bundling stages over a project directory.
package pipeline

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/pybundle/pkg/cache"
	"github.com/Sumatoshi-tech/pybundle/pkg/config"
	"github.com/Sumatoshi-tech/pybundle/pkg/observability"
)

// Options is the complete input of one run. Nothing is read from globals.
type Options struct {
	// Root is the project directory.
	Root string
	// Entry is the entry file, relative to Root or absolute.
	Entry string
	// Output is left out of discovery when set.
	Output string

	// All bundles every module instead of the entry closure.
	All              bool
	Strict           bool
	ImplicitRelative bool

	Exclude       []string
	DetectScripts bool
	MaxFileSize   int64

	Header          bool
	Footer          bool
	Timestamp       bool
	StripMainGuards bool
	Version         string

	// Workers bounds parallel parsing. Zero means GOMAXPROCS.
	Workers int

	Cache   *cache.Cache
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.BundleMetrics
	// Now stamps the header when Timestamp is set. Nil means time.Now.
	Now func() time.Time
}

// FromConfig maps loaded settings onto run options.
func FromConfig(cfg *config.Config, root, entry, output string) (Options, error) {
	maxSize, err := cfg.MaxFileSizeBytes()
	if err != nil {
		return Options{}, err
	}

	return Options{
		Root:             root,
		Entry:            entry,
		Output:           output,
		All:              cfg.Resolve.IncludeUnreachable,
		Strict:           cfg.Resolve.Strict,
		ImplicitRelative: cfg.Resolve.ImplicitRelative,
		Exclude:          cfg.Discovery.Exclude,
		DetectScripts:    cfg.Discovery.DetectScripts,
		MaxFileSize:      maxSize,
		Header:           cfg.Bundle.Header,
		Footer:           cfg.Bundle.Footer,
		Timestamp:        cfg.Bundle.Timestamp,
		StripMainGuards:  cfg.Bundle.StripMainGuards,
	}, nil
}
