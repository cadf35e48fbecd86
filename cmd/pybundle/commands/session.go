// Package commands implements the pybundle CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sumatoshi-tech/pybundle/pkg/cache"
	"github.com/Sumatoshi-tech/pybundle/pkg/config"
	"github.com/Sumatoshi-tech/pybundle/pkg/observability"
	"github.com/Sumatoshi-tech/pybundle/pkg/pipeline"
	"github.com/Sumatoshi-tech/pybundle/pkg/version"
)

// Flag names shared by several commands.
const (
	flagPath     = "path"
	flagFile     = "file"
	flagConfig   = "config"
	flagVerbose  = "verbose"
	flagQuiet    = "quiet"
	flagNoColor  = "no-color"
	flagCacheDir = "cache-dir"
	flagAll      = "all"
)

// flagKeys binds command-line flags to config keys.
var flagKeys = map[string]string{
	flagAll:      "resolve.include_unreachable",
	flagCacheDir: "cache.dir",
	"strict":     "resolve.strict",
	"timestamp":  "bundle.timestamp",
}

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	path       string
	configFile string
	verbose    bool
	quiet      bool
	noColor    bool
	cacheDir   string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.path, flagPath, "p", ".", "Project source folder")
	fs.StringVar(&g.configFile, flagConfig, "", "Config file (default: <path>/"+config.FileName+")")
	fs.BoolVarP(&g.verbose, flagVerbose, "v", false, "Verbose logging and dependency tree")
	fs.BoolVarP(&g.quiet, flagQuiet, "q", false, "Only log warnings and errors")
	fs.BoolVar(&g.noColor, flagNoColor, false, "Disable colored output")
	fs.StringVar(&g.cacheDir, flagCacheDir, "", "Persist parse results in this directory")
}

// session is the runtime state shared by one command invocation.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	providers observability.Providers
	metrics   *observability.BundleMetrics
	cache     *cache.Cache
}

// openSession loads configuration and sets up logging, telemetry and the parse cache.
func openSession(ctx context.Context, cmd *cobra.Command, g *globalFlags) (*session, error) {
	bound := make(map[string]*pflag.Flag, len(flagKeys))

	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			bound[key] = flag
		}
	}

	cfg, err := config.Load(config.LoadOptions{Root: g.path, File: g.configFile, Flags: bound})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogOutput = cmd.ErrOrStderr()
	obsCfg.LogLevel = observability.LevelFromFlags(observability.ParseLevel(cfg.Logging.Level), g.verbose, g.quiet)

	providers, err := observability.Init(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewBundleMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	s := &session{cfg: cfg, logger: providers.Logger, providers: providers, metrics: metrics}

	if cfg.Cache.Enabled {
		s.cache, err = cache.New(cache.Options{Size: cfg.Cache.Size, Dir: cfg.Cache.Dir, Logger: s.logger})
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
	}

	return s, nil
}

// options builds pipeline options for entry, with output excluded from discovery.
func (s *session) options(root, entry, output string) (pipeline.Options, error) {
	opts, err := pipeline.FromConfig(s.cfg, root, entry, output)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts.Version = version.Version
	opts.Cache = s.cache
	opts.Logger = s.logger
	opts.Tracer = s.providers.Tracer
	opts.Metrics = s.metrics

	return opts, nil
}

func (s *session) close(ctx context.Context) {
	if err := s.providers.Shutdown(ctx); err != nil {
		s.logger.WarnContext(ctx, "telemetry shutdown failed", "error", err)
	}
}

// colorEnabled reports whether w should receive ANSI colors.
func colorEnabled(w io.Writer, noColor bool) bool {
	if noColor {
		return false
	}

	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
