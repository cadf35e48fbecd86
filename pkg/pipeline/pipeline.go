package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/viant/afs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/pybundle/pkg/bundle"
	"github.com/Sumatoshi-tech/pybundle/pkg/cache"
	"github.com/Sumatoshi-tech/pybundle/pkg/depgraph"
	"github.com/Sumatoshi-tech/pybundle/pkg/discovery"
	"github.com/Sumatoshi-tech/pybundle/pkg/levenshtein"
	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/observability"
	"github.com/Sumatoshi-tech/pybundle/pkg/pyimport"
	"github.com/Sumatoshi-tech/pybundle/pkg/resolve"
)

// Sentinel errors.
var (
	ErrEntryNotFound = errors.New("entry file is not a project module")
	ErrNoSources     = errors.New("no python sources found")
	ErrNoEntry       = errors.New("an entry file is required")
)

const (
	outputPerm   = 0o644
	maxEntryTypo = 3
)

// Analysis is the project view shared by bundling and graph rendering.
type Analysis struct {
	Registry   *modules.Registry
	Resolution *resolve.Result
	// Graph holds every registered module.
	Graph *depgraph.Graph
	// Selected is the entry closure, or Graph when bundling everything or no entry is set.
	Selected *depgraph.Graph
	Entry    modules.ID
}

// Result is the outcome of a successful Run.
type Result struct {
	*Analysis

	Order    depgraph.Ordering
	Bundle   *bundle.Bundle
	Cache    cache.Stats
	Duration time.Duration
}

type runner struct {
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

func newRunner(opts Options) *runner {
	r := &runner{opts: opts, logger: opts.Logger, tracer: opts.Tracer}

	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}

	if r.tracer == nil {
		r.tracer = nooptrace.NewTracerProvider().Tracer("pybundle")
	}

	return r
}

// Run discovers, resolves, orders and assembles the project.
// Nothing is written: see WriteOutput.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Entry == "" {
		return nil, ErrNoEntry
	}

	start := time.Now()
	r := newRunner(opts)

	ctx, span := r.tracer.Start(ctx, "pybundle.run")
	defer span.End()

	res, err := r.run(ctx)

	duration := time.Since(start)
	stats := observability.RunStats{Status: observability.StatusOK, Duration: duration}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		stats.Status = observability.StatusError
		opts.Metrics.RecordRun(ctx, stats)

		return nil, err
	}

	res.Duration = duration
	if opts.Cache != nil {
		res.Cache = opts.Cache.Stats()
	}

	stats.Modules = len(res.Order)
	stats.Edges = res.Selected.EdgeCount()
	stats.ExternalImports = res.Bundle.Stats.StdlibImports + res.Bundle.Stats.ThirdPartyImports
	stats.CacheHits = res.Cache.Hits
	stats.CacheDiskHits = res.Cache.DiskHits
	stats.CacheMisses = res.Cache.Misses
	stats.BundleBytes = res.Bundle.Stats.BundleBytes
	opts.Metrics.RecordRun(ctx, stats)

	span.SetAttributes(
		attribute.Int("pybundle.modules", stats.Modules),
		attribute.Int("pybundle.edges", stats.Edges),
		attribute.Int("pybundle.bundle_bytes", stats.BundleBytes),
	)

	r.logger.InfoContext(ctx, "bundle assembled",
		"modules", stats.Modules, "edges", stats.Edges, "duration", duration.Round(time.Millisecond))

	return res, nil
}

func (r *runner) run(ctx context.Context) (*Result, error) {
	analysis, err := r.analyze(ctx)
	if err != nil {
		return nil, err
	}

	order, err := r.order(ctx, analysis)
	if err != nil {
		return nil, err
	}

	out, err := r.assemble(ctx, analysis, order)
	if err != nil {
		return nil, err
	}

	return &Result{Analysis: analysis, Order: order, Bundle: out}, nil
}

// Order is the definition order of the selected modules. The entry module
// comes last unless another module depends on it.
func (a *Analysis) Order() (depgraph.Ordering, error) {
	if a.Entry == "" {
		return a.Selected.Order()
	}

	return a.Selected.OrderEntryLast(a.Entry)
}

// Analyze discovers, parses and resolves the project without ordering it,
// so a cyclic graph can still be inspected. The entry is optional here.
func Analyze(ctx context.Context, opts Options) (*Analysis, error) {
	return newRunner(opts).analyze(ctx)
}

func (r *runner) analyze(ctx context.Context) (*Analysis, error) {
	files, err := r.discover(ctx)
	if err != nil {
		return nil, err
	}

	reg, err := r.parse(ctx, files)
	if err != nil {
		return nil, err
	}

	entry, err := r.entry(reg)
	if err != nil {
		return nil, err
	}

	res, err := r.resolve(ctx, reg)
	if err != nil {
		return nil, err
	}

	graph, err := depgraph.Build(reg.IDs(), res.Edges)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	selected := graph
	if entry != "" && !r.opts.All {
		selected, err = graph.Reachable(entry)
		if err != nil {
			return nil, fmt.Errorf("select entry closure: %w", err)
		}
	}

	r.logger.DebugContext(ctx, "graph built",
		"modules", graph.Len(), "edges", graph.EdgeCount(), "selected", selected.Len())

	return &Analysis{Registry: reg, Resolution: res, Graph: graph, Selected: selected, Entry: entry}, nil
}

func (r *runner) discover(ctx context.Context) ([]modules.SourceFile, error) {
	ctx, span := r.tracer.Start(ctx, "pybundle.discover")
	defer span.End()

	var skip []string
	if r.opts.Output != "" {
		skip = append(skip, r.opts.Output)
	}

	files, err := discovery.Walk(ctx, r.opts.Root, discovery.Options{
		Exclude:       r.opts.Exclude,
		DetectScripts: r.opts.DetectScripts,
		MaxFileSize:   r.opts.MaxFileSize,
		Skip:          skip,
		Logger:        r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("discover sources: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSources, r.opts.Root)
	}

	span.SetAttributes(attribute.Int("pybundle.files", len(files)))
	r.logger.DebugContext(ctx, "sources discovered", "files", len(files))

	return files, nil
}

// parse parses every file concurrently, then registers them in path order.
func (r *runner) parse(ctx context.Context, files []modules.SourceFile) (*modules.Registry, error) {
	ctx, span := r.tracer.Start(ctx, "pybundle.parse")
	defer span.End()

	parser := pyimport.NewParser()
	parsed := make([]*pyimport.File, len(files))

	parseOne := func(src []byte) (*pyimport.File, error) {
		return parser.Parse(ctx, src)
	}

	workers := r.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			var (
				result *pyimport.File
				err    error
			)

			if r.opts.Cache != nil {
				result, err = r.opts.Cache.GetOrParse(file.Data, parseOne)
			} else {
				result, err = parseOne(file.Data)
			}

			if err != nil {
				return fmt.Errorf("parse %s: %w", file.Rel, err)
			}

			parsed[i] = result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	byRel := make(map[string]*pyimport.File, len(files))
	for i, file := range files {
		byRel[file.Rel] = parsed[i]
	}

	reg, err := modules.Build(r.opts.Root, files, func(f modules.SourceFile) (*pyimport.File, error) {
		return byRel[f.Rel], nil
	})
	if err != nil {
		return nil, fmt.Errorf("register modules: %w", err)
	}

	span.SetAttributes(attribute.Int("pybundle.modules", reg.Len()))

	for _, id := range reg.IDs() {
		rec, _ := reg.Get(id)
		r.logger.DebugContext(ctx, "module registered", "module", string(id), "file", rec.Rel,
			"imports", len(rec.File.Imports))
	}

	return reg, nil
}

func (r *runner) entry(reg *modules.Registry) (modules.ID, error) {
	if r.opts.Entry == "" {
		return "", nil
	}

	rel := r.opts.Entry

	if filepath.IsAbs(rel) {
		root, err := filepath.Abs(r.opts.Root)
		if err != nil {
			return "", fmt.Errorf("resolve project root: %w", err)
		}

		rel, err = filepath.Rel(root, rel)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrEntryNotFound, r.opts.Entry)
		}
	}

	rel = filepath.ToSlash(filepath.Clean(rel))

	rec, ok := reg.FindByRel(rel)
	if !ok {
		if hint, found := suggestEntry(reg, rel); found {
			return "", fmt.Errorf("%w: %s (did you mean %s?)", ErrEntryNotFound, r.opts.Entry, hint)
		}

		return "", fmt.Errorf("%w: %s", ErrEntryNotFound, r.opts.Entry)
	}

	return rec.ID, nil
}

func suggestEntry(reg *modules.Registry, rel string) (string, bool) {
	ids := reg.IDs()
	paths := make([]string, 0, len(ids))

	for _, id := range ids {
		rec, _ := reg.Get(id)
		paths = append(paths, rec.Rel)
	}

	return levenshtein.Closest(rel, paths, maxEntryTypo)
}

func (r *runner) resolve(ctx context.Context, reg *modules.Registry) (*resolve.Result, error) {
	_, span := r.tracer.Start(ctx, "pybundle.resolve")
	defer span.End()

	res, err := resolve.Resolve(reg, resolve.Options{
		Strict:           r.opts.Strict,
		ImplicitRelative: r.opts.ImplicitRelative,
		Logger:           r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve imports: %w", err)
	}

	span.SetAttributes(
		attribute.Int("pybundle.external_imports", res.ExternalCount()),
		attribute.Int("pybundle.unresolved", len(res.Warnings)),
	)

	return res, nil
}

func (r *runner) order(ctx context.Context, analysis *Analysis) (depgraph.Ordering, error) {
	ctx, span := r.tracer.Start(ctx, "pybundle.order")
	defer span.End()

	order, err := analysis.Order()
	if err != nil {
		return nil, fmt.Errorf("order modules: %w", err)
	}

	r.logger.DebugContext(ctx, "definition order computed", "order", order)

	return order, nil
}

func (r *runner) assemble(ctx context.Context, analysis *Analysis, order depgraph.Ordering) (*bundle.Bundle, error) {
	_, span := r.tracer.Start(ctx, "pybundle.assemble")
	defer span.End()

	opts := bundle.Options{
		Entry:           analysis.Entry,
		Version:         r.opts.Version,
		Header:          r.opts.Header,
		Footer:          r.opts.Footer,
		StripMainGuards: r.opts.StripMainGuards,
	}

	if r.opts.Timestamp {
		now := r.opts.Now
		if now == nil {
			now = time.Now
		}

		opts.Timestamp = now()
	}

	out, err := bundle.Assemble(analysis.Registry, order, analysis.Resolution, opts)
	if err != nil {
		return nil, fmt.Errorf("assemble bundle: %w", err)
	}

	span.SetAttributes(attribute.Int("pybundle.bundle_lines", out.Stats.BundleLines))

	return out, nil
}

// WriteOutput stores src at path, creating parent directories.
func WriteOutput(ctx context.Context, path string, src []byte) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	err = afs.New().Upload(ctx, abs, outputPerm, bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// ReadOutput loads an existing bundle. The boolean is false when none exists.
func ReadOutput(ctx context.Context, path string) ([]byte, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, fmt.Errorf("resolve output path: %w", err)
	}

	fs := afs.New()

	exists, err := fs.Exists(ctx, abs)
	if err != nil {
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}

	if !exists {
		return nil, false, nil
	}

	data, err := fs.DownloadWithURL(ctx, abs)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	return data, true, nil
}
