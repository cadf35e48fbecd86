// Package discovery enumerates the Python sources of a project directory.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/src-d/enry/v2"
	"github.com/viant/afs"

	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/safeconv"
	"github.com/Sumatoshi-tech/pybundle/pkg/textutil"
)

const (
	pyExt        = ".py"
	pythonLang   = "Python"
	sniffBytes   = 512
	defaultLimit = 4 << 20
)

// ErrNotDirectory is returned when the project root is not a directory.
var ErrNotDirectory = errors.New("project root is not a directory")

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{
	".git", ".hg", ".svn", "__pycache__", ".venv", "venv", "env", ".env",
	"build", "dist", "node_modules", "site-packages", ".tox", ".nox",
	".mypy_cache", ".pytest_cache", ".ruff_cache", ".eggs",
}

// Options controls enumeration.
type Options struct {
	// Exclude holds extra glob patterns matched against slash-separated
	// relative paths and base names.
	Exclude []string
	// DetectScripts includes extensionless files whose content is Python.
	DetectScripts bool
	// MaxFileSize is the size above which a file is reported with a warning.
	// Zero means the default limit.
	MaxFileSize int64
	// Skip lists absolute paths to leave out, such as the bundle output.
	Skip   []string
	Logger *slog.Logger
}

// Walk returns every Python source below root, sorted by relative path.
func Walk(ctx context.Context, root string, opts Options) ([]modules.SourceFile, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	info, statErr := os.Stat(absRoot)
	if statErr != nil {
		return nil, fmt.Errorf("stat project root: %w", statErr)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, absRoot)
	}

	limit := opts.MaxFileSize
	if limit <= 0 {
		limit = defaultLimit
	}

	skip := make(map[string]bool, len(opts.Skip))
	for _, p := range opts.Skip {
		if abs, absErr := filepath.Abs(p); absErr == nil {
			skip[abs] = true
		}
	}

	w := walker{
		fs:     afs.New(),
		root:   absRoot,
		opts:   opts,
		limit:  limit,
		skip:   skip,
		logger: logger,
	}

	walkErr := filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		return w.visit(ctx, p, d)
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, walkErr)
	}

	sort.Slice(w.files, func(i, j int) bool { return w.files[i].Rel < w.files[j].Rel })

	return w.files, nil
}

type walker struct {
	fs     afs.Service
	root   string
	opts   Options
	limit  int64
	skip   map[string]bool
	logger *slog.Logger
	files  []modules.SourceFile
}

func (w *walker) visit(ctx context.Context, p string, d fs.DirEntry) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	rel, relErr := filepath.Rel(w.root, p)
	if relErr != nil {
		return fmt.Errorf("relative path of %s: %w", p, relErr)
	}

	slashed := filepath.ToSlash(rel)

	if d.IsDir() {
		if rel != "." && w.excluded(slashed, d.Name(), true) {
			w.logger.Debug("skipping directory", "dir", slashed)

			return filepath.SkipDir
		}

		return nil
	}

	if !d.Type().IsRegular() || w.skip[p] || w.excluded(slashed, d.Name(), false) {
		return nil
	}

	ext := path.Ext(d.Name())
	if ext != pyExt && (ext != "" || !w.opts.DetectScripts) {
		return nil
	}

	info, infoErr := d.Info()
	if infoErr != nil {
		return fmt.Errorf("stat %s: %w", slashed, infoErr)
	}

	if !modules.IsModulePath(slashed) {
		w.logger.Warn("skipping file whose path cannot name a module", "file", slashed)

		return nil
	}

	if info.Size() > w.limit {
		w.logger.Warn("including large file", "file", slashed,
			"size", humanize.IBytes(safeconv.MustToUint64(info.Size())), "limit", humanize.IBytes(safeconv.MustToUint64(w.limit)))
	}

	data, readErr := w.fs.DownloadWithURL(ctx, p)
	if readErr != nil {
		return fmt.Errorf("read %s: %w", slashed, readErr)
	}

	if ext == "" && (textutil.IsBinary(data) || !isPythonScript(d.Name(), data)) {
		return nil
	}

	w.files = append(w.files, modules.SourceFile{Path: p, Rel: slashed, Data: textutil.NormalizeSource(data)})

	return nil
}

func (w *walker) excluded(rel, name string, dir bool) bool {
	if dir {
		for _, ex := range DefaultExcludes {
			if name == ex {
				return true
			}
		}

		if strings.HasSuffix(name, ".egg-info") {
			return true
		}
	}

	for _, pattern := range w.opts.Exclude {
		pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/")

		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}

		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}

	return false
}

// isPythonScript detects extensionless Python programs by shebang and content.
func isPythonScript(name string, data []byte) bool {
	sniff := data
	if len(sniff) > sniffBytes {
		sniff = sniff[:sniffBytes]
	}

	return enry.GetLanguage(name, sniff) == pythonLang
}
