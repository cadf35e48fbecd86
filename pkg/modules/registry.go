package modules

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"

	"github.com/Sumatoshi-tech/pybundle/pkg/pyimport"
)

// DuplicateModuleError is returned when two files map to the same identifier,
// for example "pkg.py" next to "pkg/__init__.py".
type DuplicateModuleError struct {
	ID     ID
	First  string
	Second string
}

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("duplicate module %q: %s and %s", e.ID, e.First, e.Second)
}

// SourceFile is one enumerated project file.
type SourceFile struct {
	// Path is the absolute path on disk.
	Path string
	// Rel is the path relative to the project root.
	Rel  string
	Data []byte
}

// Record is the immutable per-run description of one module.
type Record struct {
	ID        ID
	Path      string
	Rel       string
	Source    []byte
	IsPackage bool
	File      *pyimport.File
}

// Package returns the package that relative imports of the record resolve against.
func (r *Record) Package() ID {
	if r.IsPackage {
		if r.ID == initModule {
			return ""
		}

		return r.ID
	}

	return r.ID.Parent()
}

// ParseFunc parses the source of one file.
type ParseFunc func(file SourceFile) (*pyimport.File, error)

// Registry owns the module records of a single run.
type Registry struct {
	root    string
	records map[ID]*Record
}

// NewRegistry creates an empty registry rooted at root.
func NewRegistry(root string) *Registry {
	return &Registry{root: root, records: make(map[ID]*Record)}
}

// Build registers every file, in sorted relative-path order.
// No registry is returned when any file fails.
func Build(root string, files []SourceFile, parse ParseFunc) (*Registry, error) {
	sorted := slices.Clone(files)
	sort.Slice(sorted, func(i, j int) bool {
		return filepath.ToSlash(sorted[i].Rel) < filepath.ToSlash(sorted[j].Rel)
	})

	reg := NewRegistry(root)

	for _, file := range sorted {
		id, err := NewID(file.Rel)
		if err != nil {
			return nil, err
		}

		if existing, ok := reg.records[id]; ok {
			return nil, &DuplicateModuleError{ID: id, First: existing.Rel, Second: filepath.ToSlash(file.Rel)}
		}

		parsed, parseErr := parse(file)
		if parseErr != nil {
			return nil, fmt.Errorf("parse %s: %w", file.Rel, parseErr)
		}

		addErr := reg.Add(&Record{
			ID:        id,
			Path:      file.Path,
			Rel:       filepath.ToSlash(file.Rel),
			Source:    file.Data,
			IsPackage: IsPackagePath(file.Rel),
			File:      parsed,
		})
		if addErr != nil {
			return nil, addErr
		}
	}

	return reg, nil
}

// Add registers rec. A record whose identifier is already present is rejected.
func (r *Registry) Add(rec *Record) error {
	if existing, ok := r.records[rec.ID]; ok {
		return &DuplicateModuleError{ID: rec.ID, First: existing.Rel, Second: rec.Rel}
	}

	r.records[rec.ID] = rec

	return nil
}

// Get returns the record of id.
func (r *Registry) Get(id ID) (*Record, bool) {
	rec, ok := r.records[id]

	return rec, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.records[id]

	return ok
}

// IDs returns all registered identifiers in lexicographic order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// FindByRel returns the record registered for a project-relative path.
func (r *Registry) FindByRel(rel string) (*Record, bool) {
	id, err := NewID(rel)
	if err != nil {
		return nil, false
	}

	rec, ok := r.records[id]
	if !ok || rec.Rel != slashClean(rel) {
		return nil, false
	}

	return rec, true
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.records)
}

// Root returns the project root directory.
func (r *Registry) Root() string {
	return r.root
}

func slashClean(rel string) string {
	return filepath.ToSlash(filepath.Clean(rel))
}
