// Package modules maps project source files to dotted module identifiers and
// owns the per-run registry of module records.
package modules

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const (
	pySuffix    = ".py"
	initModule  = "__init__"
	idSeparator = "."
)

// ErrInvalidPath is returned for paths that cannot name a module.
var ErrInvalidPath = errors.New("invalid module path")

// ID is a dotted, project-relative module identifier such as "pkg.sub.mod".
type ID string

// NewID derives the module identifier of a project-relative path.
// "pkg/sub/mod.py" becomes "pkg.sub.mod" and "pkg/__init__.py" becomes "pkg".
// A root-level "__init__.py" keeps the identifier "__init__".
// Extensionless script paths map the same way without the suffix.
// Segments need not be identifiers ("run-app.py" becomes "run-app"); such a
// module cannot be imported but can still be an entry. A dot inside a segment
// would collide with the separator and is rejected.
func NewID(rel string) (ID, error) {
	clean, err := cleanRel(rel)
	if err != nil {
		return "", err
	}

	parts := strings.Split(strings.TrimSuffix(clean, pySuffix), "/")
	for _, part := range parts {
		if part == "" || strings.Contains(part, idSeparator) {
			return "", fmt.Errorf("%w: %q: segment %q cannot name a module", ErrInvalidPath, rel, part)
		}
	}

	if len(parts) > 1 && parts[len(parts)-1] == initModule {
		parts = parts[:len(parts)-1]
	}

	return ID(strings.Join(parts, idSeparator)), nil
}

// IsPackagePath reports whether rel is a package __init__ file.
func IsPackagePath(rel string) bool {
	return path.Base(filepath.ToSlash(rel)) == initModule+pySuffix
}

// IsModulePath reports whether rel can be registered as a module.
func IsModulePath(rel string) bool {
	_, err := NewID(rel)

	return err == nil
}

func cleanRel(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	slashed := filepath.ToSlash(rel)
	if path.IsAbs(slashed) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidPath, rel)
	}

	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q escapes the project root", ErrInvalidPath, rel)
	}

	base := path.Base(clean)
	if ext := path.Ext(base); ext != "" && ext != pySuffix {
		return "", fmt.Errorf("%w: %q is not a Python file", ErrInvalidPath, rel)
	}

	return clean, nil
}

// IsIdentifier reports whether s is a valid Python identifier in the ASCII subset.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}

// Importable reports whether every segment of id is a Python identifier,
// so an import statement can name it.
func (id ID) Importable() bool {
	for part := range strings.SplitSeq(string(id), idSeparator) {
		if !IsIdentifier(part) {
			return false
		}
	}

	return true
}

// Parent returns the enclosing package identifier, or "" for a top-level module.
func (id ID) Parent() ID {
	idx := strings.LastIndex(string(id), idSeparator)
	if idx < 0 {
		return ""
	}

	return id[:idx]
}

// Ancestors returns the enclosing packages from the outermost inwards.
func (id ID) Ancestors() []ID {
	var out []ID

	s := string(id)
	for idx := 0; idx < len(s); idx++ {
		if s[idx] == '.' {
			out = append(out, ID(s[:idx]))
		}
	}

	return out
}

// Within reports whether id equals pkg or lives inside it.
func (id ID) Within(pkg ID) bool {
	if pkg == "" {
		return true
	}

	return id == pkg || strings.HasPrefix(string(id), string(pkg)+idSeparator)
}

// Join appends a dotted suffix to id.
func (id ID) Join(suffix string) ID {
	switch {
	case suffix == "":
		return id
	case id == "":
		return ID(suffix)
	default:
		return id + idSeparator + ID(suffix)
	}
}

func (id ID) String() string {
	return string(id)
}
