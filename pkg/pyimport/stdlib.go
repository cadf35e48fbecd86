package pyimport

import (
	_ "embed"
	"strings"
	"sync"
)

// stdlibNames is sys.stdlib_module_names of CPython 3.11, one per line.
//
//go:embed stdlib.txt
var stdlibNames string

var stdlibSet = sync.OnceValue(func() map[string]struct{} {
	set := make(map[string]struct{}, strings.Count(stdlibNames, "\n"))

	for line := range strings.SplitSeq(stdlibNames, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			set[name] = struct{}{}
		}
	}

	return set
})

// IsStdlib reports whether the top-level package of the dotted module belongs to
// the Python standard library.
func IsStdlib(module string) bool {
	head, _, _ := strings.Cut(module, ".")
	_, ok := stdlibSet()[head]

	return ok
}
