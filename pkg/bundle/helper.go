package bundle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/resolve"
)

// namespaceHelper recreates module objects for internal imports that bind a
// module or read attributes of one.
const namespaceHelper = `import types as _pybundle_types

_pybundle_modules = {}


def _pybundle_module(name):
    parent = None
    path = ""
    for part in name.split("."):
        path = part if not path else path + "." + part
        module = _pybundle_modules.get(path)
        if module is None:
            module = _pybundle_types.ModuleType(path)
            _pybundle_modules[path] = module
        if parent is not None:
            setattr(parent, part, module)
        parent = module
    return parent


def _pybundle_export(name, scope, names):
    module = _pybundle_module(name)
    for attr in names:
        if attr in scope:
            setattr(module, attr, scope[attr])
    return module


def _pybundle_star(scope, name):
    module = _pybundle_module(name)
    public = getattr(module, "__all__", None)
    if public is None:
        public = [attr for attr in vars(module) if not attr.startswith("_")]
    for attr in public:
        scope[attr] = getattr(module, attr)
`

// bindingLine renders the statement that replaces one internal import binding.
func bindingLine(b resolve.Binding) string {
	switch b.Kind {
	case resolve.BindSymbol:
		return fmt.Sprintf("%s = _pybundle_module(%s).%s", b.Local, quote(b.Module), b.Symbol)
	case resolve.BindStar:
		return fmt.Sprintf("_pybundle_star(globals(), %s)", quote(b.Module))
	default:
		return fmt.Sprintf("%s = _pybundle_module(%s)", b.Local, quote(b.Module))
	}
}

// exportLine snapshots the module-level names of id into its namespace object.
func exportLine(id modules.ID, names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = strconv.Quote(name)
	}

	tuple := "(" + strings.Join(quoted, ", ") + ")"
	if len(quoted) == 1 {
		tuple = "(" + quoted[0] + ",)"
	}

	return fmt.Sprintf("_pybundle_export(%s, globals(), %s)", quote(id), tuple)
}

func quote(id modules.ID) string {
	return strconv.Quote(string(id))
}
