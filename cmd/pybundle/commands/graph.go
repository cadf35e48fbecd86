package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pybundle/pkg/depgraph"
	"github.com/Sumatoshi-tech/pybundle/pkg/modules"
	"github.com/Sumatoshi-tech/pybundle/pkg/pipeline"
	"github.com/Sumatoshi-tech/pybundle/pkg/report"
)

// Graph output formats.
const (
	FormatTree = "tree"
	FormatDOT  = "dot"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown format")

// GraphCommand prints the dependency graph without bundling.
type GraphCommand struct {
	global *globalFlags

	file     string
	format   string
	external bool
}

func newGraphCommand(global *globalFlags) *cobra.Command {
	gc := &GraphCommand{global: global}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the module dependency graph",
		Long: `Print the dependency graph of the project. With -f only the modules
reachable from the entry are shown. A cycle is reported instead of an order.`,
		Args: cobra.NoArgs,
		RunE: gc.run,
	}

	cmd.Flags().StringVarP(&gc.file, flagFile, "f", "", "Entry Python file, relative to --path")
	cmd.Flags().Bool(flagAll, false, "Show every module even when an entry is given")
	cmd.Flags().StringVar(&gc.format, "format", FormatTree, "Output format: tree, dot, json, yaml")
	cmd.Flags().BoolVar(&gc.external, "external", false, "List external imports in the tree")

	return cmd
}

func (gc *GraphCommand) run(cmd *cobra.Command, _ []string) error {
	switch gc.format {
	case FormatTree, FormatDOT, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, gc.format)
	}

	ctx := cmd.Context()

	sess, err := openSession(ctx, cmd, gc.global)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	opts, err := sess.options(gc.global.path, gc.file, "")
	if err != nil {
		return err
	}

	analysis, err := pipeline.Analyze(ctx, opts)
	if err != nil {
		return err
	}

	order, err := analysis.Order()

	var cycleErr *depgraph.CycleDetectedError

	switch {
	case errors.As(err, &cycleErr):
		sess.logger.WarnContext(ctx, "graph has a cycle", "cycle", cycleErr.Cycle.String())
	case err != nil:
		return fmt.Errorf("order modules: %w", err)
	}

	return gc.render(cmd.OutOrStdout(), analysis, order, cycleErr)
}

func (gc *GraphCommand) render(w io.Writer, a *pipeline.Analysis, order depgraph.Ordering, cycleErr *depgraph.CycleDetectedError) error {
	switch gc.format {
	case FormatDOT:
		_, err := fmt.Fprint(w, a.Selected.DOT(order))

		return err
	case FormatJSON, FormatYAML:
		m := report.BuildManifest(a.Registry, a.Selected, order, a.Resolution, a.Entry)
		if cycleErr != nil {
			for _, id := range cycleErr.Cycle {
				m.Cycle = append(m.Cycle, string(id))
			}
		}

		if gc.format == FormatJSON {
			return report.WriteJSON(w, m)
		}

		return report.WriteYAML(w, m)
	default:
		var roots []modules.ID
		if a.Entry != "" {
			roots = append(roots, a.Entry)
		}

		return report.WriteTree(w, a.Selected, a.Resolution, report.TreeOptions{
			Color:    colorEnabled(w, gc.global.noColor),
			External: gc.external,
		}, roots...)
	}
}
