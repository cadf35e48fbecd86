package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pybundle/pkg/depgraph"
	"github.com/Sumatoshi-tech/pybundle/pkg/pipeline"
	"github.com/Sumatoshi-tech/pybundle/pkg/report"
)

// ErrBundleOutdated is returned by --check when the output differs from a fresh bundle.
var ErrBundleOutdated = errors.New("bundle is out of date")

const (
	rootCmdUse   = "pybundle"
	rootCmdShort = "Bundle a multi-file Python project into one script"
	rootCmdLong  = `pybundle merges the modules reachable from an entry file into a single
Python script, ordered so every module is defined before it is used.

Commands:
  graph     Print the module dependency graph
  version   Show version information`
)

// BundleCommand holds the flags of the root bundling command.
type BundleCommand struct {
	global globalFlags

	file           string
	output         string
	strict         bool
	all            bool
	check          bool
	keepMainGuards bool
	timestamp      bool
	stats          bool
}

// NewRootCommand creates the pybundle command tree.
func NewRootCommand() *cobra.Command {
	bc := &BundleCommand{}

	cmd := &cobra.Command{
		Use:           rootCmdUse + " -f <entry> -o <output>",
		Short:         rootCmdShort,
		Long:          rootCmdLong,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          bc.run,
	}

	bc.global.register(cmd.PersistentFlags())

	cmd.Flags().StringVarP(&bc.file, flagFile, "f", "", "Entry Python file, relative to --path")
	cmd.Flags().StringVarP(&bc.output, "output", "o", "", "Bundle output path")
	cmd.Flags().BoolVar(&bc.strict, "strict", false, "Fail on imports that cannot be resolved")
	cmd.Flags().BoolVar(&bc.all, flagAll, false, "Bundle every module, not only those reachable from the entry")
	cmd.Flags().BoolVar(&bc.check, "check", false, "Compare with the existing output and fail if it differs")
	cmd.Flags().BoolVar(&bc.keepMainGuards, "keep-main-guards", false, "Keep if __name__ == '__main__' blocks of non-entry modules")
	cmd.Flags().BoolVar(&bc.timestamp, "timestamp", false, "Record the generation time in the header")
	cmd.Flags().BoolVar(&bc.stats, "stats", false, "Print bundle statistics")

	_ = cmd.MarkFlagRequired(flagFile)
	_ = cmd.MarkFlagRequired("output")

	cmd.AddCommand(newGraphCommand(&bc.global))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func (bc *BundleCommand) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx, cmd, &bc.global)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	if bc.keepMainGuards {
		sess.cfg.Bundle.StripMainGuards = false
	}

	opts, err := sess.options(bc.global.path, bc.file, bc.output)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		var cycleErr *depgraph.CycleDetectedError
		if errors.As(err, &cycleErr) {
			sess.logger.ErrorContext(ctx, "circular import", "cycle", cycleErr.Cycle.String())
		}

		return err
	}

	if bc.check {
		err = bc.checkOutput(cmd, res)
	} else {
		err = pipeline.WriteOutput(ctx, bc.output, res.Bundle.Source)
		if err == nil {
			sess.logger.InfoContext(ctx, "bundle written", "output", bc.output,
				"modules", len(res.Order), "warnings", len(res.Resolution.Warnings))
		}
	}

	if err != nil {
		return err
	}

	return bc.printDetails(cmd, res)
}

func (bc *BundleCommand) checkOutput(cmd *cobra.Command, res *pipeline.Result) error {
	existing, ok, err := pipeline.ReadOutput(cmd.Context(), bc.output)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %s does not exist", ErrBundleOutdated, bc.output)
	}

	diff := report.Diff(existing, res.Bundle.Source, report.DiffOptions{
		OldName: bc.output,
		Color:   colorEnabled(cmd.OutOrStdout(), bc.global.noColor),
	})
	if diff == "" {
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), diff)

	return fmt.Errorf("%w: %s", ErrBundleOutdated, bc.output)
}

func (bc *BundleCommand) printDetails(cmd *cobra.Command, res *pipeline.Result) error {
	out := cmd.OutOrStdout()

	if bc.global.verbose {
		err := report.WriteTree(out, res.Selected, res.Resolution, report.TreeOptions{
			Color: colorEnabled(out, bc.global.noColor),
		}, res.Entry)
		if err != nil {
			return fmt.Errorf("write tree: %w", err)
		}
	}

	if !bc.stats {
		return nil
	}

	return report.WriteStats(out, report.Summary{
		Output:   bc.output,
		Bundle:   res.Bundle.Stats,
		Edges:    res.Selected.EdgeCount(),
		Warnings: len(res.Resolution.Warnings),
		Cache:    res.Cache,
		Duration: res.Duration,
	})
}
