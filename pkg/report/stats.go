package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/pybundle/pkg/bundle"
	"github.com/Sumatoshi-tech/pybundle/pkg/cache"
	"github.com/Sumatoshi-tech/pybundle/pkg/safeconv"
)

// Summary is everything the statistics table shows about one run.
type Summary struct {
	Output   string
	Bundle   bundle.Stats
	Edges    int
	Warnings int
	Cache    cache.Stats
	Duration time.Duration
}

// WriteStats prints s as a two-column table.
func WriteStats(w io.Writer, s Summary) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateHeader = false

	if s.Output != "" {
		tbl.SetTitle(s.Output)
	}

	tbl.AppendRows([]table.Row{
		{"Modules", s.Bundle.Modules},
		{"Internal edges", s.Edges},
		{"Stdlib imports", s.Bundle.StdlibImports},
		{"Third-party imports", s.Bundle.ThirdPartyImports},
		{"Rewritten imports", s.Bundle.RemovedImports},
		{"Bindings", s.Bundle.Bindings},
		{"Stripped main guards", s.Bundle.StrippedGuards},
		{"Unresolved imports", s.Warnings},
	})
	tbl.AppendSeparator()
	tbl.AppendRows([]table.Row{
		{"Source lines", humanize.Comma(int64(s.Bundle.SourceLines))},
		{"Bundle lines", humanize.Comma(int64(s.Bundle.BundleLines))},
		{"Source size", humanize.IBytes(safeconv.MustToUint64(s.Bundle.SourceBytes))},
		{"Bundle size", humanize.IBytes(safeconv.MustToUint64(s.Bundle.BundleBytes))},
		{"Size delta", SizeDelta(s.Bundle.SourceBytes, s.Bundle.BundleBytes)},
	})
	tbl.AppendSeparator()
	tbl.AppendRows([]table.Row{
		{"Cache hits", fmt.Sprintf("%d memory, %d disk", s.Cache.Hits, s.Cache.DiskHits)},
		{"Cache misses", s.Cache.Misses},
		{"Time", s.Duration.Round(time.Millisecond).String()},
	})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write stats: %w", err)
	}

	return nil
}

// SizeDelta renders the growth from source to bundle, signed.
func SizeDelta(source, bundled int) string {
	delta := bundled - source

	switch {
	case delta > 0:
		return "+" + humanize.IBytes(safeconv.Abs(delta))
	case delta < 0:
		return "-" + humanize.IBytes(safeconv.Abs(delta))
	default:
		return "0 B"
	}
}
