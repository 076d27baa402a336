package pipeline

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/malbeclabs/geofeed/internal/registry"
)

// Report describes a completed (or aborted) run.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool

	Geofeed *GeofeedReport
	PTR     *PTRReport

	Warnings  []*registry.Error
	Files     []string
	Published []string
}

// WarningCounts groups warnings by error type.
func (r *Report) WarningCounts() map[registry.ErrorType]int {
	counts := make(map[registry.ErrorType]int)
	for _, w := range r.Warnings {
		counts[w.Type]++
	}
	return counts
}

// WriteSummary renders the report as a table.
func (r *Report) WriteSummary(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetRowLine(true)
	table.SetHeader([]string{"Table", "Entries", "Detail", "Output"})

	if g := r.Geofeed; g != nil {
		table.Append([]string{"routes", strconv.Itoa(g.Routes), fmt.Sprintf("%d invalid", g.InvalidRoutes), ""})
		table.Append([]string{"inetnums", strconv.Itoa(g.Inetnums), fmt.Sprintf("%d invalid", g.InvalidInetnums), ""})
		table.Append([]string{"geofeed", strconv.Itoa(g.Rows),
			fmt.Sprintf("%d unmatched", g.Dropped), r.output(g.File, g.Diff)})
	}
	if p := r.PTR; p != nil {
		table.Append([]string{"ptr", strconv.Itoa(p.Entries),
			fmt.Sprintf("%d bundled", p.Bundled), r.output(p.File, p.Diff)})
		for _, name := range p.Sources {
			table.Append([]string{"  " + name, strconv.Itoa(p.Added[name]), "added", ""})
		}
	}

	table.Render()

	counts := r.WarningCounts()
	for _, errType := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "%s: %d\n", errType, counts[errType])
	}
}

func (r *Report) output(file, diff string) string {
	if !r.DryRun {
		return file
	}
	if diff == "" {
		return "unchanged"
	}
	return "changed"
}
