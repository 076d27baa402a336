package geofeed

import (
	"log/slog"
	"sort"

	"github.com/malbeclabs/geofeed/internal/registry"
)

// Row is one geofeed line. ISO3166 and City are part of the published layout but are never
// populated from registry data.
type Row struct {
	CIDR    string
	Country string
	ISO3166 string
	City    string
	ASN     string
	NetName string
}

// Record returns the row in column order: CIDR, country, ISO3166, city, ASN, netname.
func (r Row) Record() []string {
	return []string{r.CIDR, r.Country, r.ISO3166, r.City, r.ASN, r.NetName}
}

type Result struct {
	Rows     []Row
	Warnings []*registry.Error
	Matched  int
	Dropped  int
}

// Records converts the rows for a tabular sink.
func (res *Result) Records() [][]string {
	records := make([][]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		records = append(records, row.Record())
	}
	return records
}

type Options struct {
	// Sort orders rows by (ASN, CIDR). Without it rows follow route insertion order.
	Sort bool
}

// Join emits a row for every route whose CIDR has an allocation. Routes without one are dropped
// with a warning.
func Join(log *slog.Logger, routes *registry.RouteTable, allocs *registry.AllocationTable, opts Options) *Result {
	res := &Result{
		Rows: make([]Row, 0, routes.Len()),
	}

	routes.Range(func(cidr, asn string) bool {
		alloc, ok := allocs.Get(cidr)
		if !ok {
			w := registry.NewUnmatchedRouteError(cidr, asn)
			log.Warn("No inetnum found for route", w.LogAttrs()...)
			res.Warnings = append(res.Warnings, w)
			res.Dropped++
			return true
		}

		res.Rows = append(res.Rows, Row{
			CIDR:    cidr,
			Country: alloc.Country,
			ASN:     asn,
			NetName: alloc.NetName,
		})
		res.Matched++
		return true
	})

	if opts.Sort {
		SortRows(res.Rows)
	}

	log.Info("Built geofeed entries",
		slog.Int("rows", len(res.Rows)),
		slog.Int("matched", res.Matched),
		slog.Int("dropped", res.Dropped))

	return res
}

// SortRows orders rows by ASN then CIDR, compared as plain strings.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ASN != rows[j].ASN {
			return rows[i].ASN < rows[j].ASN
		}
		return rows[i].CIDR < rows[j].CIDR
	})
}
