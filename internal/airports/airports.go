package airports

import (
	"log/slog"
	"sort"
)

// Entry is one row of the PTR table.
type Entry struct {
	Code    string
	Country string
	Region  string
	City    string
}

// Record returns the entry in column order: code, country, state/region, city.
func (e Entry) Record() []string {
	return []string{e.Code, e.Country, e.Region, e.City}
}

// Source is a named list of entries fed to Merge.
type Source struct {
	Name    string
	Entries []Entry
}

// Table is the merged code table. The first source to provide a code owns it.
type Table struct {
	byCode map[string]Entry
}

func NewTable() *Table {
	return &Table{byCode: make(map[string]Entry)}
}

func (t *Table) Len() int {
	return len(t.byCode)
}

func (t *Table) Get(code string) (Entry, bool) {
	e, ok := t.byCode[code]
	return e, ok
}

// Put stores e and reports whether it was added. An existing code is never overwritten.
func (t *Table) Put(e Entry) bool {
	if _, ok := t.byCode[e.Code]; ok {
		return false
	}
	t.byCode[e.Code] = e
	return true
}

// Sorted returns every entry ordered by code.
func (t *Table) Sorted() []Entry {
	entries := make([]Entry, 0, len(t.byCode))
	for _, e := range t.byCode {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Code < entries[j].Code
	})
	return entries
}

// Records returns the sorted table for a tabular sink.
func (t *Table) Records() [][]string {
	sorted := t.Sorted()
	records := make([][]string, 0, len(sorted))
	for _, e := range sorted {
		records = append(records, e.Record())
	}
	return records
}

type MergeResult struct {
	Table *Table
	// Bundled is the number of entries taken from the bundled dataset.
	Bundled int
	// Added counts entries contributed by the reference sources, per source name.
	Added map[string]int
}

// TotalAdded is the number of codes contributed by reference sources combined.
func (r *MergeResult) TotalAdded() int {
	total := 0
	for _, n := range r.Added {
		total += n
	}
	return total
}

// Merge builds the table from the bundled dataset followed by each reference source in order.
// A reference entry is only inserted if its code is not already present, including codes added by
// an earlier reference source.
func Merge(log *slog.Logger, bundled []Entry, sources ...Source) *MergeResult {
	res := &MergeResult{
		Table: NewTable(),
		Added: make(map[string]int, len(sources)),
	}

	for _, e := range bundled {
		if res.Table.Put(e) {
			res.Bundled++
		}
	}

	for _, src := range sources {
		added := 0
		for _, e := range src.Entries {
			if res.Table.Put(e) {
				added++
			}
		}
		res.Added[src.Name] += added
		log.Debug("Merged airport reference source",
			slog.String("source", src.Name),
			slog.Int("rows", len(src.Entries)),
			slog.Int("added", added))
	}

	log.Info("Added new entries from reference sources",
		slog.Int("added", res.TotalAdded()),
		slog.Int("bundled", res.Bundled),
		slog.Int("total", res.Table.Len()))

	return res
}
