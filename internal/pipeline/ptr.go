package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/geofeed/internal/airports"
	"github.com/malbeclabs/geofeed/internal/exporter"
)

// PTRReport summarises the airport/city half of a run.
type PTRReport struct {
	Entries int
	Bundled int
	// Added is keyed by reference source name, in configuration order in Sources.
	Added   map[string]int
	Sources []string
	File    string
	Diff    string
}

func (r *Runner) buildPTR(ctx context.Context, report *Report) error {
	start := r.cfg.Clock.Now()
	settings := r.cfg.Settings

	var bundled []airports.Entry
	if settings.Airports.Bundled {
		var err error
		bundled, err = r.loadBundled(ctx, settings.Airports.Dataset)
		if err != nil {
			return err
		}
	}

	sources := make([]airports.Source, 0, len(settings.Airports.Sources))
	seen := make(map[string]struct{}, len(settings.Airports.Sources))
	for i, location := range settings.Airports.Sources {
		name := sourceName(location)
		if _, ok := seen[name]; ok {
			name = fmt.Sprintf("%s-%d", name, i+1)
		}
		seen[name] = struct{}{}

		src, err := r.readSource(ctx, name, location)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	res := airports.Merge(r.log, bundled, sources...)

	pr := &PTRReport{
		Entries: res.Table.Len(),
		Bundled: res.Bundled,
		Added:   res.Added,
	}
	for _, src := range sources {
		pr.Sources = append(pr.Sources, src.Name)
	}
	report.PTR = pr

	records := res.Table.Records()
	if r.cfg.DryRun {
		diff, err := exporter.DiffAgainstFile(r.outputDir(), settings.Output.PTR, records)
		if err != nil {
			return err
		}
		pr.Diff = diff
		return r.emitDiff(settings.Output.PTR, diff)
	}

	file, err := exporter.WriteFile(r.log, r.outputDir(), settings.Output.PTR, records)
	if err != nil {
		return fmt.Errorf("failed to write ptr table: %w", err)
	}
	pr.File = file
	report.Files = append(report.Files, file)

	r.log.Info("Wrote ptr table",
		slog.String("file", file),
		slog.Int("entries", pr.Entries),
		slog.Duration("duration", elapsedSince(r.cfg.Clock, start)))
	return nil
}

// loadBundled reads the full airport dataset at location, or the compiled-in snapshot
// when location is empty.
func (r *Runner) loadBundled(ctx context.Context, location string) ([]airports.Entry, error) {
	if location == "" {
		entries, err := airports.LoadBundled()
		if err != nil {
			return nil, fmt.Errorf("failed to load bundled airports: %w", err)
		}
		return entries, nil
	}

	rc, err := r.cfg.Opener.Open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to open airport dataset: %w", err)
	}
	defer rc.Close()

	entries, err := airports.LoadDataset(r.log, rc)
	if err != nil {
		return nil, fmt.Errorf("failed to load airport dataset %s: %w", location, err)
	}
	r.log.Info("Loaded airport dataset", slog.String("location", location), slog.Int("entries", len(entries)))
	return entries, nil
}

func (r *Runner) readSource(ctx context.Context, name, location string) (airports.Source, error) {
	rc, err := r.cfg.Opener.Open(ctx, location)
	if err != nil {
		return airports.Source{}, fmt.Errorf("failed to open %s source: %w", name, err)
	}
	defer rc.Close()

	entries, err := airports.ReadReference(r.log, name, rc)
	if err != nil {
		return airports.Source{}, fmt.Errorf("failed to read %s source: %w", name, err)
	}
	return airports.Source{Name: name, Entries: entries}, nil
}
