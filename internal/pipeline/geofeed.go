package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/malbeclabs/geofeed/internal/exporter"
	"github.com/malbeclabs/geofeed/internal/geofeed"
	"github.com/malbeclabs/geofeed/internal/mmdb"
	"github.com/malbeclabs/geofeed/internal/registry"
)

// GeofeedReport summarises the geofeed half of a run.
type GeofeedReport struct {
	Routes          int
	Inetnums        int
	InvalidRoutes   int
	InvalidInetnums int
	Rows            int
	Dropped         int
	File            string
	MMDB            string
	Diff            string
}

func (r *Runner) buildGeofeed(ctx context.Context, report *Report) error {
	start := r.cfg.Clock.Now()
	settings := r.cfg.Settings

	gr := &GeofeedReport{}
	report.Geofeed = gr

	routes := registry.NewRouteTable()
	for _, dir := range []string{settings.Registry.RouteDir, settings.Registry.Route6Dir} {
		if err := ctx.Err(); err != nil {
			return err
		}
		warnings, err := registry.LoadRoutes(r.log, settings.RegistryPath(dir), routes)
		if err != nil {
			return fmt.Errorf("failed to load routes: %w", err)
		}
		gr.InvalidRoutes += len(warnings)
		appendWarnings(report, warnings)
	}
	r.log.Info("Loaded route objects", slog.Int("routes", routes.Len()))

	allocs := registry.NewAllocationTable()
	for _, dir := range []string{settings.Registry.InetnumDir, settings.Registry.Inet6numDir} {
		if err := ctx.Err(); err != nil {
			return err
		}
		warnings, err := registry.LoadInetnums(r.log, settings.RegistryPath(dir), allocs)
		if err != nil {
			return fmt.Errorf("failed to load inetnums: %w", err)
		}
		gr.InvalidInetnums += len(warnings)
		appendWarnings(report, warnings)
	}
	r.log.Info("Loaded inetnum objects", slog.Int("inetnums", allocs.Len()))

	res := geofeed.Join(r.log, routes, allocs, geofeed.Options{Sort: settings.Output.Sort})
	appendWarnings(report, res.Warnings)

	gr.Routes = routes.Len()
	gr.Inetnums = allocs.Len()
	gr.Rows = len(res.Rows)
	gr.Dropped = res.Dropped

	if r.cfg.DryRun {
		diff, err := exporter.DiffAgainstFile(r.outputDir(), settings.Output.Geofeed, res.Records())
		if err != nil {
			return err
		}
		gr.Diff = diff
		return r.emitDiff(settings.Output.Geofeed, diff)
	}

	file, err := exporter.WriteFile(r.log, r.outputDir(), settings.Output.Geofeed, res.Records())
	if err != nil {
		return fmt.Errorf("failed to write geofeed: %w", err)
	}
	gr.File = file
	report.Files = append(report.Files, file)

	if settings.Output.MMDB != "" {
		path := settings.Output.MMDB
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.outputDir(), path)
		}
		if _, err := mmdb.Write(r.log, path, res.Rows); err != nil {
			return fmt.Errorf("failed to write mmdb: %w", err)
		}
		gr.MMDB = path
		report.Files = append(report.Files, path)
	}

	r.log.Info("Wrote geofeed",
		slog.String("file", file),
		slog.Int("rows", gr.Rows),
		slog.Int("dropped", gr.Dropped),
		slog.Duration("duration", elapsedSince(r.cfg.Clock, start)))
	return nil
}

func (r *Runner) emitDiff(name, diff string) error {
	if diff == "" {
		r.log.Info("No changes", slog.String("file", name))
		return nil
	}
	if _, err := fmt.Fprint(r.cfg.DiffOut, diff); err != nil {
		return fmt.Errorf("failed to write diff for %s: %w", name, err)
	}
	return nil
}
