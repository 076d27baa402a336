package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/geofeed/internal/config"
	"github.com/malbeclabs/geofeed/internal/metrics"
	"github.com/malbeclabs/geofeed/internal/registry"
)

// Opener resolves a reference source location to a reader.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Publisher uploads a produced file and returns where it landed.
type Publisher interface {
	Upload(ctx context.Context, filePath string) (string, error)
}

// Targets selects the tables produced by a run.
type Targets struct {
	Geofeed bool
	PTR     bool
}

type Config struct {
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Opener   Opener
	Settings *config.Config

	// Publisher is optional. Produced files are uploaded when set.
	Publisher Publisher

	// DryRun writes nothing and emits a unified diff per table to DiffOut instead.
	DryRun  bool
	DiffOut io.Writer
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Opener == nil {
		return errors.New("opener is required")
	}
	if c.Settings == nil {
		return errors.New("settings are required")
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if c.DryRun && c.DiffOut == nil {
		return errors.New("diff output is required for dry runs")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Runner executes one generation run at a time. All tables are owned by the run.
type Runner struct {
	log *slog.Logger
	cfg *Config
}

func New(cfg *Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	return &Runner{log: cfg.Logger, cfg: cfg}, nil
}

// Run produces the selected tables. Per-record problems are collected in the report; any I/O
// failure aborts the run and already written outputs are left in place.
func (r *Runner) Run(ctx context.Context, targets Targets) (*Report, error) {
	if !targets.Geofeed && !targets.PTR {
		return nil, errors.New("no targets selected")
	}

	report := &Report{
		StartedAt: r.cfg.Clock.Now(),
		DryRun:    r.cfg.DryRun,
	}
	r.log.Info("Operation started",
		slog.String("operation", "run"),
		slog.Bool("geofeed", targets.Geofeed),
		slog.Bool("ptr", targets.PTR),
		slog.Bool("dry_run", r.cfg.DryRun))

	if targets.Geofeed {
		if err := r.buildGeofeed(ctx, report); err != nil {
			return report, err
		}
	}
	if targets.PTR {
		if err := r.buildPTR(ctx, report); err != nil {
			return report, err
		}
	}

	if r.cfg.Publisher != nil && !r.cfg.DryRun {
		for _, file := range report.Files {
			url, err := r.cfg.Publisher.Upload(ctx, file)
			if err != nil {
				return report, fmt.Errorf("failed to publish %s: %w", file, err)
			}
			report.Published = append(report.Published, url)
		}
	}

	report.Duration = r.cfg.Clock.Since(report.StartedAt)
	r.recordMetrics(report)

	if path := r.cfg.Settings.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			return report, err
		}
	}

	r.log.Info("Operation completed",
		slog.String("operation", "run"),
		slog.Int("files", len(report.Files)),
		slog.Int("warnings", len(report.Warnings)),
		slog.Duration("duration", report.Duration))

	return report, nil
}

func (r *Runner) recordMetrics(report *Report) {
	for _, w := range report.Warnings {
		metrics.WarningsTotal.WithLabelValues(string(w.Type)).Inc()
	}
	if report.Geofeed != nil {
		metrics.TableEntries.WithLabelValues(metrics.TableRoutes).Set(float64(report.Geofeed.Routes))
		metrics.TableEntries.WithLabelValues(metrics.TableInetnums).Set(float64(report.Geofeed.Inetnums))
		metrics.TableEntries.WithLabelValues(metrics.TableGeofeed).Set(float64(report.Geofeed.Rows))
	}
	if report.PTR != nil {
		metrics.TableEntries.WithLabelValues(metrics.TablePTR).Set(float64(report.PTR.Entries))
		for name, n := range report.PTR.Added {
			metrics.AirportsAddedTotal.WithLabelValues(name).Add(float64(n))
		}
	}
	metrics.LastRunTimestamp.Set(float64(r.cfg.Clock.Now().Unix()))
	metrics.LastRunDuration.Set(report.Duration.Seconds())
}

func (r *Runner) outputDir() string {
	return r.cfg.Settings.Output.Dir
}

// sourceName labels a reference location by its base name without extensions, so
// "reference/airports.csv.gz" becomes "airports".
func sourceName(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	name := filepath.Base(location)
	for ext := filepath.Ext(name); ext != "" && ext != name; ext = filepath.Ext(name) {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func elapsedSince(clock clockwork.Clock, start time.Time) time.Duration {
	return clock.Since(start).Round(time.Millisecond)
}

func appendWarnings(report *Report, warnings []*registry.Error) {
	report.Warnings = append(report.Warnings, warnings...)
}
