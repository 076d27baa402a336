package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	TableRoutes   = "routes"
	TableInetnums = "inetnums"
	TableGeofeed  = "geofeed"
	TablePTR      = "ptr"
)

var (
	// Build information metric
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "geofeed_build_info",
		Help: "Build information of the geofeed builder",
	}, []string{"version", "commit", "date"})

	ObjectsParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeed_registry_objects_parsed_total",
		Help: "Total number of registry objects parsed, by object directory",
	}, []string{"dir"})

	WarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeed_warnings_total",
		Help: "Total number of recoverable problems, by error type",
	}, []string{"error_type"})

	TableEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "geofeed_table_entries",
		Help: "Number of entries in each table after the last run",
	}, []string{"table"})

	AirportsAddedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofeed_airports_added_total",
		Help: "Total number of airport/city codes contributed, by source",
	}, []string{"source"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "geofeed_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run",
	})

	LastRunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "geofeed_last_run_duration_seconds",
		Help: "Wall clock duration of the last completed run",
	})
)

// WriteTextfile dumps the default registry in the node_exporter textfile collector format.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
