package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/malbeclabs/geofeed/internal/config"
	"github.com/malbeclabs/geofeed/internal/logging"
	"github.com/malbeclabs/geofeed/internal/metrics"
	"github.com/malbeclabs/geofeed/internal/mmdb"
	"github.com/malbeclabs/geofeed/internal/pipeline"
	"github.com/malbeclabs/geofeed/internal/publish"
	"github.com/malbeclabs/geofeed/internal/source"
)

const defaultLogLevel = "info"

var (
	configPath      string
	logLevel        string
	verbose         bool
	registryDir     string
	outputDir       string
	metricsTextfile string
	dryRun          bool
	summary         bool

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "geofeed",
	Short: "Registry geofeed and PTR table builder",
	Long: `geofeed joins the route and inetnum objects of a registry checkout into a
geofeed table, and merges airport/city reference data into a PTR location table.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("geofeed %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build both the geofeed and the PTR table",
	Run: func(cmd *cobra.Command, args []string) {
		runTargets(pipeline.Targets{Geofeed: true, PTR: true})
	},
}

var geofeedCmd = &cobra.Command{
	Use:   "geofeed",
	Short: "Build only the geofeed table",
	Run: func(cmd *cobra.Command, args []string) {
		runTargets(pipeline.Targets{Geofeed: true})
	},
}

var ptrCmd = &cobra.Command{
	Use:   "ptr",
	Short: "Build only the PTR location table",
	Run: func(cmd *cobra.Command, args []string) {
		runTargets(pipeline.Targets{PTR: true})
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <mmdb> <ip>",
	Short: "Look up an address in a generated MaxMind DB",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger()
		if err := lookup(os.Stdout, args[0], args[1]); err != nil {
			log.Error("Operation failed: lookup", slog.String("error", err.Error()), slog.String("ip", args[1]))
			os.Exit(1)
		}
	},
}

var errNotFound = errors.New("address not found")

// lookup prints the record covering ip in the database at path. The reader is
// closed before returning so callers may exit on error.
func lookup(w io.Writer, path, addr string) error {
	ip := net.ParseIP(addr)
	if ip == nil {
		return fmt.Errorf("invalid IP address %q", addr)
	}

	r, err := mmdb.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer r.Close()

	rec, network, ok, err := r.Lookup(ip)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(w, "%s: not found\n", ip)
		return errNotFound
	}
	fmt.Fprintf(w, "%s\tnetwork=%s country=%s origin=%s netname=%s\n",
		ip, network, rec.Country.ISOCode, rec.OriginLabel, rec.ASNOrg)
	return nil
}

func newLogger() *slog.Logger {
	log, err := logging.New(os.Stderr, logging.LogLevel(logLevel), verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return log
}

func runTargets(targets pipeline.Targets) {
	log := newLogger()
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	settings, err := config.Load(configPath)
	if err != nil {
		log.Error("Operation failed: load_config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	settings.ApplyOverrides(&registryDir, &outputDir, &metricsTextfile)

	opener, err := source.NewOpener(source.Config{Logger: log})
	if err != nil {
		log.Error("Operation failed: new_opener", slog.String("error", err.Error()))
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	cfg := &pipeline.Config{
		Logger:   log,
		Clock:    clock,
		Opener:   opener,
		Settings: settings,
		DryRun:   dryRun,
		DiffOut:  os.Stdout,
	}

	if settings.Publish.Enabled && !dryRun {
		if err := settings.Validate(); err != nil {
			log.Error("Operation failed: validate_config", slog.String("error", err.Error()))
			os.Exit(1)
		}
		client, err := publish.NewClient(ctx, log, settings.Publish)
		if err != nil {
			log.Error("Operation failed: new_s3_client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		publisher, err := publish.New(&publish.Config{
			Logger:  log,
			Clock:   clock,
			Client:  client,
			Publish: settings.Publish,
		})
		if err != nil {
			log.Error("Operation failed: new_publisher", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg.Publisher = publisher
	}

	runner, err := pipeline.New(cfg)
	if err != nil {
		log.Error("Operation failed: new_pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	report, err := runner.Run(ctx, targets)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("Operation cancelled by signal")
			os.Exit(1)
		}
		log.Error("Operation failed: run", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if summary {
		report.WriteSummary(os.Stdout)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging with source locations")
	rootCmd.PersistentFlags().StringVar(&registryDir, "registry-dir", "", "Registry checkout root (overrides config)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "Directory for generated tables (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print a diff of what would change without writing anything")
	rootCmd.PersistentFlags().BoolVar(&summary, "summary", false, "Print a summary table after the run")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write run metrics to this node_exporter textfile")

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(geofeedCmd)
	rootCmd.AddCommand(ptrCmd)
	rootCmd.AddCommand(lookupCmd)
}

func main() {
	// Add version command last so it appears after auto-generated commands
	rootCmd.AddCommand(versionCmd)

	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
