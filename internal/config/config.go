package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const envPrefix = "GEOFEED_"

// DefaultAirportDataset is the full airport dataset, a JSON object keyed by ICAO code.
const DefaultAirportDataset = "https://raw.githubusercontent.com/mwgg/Airports/refs/heads/master/airports.json"

// Config represents the complete configuration for a geofeed run.
type Config struct {
	Registry RegistryConfig `toml:"registry" yaml:"registry"`
	Airports AirportsConfig `toml:"airports" yaml:"airports"`
	Output   OutputConfig   `toml:"output" yaml:"output"`
	Publish  PublishConfig  `toml:"publish" yaml:"publish"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics"`
}

// RegistryConfig locates the object directories of a registry checkout. Relative object
// directories are resolved against Dir.
type RegistryConfig struct {
	Dir         string `toml:"dir" yaml:"dir"`
	RouteDir    string `toml:"route_dir" yaml:"route_dir"`
	Route6Dir   string `toml:"route6_dir" yaml:"route6_dir"`
	InetnumDir  string `toml:"inetnum_dir" yaml:"inetnum_dir"`
	Inet6numDir string `toml:"inet6num_dir" yaml:"inet6num_dir"`
}

// AirportsConfig lists the PTR table inputs. Sources are merged in order after the bundled
// dataset; each is a file path or an http(s) URL. Dataset is the location of the full
// airport JSON used as the bundled dataset; when empty the compiled-in snapshot is used.
type AirportsConfig struct {
	Bundled bool     `toml:"bundled" yaml:"bundled"`
	Dataset string   `toml:"dataset" yaml:"dataset"`
	Sources []string `toml:"sources" yaml:"sources"`
}

type OutputConfig struct {
	Dir     string `toml:"dir" yaml:"dir"`
	Geofeed string `toml:"geofeed" yaml:"geofeed"`
	PTR     string `toml:"ptr" yaml:"ptr"`
	// MMDB enables the MaxMind DB rendition of the geofeed when set.
	MMDB string `toml:"mmdb" yaml:"mmdb"`
	Sort bool   `toml:"sort" yaml:"sort"`
}

// PublishConfig contains S3 upload configuration.
type PublishConfig struct {
	Enabled          bool    `toml:"enabled" yaml:"enabled"`
	Region           string  `toml:"region" yaml:"region"`
	Bucket           string  `toml:"bucket" yaml:"bucket"`
	AccessKeyID      string  `toml:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey  string  `toml:"secret_access_key" yaml:"secret_access_key"`
	EndpointURL      *string `toml:"endpoint_url,omitempty" yaml:"endpoint_url,omitempty"`
	KeyPrefix        *string `toml:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	TimestampFormat  string  `toml:"timestamp_format" yaml:"timestamp_format"`
	EnableEncryption bool    `toml:"enable_encryption" yaml:"enable_encryption"`
	VerifyUpload     bool    `toml:"verify_upload" yaml:"verify_upload"`
}

type MetricsConfig struct {
	Textfile string `toml:"textfile" yaml:"textfile"`
}

// TimestampFormat represents the supported timestamp formats for published keys.
type TimestampFormat int

const (
	TimestampFormatISO8601 TimestampFormat = iota
	TimestampFormatUnix
	TimestampFormatNone
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			Dir:         "registry",
			RouteDir:    "data/route",
			Route6Dir:   "data/route6",
			InetnumDir:  "data/inetnum",
			Inet6numDir: "data/inet6num",
		},
		Airports: AirportsConfig{
			Bundled: true,
			Dataset: DefaultAirportDataset,
			Sources: []string{"reference/airports.csv", "reference/citycodes.csv"},
		},
		Output: OutputConfig{
			Dir:     ".",
			Geofeed: "geofeed.csv",
			PTR:     "ptr.csv",
			Sort:    true,
		},
		Publish: PublishConfig{
			TimestampFormat:  "iso8601",
			EnableEncryption: true,
			VerifyUpload:     true,
		},
	}
}

// Load loads configuration from a YAML or TOML file, environment variables, and applies defaults.
// Priority: CLI flags > Environment variables > Config file > Defaults
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		switch strings.ToLower(filepath.Ext(configPath)) {
		case ".toml":
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse TOML config: %w", err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config file extension: %s", configPath)
		}
	}

	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v == "true" || v == "1"
		}
	}
	setOptional := func(name string, dst **string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = &v
		}
	}

	setString("REGISTRY_DIR", &c.Registry.Dir)
	setString("REGISTRY_ROUTE_DIR", &c.Registry.RouteDir)
	setString("REGISTRY_ROUTE6_DIR", &c.Registry.Route6Dir)
	setString("REGISTRY_INETNUM_DIR", &c.Registry.InetnumDir)
	setString("REGISTRY_INET6NUM_DIR", &c.Registry.Inet6numDir)

	setBool("AIRPORTS_BUNDLED", &c.Airports.Bundled)
	if v, ok := os.LookupEnv(envPrefix + "AIRPORTS_DATASET"); ok {
		c.Airports.Dataset = strings.TrimSpace(v)
	}
	if v := os.Getenv(envPrefix + "AIRPORTS_SOURCES"); v != "" {
		var sources []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}
		c.Airports.Sources = sources
	}

	setString("OUTPUT_DIR", &c.Output.Dir)
	setString("OUTPUT_GEOFEED", &c.Output.Geofeed)
	setString("OUTPUT_PTR", &c.Output.PTR)
	setString("OUTPUT_MMDB", &c.Output.MMDB)
	setBool("OUTPUT_SORT", &c.Output.Sort)

	setBool("PUBLISH_ENABLED", &c.Publish.Enabled)
	setString("PUBLISH_REGION", &c.Publish.Region)
	setString("PUBLISH_BUCKET", &c.Publish.Bucket)
	setString("PUBLISH_ACCESS_KEY_ID", &c.Publish.AccessKeyID)
	setString("PUBLISH_SECRET_ACCESS_KEY", &c.Publish.SecretAccessKey)
	setOptional("PUBLISH_ENDPOINT_URL", &c.Publish.EndpointURL)
	setOptional("PUBLISH_KEY_PREFIX", &c.Publish.KeyPrefix)
	setString("PUBLISH_TIMESTAMP_FORMAT", &c.Publish.TimestampFormat)
	setBool("PUBLISH_ENABLE_ENCRYPTION", &c.Publish.EnableEncryption)
	setBool("PUBLISH_VERIFY_UPLOAD", &c.Publish.VerifyUpload)

	setString("METRICS_TEXTFILE", &c.Metrics.Textfile)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Registry.Dir == "" {
		return fmt.Errorf("registry dir cannot be empty")
	}
	for name, dir := range map[string]string{
		"route_dir":    c.Registry.RouteDir,
		"route6_dir":   c.Registry.Route6Dir,
		"inetnum_dir":  c.Registry.InetnumDir,
		"inet6num_dir": c.Registry.Inet6numDir,
	} {
		if dir == "" {
			return fmt.Errorf("registry %s cannot be empty", name)
		}
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.Output.Geofeed == "" {
		return fmt.Errorf("output geofeed file name cannot be empty")
	}
	if c.Output.PTR == "" {
		return fmt.Errorf("output ptr file name cannot be empty")
	}

	if c.Publish.Enabled {
		if c.Publish.Region == "" {
			return fmt.Errorf("publish region cannot be empty")
		}
		if c.Publish.Bucket == "" {
			return fmt.Errorf("publish bucket cannot be empty")
		}
		if c.Publish.AccessKeyID == "" {
			return fmt.Errorf("publish access_key_id cannot be empty")
		}
		if c.Publish.SecretAccessKey == "" {
			return fmt.Errorf("publish secret_access_key cannot be empty")
		}
		switch c.Publish.TimestampFormat {
		case "iso8601", "unix", "none":
		default:
			return fmt.Errorf("invalid timestamp format: %s. Must be 'iso8601', 'unix' or 'none'", c.Publish.TimestampFormat)
		}
	}

	return nil
}

// ApplyOverrides applies CLI flag overrides to the configuration.
func (c *Config) ApplyOverrides(registryDir, outputDir, metricsTextfile *string) {
	if registryDir != nil && *registryDir != "" {
		c.Registry.Dir = *registryDir
	}
	if outputDir != nil && *outputDir != "" {
		c.Output.Dir = *outputDir
	}
	if metricsTextfile != nil && *metricsTextfile != "" {
		c.Metrics.Textfile = *metricsTextfile
	}
}

// RegistryPath resolves one of the object directories against the registry root.
func (c *Config) RegistryPath(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Registry.Dir, dir)
}

// GetTimestampFormat returns the parsed TimestampFormat enum.
func (c *Config) GetTimestampFormat() TimestampFormat {
	return ParseTimestampFormat(c.Publish.TimestampFormat)
}

// ParseTimestampFormat maps a configured format name to its enum, defaulting to ISO8601.
func ParseTimestampFormat(s string) TimestampFormat {
	switch s {
	case "unix":
		return TimestampFormatUnix
	case "none":
		return TimestampFormatNone
	default:
		return TimestampFormatISO8601
	}
}
