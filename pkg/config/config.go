// Package config handles loading and managing livemeasure configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/livemeasure/livemeasure/pkg/rating"
)

// Config is the top-level configuration for livemeasure.
type Config struct {
	Rating   RatingConfig   `yaml:"rating"`
	Engine   EngineConfig   `yaml:"engine"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	GitHub   GitHubConfig   `yaml:"github"`
}

// RatingConfig controls the maintainability rating.
type RatingConfig struct {
	// Grid holds the debt density upper bounds of grades A to D.
	Grid []float64 `yaml:"grid"`
}

// EngineConfig controls the computation.
type EngineConfig struct {
	NewCode bool `yaml:"new_code"`
}

// StorageConfig selects where analysis inputs and reports live.
type StorageConfig struct {
	Backend  string `yaml:"backend"` // local, s3 or gcs
	Path     string `yaml:"path"`    // local backend root
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // S3-compatible endpoint, e.g. MinIO
	Prefix   string `yaml:"prefix"`   // S3 key prefix

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// DatabaseConfig selects the measure store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite
	URL    string `yaml:"url"`
}

// ServerConfig controls the daemon.
type ServerConfig struct {
	Port      string `yaml:"port"`
	APIKey    string `yaml:"api_key"`
	CacheSize int    `yaml:"cache_size"`

	// WebhookSecret enables the signed event endpoint.
	WebhookSecret string `yaml:"webhook_secret"`
	// Concurrency bounds bulk recomputation.
	Concurrency int `yaml:"concurrency"`
}

// GitHubConfig enables check run publishing through a GitHub App.
type GitHubConfig struct {
	AppID          int64  `yaml:"app_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	BaseURL        string `yaml:"base_url"`
}

// Enabled reports whether check runs should be published.
func (g GitHubConfig) Enabled() bool {
	return g.AppID != 0 && g.PrivateKeyPath != ""
}

// Storage backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Rating: RatingConfig{
			Grid: []float64{0.05, 0.1, 0.2, 0.5},
		},
		Engine: EngineConfig{
			NewCode: true,
		},
		Storage: StorageConfig{
			Backend: BackendLocal,
			Path:    "./data",
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			URL:    "livemeasure.db",
		},
		Server: ServerConfig{
			Port:        "8080",
			CacheSize:   64,
			Concurrency: 4,
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values a YAML file may have set.
func (c *Config) Validate() error {
	if _, err := c.Grid(); err != nil {
		return fmt.Errorf("rating: %w", err)
	}
	switch c.Storage.Backend {
	case BackendLocal:
	case BackendS3, BackendGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage: %s backend requires a bucket", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("server: cache_size must not be negative")
	}
	if c.Server.Concurrency < 0 {
		return fmt.Errorf("server: concurrency must not be negative")
	}
	if (c.GitHub.AppID != 0) != (c.GitHub.PrivateKeyPath != "") {
		return fmt.Errorf("github: app_id and private_key_path must be set together")
	}
	return nil
}

// Grid returns the configured debt rating grid.
func (c *Config) Grid() (rating.Grid, error) {
	return rating.NewGrid(c.Rating.Grid)
}

// FindConfigFile looks for .livemeasure/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".livemeasure", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// CacheDir returns the cache directory for a given project path.
// Uses ~/.cache/livemeasure/<project-slug>/ to avoid polluting the project.
func CacheDir(projectPath string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "livemeasure", projectSlug(projectPath))
}

// MeasureDir returns where the CLI keeps the measures of previous passes.
func MeasureDir(projectPath string) string {
	return filepath.Join(CacheDir(projectPath), "measures")
}

// projectSlug creates a filesystem-safe identifier from a project path.
// Uses the last two path components (e.g., "user_myrepo" from "/home/user/myrepo").
func projectSlug(projectPath string) string {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		abs = projectPath
	}
	dir := filepath.Base(filepath.Dir(abs))
	base := filepath.Base(abs)
	return dir + "_" + base
}
