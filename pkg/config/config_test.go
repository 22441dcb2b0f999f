package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/livemeasure/livemeasure/pkg/rating"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	grid, err := cfg.Grid()
	if err != nil {
		t.Fatalf("default grid: %v", err)
	}
	if grid != rating.DefaultGrid {
		t.Errorf("expected default grid %v, got %v", rating.DefaultGrid, grid)
	}
	if !cfg.Engine.NewCode {
		t.Error("expected new code enabled by default")
	}
	if cfg.Storage.Backend != BackendLocal {
		t.Errorf("expected local storage, got %q", cfg.Storage.Backend)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid YAML overrides defaults",
			yaml: `
rating:
  grid: [0.1, 0.2, 0.3, 0.4]
engine:
  new_code: false
storage:
  backend: s3
  bucket: measures
  region: eu-west-1
database:
  driver: postgres
  url: postgres://localhost/livemeasure
server:
  port: "9090"
  cache_size: 8
  webhook_secret: shh
github:
  app_id: 12
  private_key_path: /etc/livemeasure/app.pem
`,
			check: func(t *testing.T, cfg *Config) {
				grid, err := cfg.Grid()
				if err != nil {
					t.Fatalf("grid: %v", err)
				}
				if grid.ForDensity(0.15) != rating.B {
					t.Errorf("expected 0.15 to be B on the configured grid, got %s", grid.ForDensity(0.15))
				}
				if cfg.Engine.NewCode {
					t.Error("expected new code disabled")
				}
				if cfg.Storage.Bucket != "measures" || cfg.Storage.Region != "eu-west-1" {
					t.Errorf("unexpected storage %+v", cfg.Storage)
				}
				if cfg.Database.Driver != DriverPostgres {
					t.Errorf("expected postgres, got %q", cfg.Database.Driver)
				}
				if cfg.Server.Port != "9090" || cfg.Server.CacheSize != 8 || cfg.Server.WebhookSecret != "shh" {
					t.Errorf("unexpected server %+v", cfg.Server)
				}
				if !cfg.GitHub.Enabled() {
					t.Error("expected check run publishing enabled")
				}
			},
		},
		{
			name: "partial YAML keeps other defaults",
			yaml: `
engine:
  new_code: false
`,
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Rating.Grid) != 4 {
					t.Errorf("expected default grid, got %v", cfg.Rating.Grid)
				}
				if cfg.Storage.Backend != BackendLocal {
					t.Errorf("expected local storage, got %q", cfg.Storage.Backend)
				}
				if cfg.GitHub.Enabled() {
					t.Error("expected check run publishing disabled by default")
				}
			},
		},
		{
			name:    "descending grid",
			yaml:    "rating:\n  grid: [0.5, 0.2, 0.1, 0.05]\n",
			wantErr: true,
		},
		{
			name:    "short grid",
			yaml:    "rating:\n  grid: [0.1]\n",
			wantErr: true,
		},
		{
			name:    "bucket required",
			yaml:    "storage:\n  backend: gcs\n",
			wantErr: true,
		},
		{
			name:    "unknown driver",
			yaml:    "database:\n  driver: mysql\n",
			wantErr: true,
		},
		{
			name:    "github app without key",
			yaml:    "github:\n  app_id: 3\n",
			wantErr: true,
		},
		{
			name:    "invalid YAML returns error",
			yaml:    "{{invalid yaml",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatalf("write test config: %v", err)
			}

			cfg, err := Load(path)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.check != nil {
				tc.check(t, cfg)
			}
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Engine.NewCode {
		t.Error("expected default config")
	}
}

func TestMeasureDir(t *testing.T) {
	dir := MeasureDir("/home/alice/repos/myproject")
	want := filepath.Join("repos_myproject", "measures")
	if !strings.HasSuffix(dir, want) {
		t.Errorf("MeasureDir should end with %q, got %q", want, dir)
	}
	if !strings.Contains(dir, filepath.Join(".cache", "livemeasure")) {
		t.Errorf("MeasureDir should live under the livemeasure cache, got %q", dir)
	}
}

func TestProjectSlug(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "normal path", path: "/home/user/workspace/myrepo", want: "workspace_myrepo"},
		{name: "short path", path: "/myrepo", want: "/_myrepo"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := projectSlug(tc.path); got != tc.want {
				t.Errorf("projectSlug(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	write := func(t *testing.T, root string) string {
		t.Helper()
		configDir := filepath.Join(root, ".livemeasure")
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			t.Fatalf("create config dir: %v", err)
		}
		configPath := filepath.Join(configDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		return configPath
	}

	t.Run("found in current directory", func(t *testing.T) {
		root := t.TempDir()
		configPath := write(t, root)

		if got := FindConfigFile(root); got != configPath {
			t.Errorf("FindConfigFile = %q, want %q", got, configPath)
		}
	})

	t.Run("found in parent directory", func(t *testing.T) {
		root := t.TempDir()
		configPath := write(t, root)

		sub := filepath.Join(root, "a", "b", "c")
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatalf("create sub: %v", err)
		}

		if got := FindConfigFile(sub); got != configPath {
			t.Errorf("FindConfigFile = %q, want %q", got, configPath)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if got := FindConfigFile(t.TempDir()); got != "" {
			t.Errorf("FindConfigFile = %q, want empty", got)
		}
	})
}
