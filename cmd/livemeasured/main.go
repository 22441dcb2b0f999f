// Command livemeasured is the live measure service.
// It serves the REST API, the signed event endpoint, and a health check.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/livemeasure/livemeasure/internal/api"
	"github.com/livemeasure/livemeasure/internal/platform"
	"github.com/livemeasure/livemeasure/internal/recompute"
	"github.com/livemeasure/livemeasure/internal/store"
	ghsurface "github.com/livemeasure/livemeasure/internal/surface"
	"github.com/livemeasure/livemeasure/internal/webhook"
	"github.com/livemeasure/livemeasure/pkg/config"
	"github.com/livemeasure/livemeasure/pkg/engine"
)

func main() {
	logger, err := newLogger(os.Getenv("LOG_LEVEL") == "debug")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("livemeasured failed", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func run(logger *zap.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := platform.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := platform.AutoMigrate(db, cfg.Database.Driver); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := recompute.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	grid, err := cfg.Grid()
	if err != nil {
		return err
	}
	eng := engine.New(nil,
		engine.WithGrid(grid),
		engine.WithNewCode(cfg.Engine.NewCode),
		engine.WithLogger(logger.Named("engine")),
	)

	// Initialize services
	st := store.New(db, cfg.Database.Driver)
	opts := []recompute.Option{
		recompute.WithLogger(logger.Named("recompute")),
		recompute.WithConcurrency(cfg.Server.Concurrency),
	}
	if cfg.GitHub.Enabled() {
		publisher, err := newPublisher(cfg.GitHub)
		if err != nil {
			return err
		}
		opts = append(opts, recompute.WithPublisher(publisher))
		logger.Info("publishing check runs", zap.Int64("app_id", cfg.GitHub.AppID))
	}
	svc := recompute.NewService(st, storage, eng, opts...)

	cache := api.NewMeasureCache(cfg.Server.CacheSize)
	handler := api.NewHandler(st, storage, svc, eng, cache, logger.Named("api"))

	// Set up HTTP routes. Webhook senders sign their payloads instead of
	// sending the API key.
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	root := http.NewServeMux()
	root.Handle("/", api.APIKeyAuth(cfg.Server.APIKey)(mux))
	if cfg.Server.WebhookSecret != "" {
		root.Handle("POST /v1/webhooks/events", webhook.NewHandler([]byte(cfg.Server.WebhookSecret), svc, cache.Invalidate, logger.Named("webhook")))
	}
	root.HandleFunc("GET /healthz", healthHandler(db))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.RequestLogger(logger)(api.CORS(root)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting livemeasured",
			zap.String("port", cfg.Server.Port),
			zap.String("database", cfg.Database.Driver),
			zap.String("storage", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadConfig reads the config file named by LIVEMEASURE_CONFIG, or the
// nearest .livemeasure/config.yaml, then applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	path := os.Getenv("LIVEMEASURE_CONFIG")
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = config.FindConfigFile(wd)
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *config.Config) error {
	cfg.Server.Port = envOrDefault("PORT", cfg.Server.Port)
	cfg.Server.APIKey = envOrDefault("API_KEY", cfg.Server.APIKey)
	cfg.Server.WebhookSecret = envOrDefault("WEBHOOK_SECRET", cfg.Server.WebhookSecret)
	cfg.Database.Driver = envOrDefault("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.URL = envOrDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Storage.Backend = envOrDefault("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Path = envOrDefault("LOCAL_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.Region = envOrDefault("AWS_REGION", cfg.Storage.Region)
	cfg.Storage.Endpoint = envOrDefault("S3_ENDPOINT", cfg.Storage.Endpoint)
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("S3_PREFIX"); v != "" {
		cfg.Storage.Prefix = v
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	cfg.GitHub.PrivateKeyPath = envOrDefault("GITHUB_PRIVATE_KEY_PATH", cfg.GitHub.PrivateKeyPath)
	if v := os.Getenv("GITHUB_APP_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("GITHUB_APP_ID: %w", err)
		}
		cfg.GitHub.AppID = id
	}
	return nil
}

func newPublisher(cfg config.GitHubConfig) (*ghsurface.GitHubPublisher, error) {
	key, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read github private key: %w", err)
	}
	var opts []ghsurface.Option
	if cfg.BaseURL != "" {
		opts = append(opts, ghsurface.WithBaseURL(cfg.BaseURL))
	}
	return ghsurface.NewGitHubPublisher(cfg.AppID, key, opts...)
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
