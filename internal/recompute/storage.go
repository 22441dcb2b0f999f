package recompute

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/livemeasure/livemeasure/pkg/config"
)

// ErrNoInput is returned when a project has no uploaded input.
var ErrNoInput = errors.New("no analysis input")

// ErrNoReport is returned when a pass report does not exist.
var ErrNoReport = errors.New("no such report")

// StorageClient abstracts blob storage for analysis inputs and pass reports.
type StorageClient interface {
	PutInput(ctx context.Context, projectID string, data []byte) error
	GetInput(ctx context.Context, projectID string) ([]byte, error)
	PutReport(ctx context.Context, projectID, runID string, data []byte) error
	GetReport(ctx context.Context, projectID, runID string) ([]byte, error)
}

// OpenStorage builds the StorageClient selected by the configuration.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (StorageClient, error) {
	switch cfg.Backend {
	case config.BackendLocal, "":
		return NewLocalStorage(cfg.Path), nil
	case config.BackendS3:
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Prefix:    cfg.Prefix,
		})
	case config.BackendGCS:
		return NewGCSStorage(ctx, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

const inputName = "latest"

func objectKey(projectID, kind, id string) string {
	return projectID + "/" + kind + "/" + id + ".json"
}

// ReportRef returns the storage key of a pass report.
func ReportRef(projectID, runID string) string {
	return objectKey(projectID, "reports", runID)
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(projectID, kind, id string) string {
	return filepath.Join(s.BaseDir, projectID, kind, id+".json")
}

func (s *LocalStorage) put(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PutInput stores the latest input of a project.
func (s *LocalStorage) PutInput(ctx context.Context, projectID string, data []byte) error {
	return s.put(s.path(projectID, "inputs", inputName), data)
}

// GetInput retrieves the latest input of a project.
func (s *LocalStorage) GetInput(ctx context.Context, projectID string) ([]byte, error) {
	data, err := os.ReadFile(s.path(projectID, "inputs", inputName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNoInput)
	}
	return data, err
}

// PutReport stores the report of a pass.
func (s *LocalStorage) PutReport(ctx context.Context, projectID, runID string, data []byte) error {
	return s.put(s.path(projectID, "reports", runID), data)
}

// GetReport retrieves the report of a pass.
func (s *LocalStorage) GetReport(ctx context.Context, projectID, runID string) ([]byte, error) {
	data, err := os.ReadFile(s.path(projectID, "reports", runID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNoReport)
	}
	return data, err
}
