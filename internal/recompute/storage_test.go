package recompute

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/livemeasure/livemeasure/pkg/config"
)

func TestLocalStoragePutGetInput(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"project_id":"p1"}`)
	if err := s.PutInput(ctx, "p1", data); err != nil {
		t.Fatalf("PutInput: %v", err)
	}

	got, err := s.GetInput(ctx, "p1")
	if err != nil {
		t.Fatalf("GetInput: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetInput = %q, want %q", got, data)
	}

	// Verify file path layout
	expectedPath := filepath.Join(dir, "p1", "inputs", "latest.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}

	if _, err := s.GetReport(ctx, "p1", "run2"); !errors.Is(err, ErrNoReport) {
		t.Errorf("expected ErrNoReport, got %v", err)
	}
}

func TestLocalStoragePutGetReport(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte(`{"result":{}}`)
	if err := s.PutReport(ctx, "p1", "run1", data); err != nil {
		t.Fatalf("PutReport: %v", err)
	}

	got, err := s.GetReport(ctx, "p1", "run1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("GetReport = %q, want %q", got, data)
	}

	expectedPath := filepath.Join(dir, filepath.FromSlash(ReportRef("p1", "run1")))
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
}

func TestLocalStorageMissingInput(t *testing.T) {
	s := NewLocalStorage(t.TempDir())

	_, err := s.GetInput(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}

func TestOpenStorage(t *testing.T) {
	s, err := OpenStorage(context.Background(), config.StorageConfig{Backend: config.BackendLocal, Path: t.TempDir()})
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	if _, ok := s.(*LocalStorage); !ok {
		t.Errorf("expected LocalStorage, got %T", s)
	}

	if _, err := OpenStorage(context.Background(), config.StorageConfig{Backend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

type fakeS3 struct {
	objects  map[string][]byte
	metadata map[string]map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, metadata: map[string]map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + ":" + aws.ToString(in.Key)
	f.objects[key] = data
	f.metadata[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+":"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3StorageKeyLayout(t *testing.T) {
	api := newFakeS3()
	s := newS3Storage(api, "measures", "/live/")
	ctx := context.Background()

	if err := s.PutInput(ctx, "p1", []byte(`{"project_id":"p1"}`)); err != nil {
		t.Fatalf("PutInput: %v", err)
	}
	if err := s.PutReport(ctx, "p1", "run-1", []byte(`{}`)); err != nil {
		t.Fatalf("PutReport: %v", err)
	}

	for _, key := range []string{"measures:live/p1/inputs/latest.json", "measures:live/p1/reports/run-1.json"} {
		if _, ok := api.objects[key]; !ok {
			t.Errorf("missing object %s (have %v)", key, api.objects)
		}
		if got := api.metadata[key]["project-id"]; got != "p1" {
			t.Errorf("%s project-id metadata = %q, want p1", key, got)
		}
	}

	got, err := s.GetInput(ctx, "p1")
	if err != nil {
		t.Fatalf("GetInput: %v", err)
	}
	if string(got) != `{"project_id":"p1"}` {
		t.Errorf("GetInput = %s", got)
	}
}

func TestS3StorageMissingObjects(t *testing.T) {
	s := newS3Storage(newFakeS3(), "measures", "")
	ctx := context.Background()

	if _, err := s.GetInput(ctx, "p1"); !errors.Is(err, ErrNoInput) {
		t.Errorf("GetInput: expected ErrNoInput, got %v", err)
	}
	if _, err := s.GetReport(ctx, "p1", "run-1"); !errors.Is(err, ErrNoReport) {
		t.Errorf("GetReport: expected ErrNoReport, got %v", err)
	}
}
