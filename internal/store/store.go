// Package store persists live measures: the values of every metric on every
// component of a project, and the history of recomputation runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/livemeasure/livemeasure/internal/platform"
	"github.com/livemeasure/livemeasure/pkg/engine"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
)

// ErrNotFound is returned when a project or run does not exist.
var ErrNotFound = errors.New("not found")

// Store provides measure persistence backed by Postgres or SQLite.
type Store struct {
	db     *sql.DB
	driver string
}

// Project is a tracked project.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Run records one recomputation.
type Run struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Components int       `json:"components"`
	Measures   int       `json:"measures"`
	DurationMs int64     `json:"duration_ms"`
	ReportRef  string    `json:"report_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// New creates a Store over an open database.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

var placeholder = regexp.MustCompile(`\$\d+`)

// rebind rewrites $N placeholders for SQLite. Queries use every placeholder
// once, in order.
func (s *Store) rebind(query string) string {
	if s.driver == platform.DriverSQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

// EnsureProject creates the project if it does not exist yet.
func (s *Store) EnsureProject(ctx context.Context, projectID, name string) error {
	if name == "" {
		name = projectID
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO projects (id, name, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`),
		projectID, name, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ensure project %s: %w", projectID, err)
	}
	return nil
}

// GetProject returns a project by ID.
func (s *Store) GetProject(ctx context.Context, projectID string) (*Project, error) {
	p := &Project{}
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, name, created_at FROM projects WHERE id = $1`),
		projectID,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by ID.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// LoadSnapshot returns every persisted measure of a project. The snapshot
// serves as the prior values of the next recomputation.
func (s *Store) LoadSnapshot(ctx context.Context, projectID string) (measure.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT component_id, metric_key, value, text_value
		 FROM measures WHERE project_id = $1`),
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("load measures of %s: %w", projectID, err)
	}
	defer rows.Close()

	snap := measure.Snapshot{}
	for rows.Next() {
		var componentID, key string
		var v measure.Value
		if err := rows.Scan(&componentID, &key, &v.Number, &v.Data); err != nil {
			return nil, fmt.Errorf("scan measure: %w", err)
		}
		set, ok := snap[componentID]
		if !ok {
			set = measure.Set{}
			snap[componentID] = set
		}
		set[key] = v
	}
	return snap, rows.Err()
}

// ComponentMeasures returns the persisted measures of one component.
func (s *Store) ComponentMeasures(ctx context.Context, projectID, componentID string) (measure.Set, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT metric_key, value, text_value
		 FROM measures WHERE project_id = $1 AND component_id = $2
		 ORDER BY metric_key`),
		projectID, componentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list measures of %s: %w", componentID, err)
	}
	defer rows.Close()

	set := measure.Set{}
	for rows.Next() {
		var key string
		var v measure.Value
		if err := rows.Scan(&key, &v.Number, &v.Data); err != nil {
			return nil, fmt.Errorf("scan measure: %w", err)
		}
		set[key] = v
	}
	return set, rows.Err()
}

// SaveResult persists a pass. For every component of the result and every
// recomputed metric, the computed value replaces the stored one; a metric
// the pass left without value is removed. It returns the number of values
// written.
func (s *Store) SaveResult(ctx context.Context, projectID string, res *engine.Result, recomputed []metric.Metric) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO measures (project_id, component_id, metric_key, value, text_value, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (project_id, component_id, metric_key) DO UPDATE
		   SET value = EXCLUDED.value,
		       text_value = EXCLUDED.text_value,
		       updated_at = EXCLUDED.updated_at`))
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer upsert.Close()

	remove, err := tx.PrepareContext(ctx, s.rebind(
		`DELETE FROM measures WHERE project_id = $1 AND component_id = $2 AND metric_key = $3`))
	if err != nil {
		return 0, fmt.Errorf("prepare delete: %w", err)
	}
	defer remove.Close()

	now := time.Now().UTC()
	written := 0
	for _, componentID := range res.Order {
		set := res.Component(componentID)
		for _, m := range recomputed {
			v, ok := set.Get(m)
			if !ok || v.Empty() {
				if _, err := remove.ExecContext(ctx, projectID, componentID, m.Key); err != nil {
					return 0, fmt.Errorf("delete %s on %s: %w", m.Key, componentID, err)
				}
				continue
			}
			if _, err := upsert.ExecContext(ctx, projectID, componentID, m.Key, v.Number, v.Data, now); err != nil {
				return 0, fmt.Errorf("upsert %s on %s: %w", m.Key, componentID, err)
			}
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save: %w", err)
	}
	return written, nil
}

// RecordRun stores a recomputation run.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO recompute_runs (id, project_id, components, measures, duration_ms, report_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`),
		run.ID, run.ProjectID, run.Components, run.Measures, run.DurationMs, run.ReportRef, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs of a project, newest first.
func (s *Store) ListRuns(ctx context.Context, projectID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, project_id, components, measures, duration_ms, report_ref, created_at
		 FROM recompute_runs WHERE project_id = $1
		 ORDER BY created_at DESC LIMIT $2`),
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Components, &r.Measures, &r.DurationMs, &r.ReportRef, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
