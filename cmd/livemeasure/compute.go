package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/livemeasure/livemeasure/internal/platform"
	"github.com/livemeasure/livemeasure/internal/recompute"
	"github.com/livemeasure/livemeasure/internal/store"
	"github.com/livemeasure/livemeasure/pkg/component"
	"github.com/livemeasure/livemeasure/pkg/config"
	"github.com/livemeasure/livemeasure/pkg/engine"
	"github.com/livemeasure/livemeasure/pkg/issues"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
	"github.com/livemeasure/livemeasure/pkg/surface"
)

type computeOpts struct {
	inputPath  string
	treePath   string
	issuesPath string
	priorPath  string
	outputFmt  string
	dbPath     string
	projectID  string
	save       bool
	maxFiles   int
	failOn     string
}

func newComputeCmd() *cobra.Command {
	var opts computeOpts

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute live measures for a component tree",
		Long: `Computes every measure of the formula catalog for each component of a tree,
from the issues raised on it. Takes either an input document (--input) or a
tree and an issue list (--tree, --issues).

Measures of a previous pass are read from --prior, from the --db store, or
from the measures saved by --save, in that order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.inputPath, "input", "", "Analysis input document (tree, issues and development costs)")
	f.StringVar(&opts.treePath, "tree", "", "Component tree JSON")
	f.StringVar(&opts.issuesPath, "issues", "", "Issue list JSON")
	f.StringVar(&opts.priorPath, "prior", "", "Measures of a previous pass")
	f.StringVar(&opts.outputFmt, "output", "text", "Output format: text, json or checkrun")
	f.StringVar(&opts.dbPath, "db", "", "SQLite measure store to read prior measures from and persist to")
	f.StringVar(&opts.projectID, "project", "", "Project ID in the store (default: input project_id or tree root ID)")
	f.BoolVar(&opts.save, "save", false, "Save the computed measures for the next pass")
	f.IntVar(&opts.maxFiles, "max-files", 20, "Files listed in text output (0 for all)")
	f.StringVar(&opts.failOn, "fail-on", "", "Exit with an error when a project rating is this grade (A..E) or worse")
	cmd.MarkFlagsMutuallyExclusive("input", "tree")
	cmd.MarkFlagsRequiredTogether("tree", "issues")
	cmd.MarkFlagsOneRequired("input", "tree")

	return cmd
}

func runCompute(ctx context.Context, opts computeOpts) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	renderer, err := surface.ForOutput(opts.outputFmt)
	if err != nil {
		return err
	}
	if tr, ok := renderer.(*surface.TerminalRenderer); ok {
		tr.MaxComponents = opts.maxFiles
	}
	var threshold rating.Rating
	if opts.failOn != "" {
		if threshold, err = rating.Parse(strings.ToUpper(opts.failOn)); err != nil {
			return fmt.Errorf("--fail-on: %w", err)
		}
	}

	in, err := loadComputeInput(opts)
	if err != nil {
		return err
	}
	projectID := firstNonEmpty(opts.projectID, in.ProjectID, in.Tree.ID)

	var st *store.Store
	if opts.dbPath != "" {
		db, err := platform.Open(platform.DriverSQLite, opts.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := platform.AutoMigrate(db, platform.DriverSQLite); err != nil {
			return err
		}
		st = store.New(db, platform.DriverSQLite)
		if err := st.EnsureProject(ctx, projectID, in.Name); err != nil {
			return err
		}
	}

	savedPath := filepath.Join(config.MeasureDir("."), projectID+".json")
	prior, err := loadPrior(ctx, opts, st, projectID, savedPath)
	if err != nil {
		return err
	}
	in.ApplyDevelopmentCosts(prior)

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := eng.ComputeAll(ctx, in.Tree, issues.NewIndex(in.Issues), prior)
	if err != nil {
		return fmt.Errorf("computing measures: %w", err)
	}
	logger.Info("computed measures",
		zap.String("project", projectID),
		zap.Int("components", len(res.Order)),
		zap.Duration("duration", time.Since(start)))

	if st != nil {
		recomputed := append(eng.Metrics(false), eng.Metrics(true)...)
		written, err := st.SaveResult(ctx, projectID, res, recomputed)
		if err != nil {
			return err
		}
		if err := st.RecordRun(ctx, store.Run{
			ID:         res.ID,
			ProjectID:  projectID,
			Components: len(res.Order),
			Measures:   written,
			DurationMs: time.Since(start).Milliseconds(),
		}); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Stored %d measures in %s\n", written, opts.dbPath)
	}

	if opts.save {
		if err := measure.SaveSnapshot(savedPath, res.Snapshot()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Measures saved: %s\n", savedPath)
	}

	if err := renderer.Render(os.Stdout, &surface.Report{Root: in.Tree, Result: res}); err != nil {
		return err
	}

	if threshold.Valid() {
		metrics := append(eng.Metrics(false), eng.Metrics(true)...)
		if failing := ratingsAtOrWorse(res, in.Tree.ID, metrics, threshold); len(failing) > 0 {
			return fmt.Errorf("ratings at %s or worse: %s", threshold, strings.Join(failing, ", "))
		}
	}
	return nil
}

// ratingsAtOrWorse lists the rating metrics of a component graded
// threshold or worse.
func ratingsAtOrWorse(res *engine.Result, componentID string, metrics []metric.Metric, threshold rating.Rating) []string {
	var failing []string
	for _, m := range metrics {
		if m.Type != metric.TypeRating {
			continue
		}
		v, ok := res.Value(componentID, m)
		if !ok {
			continue
		}
		if r := rating.Rating(int(v)); r >= threshold {
			failing = append(failing, fmt.Sprintf("%s=%s", m.Key, r))
		}
	}
	return failing
}

func loadComputeInput(opts computeOpts) (*recompute.Input, error) {
	if opts.inputPath != "" {
		data, err := os.ReadFile(opts.inputPath)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		return recompute.DecodeInput(data)
	}

	tree, err := component.LoadTree(opts.treePath)
	if err != nil {
		return nil, err
	}
	list, err := issues.LoadIssues(opts.issuesPath)
	if err != nil {
		return nil, err
	}
	in := &recompute.Input{ProjectID: tree.ID, Tree: tree, Issues: list}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

func loadPrior(ctx context.Context, opts computeOpts, st *store.Store, projectID, savedPath string) (measure.Snapshot, error) {
	switch {
	case opts.priorPath != "":
		return measure.LoadSnapshot(opts.priorPath)
	case st != nil:
		return st.LoadSnapshot(ctx, projectID)
	}

	snap, err := measure.LoadSnapshot(savedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return measure.Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("using saved measures", zap.String("path", savedPath))
	return snap, nil
}

func newEngine(cfg *config.Config) (*engine.Engine, error) {
	grid, err := cfg.Grid()
	if err != nil {
		return nil, err
	}
	return engine.New(nil,
		engine.WithGrid(grid),
		engine.WithNewCode(cfg.Engine.NewCode),
		engine.WithLogger(logger),
	), nil
}
