package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/replenish/internal/tabular"
)

// Runner coordinates loading input files, running the engine and writing the
// report.
type Runner struct {
	cfg    RunnerConfig
	engine *replenishment.Engine
	loader *Loader
	writer *OutputWriter
	now    func() time.Time
}

// NewRunner creates a new Runner.
func NewRunner(engine *replenishment.Engine, cfg RunnerConfig) *Runner {
	if cfg.Name == "" {
		cfg.Name = DefaultRunnerConfig().Name
	}
	return &Runner{
		cfg:    cfg,
		engine: engine,
		loader: NewLoader(cfg),
		writer: NewOutputWriter(cfg),
		now:    time.Now,
	}
}

// Engine returns the engine the runner drives.
func (r *Runner) Engine() *replenishment.Engine {
	return r.engine
}

// Load reads the files concurrently and merges them per role. Several sales
// files are stacked into one table; so are catalog and stock files, aligned
// on the first file's header.
func (r *Runner) Load(ctx context.Context, files []InputFile) (replenishment.Input, error) {
	tables, err := r.loader.LoadTables(ctx, files)
	if err != nil {
		return replenishment.Input{}, err
	}

	byRole := make(map[InputRole][]tabular.Table)
	for i, f := range files {
		byRole[f.Role] = append(byRole[f.Role], tables[i])
	}

	merged := make(map[InputRole]tabular.Table, len(byRole))
	for role, ts := range byRole {
		t, err := tabular.Concat(string(role), ts...)
		if err != nil {
			return replenishment.Input{}, fmt.Errorf("merge %s files: %w", role, err)
		}
		merged[role] = t
	}

	return r.engine.Load(merged[RoleSales], merged[RoleCatalog], merged[RoleStock])
}

// Analyze loads the files and runs the engine without writing anything.
func (r *Runner) Analyze(ctx context.Context, files []InputFile) (*replenishment.Report, error) {
	in, err := r.Load(ctx, files)
	if err != nil {
		return nil, err
	}
	return r.engine.Run(ctx, in)
}

// Run classifies the paths, analyzes them and writes the outputs. The
// returned Run describes the execution even when it failed.
func (r *Runner) Run(ctx context.Context, paths []string) (*Run, *replenishment.Report, error) {
	start := r.now()
	run := &Run{
		ID:        start.Format("20060102_150405"),
		Status:    StatusPending,
		StartedAt: start,
	}

	files, err := ClassifyFiles(paths)
	if err != nil {
		run.finish(StatusFailed, err, r.now())
		return run, nil, err
	}
	run.Files = files
	run.Status = StatusProcessing

	log.Info().Str("pipeline", r.cfg.Name).Str("run", run.ID).Int("files", len(files)).Msg("run started")

	report, err := r.Analyze(ctx, files)
	if err != nil {
		run.finish(StatusFailed, err, r.now())
		return run, nil, fmt.Errorf("analysis failed: %w", err)
	}
	run.Rows = len(report.Rows)

	outputs, err := r.writer.Write(report, run.ID)
	if err != nil {
		run.finish(StatusFailed, err, r.now())
		return run, report, err
	}
	run.Outputs = outputs
	run.finish(StatusCompleted, nil, r.now())

	log.Info().
		Str("pipeline", r.cfg.Name).
		Str("run", run.ID).
		Int("rows", run.Rows).
		Dur("took", run.CompletedAt.Sub(run.StartedAt)).
		Msg("run completed")

	return run, report, nil
}
