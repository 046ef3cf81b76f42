package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/tabular"
)

// Loader reads input files into tables with a fixed pool of workers.
type Loader struct {
	name        string
	workerCount int
	read        func(path string) (tabular.Table, error)
}

// NewLoader creates a Loader reading CSV and XLSX files.
func NewLoader(cfg RunnerConfig) *Loader {
	return &Loader{
		name:        cfg.Name,
		workerCount: cfg.WorkerCount,
		read:        tabular.ReadFile,
	}
}

type loadJob struct {
	index int
	file  InputFile
}

// LoadTables reads every file and returns the tables in input order. The
// first failure stops the load.
func (l *Loader) LoadTables(ctx context.Context, files []InputFile) ([]tabular.Table, error) {
	workerCount := l.workerCount
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(files) {
		workerCount = len(files)
	}

	tables := make([]tabular.Table, len(files))
	jobChan := make(chan loadJob, len(files))
	errChan := make(chan error, workerCount)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				if ctx.Err() != nil {
					return
				}
				table, err := l.loadFile(job.file)
				if err != nil {
					log.Error().Err(err).
						Str("pipeline", l.name).
						Int("worker", workerID).
						Str("file", job.file.Path).
						Msg("failed to load file")
					select {
					case errChan <- err:
					default:
					}
					continue
				}
				tables[job.index] = table
			}
		}(i)
	}

	// Enqueue jobs
	for i, f := range files {
		select {
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			return nil, ctx.Err()
		case jobChan <- loadJob{index: i, file: f}:
		}
	}
	close(jobChan)

	// Wait for all workers
	wg.Wait()
	close(errChan)

	// Check for errors
	if err := <-errChan; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return tables, nil
}

func (l *Loader) loadFile(f InputFile) (tabular.Table, error) {
	start := time.Now()

	table, err := l.read(f.Path)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("load %s file: %w", f.Role, err)
	}

	log.Debug().
		Str("pipeline", l.name).
		Str("file", f.Path).
		Str("role", string(f.Role)).
		Int("rows", table.Len()).
		Dur("took", time.Since(start)).
		Msg("file loaded")
	return table, nil
}
