package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("replenish failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "replenish",
		Usage: "Compute stock parameters and purchase order suggestions from sales history",
		Flags: engineFlags(),
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Run over local sales, catalog and stock files",
				ArgsUsage: "[file ...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "input-dir",
						Usage:   "Directory whose CSV and XLSX files are used as inputs",
						EnvVars: []string{"REPLENISH_INPUT_DIR"},
					},
				},
				Action: runAnalyze,
			},
			{
				Name:   "drive",
				Usage:  "Download a Google Drive folder and run over its files",
				Flags:  driveFlags(),
				Action: runDrive,
			},
			{
				Name:   "s3",
				Usage:  "Download input files from an S3 compatible bucket and run over them",
				Flags:  s3Flags(),
				Action: runS3,
			},
		},
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"APP_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:  "output-dir",
			Usage: "Directory for the report workbook and CSV (defaults to APP_OUTPUT_DIR)",
		},
		&cli.StringFlag{
			Name:  "intermediate-dir",
			Usage: "Root directory for intermediate stage outputs (defaults to APP_INTERMEDIATE_DIR)",
		},
		&cli.BoolFlag{
			Name:  "persist-debug-layers",
			Usage: "Persist normalized, demand and classified layers for debugging",
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Number of concurrent file readers",
			Value:   runtime.NumCPU(),
			EnvVars: []string{"PIPELINE_WORKERS"},
		},
		&cli.StringFlag{Name: "hub", Usage: "Hub location name"},
		&cli.StringFlag{Name: "period", Usage: "Period policy (month or block30)"},
		&cli.StringFlag{Name: "reference-date", Usage: "Reference date for block30 periods (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "weights", Usage: "Comma separated period weights, newest first"},
		&cli.StringFlag{Name: "metric", Usage: "ABC ranking metric (wma, mean or total)"},
		&cli.StringFlag{Name: "policy", Usage: "Classification policy (cumulative, max_ratio or log_benchmark)"},
		&cli.BoolFlag{Name: "split-by-channel", Usage: "Produce per channel parameters without PO allocation"},
		&cli.StringFlag{Name: "locations", Usage: "Comma separated locations to report on"},
		&cli.StringFlag{Name: "mapping-file", Usage: "YAML file with department, city and channel mappings"},
	}
}

// newRunner merges command line overrides into the environment config.
func newRunner(c *cli.Context) (*pipeline.Runner, *config.Config, error) {
	cfg := config.Load()
	engineCfg := cfg.Engine

	overrides := map[string]*string{
		"hub":            &engineCfg.HubLocation,
		"period":         &engineCfg.Period,
		"reference-date": &engineCfg.ReferenceDate,
		"weights":        &engineCfg.Weights,
		"metric":         &engineCfg.Metric,
		"policy":         &engineCfg.Policy,
		"locations":      &engineCfg.Locations,
		"mapping-file":   &engineCfg.MappingFile,
	}
	for name, target := range overrides {
		if c.IsSet(name) {
			*target = c.String(name)
		}
	}
	if c.IsSet("split-by-channel") {
		engineCfg.SplitByChannel = c.Bool("split-by-channel")
	}

	repCfg, err := engineCfg.Replenishment()
	if err != nil {
		return nil, nil, err
	}
	engine, err := replenishment.NewEngine(repCfg)
	if err != nil {
		return nil, nil, err
	}

	runnerCfg := pipeline.DefaultRunnerConfig()
	runnerCfg.WorkerCount = c.Int("workers")
	runnerCfg.OutputDir = firstNonEmpty(c.String("output-dir"), cfg.App.OutputDir)
	runnerCfg.IntermediateDir = firstNonEmpty(c.String("intermediate-dir"), cfg.App.IntermediateDir)
	runnerCfg.PersistDebugLayers = c.Bool("persist-debug-layers") || cfg.App.PersistDebugLayers

	return pipeline.NewRunner(engine, runnerCfg), cfg, nil
}

func runAnalyze(c *cli.Context) error {
	runner, _, err := newRunner(c)
	if err != nil {
		return err
	}

	paths := c.Args().Slice()
	if dir := c.String("input-dir"); dir != "" {
		found, err := tabularFiles(dir)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input files given; pass file paths or --input-dir")
	}

	run, report, err := runner.Run(c.Context, paths)
	return printRun(run, report, err)
}

func tabularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".xlsx":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func printRun(run *pipeline.Run, report *replenishment.Report, err error) error {
	if err != nil {
		if run != nil {
			log.Error().Str("run", run.ID).Str("status", string(run.Status)).Msg("run failed")
		}
		return err
	}

	log.Info().
		Str("run", run.ID).
		Int("rows", run.Rows).
		Int("sales_rows", report.Stats.Kept).
		Int("dropped_item", report.Stats.DroppedItem).
		Int("dropped_date", report.Stats.DroppedDate).
		Int("dropped_location", report.Stats.DroppedLocation).
		Msg(report.Summary())
	for _, p := range report.Partition() {
		log.Info().Str("location", p.Location).Int("rows", len(p.Rows)).Msg("location rows")
	}
	for _, out := range run.Outputs {
		fmt.Println(out)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
