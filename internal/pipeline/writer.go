package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/replenish/internal/tabular"
)

// EncodeWorkbook writes the report as an xlsx workbook with one sheet per
// location followed by the combined sheet.
func EncodeWorkbook(w io.Writer, report *replenishment.Report) error {
	return tabular.WriteWorkbook(w, report.Sheets())
}

// EncodeCSV writes the combined sheet of the report.
func EncodeCSV(w io.Writer, report *replenishment.Report) error {
	all := report.Sheet(replenishment.AllSheet, report.Rows)
	return tabular.WriteCSV(w, all.Header, all.Rows)
}

// WorkbookBytes renders the workbook in memory, for uploads and responses.
func WorkbookBytes(report *replenishment.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeWorkbook(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OutputWriter persists reports under the configured directories.
type OutputWriter struct {
	config RunnerConfig
}

// NewOutputWriter creates a writer for cfg.
func NewOutputWriter(cfg RunnerConfig) *OutputWriter {
	return &OutputWriter{config: cfg}
}

// Write stores the workbook and the combined CSV as
// <OutputDir>/<name>_<stamp>.xlsx and <name>_<stamp>_all.csv, plus one CSV per
// stage under <IntermediateDir>/<stage>/<stamp>.csv when debug layers are on.
// It returns the written paths.
func (ow *OutputWriter) Write(report *replenishment.Report, stamp string) ([]string, error) {
	if err := os.MkdirAll(ow.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := filepath.Join(ow.config.OutputDir, fmt.Sprintf("%s_%s", ow.config.Name, stamp))
	paths := []string{base + ".xlsx", base + "_all.csv"}

	if err := writeFile(paths[0], func(w io.Writer) error { return EncodeWorkbook(w, report) }); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := writeFile(paths[1], func(w io.Writer) error { return EncodeCSV(w, report) }); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}

	log.Info().
		Str("pipeline", ow.config.Name).
		Int("rows", len(report.Rows)).
		Str("workbook", paths[0]).
		Msg("report written")

	if !ow.config.PersistDebugLayers {
		return paths, nil
	}

	for _, stage := range report.StageSheets() {
		dir := filepath.Join(ow.config.IntermediateDir, stage.Name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create intermediate directory: %w", err)
		}
		path := filepath.Join(dir, stamp+".csv")
		stage := stage
		if err := writeFile(path, func(w io.Writer) error { return tabular.WriteCSV(w, stage.Header, stage.Rows) }); err != nil {
			return nil, fmt.Errorf("failed to write stage %s: %w", stage.Name, err)
		}
		log.Debug().Str("pipeline", ow.config.Name).Str("stage", stage.Name).Int("rows", len(stage.Rows)).Msg("stage persisted")
		paths = append(paths, path)
	}

	return paths, nil
}

func writeFile(path string, encode func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
