package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
)

// FolderAnalyzer downloads a Drive folder of input files and runs the
// replenishment pipeline over it.
type FolderAnalyzer struct {
	downloader  *Downloader
	runner      *pipeline.Runner
	downloadDir string
}

func NewFolderAnalyzer(source FileSource, runner *pipeline.Runner, downloadDir string) *FolderAnalyzer {
	return &FolderAnalyzer{
		downloader:  NewDownloader(source),
		runner:      runner,
		downloadDir: downloadDir,
	}
}

// AnalyzeFolder downloads folderID into its own directory below the
// download dir and runs the pipeline over the files found there.
func (a *FolderAnalyzer) AnalyzeFolder(ctx context.Context, folderID string) (*pipeline.Run, *replenishment.Report, error) {
	if strings.TrimSpace(folderID) == "" {
		return nil, nil, fmt.Errorf("folder id is required")
	}

	dir := filepath.Join(a.downloadDir, sanitizeDirName(folderID))
	// Stale files from an earlier download would be picked up as inputs.
	if err := os.RemoveAll(dir); err != nil {
		return nil, nil, fmt.Errorf("failed to clear download dir: %w", err)
	}

	log.Info().Str("folder", folderID).Str("dir", dir).Msg("downloading drive folder")
	paths, err := a.downloader.DownloadFolder(ctx, DownloadOptions{
		FolderID:    folderID,
		DownloadDir: dir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download files from Drive: %w", err)
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no CSV or XLSX files found in Drive folder %s", folderID)
	}

	return a.runner.Run(ctx, paths)
}

func sanitizeDirName(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id)
}
