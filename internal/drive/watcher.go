package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader wraps a FileSource to download files from a specific folder.
type Downloader struct {
	source FileSource
}

// NewDownloader creates a new Downloader.
func NewDownloader(s FileSource) *Downloader {
	return &Downloader{source: s}
}

// DownloadFolder downloads all CSV and XLSX files from the given Drive folder
// into DownloadDir as they are and returns the local paths. Workbooks are
// read natively later on, so no conversion happens here.
func (d *Downloader) DownloadFolder(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if f.IsFolder() || (ext != ".csv" && ext != ".xlsx") {
			continue
		}

		localPath := filepath.Join(opts.DownloadDir, filepath.Base(f.Name))
		if err := d.downloadTo(ctx, f, localPath); err != nil {
			return nil, err
		}
		log.Debug().Str("file", f.Name).Str("path", localPath).Msg("drive file downloaded")
		localPaths = append(localPaths, localPath)
	}

	return localPaths, nil
}

func (d *Downloader) downloadTo(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if err := d.source.DownloadFile(ctx, f.ID, out); err != nil {
		out.Close()
		_ = os.Remove(localPath)
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return out.Close()
}
