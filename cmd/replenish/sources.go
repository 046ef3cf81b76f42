package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/drive"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/storage"
)

func driveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "folder-id",
			Usage:   "Google Drive folder ID containing the input files",
			EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
		},
		&cli.StringFlag{
			Name:  "path",
			Usage: "Drive folder path below My Drive, used instead of --folder-id",
		},
		&cli.StringFlag{
			Name:    "download-dir",
			Usage:   "Local directory where Drive files are downloaded",
			Value:   "./data/uploads/drive",
			EnvVars: []string{"DRIVE_DOWNLOAD_DIR"},
		},
	}
}

func runDrive(c *cli.Context) error {
	runner, cfg, err := newRunner(c)
	if err != nil {
		return err
	}

	credsJSON := cfg.Drive.CredentialsJSON
	if strings.TrimSpace(credsJSON) == "" {
		return fmt.Errorf("GOOGLE_DRIVE_CREDENTIALS_JSON env is required")
	}
	driveSvc, err := drive.NewService(c.Context, credsJSON)
	if err != nil {
		return fmt.Errorf("failed to create Drive service: %w", err)
	}

	folderID := c.String("folder-id")
	if p := c.String("path"); p != "" {
		folderID, err = driveSvc.FindFolderByPath(c.Context, p)
		if err != nil {
			return err
		}
	}
	if folderID == "" {
		return fmt.Errorf("folder-id or path is required")
	}

	analyzer := drive.NewFolderAnalyzer(driveSvc, runner, c.String("download-dir"))
	run, report, err := analyzer.AnalyzeFolder(c.Context, folderID)
	return printRun(run, report, err)
}

func s3Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "Object prefix holding the input files",
			EnvVars: []string{"STORAGE_INPUT_PREFIX"},
		},
		&cli.StringSliceFlag{
			Name:  "object",
			Usage: "Download only this key (relative to --prefix); repeatable",
		},
		&cli.StringFlag{
			Name:    "download-dir",
			Usage:   "Local directory where objects are downloaded",
			Value:   "./data/uploads/s3",
			EnvVars: []string{"STORAGE_DOWNLOAD_DIR"},
		},
		&cli.BoolFlag{
			Name:  "upload",
			Usage: "Upload the report workbook back to the bucket under STORAGE_PREFIX",
		},
	}
}

func runS3(c *cli.Context) error {
	runner, cfg, err := newRunner(c)
	if err != nil {
		return err
	}

	client, err := storage.NewS3Client(cfg.Storage)
	if err != nil {
		return err
	}

	prefix := c.String("prefix")
	destDir := c.String("download-dir")
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("failed to clear download dir: %w", err)
	}

	var paths []string
	if objects := c.StringSlice("object"); len(objects) > 0 {
		for _, obj := range objects {
			got, err := storage.DownloadPrefix(c.Context, client, prefix, obj, destDir)
			if err != nil {
				return err
			}
			paths = append(paths, got...)
		}
	} else {
		paths, err = storage.DownloadPrefix(c.Context, client, prefix, "", destDir)
		if err != nil {
			return err
		}
	}
	log.Info().Int("files", len(paths)).Str("prefix", prefix).Msg("downloaded input objects")

	run, report, err := runner.Run(c.Context, paths)
	if err := printRun(run, report, err); err != nil {
		return err
	}

	if c.Bool("upload") {
		data, err := pipeline.WorkbookBytes(report)
		if err != nil {
			return err
		}
		key := path.Join(cfg.Storage.Prefix, "runs", run.ID+".xlsx")
		if err := client.UploadObject(c.Context, key, data); err != nil {
			return fmt.Errorf("failed to upload %s: %w", filepath.Base(key), err)
		}
		log.Info().Str("key", key).Msg("uploaded report workbook")
	}
	return nil
}
