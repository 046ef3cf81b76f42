package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/replenish/internal/storage"
)

// Upload is one input file received by the API, with the role the client
// declared for it.
type Upload struct {
	Name string
	Role pipeline.InputRole
	Data []byte
}

// AnalysisResult is a report plus where it came from.
type AnalysisResult struct {
	Fingerprint string                `json:"fingerprint"`
	Cached      bool                  `json:"cached"`
	ObjectKey   string                `json:"object_key,omitempty"`
	Report      *replenishment.Report `json:"report"`
}

type AnalysisService struct {
	runner    *pipeline.Runner
	cache     cache.ReportCache
	storage   storage.ObjectStorage
	uploadDir string
	prefix    string
}

// NewAnalysisService wires the runner to a cache and, optionally, an object
// store that receives a copy of every computed workbook. store may be nil.
func NewAnalysisService(runner *pipeline.Runner, cacheImpl cache.ReportCache, store storage.ObjectStorage, uploadDir, prefix string) *AnalysisService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &AnalysisService{
		runner:    runner,
		cache:     cacheImpl,
		storage:   store,
		uploadDir: uploadDir,
		prefix:    prefix,
	}
}

// Config returns the engine configuration reports are computed with.
func (s *AnalysisService) Config() replenishment.Config {
	return s.runner.Engine().Config()
}

func (s *AnalysisService) Analyze(ctx context.Context, uploads []Upload) (*AnalysisResult, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	contents := make(map[string][]byte, len(uploads))
	for _, u := range uploads {
		contents[string(u.Role)+"/"+u.Name] = u.Data
	}
	fingerprint, err := cache.Fingerprint(s.Config(), contents)
	if err != nil {
		return nil, err
	}

	if report, ok, err := s.cache.Get(ctx, fingerprint); err == nil && ok {
		return &AnalysisResult{Fingerprint: fingerprint, Cached: true, Report: report}, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("analysis: cache get report failed")
	}

	report, err := s.analyze(ctx, uploads)
	if err != nil {
		return nil, err
	}
	log.Info().Str("fingerprint", fingerprint).Msg(report.Summary())

	if err := s.cache.Set(ctx, fingerprint, report); err != nil {
		log.Warn().Err(err).Msg("analysis: cache set report failed")
	}

	result := &AnalysisResult{Fingerprint: fingerprint, Report: report}
	if s.storage != nil {
		key := path.Join(s.prefix, fingerprint+".xlsx")
		if err := s.upload(ctx, key, report); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("analysis: workbook upload failed")
		} else {
			result.ObjectKey = key
		}
	}

	return result, nil
}

// analyze stages the uploads in a scratch directory the runner can read from.
func (s *AnalysisService) analyze(ctx context.Context, uploads []Upload) (*replenishment.Report, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	dir, err := os.MkdirTemp(s.uploadDir, "analysis-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	files := make([]pipeline.InputFile, 0, len(uploads))
	for i, u := range uploads {
		p := filepath.Join(dir, fmt.Sprintf("%02d_%s", i, filepath.Base(u.Name)))
		if err := os.WriteFile(p, u.Data, 0644); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", u.Name, err)
		}
		files = append(files, pipeline.InputFile{Path: p, Role: u.Role})
	}

	return s.runner.Analyze(ctx, files)
}

func (s *AnalysisService) upload(ctx context.Context, key string, report *replenishment.Report) error {
	data, err := pipeline.WorkbookBytes(report)
	if err != nil {
		return err
	}
	return s.storage.UploadObject(ctx, key, data)
}
