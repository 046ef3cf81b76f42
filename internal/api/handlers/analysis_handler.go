package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
	"github.com/andresuchdata/replenish/internal/service"
)

const (
	maxUploadBytes = 64 << 20
	xlsxMimeType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// uploadFields maps multipart field names to input roles. "sales[]" is
// accepted for clients that suffix repeated fields.
var uploadFields = []struct {
	field string
	role  pipeline.InputRole
}{
	{"sales", pipeline.RoleSales},
	{"sales[]", pipeline.RoleSales},
	{"catalog", pipeline.RoleCatalog},
	{"stock", pipeline.RoleStock},
}

type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

type analysisResponse struct {
	Fingerprint string                             `json:"fingerprint"`
	Cached      bool                               `json:"cached"`
	ObjectKey   string                             `json:"object_key,omitempty"`
	Summary     string                             `json:"summary"`
	Periods     []string                           `json:"periods"`
	Policy      replenishment.Policy               `json:"policy"`
	Stats       replenishment.NormalizeStats       `json:"stats"`
	Locations   []string                           `json:"locations"`
	Rows        []replenishment.POAllocationRecord `json:"rows"`
	Rounded     []replenishment.RoundedFields      `json:"rounded"`
}

// Analyze runs an analysis over uploaded sales, catalog and stock files.
// format=xlsx returns the workbook, format=csv the combined sheet, anything
// else JSON. location=<name> narrows JSON rows to one location.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	var uploads []service.Upload
	for _, f := range uploadFields {
		for _, fh := range form.File[f.field] {
			data, err := readUpload(fh)
			if err != nil {
				log.Error().Err(err).Str("filename", fh.Filename).Msg("failed to read uploaded file")
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot read %s", fh.Filename)})
				return
			}
			uploads = append(uploads, service.Upload{Name: fh.Filename, Role: f.role, Data: data})
		}
	}
	// Untyped files are assigned a role from their name.
	for _, fh := range form.File["files"] {
		role, ok := pipeline.DetectRole(fh.Filename)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot tell the role of %s", fh.Filename)})
			return
		}
		data, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot read %s", fh.Filename)})
			return
		}
		uploads = append(uploads, service.Upload{Name: fh.Filename, Role: role, Data: data})
	}
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	result, err := h.analysisService.Analyze(c.Request.Context(), uploads)
	if err != nil {
		status := http.StatusInternalServerError
		if isInputError(err) {
			status = http.StatusUnprocessableEntity
		}
		log.Error().Err(err).Int("status", status).Msg("analysis failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	report := result.Report
	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "xlsx":
		var buf bytes.Buffer
		if err := pipeline.EncodeWorkbook(&buf, report); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render workbook"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "replenishment_"+result.Fingerprint[:8]+".xlsx"))
		c.Data(http.StatusOK, xlsxMimeType, buf.Bytes())
	case "csv":
		var buf bytes.Buffer
		if err := pipeline.EncodeCSV(&buf, report); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render csv"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "replenishment_"+result.Fingerprint[:8]+".csv"))
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	default:
		c.JSON(http.StatusOK, newAnalysisResponse(result, c.Query("location")))
	}
}

// GetConfig returns the engine configuration in effect.
func (h *AnalysisHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.analysisService.Config())
}

func newAnalysisResponse(result *service.AnalysisResult, location string) analysisResponse {
	report := result.Report
	rows := report.Rows
	if location != "" {
		rows = nil
		for _, p := range report.Partition() {
			if strings.EqualFold(p.Location, location) {
				rows = p.Rows
			}
		}
	}
	if rows == nil {
		rows = []replenishment.POAllocationRecord{}
	}

	rounded := make([]replenishment.RoundedFields, len(rows))
	for i, r := range rows {
		rounded[i] = r.Rounded()
	}

	return analysisResponse{
		Fingerprint: result.Fingerprint,
		Cached:      result.Cached,
		ObjectKey:   result.ObjectKey,
		Summary:     report.Summary(),
		Periods:     report.Window.Keys(),
		Policy:      report.Policy,
		Stats:       report.Stats,
		Locations:   report.Locations(),
		Rows:        rows,
		Rounded:     rounded,
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func isInputError(err error) bool {
	return errors.Is(err, replenishment.ErrMissingColumn) ||
		errors.Is(err, replenishment.ErrNoSales) ||
		errors.Is(err, replenishment.ErrInvalidConfig)
}
