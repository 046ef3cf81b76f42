package drive

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	source   FileSource
	analyzer *FolderAnalyzer
}

func NewHandler(source FileSource, analyzer *FolderAnalyzer) *Handler {
	return &Handler{
		source:   source,
		analyzer: analyzer,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/drive/files/download", h.DownloadFile).Methods("GET")
	router.HandleFunc("/api/drive/analyze", h.AnalyzeFolder).Methods("POST")
}

// resolveFolder reads folderId, or resolves path when given.
func (h *Handler) resolveFolder(r *http.Request) (string, error) {
	query := r.URL.Query()
	if folderPath := query.Get("path"); folderPath != "" {
		return h.source.FindFolderByPath(r.Context(), folderPath)
	}
	return query.Get("folderId"), nil
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	folderID, err := h.resolveFolder(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	files, err := h.source.ListFiles(r.Context(), folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []*File{}
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	name := filepath.Base(r.URL.Query().Get("name"))
	if name == "." || name == "/" {
		name = "data.csv"
	}
	contentType := "text/csv"
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	if err := h.source.DownloadFile(r.Context(), fileID, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type analyzeResponse struct {
	Status  string      `json:"status"`
	Run     interface{} `json:"run"`
	Summary string      `json:"summary,omitempty"`
}

func (h *Handler) AnalyzeFolder(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil {
		http.Error(w, "analysis is not configured", http.StatusServiceUnavailable)
		return
	}

	folderID, err := h.resolveFolder(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if folderID == "" {
		http.Error(w, "folderId or path parameter is required", http.StatusBadRequest)
		return
	}

	run, report, err := h.analyzer.AnalyzeFolder(r.Context(), folderID)
	if err != nil {
		log.Error().Err(err).Str("folder", folderID).Msg("drive folder analysis failed")
		writeJSON(w, http.StatusUnprocessableEntity, analyzeResponse{Status: "failed", Run: run, Summary: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{Status: "success", Run: run, Summary: report.Summary()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}
