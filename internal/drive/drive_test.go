package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
)

type fakeSource struct {
	files    []*File
	contents map[string]string
	folders  map[string]string
}

func (f *fakeSource) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	if folderID == "missing" {
		return nil, errors.New("boom")
	}
	return f.files, nil
}

func (f *fakeSource) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	content, ok := f.contents[fileID]
	if !ok {
		return fmt.Errorf("file %s not found", fileID)
	}
	_, err := io.WriteString(w, content)
	return err
}

func (f *fakeSource) FindFolderByPath(ctx context.Context, path string) (string, error) {
	if id, ok := f.folders[path]; ok {
		return id, nil
	}
	return "", fmt.Errorf("folder not found: %s", path)
}

const (
	salesCSV = `Date,Item Code,Department,Quantity,Customer
2024-02-10,X,JKT,10,TOKO ABADI
2024-03-10,X,JKT,20,TOKO ABADI
2024-04-10,X,JKT,30,TOKO ABADI
2024-04-11,X,SBY,4,TOKO MAKMUR
`
	catalogCSV = `Item Code,Item Name,Category
X,Tote,Bags
`
	stockCSV = `Item Code,Stock Jakarta,Stock Surabaya
X,50,0
`
)

func inputSource() *fakeSource {
	return &fakeSource{
		files: []*File{
			{ID: "1", Name: "sales.csv", MimeType: "text/csv"},
			{ID: "2", Name: "catalog.csv", MimeType: "text/csv"},
			{ID: "3", Name: "stock.csv", MimeType: "text/csv"},
			{ID: "4", Name: "notes.txt", MimeType: "text/plain"},
			{ID: "5", Name: "archive", MimeType: folderMimeType},
		},
		contents: map[string]string{"1": salesCSV, "2": catalogCSV, "3": stockCSV, "4": "ignored"},
		folders:  map[string]string{"inputs/2024": "folder-1"},
	}
}

func TestDownloader_DownloadFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dl")
	paths, err := NewDownloader(inputSource()).DownloadFolder(context.Background(), DownloadOptions{FolderID: "f", DownloadDir: dir})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "sales.csv"),
		filepath.Join(dir, "catalog.csv"),
		filepath.Join(dir, "stock.csv"),
	}, paths)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, catalogCSV, string(data))
}

func TestDownloader_DownloadFolder_Errors(t *testing.T) {
	_, err := NewDownloader(inputSource()).DownloadFolder(context.Background(), DownloadOptions{})
	assert.ErrorContains(t, err, "download dir is required")

	src := inputSource()
	delete(src.contents, "2")
	dir := t.TempDir()
	_, err = NewDownloader(src).DownloadFolder(context.Background(), DownloadOptions{DownloadDir: dir})
	assert.ErrorContains(t, err, "catalog.csv")
	assert.NoFileExists(t, filepath.Join(dir, "catalog.csv"))
}

func newTestAnalyzer(t *testing.T, src FileSource) *FolderAnalyzer {
	t.Helper()
	engine, err := replenishment.NewEngine(replenishment.DefaultConfig())
	require.NoError(t, err)
	cfg := pipeline.DefaultRunnerConfig()
	cfg.OutputDir = t.TempDir()
	return NewFolderAnalyzer(src, pipeline.NewRunner(engine, cfg), t.TempDir())
}

func TestFolderAnalyzer_AnalyzeFolder(t *testing.T) {
	a := newTestAnalyzer(t, inputSource())

	run, report, err := a.AnalyzeFolder(context.Background(), "folder-1")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusCompleted, run.Status)
	assert.Len(t, report.Rows, 2)

	// A second run starts from a clean directory.
	_, _, err = a.AnalyzeFolder(context.Background(), "folder-1")
	require.NoError(t, err)

	_, _, err = a.AnalyzeFolder(context.Background(), " ")
	assert.Error(t, err)
}

func TestFolderAnalyzer_EmptyFolder(t *testing.T) {
	a := newTestAnalyzer(t, &fakeSource{})

	_, _, err := a.AnalyzeFolder(context.Background(), "folder-1")
	assert.ErrorContains(t, err, "no CSV or XLSX files")
}

func newTestRouter(t *testing.T, src *fakeSource) *mux.Router {
	router := mux.NewRouter()
	NewHandler(src, newTestAnalyzer(t, src)).RegisterRoutes(router)
	return router
}

func TestHandler_ListFiles(t *testing.T) {
	router := newTestRouter(t, inputSource())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/files?path=inputs/2024", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var files []File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 5)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/files?path=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/files?folderId=missing", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_DownloadFile(t *testing.T) {
	router := newTestRouter(t, inputSource())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/files/download?fileId=2&name=catalog.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalogCSV, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="catalog.csv"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/files/download", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AnalyzeFolder(t *testing.T) {
	router := newTestRouter(t, inputSource())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drive/analyze?path=inputs/2024", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Contains(t, body["summary"], "2 rows")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drive/analyze", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drive/analyze?folderId=x", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_AnalyzeFolder_Failure(t *testing.T) {
	src := inputSource()
	src.files = src.files[:1] // sales only
	router := newTestRouter(t, src)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drive/analyze?folderId=f", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no catalog file")
}

func TestService_AgainstFakeAPI(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files":
			q := r.URL.Query().Get("q")
			queries = append(queries, q)
			w.Header().Set("Content-Type", "application/json")
			if strings.Contains(q, "name='inputs'") {
				io.WriteString(w, `{"files":[{"id":"folder-9","name":"inputs"}]}`)
				return
			}
			io.WriteString(w, `{"files":[{"id":"1","name":"sales.csv","mimeType":"text/csv","size":"12"}]}`)
		case r.URL.Path == "/files/1" && r.URL.Query().Get("alt") == "media":
			io.WriteString(w, "a,b\n1,2\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	s, err := newService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	files, err := s.ListFiles(ctx, "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "sales.csv", files[0].Name)
	assert.Equal(t, int64(12), files[0].Size)
	assert.Contains(t, queries[0], "'root' in parents")

	var buf bytes.Buffer
	require.NoError(t, s.DownloadFile(ctx, "1", &buf))
	assert.Equal(t, "a,b\n1,2\n", buf.String())

	id, err := s.FindFolderByPath(ctx, "/inputs/")
	require.NoError(t, err)
	assert.Equal(t, "folder-9", id)
}

func TestNewService_RejectsBadCredentials(t *testing.T) {
	_, err := NewService(context.Background(), "")
	assert.Error(t, err)

	_, err = NewService(context.Background(), "not json")
	assert.Error(t, err)
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `Toko\'s files`, escapeQuery("Toko's files"))
}
