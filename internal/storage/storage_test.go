package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/config"
)

type fakeStorage struct {
	objects map[string][]byte
	listErr error
}

func (f *fakeStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []ObjectInfo
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (f *fakeStorage) DownloadObject(ctx context.Context, key, destPath string) error {
	data, ok := f.objects[key]
	if !ok {
		return errors.New("no such key")
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (f *fakeStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	f.objects[key] = data
	return nil
}

func TestDownloadPrefix(t *testing.T) {
	fake := &fakeStorage{objects: map[string][]byte{
		"inputs/2024-04/sales.csv":    []byte("a"),
		"inputs/2024-04/catalog.xlsx": []byte("b"),
		"inputs/2024-04/readme.txt":   []byte("c"),
		"other/stock.csv":             []byte("d"),
	}}
	dir := t.TempDir()

	paths, err := DownloadPrefix(context.Background(), fake, "inputs/", "", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "2024-04", "catalog.xlsx"),
		filepath.Join(dir, "2024-04", "sales.csv"),
	}, paths)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestDownloadPrefix_Override(t *testing.T) {
	fake := &fakeStorage{objects: map[string][]byte{"inputs/sales.csv": []byte("a")}}
	dir := t.TempDir()

	paths, err := DownloadPrefix(context.Background(), fake, "inputs", "/sales.csv", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sales.csv")}, paths)
}

func TestDownloadPrefix_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := DownloadPrefix(context.Background(), &fakeStorage{objects: map[string][]byte{"x.txt": nil}}, "", "", dir)
	assert.Error(t, err)

	_, err = DownloadPrefix(context.Background(), &fakeStorage{listErr: errors.New("denied")}, "inputs", "", dir)
	assert.ErrorContains(t, err, "denied")
}

func TestResolveObjectKey(t *testing.T) {
	tests := []struct {
		prefix, override, want string
	}{
		{"inputs", "", "inputs"},
		{"", "/sales.csv", "sales.csv"},
		{"inputs/", "sales.csv", "inputs/sales.csv"},
		{"inputs", "inputs/sales.csv", "inputs/sales.csv"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveObjectKey(tt.prefix, tt.override))
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint   string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"s3.example.com", true, "s3.example.com", true},
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://localhost:9000", true, "localhost:9000", false},
		{"//minio:9000", false, "minio:9000", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, secure := normalizeEndpoint(tt.endpoint, tt.useSSL)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestNewS3Client_Validation(t *testing.T) {
	_, err := NewS3Client(config.StorageConfig{})
	assert.Error(t, err)

	_, err = NewS3Client(config.StorageConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	_, err = NewS3Client(config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)

	c, err := NewS3Client(config.StorageConfig{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "inputs"})
	require.NoError(t, err)
	assert.Equal(t, "inputs", c.bucket)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("reports/all.CSV"))
	assert.Equal(t, "application/json", contentType("report.json"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
