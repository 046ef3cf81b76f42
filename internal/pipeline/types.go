package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// InputRole says which engine table a file feeds.
type InputRole string

const (
	RoleSales   InputRole = "sales"
	RoleCatalog InputRole = "catalog"
	RoleStock   InputRole = "stock"
)

// roleKeywords are matched against lowercased file names, in order. Sales
// exports are often called "penjualan"; stock exports "stok".
var roleKeywords = []struct {
	role     InputRole
	keywords []string
}{
	{RoleSales, []string{"sales", "penjualan", "jual"}},
	{RoleStock, []string{"stock", "stok", "inventory"}},
	{RoleCatalog, []string{"catalog", "catalogue", "master", "barang", "item", "product"}},
}

// InputFile is a local file with its role.
type InputFile struct {
	Path string    `json:"path"`
	Role InputRole `json:"role"`
}

// DetectRole guesses a file's role from its name.
func DetectRole(name string) (InputRole, bool) {
	base := strings.ToLower(filepath.Base(name))
	for _, rk := range roleKeywords {
		for _, kw := range rk.keywords {
			if strings.Contains(base, kw) {
				return rk.role, true
			}
		}
	}
	return "", false
}

// ClassifyFiles assigns a role to every path. Sales and catalog files are
// required; stock is optional here because the channel-aware variant runs
// without it. Files come back sorted by path so runs are reproducible.
func ClassifyFiles(paths []string) ([]InputFile, error) {
	files := make([]InputFile, 0, len(paths))
	seen := make(map[InputRole]int)
	for _, p := range paths {
		role, ok := DetectRole(p)
		if !ok {
			return nil, fmt.Errorf("cannot tell whether %s holds sales, catalog or stock", filepath.Base(p))
		}
		files = append(files, InputFile{Path: p, Role: role})
		seen[role]++
	}
	if seen[RoleSales] == 0 {
		return nil, fmt.Errorf("no sales file among %d inputs", len(paths))
	}
	if seen[RoleCatalog] == 0 {
		return nil, fmt.Errorf("no catalog file among %d inputs", len(paths))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// RunnerConfig holds configuration for a Runner
type RunnerConfig struct {
	Name               string
	WorkerCount        int    // Number of concurrent file loaders
	OutputDir          string // Directory for the workbook and combined CSV
	IntermediateDir    string // Directory for per-stage debug CSVs
	PersistDebugLayers bool
}

// DefaultRunnerConfig returns sensible defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Name:            "replenishment",
		WorkerCount:     4,
		OutputDir:       "data/output/replenishment",
		IntermediateDir: "data/intermediate/replenishment",
	}
}

// RunStatus represents the current state of a run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Run tracks a single execution over a set of input files.
type Run struct {
	ID           string      `json:"id"`
	Status       RunStatus   `json:"status"`
	Files        []InputFile `json:"files"`
	Rows         int         `json:"rows"`
	Outputs      []string    `json:"outputs,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	ErrorMessage string      `json:"error,omitempty"`
}

func (r *Run) finish(status RunStatus, err error, now time.Time) {
	r.Status = status
	r.CompletedAt = &now
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}
