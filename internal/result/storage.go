package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	aggregatedSuffix = "_aggregated.json"
	combinedSuffix   = "_combined.csv"
)

func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

func MetricsDir(runDir string) string     { return filepath.Join(runDir, "metrics") }
func PredictionsDir(runDir string) string { return filepath.Join(runDir, "predictions") }
func AggregatedDir(runDir string) string  { return filepath.Join(runDir, "aggregated") }
func JobsDir(runDir string) string        { return filepath.Join(runDir, "jobs") }

// FoldDirName is the per-fold directory name shared by predictions and metrics.
func FoldDirName(dataset, model string, fold int) string {
	return fmt.Sprintf("%s_%s_fold%d", dataset, model, fold)
}

func AggregatedFileName(dataset, model string) string {
	return dataset + "_" + model + aggregatedSuffix
}

func CombinedPredictionName(dataset, model string) string {
	return dataset + "_" + model + combinedSuffix
}

// ParseAggregatedName splits "<dataset>_<model>_aggregated.json". The model is
// the last underscore-separated token, so a model name containing "_" is
// attributed partly to the dataset.
func ParseAggregatedName(name string) (dataset, model string, ok bool) {
	stem, found := strings.CutSuffix(filepath.Base(name), aggregatedSuffix)
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(stem, "_")
	if i < 0 {
		return "", stem, true
	}
	return stem[:i], stem[i+1:], true
}

func FoldDir(runDir, dataset, model string, fold int) string {
	return filepath.Join(runDir, "folds", FoldDirName(dataset, model, fold))
}

func WriteFoldMeta(foldDir string, meta *FoldMeta) error {
	return writeJSON(foldDir, "meta.json", meta)
}

func ReadFoldMeta(path string) (*FoldMeta, error) {
	var meta FoldMeta
	if err := readJSON(path, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func WriteJobMeta(dir string, meta *JobMeta) error {
	return writeJSON(dir, meta.JobName+".json", meta)
}

// ReadJobMeta reads a job record through fs, so reports can be rendered from
// any filesystem.
func ReadJobMeta(fs afero.Fs, path string) (*JobMeta, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	var meta JobMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing meta %s: %w", path, err)
	}
	return &meta, nil
}

func writeJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading meta: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing meta: %w", err)
	}
	return nil
}
