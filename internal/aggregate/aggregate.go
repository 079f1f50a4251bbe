// Package aggregate merges per-fold metric files into per-target summaries
// with a cross-fold mean.
package aggregate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/montanaflynn/stats"
	"github.com/spf13/afero"

	"github.com/proteingym/pg2-benchmark/internal/metric"
	"github.com/proteingym/pg2-benchmark/internal/ordered"
)

// AllKey holds the mean of the non-null fold values of a metric.
const AllKey = "all"

// FoldSummary maps fold index (as a string) to a value, followed by AllKey.
type FoldSummary = ordered.Map[metric.Value]

// TargetSummary maps metric names to their fold summaries.
type TargetSummary = ordered.Map[*FoldSummary]

// Aggregated maps target names to their metric summaries. It is the on-disk
// shape of <dataset>_<model>_aggregated.json.
type Aggregated = ordered.Map[*TargetSummary]

type Options struct {
	MetricDir string
	Dataset   string
	Model     string
	// OutputPath receives the aggregated JSON.
	OutputPath string
	// PredictionDir, when set, has its per-fold prediction CSVs combined
	// into <dataset>_<model>_combined.csv.
	PredictionDir string
	// FoldColumns prefixes combined prediction rows with fold and target.
	FoldColumns bool
}

// Result describes one aggregation. Files is zero when nothing matched and
// nothing was written.
type Result struct {
	Aggregated   *Aggregated
	Files        int
	Layout       string
	CombinedPath string
}

type Aggregator struct {
	FS     afero.Fs
	Logger *slog.Logger
}

func New(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{FS: afero.NewOsFs(), Logger: logger}
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// Aggregate discovers the fold files of one dataset and model, writes the
// aggregated JSON and optionally the combined predictions.
func (a *Aggregator) Aggregate(opts Options) (*Result, error) {
	files, layout, err := ListFoldFiles(a.FS, opts.MetricDir, opts.Dataset, opts.Model)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &Result{}, nil
	}
	a.logger().Debug("discovered fold files", "dataset", opts.Dataset, "model", opts.Model,
		"files", len(files), "layout", layout.Name())

	agg, err := a.Collect(files)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling aggregated metrics: %w", err)
	}
	var combined *Combined
	if opts.PredictionDir != "" {
		combined, err = CombinePredictions(a.FS, opts.PredictionDir, opts.Dataset, opts.Model, opts.FoldColumns)
		if err != nil {
			return nil, err
		}
	}

	if err := writeFile(a.FS, opts.OutputPath, data); err != nil {
		return nil, fmt.Errorf("writing aggregated metrics: %w", err)
	}
	res := &Result{Aggregated: agg, Files: len(files), Layout: layout.Name()}
	if combined != nil {
		if err := writeFile(a.FS, combined.Path, combined.Data); err != nil {
			a.FS.Remove(opts.OutputPath)
			return nil, fmt.Errorf("writing combined predictions: %w", err)
		}
		res.CombinedPath = combined.Path
	}
	return res, nil
}

// Collect reads files, which must be sorted by fold, and merges them by
// target and metric. Every metric gets an AllKey entry after its folds.
func (a *Aggregator) Collect(files []FoldFile) (*Aggregated, error) {
	agg := ordered.New[*TargetSummary]()
	for _, f := range files {
		set, err := readFoldFile(a.FS, f.Path)
		if err != nil {
			return nil, err
		}
		target, ok := agg.Get(f.Target)
		if !ok {
			target = ordered.New[*FoldSummary]()
			agg.Set(f.Target, target)
		}
		for _, name := range set.Keys() {
			v, _ := set.Get(name)
			folds, ok := target.Get(name)
			if !ok {
				folds = ordered.New[metric.Value]()
				target.Set(name, folds)
			}
			folds.Set(strconv.Itoa(f.Fold), v)
		}
	}

	for _, t := range agg.Keys() {
		target, _ := agg.Get(t)
		for _, name := range target.Keys() {
			folds, _ := target.Get(name)
			folds.Set(AllKey, Mean(folds))
		}
	}
	return agg, nil
}

// Mean averages the numeric fold values of s, skipping nulls, text and the
// AllKey entry. It is null when no fold value is numeric.
func Mean(s *FoldSummary) metric.Value {
	values := FoldValues(s)
	if len(values) == 0 {
		return metric.Null()
	}
	m, err := stats.Mean(values)
	if err != nil {
		return metric.Null()
	}
	return metric.Number(m)
}

// FoldValues returns the numeric per-fold values of s in fold order.
func FoldValues(s *FoldSummary) []float64 {
	var out []float64
	for _, k := range s.Keys() {
		if k == AllKey {
			continue
		}
		v, _ := s.Get(k)
		if f, ok := v.Float64(); ok {
			out = append(out, f)
		}
	}
	return out
}

// ReadAggregated loads an aggregated JSON file.
func ReadAggregated(fs afero.Fs, path string) (*Aggregated, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	agg := ordered.New[*TargetSummary]()
	if err := json.Unmarshal(data, agg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return agg, nil
}

// writeFile writes data next to path and renames it into place, so path is
// either complete or absent.
func writeFile(fs afero.Fs, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		fs.Remove(tmp)
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return err
	}
	return nil
}
