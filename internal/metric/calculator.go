package metric

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// Calculator scores prediction files against a metric registry.
type Calculator struct {
	Registry *Registry
	FS       afero.Fs
	Logger   *slog.Logger
}

// NewCalculator returns a Calculator over the OS filesystem with the
// built-in metrics.
func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		Registry: DefaultRegistry(),
		FS:       afero.NewOsFs(),
		Logger:   logger,
	}
}

func (c *Calculator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Calculate computes the selected metrics over complete (actual, predicted)
// pairs. An empty selection means every default metric. Unknown names are
// logged and skipped.
func (c *Calculator) Calculate(actual, predicted []float64, selected []string) *Set {
	out := NewSet()
	if len(actual) == 0 {
		c.logger().Warn("no complete prediction rows, metric set is empty")
		return out
	}
	if len(selected) == 0 {
		selected = c.Registry.Names()
	}
	for _, name := range selected {
		fn, ok := c.Registry.Lookup(name)
		if !ok {
			c.logger().Warn("unknown metric, skipping", "metric", name)
			continue
		}
		res := fn(actual, predicted)
		for _, key := range res.Keys() {
			v, _ := res.Get(key)
			out.Set(key, v)
		}
	}
	return out
}

// Evaluate scores the prediction file at predictionPath and writes the
// metric set as JSON to metricPath.
func (c *Calculator) Evaluate(predictionPath, metricPath string, selected []string, cols Columns) (*Set, error) {
	preds, err := ReadPredictions(c.FS, predictionPath, cols)
	if err != nil {
		return nil, err
	}
	if preds.Dropped > 0 {
		c.logger().Debug("dropped incomplete rows", "path", predictionPath, "rows", preds.Dropped)
	}

	set := c.Calculate(preds.Actual, preds.Predicted, selected)
	if err := WriteSet(c.FS, metricPath, set); err != nil {
		return nil, err
	}
	return set, nil
}

// WriteSet writes set as indented JSON, creating parent directories.
func WriteSet(fs afero.Fs, path string, set *Set) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating metric dir: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
