package runner

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/proteingym/pg2-benchmark/internal/aggregate"
	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/report"
	"github.com/proteingym/pg2-benchmark/internal/result"
)

// Summary lists what Summarize produced for a run.
type Summary struct {
	Aggregated []string
	// Empty names dataset x model pairs without any fold metrics.
	Empty   []string
	CSVPath string
	Rows    int
}

// Summarize aggregates the fold metrics of every dataset x model in a run
// and writes the <game>_metrics.csv comparison file.
func Summarize(fs afero.Fs, runDir string, cfg *config.Config, logger *slog.Logger) (*Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	agg := &aggregate.Aggregator{FS: fs, Logger: logger}
	aggDir := result.AggregatedDir(runDir)
	if err := fs.MkdirAll(aggDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", aggDir, err)
	}
	sum := &Summary{}

	for _, d := range cfg.Datasets {
		for _, m := range cfg.Models {
			out := filepath.Join(aggDir, result.AggregatedFileName(d.Name, m.Name))
			res, err := agg.Aggregate(aggregate.Options{
				MetricDir:     result.MetricsDir(runDir),
				Dataset:       d.Name,
				Model:         m.Name,
				OutputPath:    out,
				PredictionDir: result.PredictionsDir(runDir),
			})
			if err != nil {
				return nil, fmt.Errorf("aggregating %s x %s: %w", d.Name, m.Name, err)
			}
			if res.Files == 0 {
				sum.Empty = append(sum.Empty, d.Name+"_"+m.Name)
				continue
			}
			sum.Aggregated = append(sum.Aggregated, out)
		}
	}

	sum.CSVPath = filepath.Join(runDir, cfg.Game+"_metrics.csv")
	rows, err := report.WriteCSVFile(fs, aggDir, sum.CSVPath, cfg.Game, logger)
	if err != nil {
		return nil, err
	}
	sum.Rows = rows
	return sum, nil
}
