package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"github.com/spf13/afero"

	"github.com/proteingym/pg2-benchmark/internal/aggregate"
	"github.com/proteingym/pg2-benchmark/internal/metric"
	"github.com/proteingym/pg2-benchmark/internal/result"
)

// SummaryMetric is the metric the comparison table is built from.
const SummaryMetric = "spearman"

// Row is one line of the cross-model comparison table.
type Row struct {
	Game     string       `csv:"game" json:"game"`
	Model    string       `csv:"model" json:"model"`
	Dataset  string       `csv:"dataset" json:"dataset"`
	Target   string       `csv:"target" json:"target"`
	Spearman metric.Value `csv:"spearman" json:"spearman"`
	Stdev    float64      `csv:"stdev" json:"stdev"`
	Folds    int          `csv:"-" json:"folds"`
}

type Options struct {
	// Dir holds <dataset>_<model>_aggregated.json files.
	Dir    string
	Game   string
	Format string
	// JobsDir, when set, adds a cost summary of remote training jobs.
	JobsDir string
	Logger  *slog.Logger
}

// Generate renders the comparison rows of an aggregated directory.
func Generate(fs afero.Fs, opts Options, w io.Writer) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rows, err := Collect(fs, opts.Dir, opts.Game, logger)
	if err != nil {
		return err
	}
	var jobs []*result.JobMeta
	if opts.JobsDir != "" {
		jobs = collectJobs(fs, opts.JobsDir, logger)
	}

	switch opts.Format {
	case "csv":
		return WriteCSV(rows, w)
	case "markdown":
		return writeMarkdown(rows, jobs, w)
	case "json":
		return writeJSON(rows, w)
	default:
		return writeTable(rows, jobs, w)
	}
}

// Collect builds one row per target with a spearman entry, from every
// aggregated file in dir in name order.
func Collect(fs afero.Fs, dir, game string, logger *slog.Logger) ([]Row, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "_aggregated.json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var rows []Row
	for _, name := range names {
		dataset, model, _ := result.ParseAggregatedName(name)
		agg, err := aggregate.ReadAggregated(fs, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		for _, target := range agg.Keys() {
			metrics, _ := agg.Get(target)
			folds, ok := metrics.Get(SummaryMetric)
			if !ok {
				continue
			}
			mean, stdev, n := summarize(folds, logger.With("file", name, "target", target))
			rows = append(rows, Row{
				Game:     game,
				Model:    model,
				Dataset:  dataset,
				Target:   target,
				Spearman: mean,
				Stdev:    stdev,
				Folds:    n,
			})
		}
	}
	return rows, nil
}

// summarize returns the stored mean (recomputed when absent), the population
// stdev of the fold values (0 for fewer than two) and the fold count.
func summarize(folds *aggregate.FoldSummary, logger *slog.Logger) (metric.Value, float64, int) {
	values := aggregate.FoldValues(folds)
	mean, _ := folds.Get(aggregate.AllKey)
	if mean.IsNull() {
		mean = aggregate.Mean(folds)
	}
	if len(values) < 2 {
		return mean, 0, len(values)
	}
	sd, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		logger.Warn("computing stdev", "error", err)
		return mean, 0, len(values)
	}
	return mean, sd, len(values)
}

// WriteCSV writes rows with the header game,model,dataset,target,spearman,stdev.
func WriteCSV(rows []Row, w io.Writer) error {
	if rows == nil {
		rows = []Row{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing comparison csv: %w", err)
	}
	return nil
}

// collectJobs reads the job records in dir. Unreadable records are logged
// and skipped.
func collectJobs(fs afero.Fs, dir string, logger *slog.Logger) []*result.JobMeta {
	matches, err := afero.Glob(fs, filepath.Join(dir, "*.json"))
	if err != nil {
		logger.Warn("listing job records", "dir", dir, "error", err)
		return nil
	}
	sort.Strings(matches)
	var jobs []*result.JobMeta
	for _, path := range matches {
		job, err := result.ReadJobMeta(fs, path)
		if err != nil {
			logger.Warn("skipping job record", "path", path, "error", err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func formatMean(v metric.Value) string {
	if f, ok := v.Float64(); ok {
		return fmt.Sprintf("%.3f", f)
	}
	return "-"
}

func writeTable(rows []Row, jobs []*result.JobMeta, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tDATASET\tTARGET\tFOLDS\tSPEARMAN\tSTDEV")
	fmt.Fprintln(tw, strings.Repeat("-", 72))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%.3f\n",
			r.Model, r.Dataset, r.Target, r.Folds, formatMean(r.Spearman), r.Stdev)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(jobs) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "JOB\tSTATUS\tINSTANCE\tBILLABLE\tCOST")
		for _, j := range jobs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%ds\t$%.2f\n", j.JobName, j.Status, j.InstanceType, j.BillableSeconds, j.CostUSD)
		}
		fmt.Fprintf(tw, "TOTAL\t\t\t\t$%.2f\n", totalCost(jobs))
		return tw.Flush()
	}
	return nil
}

func writeMarkdown(rows []Row, jobs []*result.JobMeta, w io.Writer) error {
	fmt.Fprintln(w, "| Model | Dataset | Target | Folds | Spearman | Stdev |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|")
	for _, r := range rows {
		fmt.Fprintf(w, "| %s | %s | %s | %d | %s | %.3f |\n",
			r.Model, r.Dataset, r.Target, r.Folds, formatMean(r.Spearman), r.Stdev)
	}
	if len(jobs) > 0 {
		fmt.Fprintf(w, "\nTraining jobs: %d, total cost $%.2f\n", len(jobs), totalCost(jobs))
	}
	return nil
}

func writeJSON(rows []Row, w io.Writer) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func totalCost(jobs []*result.JobMeta) float64 {
	var sum float64
	for _, j := range jobs {
		sum += j.CostUSD
	}
	return sum
}

// WriteCSVFile writes the comparison CSV for dir to path and returns the
// number of rows.
func WriteCSVFile(fs afero.Fs, dir, path, game string, logger *slog.Logger) (int, error) {
	rows, err := Collect(fs, dir, game, logger)
	if err != nil {
		return 0, err
	}
	if d := filepath.Dir(path); d != "." {
		if err := fs.MkdirAll(d, 0o755); err != nil {
			return 0, fmt.Errorf("creating output dir: %w", err)
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := WriteCSV(rows, f); err != nil {
		return 0, err
	}
	return len(rows), nil
}
