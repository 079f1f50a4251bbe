package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/pricing"
	"github.com/proteingym/pg2-benchmark/internal/report"
	"github.com/proteingym/pg2-benchmark/internal/result"
	"github.com/proteingym/pg2-benchmark/internal/runner"
	"github.com/proteingym/pg2-benchmark/internal/sagemaker"
)

var (
	flagDataset  string
	flagModel    string
	flagFolds    int
	flagParallel int
	flagBackend  string
)

// Test seams for the container and training backends.
var (
	runContainer   runner.ContainerRunner
	preparer       *runner.Preparer
	trainingClient runner.TrainingClient
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a benchmark run",
		Args:  cobra.NoArgs,
		RunE:  runBenchmark,
	}
	cmd.Flags().StringVar(&flagDataset, "dataset", "", "filter to a single dataset")
	cmd.Flags().StringVar(&flagModel, "model", "", "filter to a single model")
	cmd.Flags().IntVar(&flagFolds, "folds", 0, "override fold count")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "max concurrent jobs (default from config)")
	cmd.Flags().StringVar(&flagBackend, "backend", "", "override backend (local, aws)")
	return cmd
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, w := range cfg.Warnings() {
		slog.Warn(w)
	}

	datasets := filterDatasets(cfg.Datasets, flagDataset)
	models := filterModels(cfg.Models, flagModel)
	if len(datasets) == 0 || len(models) == 0 {
		return fmt.Errorf("nothing to run: %d datasets and %d models match", len(datasets), len(models))
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run directory: %s\n", runDir)

	ctx := context.Background()
	var errs []error
	if cfg.Backend == config.BackendAWS {
		errs, err = runRemote(ctx, out, cfg, runDir, datasets, models)
	} else {
		errs, err = runLocal(ctx, out, cfg, runDir, datasets, models)
	}
	if err != nil {
		return err
	}
	for _, err := range errs {
		fmt.Fprintf(out, "  ERROR: %v\n", err)
	}

	scope := *cfg
	scope.Datasets, scope.Models = datasets, models
	sum, err := runner.Summarize(afero.NewOsFs(), runDir, &scope, slog.Default())
	if err != nil {
		return err
	}
	for _, name := range sum.Empty {
		fmt.Fprintf(out, "No fold directories found for %s\n", name)
	}
	fmt.Fprintf(out, "Wrote %d rows to %s\n", sum.Rows, sum.CSVPath)

	fmt.Fprintln(out, "\n--- Results ---")
	if err := report.Generate(afero.NewOsFs(), report.Options{
		Dir:     result.AggregatedDir(runDir),
		Game:    cfg.Game,
		Format:  "table",
		JobsDir: result.JobsDir(runDir),
		Logger:  slog.Default(),
	}, out); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d jobs failed", len(errs))
	}
	return nil
}

// loadRunConfig applies the command line overrides and validates again so
// that overridden values get the same defaults and checks.
func loadRunConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if flagFolds > 0 {
		cfg.Folds = flagFolds
	}
	if flagParallel > 0 {
		cfg.Parallel = flagParallel
	}
	if flagBackend != "" {
		cfg.Backend = flagBackend
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	cfg, err = config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

func runLocal(ctx context.Context, out io.Writer, cfg *config.Config, runDir string, datasets []config.Dataset, models []config.Model) ([]error, error) {
	prep := preparer
	if prep == nil {
		prep = &runner.Preparer{CacheDir: filepath.Join(cfg.Results.Dir, "cache"), Out: os.Stderr}
	}

	var errs []error
	modelDirs := map[string]string{}
	for _, m := range models {
		fmt.Fprintf(out, "Preparing %s (image: %s)...\n", m.Name, m.Image)
		dir, err := prep.Prepare(ctx, &m)
		if err != nil {
			errs = append(errs, fmt.Errorf("preparing %s: %w", m.Name, err))
			continue
		}
		modelDirs[m.Name] = dir
	}

	var jobs []runner.Job
	for _, d := range datasets {
		for _, m := range models {
			dir, ok := modelDirs[m.Name]
			if !ok {
				continue
			}
			for fold := 0; fold < cfg.Folds; fold++ {
				d, m, fold := d, m, fold
				jobs = append(jobs, func() error {
					fmt.Fprintf(out, "Running %s × %s (fold %d/%d)...\n", m.Name, d.Name, fold+1, cfg.Folds)
					meta, err := runner.RunFold(ctx, &runner.FoldOpts{
						Dataset:  &d,
						Model:    &m,
						ModelDir: dir,
						Fold:     fold,
						Folds:    cfg.Folds,
						RunDir:   runDir,
						Metrics:  cfg.Metrics,
						Run:      runContainer,
					})
					if err != nil {
						return fmt.Errorf("%s × %s fold %d: %w", m.Name, d.Name, fold, err)
					}
					fmt.Fprintf(out, "  %s × %s fold %d: %s (duration: %ds, scored: %d/%d)\n",
						m.Name, d.Name, fold, meta.ExitReason, meta.DurationS, len(meta.Scored), len(d.Targets))
					return nil
				})
			}
		}
	}
	return append(errs, runner.RunPool(cfg.Parallel, jobs)...), nil
}

func runRemote(ctx context.Context, out io.Writer, cfg *config.Config, runDir string, datasets []config.Dataset, models []config.Model) ([]error, error) {
	client := trainingClient
	if client == nil {
		c, err := sagemaker.New(cfg.AWS.Region, slog.Default())
		if err != nil {
			return nil, err
		}
		client = c
	}
	var table *pricing.Table
	if cfg.AWS.PricingFile != "" {
		t, err := pricing.Load(cfg.AWS.PricingFile)
		if err != nil {
			return nil, err
		}
		table = t
	}

	var jobs []runner.Job
	for _, d := range datasets {
		for _, m := range models {
			d, m := d, m
			jobs = append(jobs, func() error {
				fmt.Fprintf(out, "Training %s × %s on %s...\n", m.Name, d.Name, cfg.AWS.InstanceType)
				meta, err := runner.RunJob(ctx, &runner.JobOpts{
					Dataset: &d,
					Model:   &m,
					AWS:     &cfg.AWS,
					Pricing: table,
					RunDir:  runDir,
					Client:  client,
				})
				if err != nil {
					return fmt.Errorf("%s × %s: %w", m.Name, d.Name, err)
				}
				fmt.Fprintf(out, "  %s: %s (billable: %ds, cost: $%.4f)\n", meta.JobName, meta.Status, meta.BillableSeconds, meta.CostUSD)
				return nil
			})
		}
	}
	return runner.RunPool(cfg.Parallel, jobs), nil
}

func filterDatasets(datasets []config.Dataset, name string) []config.Dataset {
	if name == "" {
		return datasets
	}
	var filtered []config.Dataset
	for _, d := range datasets {
		if d.Name == name {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

func filterModels(models []config.Model, name string) []config.Model {
	if name == "" {
		return models
	}
	var filtered []config.Model
	for _, m := range models {
		if m.Name == name {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
