package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/proteingym/pg2-benchmark/internal/aggregate"
	"github.com/proteingym/pg2-benchmark/internal/report"
)

var (
	flagMetricDir     string
	flagDatasetName   string
	flagModelName     string
	flagOutputPath    string
	flagPredictionDir string
	flagFoldColumns   bool
	flagGame          string
)

func newUtilsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "utils",
		Short: "Aggregate fold metrics and build comparison CSVs",
	}
	cmd.AddCommand(newAggregateCmd())
	cmd.AddCommand(newGenerateCSVCmd())
	return cmd
}

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Merge the per-fold metric files of one dataset and model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := aggregate.New(slog.Default()).Aggregate(aggregate.Options{
				MetricDir:     flagMetricDir,
				Dataset:       flagDatasetName,
				Model:         flagModelName,
				OutputPath:    flagOutputPath,
				PredictionDir: flagPredictionDir,
				FoldColumns:   flagFoldColumns,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Files == 0 {
				fmt.Fprintf(out, "No fold directories found for %s_%s\n", flagDatasetName, flagModelName)
				return nil
			}
			fmt.Fprintf(out, "Aggregated %d fold files (%s) into %s\n", res.Files, res.Layout, flagOutputPath)
			if res.CombinedPath != "" {
				fmt.Fprintf(out, "Combined predictions written to %s\n", res.CombinedPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flagMetricDir, "metric-dir", "", "directory holding the fold metric files")
	cmd.Flags().StringVar(&flagDatasetName, "dataset-name", "", "dataset name")
	cmd.Flags().StringVar(&flagModelName, "model-name", "", "model name")
	cmd.Flags().StringVar(&flagOutputPath, "output-path", "", "aggregated JSON to write")
	cmd.Flags().StringVar(&flagPredictionDir, "prediction-dir", "", "directory of per-fold prediction CSVs to combine")
	cmd.Flags().BoolVar(&flagFoldColumns, "fold-columns", false, "prefix combined prediction rows with fold and target")
	for _, name := range []string{"metric-dir", "dataset-name", "model-name", "output-path"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newGenerateCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-csv",
		Short: "Write the cross-model comparison CSV from aggregated files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := report.WriteCSVFile(afero.NewOsFs(), flagMetricDir, flagOutputPath, flagGame, slog.Default())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", n, flagOutputPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagMetricDir, "metric-dir", "", "directory holding <dataset>_<model>_aggregated.json files")
	cmd.Flags().StringVar(&flagOutputPath, "output-path", "", "CSV to write")
	cmd.Flags().StringVar(&flagGame, "game", "", "game label for every row")
	for _, name := range []string{"metric-dir", "output-path", "game"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}
