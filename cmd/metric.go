package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/proteingym/pg2-benchmark/internal/metric"
)

var (
	flagPredictionPath  string
	flagMetricPath      string
	flagSelectedMetrics []string
	flagActualColumn    string
	flagPredictColumn   string
)

func newMetricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metric",
		Short: "Score one prediction file",
		Long: "Read a prediction CSV (actual values in the first column and predictions in the second, " +
			"unless named), drop rows with a null in either, and write the selected metrics as JSON.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			calc := metric.NewCalculator(slog.Default())
			cols := metric.Columns{Actual: flagActualColumn, Predicted: flagPredictColumn}
			set, err := calc.Evaluate(flagPredictionPath, flagMetricPath, flagSelectedMetrics, cols)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d metrics to %s\n", set.Len(), flagMetricPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagPredictionPath, "prediction-path", "", "prediction CSV to score")
	cmd.Flags().StringVar(&flagMetricPath, "metric-path", "", "metric JSON to write")
	cmd.Flags().StringSliceVar(&flagSelectedMetrics, "selected-metrics", nil, "metrics to compute (default: all registered)")
	cmd.Flags().StringVar(&flagActualColumn, "actual-column", "", "header of the actual values column")
	cmd.Flags().StringVar(&flagPredictColumn, "predict-column", "", "header of the predicted values column")
	cmd.MarkFlagRequired("prediction-path")
	cmd.MarkFlagRequired("metric-path")
	return cmd
}
