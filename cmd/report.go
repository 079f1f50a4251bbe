package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/report"
	"github.com/proteingym/pg2-benchmark/internal/result"
)

var (
	flagFormat     string
	flagReportGame string
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [aggregated-dir]",
		Short: "Render the comparison of aggregated results",
		Long:  "Render the comparison rows of an aggregated directory. Without an argument the latest run of the configured results dir is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			game := flagReportGame
			var dir string
			if len(args) > 0 {
				dir = args[0]
			} else {
				cfg, err := config.Load(cfgFile)
				if err != nil {
					return err
				}
				dir = result.AggregatedDir(filepath.Join(cfg.Results.Dir, "latest"))
				if game == "" {
					game = cfg.Game
				}
			}
			resolved, err := filepath.EvalSymlinks(dir)
			if err != nil {
				return fmt.Errorf("resolving aggregated dir: %w", err)
			}
			return report.Generate(afero.NewOsFs(), report.Options{
				Dir:     resolved,
				Game:    game,
				Format:  flagFormat,
				JobsDir: result.JobsDir(filepath.Dir(resolved)),
				Logger:  slog.Default(),
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json, csv)")
	cmd.Flags().StringVar(&flagReportGame, "game", "", "game label for the rows")
	return cmd
}
