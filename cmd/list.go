package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/metric"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured datasets, models and available metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Game: %s (backend: %s, folds: %d)\n", cfg.Game, cfg.Backend, cfg.Folds)
			fmt.Fprintln(out, "\nDatasets:")
			for _, d := range cfg.Datasets {
				fmt.Fprintf(out, "  - %s (%s) targets: %s\n", d.Name, d.Path, strings.Join(d.Targets, ", "))
			}
			fmt.Fprintln(out, "\nModels:")
			for _, m := range cfg.Models {
				source := m.Path
				if m.Repo != "" {
					source = m.Repo + "@" + m.Tag
				}
				fmt.Fprintf(out, "  - %s (%s, image: %s)\n", m.Name, source, m.Image)
			}
			fmt.Fprintln(out, "\nMetrics:")
			for _, name := range metric.DefaultRegistry().All() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			for _, w := range cfg.Warnings() {
				fmt.Fprintf(out, "\nwarning: %s\n", w)
			}
			return nil
		},
	}
}
