package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/selection"
)

var (
	flagSelectGame     string
	flagSelectEnv      string
	flagSelectDatasets string
	flagSelectModels   string
	flagSelectOutput   string
	flagYes            bool
)

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <models.json> <datasets.json>",
		Short: "Select dataset and model permutations for a benchmark",
		Long: "Select datasets and models from their catalogues (\"all\" or 1-based indices such as 1,3 or 2-4) " +
			"and write the benchmark config for the chosen game and environment.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := selection.LoadEntries(args[0])
			if err != nil {
				return err
			}
			datasets, err := selection.LoadEntries(args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			dIdx, err := selection.Parse(flagSelectDatasets, len(datasets))
			if err != nil {
				return err
			}
			if len(dIdx) == 0 {
				return errors.New("No datasets selected. Exiting.")
			}
			mIdx, err := selection.Parse(flagSelectModels, len(models))
			if err != nil {
				return err
			}
			if len(mIdx) == 0 {
				return errors.New("No models selected. Exiting.")
			}
			datasets = selection.Apply(datasets, dIdx)
			models = selection.Apply(models, mIdx)
			fmt.Fprintf(out, "✅ Selected datasets: %s\n", entryNames(datasets))
			fmt.Fprintf(out, "✅ Selected models: %s\n", entryNames(models))

			cfg, err := selection.Render(flagSelectGame, flagSelectEnv, datasets, models)
			if err != nil {
				return err
			}
			for _, w := range cfg.Warnings() {
				slog.Warn(w)
			}

			path := flagSelectOutput
			if path == "" {
				path = selection.Path(flagSelectGame, flagSelectEnv)
			}
			if !flagYes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Update %s?", path)) {
				fmt.Fprintf(out, "Configuration not saved to %s.\n", path)
				return nil
			}
			if err := selection.Write(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "✅ Updated %s with selected models and datasets\n", path)
			if cfg.Backend == config.BackendAWS {
				fmt.Fprintln(out, "Fill in the aws section before running it.")
			}
			slog.Info("wrote benchmark config", "path", path, "datasets", len(datasets), "models", len(models))
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagSelectGame, "game", "g", config.GameSupervised, "game: supervised or zero_shot")
	cmd.Flags().StringVarP(&flagSelectEnv, "env", "e", selection.EnvLocal, "environment: local or aws")
	cmd.Flags().StringVar(&flagSelectDatasets, "datasets", "all", "datasets to select")
	cmd.Flags().StringVar(&flagSelectModels, "models", "all", "models to select")
	cmd.Flags().StringVarP(&flagSelectOutput, "output", "o", "", "config path (default benchmark/<game>/<env>/benchmark.yaml)")
	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "write without asking")
	return cmd
}

func entryNames(entries []selection.Entry) string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return strings.Join(names, ", ")
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
