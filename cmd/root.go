package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/proteingym/pg2-benchmark/internal/logging"
)

// defaultVerbosity is info.
const defaultVerbosity = 3

var (
	cfgFile   string
	verbosity int
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "benchmark",
		Short:        "ProteinGym2 benchmark: score predictions, aggregate folds and run model adapters",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("verbose") {
				verbosity = defaultVerbosity
			}
			logging.New(os.Stderr, verbosity)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "benchmark.yaml", "config file path")
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "verbosity: 0 critical, 1 error, 2 warning, 3 info, 4 debug (default 3)")
	root.AddCommand(newMetricCmd())
	root.AddCommand(newUtilsCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newSelectCmd())
	root.AddCommand(newSageMakerCmd())
	return root
}
