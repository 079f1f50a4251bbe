package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/proteingym/pg2-benchmark/internal/validation"
)

var (
	flagRequireEntryPoints []string
	flagImage              string
	flagEntryPoint         string
)

// containerRunner is swapped in tests.
var containerRunner validation.ContainerRunner

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model-project-dir>...",
		Short: "Check model projects before benchmarking them",
		Long: "Check that each model project has a pyproject.toml with a name and entry points, " +
			"a README.md model card with front matter, and a Dockerfile. With --image the entry point " +
			"is also run inside the image.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, dir := range args {
				r := validation.ValidateProject(dir, flagRequireEntryPoints...)
				if flagImage != "" {
					r.CheckEntryPoint(context.Background(), containerRunner, flagImage, flagEntryPoint)
				}
				printChecks(cmd.OutOrStdout(), r)
				if !r.OK() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("validation failed for %d of %d projects", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&flagRequireEntryPoints, "require-entry-point", nil, "entry points the project must define")
	cmd.Flags().StringVar(&flagImage, "image", "", "built image to check the entry point in")
	cmd.Flags().StringVar(&flagEntryPoint, "entry-point", "train", "entry point to run with --image")
	return cmd
}

func printChecks(w io.Writer, r *validation.Report) {
	fmt.Fprintf(w, "%s\n", r.Dir)
	for _, c := range r.Checks {
		mark := "✅"
		switch {
		case c.Warning:
			mark = "⚠️"
		case !c.OK:
			mark = "❌"
		}
		fmt.Fprintf(w, "  %s %s: %s\n", mark, c.Name, c.Message)
	}
}
