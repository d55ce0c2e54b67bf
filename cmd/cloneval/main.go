package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/cloneval/internal/version"
	"github.com/ludo-technologies/cloneval/service"
)

// NewRootCmd builds the cloneval command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cloneval",
		Short: "Evaluate clone detectors against a partial ground truth",
		Long: `cloneval runs a clone detection tool over a benchmark corpus and measures
how well it does against a partially judged reference.

Features:
  • Per-stratum precision over the reported pairs the reference can judge
  • Budgeted escalation of unknown pairs to an external oracle
  • Sampled recall with confidence intervals, reproducible from a seed
  • Text, JSON, YAML and CSV reports`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	// Add main subcommands
	rootCmd.AddCommand(NewEvaluateCmd())
	rootCmd.AddCommand(NewReferenceCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}

// newLogger returns the command's logger: warnings only by default, debug
// records with --verbose.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// printError prints a categorized error with recovery suggestions
func printError(w io.Writer, err error) {
	categorizer := service.NewErrorCategorizer()
	categorized := categorizer.Categorize(err)

	fmt.Fprintf(w, "Error: %s\n", categorized.Message)
	if categorized.Message != err.Error() {
		fmt.Fprintf(w, "  %v\n", err)
	}

	fmt.Fprintf(w, "\nSuggestions:\n")
	for _, s := range categorizer.GetRecoverySuggestions(categorized.Category) {
		fmt.Fprintf(w, "  • %s\n", s)
	}
}
