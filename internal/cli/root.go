package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.3.0"

// Exit codes.
const (
	ExitSuccess       = 0
	ExitChangesWanted = 1
	ExitUsageError    = 2
	ExitAuthError     = 3
	ExitRuntimeError  = 4
)

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "critiq",
	Short: "AI code review for diffs and pull requests",
	Long:  "Critiq analyzes code changes with an LLM and delivers the review as inline pull-request comments, with local diff review for pre-push checks.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// newLogger builds the CLI logger. Output goes to stderr so formatted
// results own stdout.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if flagVerbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print critiq version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "critiq version %s\n", version)
	},
}
