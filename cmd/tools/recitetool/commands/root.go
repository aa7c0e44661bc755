package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/tilawa/backend/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "recitetool",
	Short:         "Developer tools for the recitation backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() *zap.SugaredLogger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger
}
