// Command gamecfg builds versioned engine settings and item catalog
// artifacts from author-maintained JSON or YAML sources.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gamecfg/internal/config"
	"gamecfg/internal/data/loader"
	"gamecfg/internal/data/records"
	"gamecfg/internal/data/validate"
	"gamecfg/internal/logging"
)

const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

var (
	flagConfig  string
	flagVerbose bool

	cfg    config.Config
	logger = zap.NewNop()
)

// errValidationFailed is returned after diagnostics were already printed.
var errValidationFailed = errors.New("validation failed")

var rootCmd = &cobra.Command{
	Use:           "gamecfg",
	Short:         "Build versioned engine settings and item catalog artifacts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		logger, err = logging.New(flagVerbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./gamecfg.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging in console format")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(savesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil && !errors.Is(err, errValidationFailed) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var (
		verr *validate.Error
		serr *records.StructuralError
		perr *loader.ParseError
		ferr *loader.FormatError
	)
	switch {
	case errors.Is(err, errValidationFailed),
		errors.Is(err, os.ErrNotExist),
		errors.As(err, &verr),
		errors.As(err, &serr),
		errors.As(err, &perr),
		errors.As(err, &ferr):
		return exitUserError
	}
	return exitSysError
}
