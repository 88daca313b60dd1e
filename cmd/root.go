package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/dfq/internal/config"
	"github.com/gnolang/dfq/internal/lang"
)

const defaultTimeout = 30 * time.Second

// errReported marks failures whose details were already printed.
var errReported = errors.New("failed")

type rootOptions struct {
	cfgFile string
	timeout time.Duration
	verbose bool

	cfg    config.Config
	logger *zap.Logger
}

func NewRootCmd() *cobra.Command {
	ro := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "dfq",
		Short:         "dfq - evaluate filter and arithmetic expressions over tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ro.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if ro.logger != nil {
				_ = ro.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ro.cfgFile, "config", config.DefaultFile, "Path to the configuration file")
	flags.DurationVar(&ro.timeout, "timeout", defaultTimeout, "Set a timeout for evaluation")
	flags.BoolVarP(&ro.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newEvalCmd(ro))
	rootCmd.AddCommand(newTokensCmd(ro))
	rootCmd.AddCommand(newBatchCmd(ro))
	rootCmd.AddCommand(newWatchCmd(ro))
	rootCmd.AddCommand(newInitCmd(ro))
	return rootCmd
}

// Execute runs the dfq command line.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
	}
	return err
}

func (ro *rootOptions) setup(cmd *cobra.Command) error {
	logger, err := newLogger(ro.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	ro.logger = logger

	// init writes the file, so it must not depend on an existing one
	if cmd.Name() == "init" {
		ro.cfg = config.Default()
		return nil
	}

	cfg, err := config.Load(ro.cfgFile)
	if err != nil {
		return err
	}
	ro.cfg = cfg
	if !cmd.Flags().Changed("timeout") && cfg.Timeout > 0 {
		ro.timeout = cfg.Timeout
	}
	if !cfg.Color {
		color.NoColor = true
	}
	logger.Debug("configuration loaded",
		zap.String("file", ro.cfgFile),
		zap.Bool("legacy_plus", cfg.LegacyPlus),
		zap.Duration("timeout", ro.timeout))
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	return cfg.Build()
}

func (ro *rootOptions) parserOptions() []lang.Option {
	return ro.cfg.ParserOptions(ro.logger)
}

func (ro *rootOptions) wantJSON(flag bool) bool {
	return flag || ro.cfg.Output == config.OutputJSON
}

// runWithTimeout runs f and gives up when ctx is done first.
func runWithTimeout[T any](ctx context.Context, f func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := f()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("evaluation timed out: %w", ctx.Err())
	case r := <-done:
		return r.v, r.err
	}
}

func (ro *rootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if ro.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ro.timeout)
}

// openOutput returns stdout, or the file at path when one is given.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating output file: %w", err)
	}
	return f, f.Close, nil
}
