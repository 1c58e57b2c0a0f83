package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/shipcheck/internal/app"
	"github.com/MrSnakeDoc/shipcheck/internal/config"
	"github.com/MrSnakeDoc/shipcheck/internal/domain"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ shipcheck: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shipcheck",
		Short:         "Verify that a deployed container is running and healthy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newVerifyCmd(), newServeCmd(), newVersionCmd())
	return root
}

func newVerifyCmd() *cobra.Command {
	var (
		opts    app.VerifyOptions
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify every target once and exit non-zero if one did not start",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New(cfg.LogLevel, cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			_, err := app.Verify(ctx, cfg, log, opts)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, domain.ErrServiceDidNotStart):
				return fmt.Errorf("deployment verification failed: %w", err)
			default:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&opts.TargetsFile, "targets", "", "targets YAML file (default $SHIPCHECK_TARGETS_FILE)")
	cmd.Flags().StringVar(&opts.ReportFile, "report-file", "", "write the verification reports as JSON to this path")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline for the run (0 = none)")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Re-verify targets periodically and expose reports over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New(cfg.LogLevel, cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
