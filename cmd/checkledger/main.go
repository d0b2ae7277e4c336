// Command checkledger loads a running ourledger server with concurrent
// create, get, update and delete traffic and verifies every answer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/S0me0neR0man/ourledger/internal/checker"
	"github.com/S0me0neR0man/ourledger/internal/client"
	"github.com/S0me0neR0man/ourledger/internal/config"
	"github.com/S0me0neR0man/ourledger/internal/objects"
)

type options struct {
	addr     string
	token    string
	workers  int
	interval time.Duration
	duration time.Duration
	verbose  bool
}

func main() {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "checkledger",
		Short:         "Verify a running ourledger server under load",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", config.DefaultListen, "server address")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token sent to the server")
	cmd.Flags().IntVar(&opts.workers, "workers", 2, "workers per state")
	cmd.Flags().DurationVar(&opts.interval, "interval", 10*time.Millisecond, "delay between new samples")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "stop after this long, 0 runs until interrupted")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every step")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	logConf := zap.NewDevelopmentConfig()
	if !opts.verbose {
		logConf.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := logConf.Build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := client.NewGRPCClient(opts.addr, opts.token)
	if err != nil {
		return err
	}
	defer c.Close()

	sv := checker.NewSupervisor(logger)

	expenses, err := checker.Attach(sv, objects.Expenses(), client.For(c, objects.Expenses()),
		checker.ExpensePayloads(), opts.workers, logger)
	if err != nil {
		return err
	}
	votes, err := checker.Attach(sv, objects.Votes(), client.For(c, objects.Votes()),
		checker.VotePayloads(), opts.workers, logger)
	if err != nil {
		return err
	}
	sv.SetSourceFunc(checker.Every(opts.interval, expenses, votes))

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	if err := sv.Run(ctx); err != nil {
		return err
	}

	stats := sv.Stats()
	fmt.Printf("started=%d completed=%d failures=%d\n", stats.Started, stats.Completed, stats.Failures)
	if stats.Failures > 0 {
		return fmt.Errorf("%d samples failed", stats.Failures)
	}
	return nil
}
