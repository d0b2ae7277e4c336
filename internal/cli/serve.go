package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/S0me0neR0man/ourledger/internal/config"
	"github.com/S0me0neR0man/ourledger/internal/memory"
	"github.com/S0me0neR0man/ourledger/internal/objects"
	"github.com/S0me0neR0man/ourledger/internal/server"
)

// ServeOptions holds flags for the serve command. Set flags override the
// config file.
type ServeOptions struct {
	*RootOptions
	ConfigPath   string
	Listen       string
	Backend      string
	DataPath     string
	CompactEvery string
	LogLevel     string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger server",
		Long: `Run the ledger server until SIGINT or SIGTERM.

Settings come from the defaults, then --config, then the flags below.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			conf, err := opts.config(cmd)
			if err != nil {
				_ = f.Error("config", err.Error())
				return WrapExitError(ExitCommandError, "config", err)
			}
			if err := runServe(cmd.Context(), conf, opts.Verbose); err != nil {
				_ = f.Error("serve", err.Error())
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.Flags().StringVar(&opts.Listen, "listen", config.DefaultListen, "listen address")
	cmd.Flags().StringVar(&opts.Backend, "backend", memory.BadgerBackend, "storage backend (badger|sqlite|memory)")
	cmd.Flags().StringVar(&opts.DataPath, "data-path", config.DefaultDataPath, "data directory")
	cmd.Flags().StringVar(&opts.CompactEvery, "compact-every", config.DefaultCompactEvery, "backend compaction interval, 0 disables")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")

	return cmd
}

func (o *ServeOptions) config(cmd *cobra.Command) (*config.Config, error) {
	conf := config.NewConfig()
	if o.ConfigPath != "" {
		var err error
		if conf, err = config.Load(o.ConfigPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		conf.Listen = o.Listen
	}
	if flags.Changed("backend") {
		conf.Backend = o.Backend
	}
	if flags.Changed("data-path") {
		conf.DataPath = o.DataPath
	}
	if flags.Changed("compact-every") {
		conf.CompactEvery = o.CompactEvery
	}
	if flags.Changed("log-level") {
		conf.LogLevel = o.LogLevel
	}
	if flags.Changed("token") {
		conf.Token = o.Token
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func newLogger(conf *config.Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := conf.Level()
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func runServe(ctx context.Context, conf *config.Config, verbose bool) error {
	logger, err := newLogger(conf, verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "logger", err)
	}
	defer logger.Sync() //nolint:errcheck

	backend, err := memory.Open(conf.Backend, conf.DataPath, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "open backend", err)
	}
	manager, err := memory.NewManager(backend, logger)
	if err != nil {
		_ = backend.Close()
		return WrapExitError(ExitCommandError, "open store", err)
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Sugar().Errorw("manager.Close", "error", err)
		}
	}()

	ss := server.NewLedgerServer(manager, conf, logger)
	if _, err := server.Mount(ss, objects.Expenses()); err != nil {
		return WrapExitError(ExitCommandError, "mount expenses", err)
	}
	if _, err := server.Mount(ss, objects.Votes()); err != nil {
		return WrapExitError(ExitCommandError, "mount votes", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ss.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		ss.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "serve", fmt.Errorf("listen %s: %w", conf.Listen, err))
	}
	return nil
}
