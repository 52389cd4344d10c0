package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/xlog"
)

const appStartStopTimeout = 30 * time.Second

type rootConfig struct {
	LogLevel   string
	LogEncoder string
}

func newRootCmd() *cobra.Command {
	cfg := &rootConfig{}
	root := &cobra.Command{
		Use:   "xrbtree",
		Short: "red-black tree ordered map playground",
		Long: `
	Runs the red-black tree through a scripted demo or a randomized
	workload validated against a shadow map.
	`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&cfg.LogLevel, "log-level", xlog.LogLevelInfo.String(), "log level, DEBUG|INFO|WARN|ERROR")
	flags.StringVar(&cfg.LogEncoder, "log-encoder", "text", "log encoder, text|json")

	root.AddCommand(
		newDemoCmd(cfg),
		newFuzzCmd(cfg),
	)
	return root
}

// newLogger writes the logs to the stderr of the command, the stdout
// is reserved for the tree dumps.
func newLogger(cmd *cobra.Command, cfg *rootConfig) (xlog.XLogger, error) {
	lvl, err := xlog.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	var enc xlog.LogEncoderType
	switch cfg.LogEncoder {
	case "text":
		enc = xlog.PlainText
	case "json":
		enc = xlog.JSON
	default:
		return nil, infra.NewErrorStack("[xrbtree] unknown log encoder " + cfg.LogEncoder)
	}
	return xlog.NewXLogger(
		xlog.WithXLoggerLevel(lvl),
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerWriter(cmd.ErrOrStderr()),
	), nil
}

// runApp builds an fx application around the command. The logger and
// the command stdout are provided, opts add the command components.
// The work is done by the lifecycle hooks, so the app is started and
// stopped right away.
func runApp(cmd *cobra.Command, cfg *rootConfig, opts ...fx.Option) error {
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Logf(zapcore.DebugLevel, format, args...)
	}))
	defer undo()
	if err != nil {
		logger.Warn("[xrbtree] unable to set GOMAXPROCS", zap.Error(err))
	}

	app := fx.New(
		fx.Provide(
			func() xlog.XLogger {
				return logger
			},
			func() io.Writer {
				return cmd.OutOrStdout()
			},
		),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Options(opts...),
	)
	if err = app.Err(); err != nil {
		logger.ErrorStack(unwrapErrorStack(err), "[xrbtree] build app failed", zap.String("cmd", cmd.Name()))
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), appStartStopTimeout)
	defer cancel()
	if err = app.Start(ctx); err != nil {
		logger.ErrorStack(unwrapErrorStack(err), "[xrbtree] run failed", zap.String("cmd", cmd.Name()))
		return err
	}
	if err = app.Stop(ctx); err != nil {
		logger.ErrorStack(unwrapErrorStack(err), "[xrbtree] stop failed", zap.String("cmd", cmd.Name()))
		return err
	}
	return nil
}

// unwrapErrorStack finds the error stack behind the fx wrappers.
func unwrapErrorStack(err error) error {
	var es infra.ErrorStack
	if errors.As(err, &es) {
		return es
	}
	return err
}
