package xlog

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func TestFxXLogger_LogEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewXLogger(
		WithXLoggerWriter(buf),
		WithXLoggerLevel(LogLevelDebug),
	)
	fxLogger := NewFxXLogger(logger)

	events := []fxevent.Event{
		&fxevent.OnStartExecuting{FunctionName: "start", CallerName: "main"},
		&fxevent.OnStartExecuted{FunctionName: "start", CallerName: "main", Runtime: time.Millisecond},
		&fxevent.OnStartExecuted{FunctionName: "start", CallerName: "main", Err: errors.New("start")},
		&fxevent.OnStopExecuting{FunctionName: "stop", CallerName: "main"},
		&fxevent.OnStopExecuted{FunctionName: "stop", CallerName: "main"},
		&fxevent.OnStopExecuted{FunctionName: "stop", CallerName: "main", Err: errors.New("stop")},
		&fxevent.Supplied{TypeName: "string"},
		&fxevent.Supplied{TypeName: "string", Err: errors.New("supply")},
		&fxevent.Provided{ConstructorName: "newTree", OutputTypeNames: []string{"tree"}},
		&fxevent.Provided{ConstructorName: "newTree", Err: errors.New("provide")},
		&fxevent.Invoking{FunctionName: "run"},
		&fxevent.Invoked{FunctionName: "run", Err: errors.New("invoke")},
		&fxevent.RollingBack{StartErr: errors.New("rollback")},
		&fxevent.RolledBack{Err: errors.New("rolledback")},
		&fxevent.Started{},
		&fxevent.Started{Err: errors.New("started")},
		&fxevent.Stopped{Err: errors.New("stopped")},
		&fxevent.LoggerInitialized{ConstructorName: "logger"},
		&fxevent.LoggerInitialized{Err: errors.New("logger")},
	}
	for _, e := range events {
		fxLogger.LogEvent(e)
	}

	lines := decodeLines(t, buf)
	require.Len(t, lines, len(events))
	for _, line := range lines {
		require.Equal(t, "Fx", line["component"])
		_, ok := line["callAt"]
		require.False(t, ok)
	}
	require.Equal(t, "HOOK OnStart failed", lines[2]["msg"])
	require.Equal(t, "start", lines[2]["error"])

	var nilLogger *FxXLogger
	require.NotPanics(t, func() {
		nilLogger.LogEvent(&fxevent.Started{})
	})
}

func TestFxXLogger_App(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewXLogger(
		WithXLoggerWriter(buf),
		WithXLoggerLevel(LogLevelDebug),
	)

	invoked := false
	app := fx.New(
		fx.Provide(func() XLogger {
			return logger
		}),
		fx.WithLogger(func(logger XLogger) fxevent.Logger {
			return NewFxXLogger(logger)
		}),
		fx.Invoke(func(logger XLogger) {
			invoked = true
			logger.Info("invoked")
		}),
	)
	require.NoError(t, app.Err())
	require.True(t, invoked)
	require.Contains(t, buf.String(), "INVOKING")
	require.Contains(t, buf.String(), `"msg":"invoked"`)
}
