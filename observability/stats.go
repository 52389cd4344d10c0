package observability

import (
	"context"
	"runtime"
	"strings"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xrbtree/lib/infra"
)

const AppStatsName = "xrbtree/app"

type appStats struct {
	ctx          context.Context
	registration metric.Registration
	goroutines   metric.Int64ObservableUpDownCounter
	processes    metric.Int64ObservableUpDownCounter
}

func (stats *appStats) waitForShutdown() {
	if stats == nil || stats.registration == nil {
		return
	}
	go func() {
		<-stats.ctx.Done()
		_ = stats.registration.Unregister()
	}()
}

// InitAppStats observes the goroutines and GOMAXPROCS of the process
// and starts the go runtime instrumentation on mp. The observation
// stops once ctx is done.
func InitAppStats(ctx context.Context, name string, mp metric.MeterProvider) error {
	if mp == nil {
		return infra.NewErrorStack("[observability] nil meter provider")
	}
	builder := &strings.Builder{}
	builder.WriteString(AppStatsName)
	builder.WriteString("/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	meter := mp.Meter(
		builder.String(),
		metric.WithInstrumentationVersion(otelruntime.Version()),
	)

	stats := &appStats{
		ctx: ctx,
		goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.
			Int64ObservableUpDownCounter(
				"app.core.goroutines",
				metric.WithDescription(`The application goroutines' info.`),
			),
		),
		processes: lo.Must[metric.Int64ObservableUpDownCounter](meter.
			Int64ObservableUpDownCounter(
				"app.core.processes",
				metric.WithDescription(`The application GOMAXPROCS info.`),
			),
		),
	}
	reg, err := meter.RegisterCallback(func(ctx context.Context, ob metric.Observer) error {
		ob.ObserveInt64(stats.goroutines, int64(runtime.NumGoroutine()))
		ob.ObserveInt64(stats.processes, int64(runtime.GOMAXPROCS(0)))
		return nil
	}, stats.goroutines, stats.processes)
	if err != nil {
		return infra.WrapErrorStack(err, "[observability] register app stats")
	}
	stats.registration = reg

	if err = otelruntime.Start(otelruntime.WithMeterProvider(mp)); err != nil {
		_ = reg.Unregister()
		return infra.WrapErrorStack(err, "[observability] start runtime stats")
	}
	stats.waitForShutdown()
	return nil
}
