package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestParseExporterType(t *testing.T) {
	typ, err := ParseExporterType(" Stdout ")
	require.NoError(t, err)
	require.Equal(t, StdoutExporter, typ)

	typ, err = ParseExporterType("prometheus")
	require.NoError(t, err)
	require.Equal(t, PrometheusExporter, typ)

	typ, err = ParseExporterType("none")
	require.NoError(t, err)
	require.Equal(t, NoneExporter, typ)

	_, err = ParseExporterType("jaeger")
	require.Error(t, err)

	_, err = NewMetricsExporter(ExporterType("jaeger"))
	require.Error(t, err)
}

func TestStdoutExporter(t *testing.T) {
	buf := &bytes.Buffer{}
	exp, err := NewMetricsExporter(StdoutExporter,
		WithExporterWriter(buf),
		WithExporterInterval(time.Hour, time.Second),
	)
	require.NoError(t, err)
	require.Nil(t, exp.Handler)

	counter, err := exp.Provider.Meter("test").Int64Counter("test.ops")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	// Flushes the pending metrics.
	require.NoError(t, exp.Shutdown(context.Background()))
	require.Contains(t, buf.String(), "test.ops")
}

func TestPrometheusExporter(t *testing.T) {
	exp, err := NewMetricsExporter(PrometheusExporter, WithExporterRegistry(prom.NewRegistry()))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, exp.Shutdown(context.Background()))
	}()
	require.NotNil(t, exp.Handler)

	counter, err := exp.Provider.Meter("test").Int64Counter("test.ops")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	exp.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "test_ops_total")
}

func TestNoneExporter_Global(t *testing.T) {
	prev := otel.GetMeterProvider()
	defer otel.SetMeterProvider(prev)

	exp, err := NewMetricsExporter(NoneExporter, WithExporterGlobal())
	require.NoError(t, err)
	require.NoError(t, exp.Shutdown(context.Background()))
	require.Equal(t, exp.Provider, otel.GetMeterProvider())

	var nilExp *MetricsExporter
	require.NoError(t, nilExp.Shutdown(context.Background()))
}

func TestInitAppStats(t *testing.T) {
	require.Error(t, InitAppStats(context.Background(), "unit", nil))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, InitAppStats(ctx, "unit", mp))

	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))

	observed := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != AppStatsName+"/unit" {
			continue
		}
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			observed[m.Name] = sum.DataPoints[0].Value
		}
	}
	require.Greater(t, observed["app.core.goroutines"], int64(0))
	require.Equal(t, int64(runtime.GOMAXPROCS(0)), observed["app.core.processes"])
}
