package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xrbtree/lib/infra"
)

type ExporterType string

const (
	NoneExporter       ExporterType = "none"
	StdoutExporter     ExporterType = "stdout"
	PrometheusExporter ExporterType = "prometheus"
)

func ParseExporterType(typ string) (ExporterType, error) {
	switch _typ := ExporterType(strings.ToLower(strings.TrimSpace(typ))); _typ {
	case NoneExporter, StdoutExporter, PrometheusExporter:
		return _typ, nil
	default:
	}
	return NoneExporter, infra.NewErrorStack("[observability] unknown stats exporter " + typ)
}

// MetricsExporter owns the meter provider. Handler is only present
// for the prometheus exporter, the metrics are fetched by HTTP.
type MetricsExporter struct {
	Type     ExporterType
	Provider metric.MeterProvider
	Handler  http.Handler
	shutdown func(ctx context.Context) error
}

func (exp *MetricsExporter) Shutdown(ctx context.Context) error {
	if exp == nil || exp.shutdown == nil {
		return nil
	}
	return exp.shutdown(ctx)
}

type exporterCfg struct {
	writer   io.Writer
	interval time.Duration
	timeout  time.Duration
	registry *prom.Registry
	global   bool
}

type ExporterOption func(*exporterCfg)

// WithExporterWriter redirects the stdout exporter.
func WithExporterWriter(w io.Writer) ExporterOption {
	return func(cfg *exporterCfg) {
		cfg.writer = w
	}
}

func WithExporterInterval(interval, timeout time.Duration) ExporterOption {
	return func(cfg *exporterCfg) {
		cfg.interval, cfg.timeout = interval, timeout
	}
}

func WithExporterRegistry(registry *prom.Registry) ExporterOption {
	return func(cfg *exporterCfg) {
		cfg.registry = registry
	}
}

// WithExporterGlobal installs the provider as the otel global one.
func WithExporterGlobal() ExporterOption {
	return func(cfg *exporterCfg) {
		cfg.global = true
	}
}

func NewMetricsExporter(typ ExporterType, opts ...ExporterOption) (*MetricsExporter, error) {
	cfg := &exporterCfg{
		writer:   os.Stdout,
		interval: 10 * time.Second,
		timeout:  5 * time.Second,
	}
	for _, o := range opts {
		o(cfg)
	}

	var (
		exp *MetricsExporter
		err error
	)
	switch typ {
	case StdoutExporter:
		exp, err = newConsoleMetricsExporter(cfg.interval, cfg.timeout, stdoutmetric.WithWriter(cfg.writer))
	case PrometheusExporter:
		exp, err = newPrometheusMetricsExporter(cfg.registry)
	case NoneExporter:
		exp = &MetricsExporter{Type: NoneExporter, Provider: noop.NewMeterProvider()}
	default:
		err = infra.NewErrorStack("[observability] unknown stats exporter " + string(typ))
	}
	if err != nil {
		return nil, err
	}
	if cfg.global {
		otel.SetMeterProvider(exp.Provider)
	}
	return exp, nil
}

// Serves for test/dev environment.
func newConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (*MetricsExporter, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStack(err, "[observability] stdout exporter")
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(interval),
		sdkmetric.WithTimeout(timeout),
	)))
	return &MetricsExporter{
		Type:     StdoutExporter,
		Provider: mp,
		shutdown: mp.Shutdown,
	}, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
func newPrometheusMetricsExporter(registry *prom.Registry) (*MetricsExporter, error) {
	if registry == nil {
		registry = prom.NewRegistry()
	}
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, infra.WrapErrorStack(err, "[observability] prometheus exporter")
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return &MetricsExporter{
		Type:     PrometheusExporter,
		Provider: mp,
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		shutdown: mp.Shutdown,
	}, nil
}
