package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/fx"

	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	metrics "github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	logger "github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// BackendParams are the Fx dependencies of NewBackend.
type BackendParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
}

// BackendResult exposes the selected recorder and tracer.
type BackendResult struct {
	fx.Out
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// NewBackend selects the observability backend from caseflow.metrics.exporter:
//
//	none       no-op recorder and tracer
//	prometheus Prometheus recorder served on listen_address at /metrics
//	otlp-http  OpenTelemetry traces and metrics pushed over OTLP/HTTP
//	otlp-grpc  OpenTelemetry traces and metrics pushed over OTLP/gRPC
func NewBackend(p BackendParams) (BackendResult, error) {
	cfg := p.Config.Caseflow.Metrics

	switch cfg.Exporter {
	case "", config.ExporterNone:
		logger.Debugf("Metrics: exporter disabled.")
		return BackendResult{Recorder: metrics.NewNoOpMetricRecorder(), Tracer: metrics.NewNoOpTracer()}, nil

	case config.ExporterPrometheus:
		recorder := NewPrometheusRecorder()
		srv := NewMetricsServer(cfg.ListenAddress, recorder)
		p.Lifecycle.Append(fx.Hook{OnStart: srv.Start, OnStop: srv.Stop})
		return BackendResult{Recorder: recorder, Tracer: metrics.NewNoOpTracer()}, nil

	case config.ExporterOTLPHTTP, config.ExporterOTLPGRPC:
		tp, mp, err := newOTLPProviders(context.Background(), cfg)
		if err != nil {
			return BackendResult{}, err
		}
		recorder, err := NewOTelMetricRecorder(mp)
		if err != nil {
			return BackendResult{}, multierror.Append(err, tp.Shutdown(context.Background()), mp.Shutdown(context.Background())).ErrorOrNil()
		}
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(propagation.TraceContext{})
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				var result *multierror.Error
				if err := tp.Shutdown(ctx); err != nil {
					result = multierror.Append(result, err)
				}
				if err := mp.Shutdown(ctx); err != nil {
					result = multierror.Append(result, err)
				}
				return result.ErrorOrNil()
			},
		})
		logger.Infof("Metrics: exporting to OTLP via %s (endpoint=%q).", cfg.Exporter, cfg.Endpoint)
		return BackendResult{Recorder: recorder, Tracer: NewOpenTelemetryTracer(tp)}, nil
	}
	return BackendResult{}, exception.NewInvalidArgumentError("metrics", "unknown metrics exporter: "+cfg.Exporter)
}

// MetricsServer serves a PrometheusRecorder's registry over HTTP.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewMetricsServer creates a server for /metrics on addr.
func NewMetricsServer(addr string, recorder *PrometheusRecorder) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{Registry: recorder.Registry()}))
	return &MetricsServer{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}
}

// Addr returns the bound address once Start has returned.
func (s *MetricsServer) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Start binds the listener and serves in the background.
func (s *MetricsServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return exception.NewEngineErrorf("MetricsServer", exception.KindInternal, "failed to listen on %s", s.server.Addr, err)
	}
	s.listener = ln
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics: server stopped: %v", err)
		}
	}()
	logger.Infof("Metrics: serving Prometheus metrics on %s/metrics", ln.Addr().String())
	return nil
}

// Stop shuts the server down.
func (s *MetricsServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Module provides metrics.MetricRecorder and metrics.Tracer.
var Module = fx.Options(
	fx.Provide(NewBackend),
)
