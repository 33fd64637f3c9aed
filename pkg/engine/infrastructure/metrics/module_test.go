package metrics_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	coremetrics "github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	metrics "github.com/tigerroll/caseflow/pkg/engine/infrastructure/metrics"
)

func TestNewBackend_None(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.NewConfig()

	res, err := metrics.NewBackend(metrics.BackendParams{Lifecycle: lc, Config: cfg})
	require.NoError(t, err)
	assert.IsType(t, &coremetrics.NoOpMetricRecorder{}, res.Recorder)
	assert.IsType(t, &coremetrics.NoOpTracer{}, res.Tracer)
}

func TestNewBackend_UnknownExporter(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.NewConfig()
	cfg.Caseflow.Metrics.Exporter = "statsd"

	_, err := metrics.NewBackend(metrics.BackendParams{Lifecycle: lc, Config: cfg})
	assert.Error(t, err)
}

func TestNewBackend_Prometheus(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.NewConfig()
	cfg.Caseflow.Metrics.Exporter = config.ExporterPrometheus
	cfg.Caseflow.Metrics.ListenAddress = "127.0.0.1:0"

	res, err := metrics.NewBackend(metrics.BackendParams{Lifecycle: lc, Config: cfg})
	require.NoError(t, err)
	_, ok := res.Recorder.(*metrics.PrometheusRecorder)
	assert.True(t, ok)

	lc.RequireStart()
	defer lc.RequireStop()
}

func TestMetricsServer_ServesRegistry(t *testing.T) {
	rec := metrics.NewPrometheusRecorder()
	rec.RecordCommand(context.Background(), "GetBatchCmd", "success", 0)

	srv := metrics.NewMetricsServer("127.0.0.1:0", rec)
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `caseflow_command_total{command="GetBatchCmd",outcome="success"} 1`)
}
