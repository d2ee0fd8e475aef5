package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestHealthAndMetrics(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	s.RecordRun(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	RunsTotal.WithLabelValues("ok").Inc()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "up", st.Status)
	assert.Equal(t, int64(1), st.Runs)

	resp2, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "nameres_runs_total")
}

func TestServerStartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	require.NoError(t, s.Start(context.Background()))
	assert.NotEqual(t, "127.0.0.1:0", s.Addr())
	require.NoError(t, s.Stop(context.Background()))
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestProviderRecordsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p := NewProvider(TracingConfig{ServiceName: "test"}, sdktrace.WithSyncer(exp))
	defer p.Shutdown(context.Background())

	_, span := p.Tracer("t").Start(context.Background(), "resolve")
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "resolve", spans[0].Name)
}
