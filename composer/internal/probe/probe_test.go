package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/vectorconf/composer/internal/config"
)

// vectorMetrics is a realistic subset of a prometheus_exporter sink scrape.
const vectorMetrics = `
# HELP vector_component_received_events_total component_received_events_total
# TYPE vector_component_received_events_total counter
vector_component_received_events_total{component_id="vector",component_kind="source",component_type="vector"} 1200
vector_component_received_events_total{component_id="out",component_kind="sink",component_type="console"} 1150
vector_component_received_events_total{component_id="parse",component_kind="transform",component_type="remap"} 1200
# HELP vector_component_sent_events_total component_sent_events_total
# TYPE vector_component_sent_events_total counter
vector_component_sent_events_total{component_id="vector",component_kind="source",component_type="vector",output="_default"} 1200
vector_component_sent_events_total{component_id="parse",component_kind="transform",component_type="remap",output="_default"} 1100
vector_component_sent_events_total{component_id="parse",component_kind="transform",component_type="remap",output="dropped"} 100
# HELP vector_started_total started_total
# TYPE vector_started_total counter
vector_started_total 1
`

func newServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProbe_SumsByComponent(t *testing.T) {
	srv := newServer(t, vectorMetrics, http.StatusOK)

	res, err := New(0).Probe(context.Background(), srv.URL, "", []string{"vector", "parse", "out", "ghost"})
	require.NoError(t, err)

	assert.Equal(t, 1200.0, res.Received["vector"])
	assert.Equal(t, 1150.0, res.Received["out"])
	assert.Equal(t, 1200.0, res.Sent["parse"])
	assert.Equal(t, []string{"ghost"}, res.Missing)
	assert.Equal(t, []string{"out", "parse", "vector"}, res.IDs())
	assert.Equal(t, srv.URL, res.Endpoint)
}

func TestProbe_Namespace(t *testing.T) {
	body := `# TYPE edge_component_received_events_total counter
edge_component_received_events_total{component_id="out"} 5
`
	srv := newServer(t, body, http.StatusOK)

	res, err := New(0).Probe(context.Background(), srv.URL, "edge", []string{"out"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Received["out"])
	assert.Empty(t, res.Missing)
}

func TestProbe_PartialExpositionKept(t *testing.T) {
	body := `# TYPE vector_component_received_events_total counter
vector_component_received_events_total{component_id="out"} 5
broken_metric not-a-number
`
	srv := newServer(t, body, http.StatusOK)

	res, err := New(0).Probe(context.Background(), srv.URL, "", []string{"out"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Received["out"])
	assert.Empty(t, res.Missing)
}

func TestResult_Unexpected(t *testing.T) {
	srv := newServer(t, vectorMetrics, http.StatusOK)

	res, err := New(0).Probe(context.Background(), srv.URL, "", []string{"vector", "out"})
	require.NoError(t, err)
	assert.False(t, res.ScrapedAt.IsZero())
	assert.Equal(t, []string{"parse"}, res.Unexpected([]string{"vector", "out"}))
	assert.Empty(t, res.Unexpected([]string{"vector", "out", "parse"}))
}

func TestProbe_Non200(t *testing.T) {
	srv := newServer(t, "", http.StatusServiceUnavailable)

	_, err := New(0).Probe(context.Background(), srv.URL, "", nil)
	assert.Error(t, err)
}

func TestProbe_Unreachable(t *testing.T) {
	_, err := New(0).Probe(context.Background(), "http://127.0.0.1:1/metrics", "", nil)
	assert.Error(t, err)
}

func TestProbe_NoVectorMetrics(t *testing.T) {
	srv := newServer(t, "# TYPE up gauge\nup 1\n", http.StatusOK)

	res, err := New(0).Probe(context.Background(), srv.URL, "", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Missing)
}

func TestEndpointFor(t *testing.T) {
	tests := []struct {
		addr string
		port config.Port
		want string
	}{
		{"0.0.0.0", "9090", "http://127.0.0.1:9090/metrics"},
		{"", "9598", "http://127.0.0.1:9598/metrics"},
		{"10.0.0.5", "9090", "http://10.0.0.5:9090/metrics"},
		{"::1", "9090", "http://[::1]:9090/metrics"},
	}
	for _, tc := range tests {
		got := EndpointFor(config.MetricsExporter{ListenAddress: tc.addr, ListenPort: tc.port})
		assert.Equal(t, tc.want, got)
	}
}
