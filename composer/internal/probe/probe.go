package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/vectorconf/composer/internal/config"
)

const (
	// DefaultTimeout bounds a single probe request.
	DefaultTimeout = 10 * time.Second

	defaultNamespace = "vector"
	componentLabel   = "component_id"
)

// Result is the outcome of one probe.
type Result struct {
	Endpoint  string
	ScrapedAt time.Time

	// Received and Sent hold event totals keyed by component id.
	Received map[string]float64
	Sent     map[string]float64

	// Missing lists expected ids that exposed no counters, in input order.
	Missing []string
}

// Prober scrapes exporter endpoints with a shared HTTP client.
type Prober struct {
	client *http.Client
}

// New returns a Prober whose requests time out after timeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{client: &http.Client{Timeout: timeout}}
}

// EndpointFor returns the scrape URL of the exporter described by s.
// A wildcard listen address is probed on loopback.
func EndpointFor(s config.MetricsExporter) string {
	host := s.ListenAddress
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, string(s.ListenPort)) + "/metrics"
}

// Probe fetches endpoint and reports counters for the expected component ids.
// namespace is the metric prefix; empty means the agent default.
func (p *Prober) Probe(ctx context.Context, endpoint, namespace string, expected []string) (*Result, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}

	mfs, err := fetchMetrics(ctx, p.client, endpoint)
	if err != nil {
		slog.Warn("probe: fetch failed", "endpoint", endpoint, "err", err)
		return nil, fmt.Errorf("probe %s: %w", endpoint, err)
	}

	res := &Result{
		Endpoint:  endpoint,
		ScrapedAt: time.Now().UTC(),
		Received:  sumByComponent(mfs[namespace+"_component_received_events_total"]),
		Sent:      sumByComponent(mfs[namespace+"_component_sent_events_total"]),
	}
	for _, id := range expected {
		_, recv := res.Received[id]
		_, sent := res.Sent[id]
		if !recv && !sent {
			res.Missing = append(res.Missing, id)
		}
	}
	return res, nil
}

// Unexpected returns the ids seen in the scrape that are not in expected,
// sorted.
func (r *Result) Unexpected(expected []string) []string {
	known := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		known[id] = struct{}{}
	}
	var out []string
	for _, id := range r.IDs() {
		if _, ok := known[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// IDs returns every component id seen in the scrape, sorted.
func (r *Result) IDs() []string {
	seen := make(map[string]struct{}, len(r.Received)+len(r.Sent))
	for id := range r.Received {
		seen[id] = struct{}{}
	}
	for id := range r.Sent {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// Agents sometimes append lines the parser rejects after valid families, so a
// partial result is returned and the error only logged.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil {
		if len(mfs) == 0 {
			return nil, fmt.Errorf("parse prometheus text: %w", err)
		}
		slog.Debug("probe: partial parse", "families", len(mfs), "err", err)
	}
	return mfs, nil
}

// sumByComponent adds up counter, gauge and untyped values per component_id.
// Samples without the label are ignored. Returns an empty map if mf is nil.
func sumByComponent(mf *dto.MetricFamily) map[string]float64 {
	out := make(map[string]float64)
	if mf == nil {
		return out
	}
	for _, m := range mf.GetMetric() {
		id := labelValue(m, componentLabel)
		if id == "" {
			continue
		}
		switch {
		case m.Counter != nil:
			out[id] += m.Counter.GetValue()
		case m.Gauge != nil:
			out[id] += m.Gauge.GetValue()
		case m.Untyped != nil:
			out[id] += m.Untyped.GetValue()
		}
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
