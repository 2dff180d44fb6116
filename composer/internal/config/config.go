package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/vectorconf/pkg/types"
)

// Default values applied when fields are absent from the values file.
const (
	DefaultIngressID      = "vector"
	DefaultListenAddress  = "0.0.0.0"
	DefaultListenPort     = "9000"
	DefaultMetricsSource  = "internal_metrics"
	DefaultMetricsSink    = "prometheus_sink"
	DefaultMetricsAddress = "0.0.0.0"
	DefaultMetricsPort    = "9090"
	DefaultScrapeInterval = 2 * time.Second
	DefaultAPIAddress     = "127.0.0.1"
	DefaultAPIPort        = "8686"
	DefaultConfigMapKey   = "vector.yaml"
)

// Values is the complete input of one composition run.
// Fields map 1:1 to values.example.yaml.
type Values struct {
	// Header holds extra comment lines emitted after the generated banner.
	Header []string `yaml:"header"`

	// Ingress configures the built-in vector-to-vector source.
	Ingress Ingress `yaml:"ingress"`

	// MetricsExporter configures the internal_metrics → prometheus_exporter partial.
	MetricsExporter MetricsExporter `yaml:"metrics_exporter"`

	// API configures the agent's GraphQL API partial.
	API API `yaml:"api"`

	// Topology is the user-declared set of extra sources, transforms, sinks
	// and global options.
	Topology Topology `yaml:"topology"`

	// Output controls how the document is packaged by the CLI.
	Output Output `yaml:"output"`
}

// Ingress describes the built-in source accepting events from upstream agents.
type Ingress struct {
	Enabled bool `yaml:"enabled"`

	// ID is the component id the source is registered under.
	ID string `yaml:"id"`

	// Config is passed through into the source block before type and address
	// are set.
	Config types.Fragment `yaml:"config"`

	ListenAddress string `yaml:"listen_address"`

	// ListenPort is kept verbatim; it is not checked for range or form.
	ListenPort Port `yaml:"listen_port"`

	// RawConfig is emitted unparsed under the raw_config key.
	RawConfig string `yaml:"raw_config"`
}

// MetricsExporter describes the internal_metrics source and the
// prometheus_exporter sink that publishes it.
type MetricsExporter struct {
	Enabled        bool          `yaml:"enabled"`
	SourceID       string        `yaml:"source_id"`
	SinkID         string        `yaml:"sink_id"`
	ListenAddress  string        `yaml:"listen_address"`
	ListenPort     Port          `yaml:"listen_port"`
	ScrapeInterval time.Duration `yaml:"scrape_interval"`

	// Namespace overrides the metric name prefix. Empty keeps the agent default.
	Namespace string `yaml:"namespace"`
}

// API describes the agent's API server global option.
type API struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
	ListenPort    Port   `yaml:"listen_port"`
	Playground    bool   `yaml:"playground"`
}

// Output configures the resource-wrapping layer.
type Output struct {
	ConfigMap ConfigMapOutput `yaml:"configmap"`
}

// ConfigMapOutput names the ConfigMap the document is embedded in.
type ConfigMapOutput struct {
	Enabled   bool              `yaml:"enabled"`
	Name      string            `yaml:"name"`
	Namespace string            `yaml:"namespace"`
	Key       string            `yaml:"key"`
	Labels    map[string]string `yaml:"labels"`
}

// Port is a listen port taken verbatim from the values file. Both `9000` and
// `"9000"` decode to the same value.
type Port string

// UnmarshalYAML accepts any scalar.
func (p *Port) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: port must be a scalar", n.Line)
	}
	*p = Port(n.Value)
	return nil
}

// Load reads and parses the YAML values file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes values from YAML bytes, applying defaults first and
// validating the result.
func Parse(data []byte) (*Values, error) {
	v := Defaults()
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return v, nil
}

// Defaults returns Values pre-populated with default values. All partials and
// the ingress source start disabled.
func Defaults() *Values {
	return &Values{
		Ingress: Ingress{
			ID:            DefaultIngressID,
			ListenAddress: DefaultListenAddress,
			ListenPort:    DefaultListenPort,
		},
		MetricsExporter: MetricsExporter{
			SourceID:       DefaultMetricsSource,
			SinkID:         DefaultMetricsSink,
			ListenAddress:  DefaultMetricsAddress,
			ListenPort:     DefaultMetricsPort,
			ScrapeInterval: DefaultScrapeInterval,
		},
		API: API{
			ListenAddress: DefaultAPIAddress,
			ListenPort:    DefaultAPIPort,
		},
		Output: Output{
			ConfigMap: ConfigMapOutput{Key: DefaultConfigMapKey},
		},
	}
}

// Validate checks required fields and structural constraints. Parse calls it
// after decoding, and composition calls it again for values built in code.
func (v *Values) Validate() error {
	if v.Ingress.Enabled {
		if err := types.RawText(v.Ingress.RawConfig).Validate(); err != nil {
			return fmt.Errorf("ingress.raw_config: %w", err)
		}
		if v.Ingress.ID == "" {
			return fmt.Errorf("ingress.id is required when ingress is enabled")
		}
		if v.Ingress.ListenAddress == "" {
			return fmt.Errorf("ingress.listen_address is required when ingress is enabled")
		}
		if v.Ingress.ListenPort == "" {
			return fmt.Errorf("ingress.listen_port is required when ingress is enabled")
		}
	}
	if v.MetricsExporter.Enabled {
		if v.MetricsExporter.SourceID == "" || v.MetricsExporter.SinkID == "" {
			return fmt.Errorf("metrics_exporter.source_id and sink_id are required")
		}
		if v.MetricsExporter.ScrapeInterval < time.Second {
			return fmt.Errorf("metrics_exporter.scrape_interval must be at least 1s")
		}
	}
	if v.Output.ConfigMap.Enabled {
		if v.Output.ConfigMap.Name == "" {
			return fmt.Errorf("output.configmap.name is required")
		}
		if v.Output.ConfigMap.Key == "" {
			return fmt.Errorf("output.configmap.key is required")
		}
	}
	return nil
}

// Clone returns a deep copy of v. Nested fragments, the topology and the
// label map are not shared with v.
func (v *Values) Clone() *Values {
	out := *v
	out.Header = append([]string(nil), v.Header...)
	out.Ingress.Config = *v.Ingress.Config.Clone()
	out.Topology = v.Topology.Clone()
	if v.Output.ConfigMap.Labels != nil {
		out.Output.ConfigMap.Labels = make(map[string]string, len(v.Output.ConfigMap.Labels))
		for k, val := range v.Output.ConfigMap.Labels {
			out.Output.ConfigMap.Labels[k] = val
		}
	}
	return &out
}
