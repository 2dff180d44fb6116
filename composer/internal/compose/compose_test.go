package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/vectorconf/composer/internal/config"
	"github.com/obsidianstack/vectorconf/pkg/types"
)

const headerOnly = "# " + Banner + "\n"

func parseValues(t *testing.T, src string) *config.Values {
	t.Helper()
	v, err := config.Parse([]byte(src))
	require.NoError(t, err)
	return v
}

func TestCompose_FullDocument(t *testing.T) {
	v := parseValues(t, `
ingress:
  enabled: true
  config:
    version: "2"
metrics_exporter:
  enabled: true
topology:
  sinks:
    out:
      type: console
      inputs: [vector]
      encoding:
        codec: json
`)
	out, err := Compose(v)
	require.NoError(t, err)

	want := headerOnly + `sources:
  vector:
    version: "2"
    type: vector
    address: 0.0.0.0:9000
  internal_metrics:
    type: internal_metrics
    scrape_interval_secs: 2
sinks:
  prometheus_sink:
    type: prometheus_exporter
    inputs:
      - internal_metrics
    address: 0.0.0.0:9090
  out:
    type: console
    inputs:
      - vector
    encoding:
      codec: json
`
	assert.Equal(t, want, string(out))
}

func TestCompose_Idempotent(t *testing.T) {
	v := parseValues(t, `
ingress:
  enabled: true
  raw_config: |
    keepalive:
      time_secs: 60
metrics_exporter:
  enabled: true
api:
  enabled: true
topology:
  transforms:
    parse:
      type: remap
      inputs: [vector]
      source: . = parse_json!(.message)
  sinks:
    b: {type: blackhole, inputs: [parse]}
    a: {type: blackhole, inputs: [parse]}
  global:
    data_dir: /var/lib/vector
`)
	first, err := Compose(v)
	require.NoError(t, err)
	second, err := Compose(v)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompose_HeaderOnlyWhenNothingContributed(t *testing.T) {
	out, err := Compose(config.Defaults())
	require.NoError(t, err)
	assert.Equal(t, headerOnly, string(out))
}

func TestCompose_ExtraHeaderLines(t *testing.T) {
	v := config.Defaults()
	v.Header = []string{"cluster: prod-eu", "", "owner: platform"}

	out, err := Compose(v, WithBanner("custom banner"))
	require.NoError(t, err)
	assert.Equal(t, "# custom banner\n# cluster: prod-eu\n#\n# owner: platform\n", string(out))
}

func TestCompose_DisabledIngressAbsent(t *testing.T) {
	v := parseValues(t, `
ingress:
  enabled: false
  id: upstream
topology:
  sinks:
    out: {type: console, inputs: [upstream]}
`)
	b, err := Build(v)
	require.NoError(t, err)

	_, _, ok := b.Lookup("upstream")
	assert.False(t, ok)

	out, err := b.Document()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sources:")
	assert.NotContains(t, string(out), "type: vector")
}

func TestCompose_ListenAddressConcatenation(t *testing.T) {
	v := parseValues(t, `
ingress:
  enabled: true
  listen_address: 0.0.0.0
  listen_port: 9000
`)
	b, err := Build(v)
	require.NoError(t, err)

	_, frag, ok := b.Lookup(config.DefaultIngressID)
	require.True(t, ok)
	addr, _ := frag.Get("address")
	assert.Equal(t, "0.0.0.0:9000", addr)
}

func TestCompose_TopologyOverridesIngress(t *testing.T) {
	v := parseValues(t, `
ingress:
  enabled: true
  config:
    version: "2"
    acknowledgements: {enabled: true}
topology:
  sources:
    vector:
      type: http_server
      address: 0.0.0.0:8080
`)
	b, err := Build(v)
	require.NoError(t, err)

	sec, frag, ok := b.Lookup("vector")
	require.True(t, ok)
	assert.Equal(t, SectionSources, sec)
	// Whole-fragment replacement: nothing from the built-in survives.
	assert.Equal(t, []string{"type", "address"}, frag.Keys())
	typ, _ := frag.Get("type")
	assert.Equal(t, "http_server", typ)
	assert.Equal(t, []string{"vector"}, b.ComponentIDs())
}

func TestCompose_OverrideAcrossSections(t *testing.T) {
	v := parseValues(t, `
ingress:
  enabled: true
topology:
  transforms:
    vector:
      type: remap
      inputs: [other]
      source: .
`)
	out, err := Compose(v)
	require.NoError(t, err)

	// The emptied sources table is dropped; the id now lives in transforms.
	assert.NotContains(t, string(out), "sources:")
	assert.Contains(t, string(out), "transforms:\n  vector:\n    type: remap\n")
}

func TestCompose_SinkOrderPreserved(t *testing.T) {
	v := parseValues(t, `
topology:
  sinks:
    zeta: {type: blackhole, inputs: [in]}
    alpha: {type: blackhole, inputs: [in]}
`)
	out, err := Compose(v)
	require.NoError(t, err)

	doc := string(out)
	zeta := strings.Index(doc, "  zeta:")
	alpha := strings.Index(doc, "  alpha:")
	require.NotEqual(t, -1, zeta)
	require.NotEqual(t, -1, alpha)
	assert.Less(t, zeta, alpha)
}

func TestCompose_RawConfigVerbatim(t *testing.T) {
	raw := "keepalive:\n  time_secs: 60\ntls: {enabled: \"yes\", ca_file: '/etc/ca.pem'}\n"
	v := config.Defaults()
	v.Ingress.Enabled = true
	v.Ingress.RawConfig = raw

	out, err := Compose(v)
	require.NoError(t, err)

	doc := string(out)
	require.Contains(t, doc, "    "+RawConfigKey+": |\n")
	for _, line := range strings.Split(strings.TrimSuffix(raw, "\n"), "\n") {
		assert.Contains(t, doc, "      "+line+"\n")
	}
}

func TestCompose_RawConfigNeverQuoted(t *testing.T) {
	for name, raw := range map[string]string{
		"trailing whitespace": "a: 1 \nb: 2\n",
		"leading tab":         "\ta: 1\n",
		"crlf":                "a: 1\r\nb: 2\r\n",
	} {
		t.Run(name, func(t *testing.T) {
			v := config.Defaults()
			v.Ingress.Enabled = true
			v.Ingress.RawConfig = raw

			_, err := Compose(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "ingress.raw_config")
		})
	}
}

func TestCompose_MergeKeysFlattened(t *testing.T) {
	v := parseValues(t, `
topology:
  sinks:
    a: &console
      type: console
      inputs: [x]
      encoding: {codec: json}
    b:
      <<: *console
      inputs: [y]
`)
	out, err := Compose(v)
	require.NoError(t, err)

	doc := string(out)
	assert.NotContains(t, doc, "<<")
	assert.Contains(t, doc, "  b:\n    type: console\n    inputs:\n      - y\n    encoding:\n      codec: json\n")
}

func TestCompose_GlobalOptions(t *testing.T) {
	v := parseValues(t, `
api:
  enabled: true
topology:
  global:
    data_dir: /var/lib/vector
    api:
      enabled: true
      address: 0.0.0.0:8686
`)
	b, err := Build(v)
	require.NoError(t, err)

	dir, ok := b.Global("data_dir")
	require.True(t, ok)
	assert.Equal(t, "/var/lib/vector", dir)

	// Topology global options override the API partial.
	api, ok := b.Global("api")
	require.True(t, ok)
	addr, _ := api.(*types.Fragment).Get("address")
	assert.Equal(t, "0.0.0.0:8686", addr)
	assert.False(t, api.(*types.Fragment).Has("playground"))
}

func TestCompose_ReservedGlobalKey(t *testing.T) {
	v := config.Defaults()
	require.NoError(t, v.Topology.Add(config.CategoryGlobal, "sinks", "nope"))

	_, err := Compose(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collides")
}

func TestCompose_NilValues(t *testing.T) {
	_, err := Compose(nil)
	assert.Error(t, err)
}

func TestCompose_DoesNotAliasInput(t *testing.T) {
	v := parseValues(t, `
ingress:
  enabled: true
  config:
    keepalive: {time_secs: 10}
topology:
  sinks:
    out: {type: console, inputs: [vector]}
`)
	b, err := Build(v)
	require.NoError(t, err)

	// Mutating the inputs after composition leaves the built namespace intact.
	ka, _ := v.Ingress.Config.Get("keepalive")
	ka.(*types.Fragment).Set("time_secs", 99)
	sinks := v.Topology.Categories()[0].Entries
	out, _ := sinks.Get("out")
	out.(*types.Fragment).Set("type", "blackhole")

	_, src, _ := b.Lookup("vector")
	gotKA, _ := src.Get("keepalive")
	secs, _ := gotKA.(*types.Fragment).Get("time_secs")
	assert.Equal(t, 10, secs)

	_, sink, _ := b.Lookup("out")
	typ, _ := sink.Get("type")
	assert.Equal(t, "console", typ)
}
