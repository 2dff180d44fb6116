// Package config loads and watches the composer's values file (values.yaml).
//
// Top-level types:
//   - Values{Header, Ingress, MetricsExporter, API, Topology, Output}
//   - Ingress: enabled, id, config (passthrough mapping), listen_address,
//     listen_port (kept verbatim, never range-checked), raw_config
//   - MetricsExporter: enabled, source_id, sink_id, listen_address,
//     listen_port, scrape_interval, namespace
//   - API: enabled, listen_address, listen_port, playground
//   - Topology: sources, transforms, sinks, global; categories and entries are
//     kept in declaration order
//   - Output.ConfigMap: name, namespace, key, labels for the wrapping layer
//
// Load(path) reads the YAML file, applies defaults (ingress "vector" on
// 0.0.0.0:9000, exporter on 0.0.0.0:9090, API on 127.0.0.1:8686, all
// disabled), then rejects structurally malformed input.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Values. It watches the parent directory and
// filters events by file name, so editors that save by renaming a temporary
// file over values.yaml keep triggering reloads.
package config
