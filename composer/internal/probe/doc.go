// Package probe reads a running agent's prometheus_exporter endpoint and
// reports per-component event counters for the ids of a composed document.
//
// The endpoint is the one the metrics exporter partial configures
// (EndpointFor). Counters are summed by the component_id label from
// <namespace>_component_received_events_total and
// <namespace>_component_sent_events_total; ids with neither are listed in
// Result.Missing. Probing is read-only and never changes the agent.
package probe
