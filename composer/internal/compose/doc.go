// Package compose builds the agent configuration document.
//
// Composition runs three stages in a fixed order over a fresh Builder:
//
//  1. ResolveSource materializes the built-in vector-to-vector source from
//     config.Ingress, or contributes nothing when it is disabled.
//  2. AssemblePartials renders each Partial (metrics exporter, API) from the
//     values alone and applies its Contribution.
//  3. RenderTopology puts every user-declared source, transform, sink and
//     global option, in declaration order.
//
// Component ids are unique across sources, transforms and sinks. A later Put
// of an existing id replaces the whole fragment, which is how a topology entry
// overrides a built-in. Referential integrity (inputs naming real ids) is left
// to the agent at load time.
//
// Compose is pure: identical Values give byte-identical documents.
package compose
