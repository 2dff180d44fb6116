// Package types defines the ordered Fragment mapping shared by the config
// loader, the composer and the resource-wrapping layer.
//
// A Fragment keeps keys in the order they were first set, which is what makes
// rendered documents stable: decoding a YAML mapping preserves the declared
// order, and encoding writes it back out in the same order.
//
// RawText is a scalar that always renders as a YAML literal block so caller
// text reaches the agent verbatim.
package types
