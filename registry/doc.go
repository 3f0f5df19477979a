// Package registry stores converters as a directed graph over format names
// and resolves (from, to) requests to a converter bound to exactly that pair.
//
// # Registration
//
// Register adds one converter for one pair. The pair comes from WithFormats
// or, when absent, from the converter's own From/To. Registering an existing
// pair replaces the previous converter and logs a warning.
//
// Converters implementing converter.Reverser also claim the inverse pair,
// unless that pair is already registered at that moment. The check happens
// once, at the registering call: an explicit (b, a) registered earlier wins,
// one registered later overrides the derived edge like any other override.
//
//	reg := registry.New(registry.WithLogger(logger))
//	err := reg.Register(converter.NewReversible("binary", "base64", enc, dec))
//	// both binary -> base64 and base64 -> binary are now supported
//
// # Lookup
//
// Get performs a direct-edge lookup only; there is no multi-hop search. A
// miss returns an UnsupportedFormat error carrying ListFormats() so the caller
// can pick an alternative.
//
// # Concurrency
//
// Readers work on an immutable snapshot published through an atomic pointer
// and never block. Register and Clear serialise on one mutex, copy the
// current snapshot, modify the copy and publish it.
package registry
