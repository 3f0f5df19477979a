// Package config loads formatkit service configuration.
//
// Loader merges layers in order: built-in defaults, then each JSON or YAML
// file added with AddLayer (deep map merge, later layers win), then
// FORMATKIT_* environment variables. Every file layer is checked against an
// embedded JSON Schema before it is merged, and Config.Validate runs last
// when validation is enabled.
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.json")
//	loader.AddLayer("configs/production.yaml")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//
// Durations may be written as Go duration strings ("30s") or nanoseconds.
package config
