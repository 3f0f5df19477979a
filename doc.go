// Package formatkit converts values between data formats through a registry
// of named converters.
//
// A converter turns a value of one format into another, for example text to
// base64, decimal to roman, or a JSON object to YAML. Converters register
// themselves by (from, to) pair; the registry looks pairs up, reports what it
// supports and describes every failure with a typed error naming the formats
// that are available.
//
// # Layout
//
//	format/          format names and normalization
//	converter/       the Converter contract, options and reversible pairs
//	registry/        the thread-safe conversion registry
//	errors/          the error taxonomy and retry classification
//	formats/...      converter groups: encoding, hashing, numbers, data, images
//	formatregistry/  registers every group, honouring disabled groups
//	config/          layered YAML and JSON configuration with env overrides
//	metric/          Prometheus metrics and the metrics server
//	natsclient/      NATS connection management
//	health/          health checks aggregated for /health
//	gateway/...      HTTP and NATS request/reply front ends
//	pkg/retry/       exponential backoff for startup dependencies
//	cmd/formatkit/   the command line tool and server
//
// # Library use
//
//	reg := registry.New()
//	if err := formatregistry.Register(reg); err != nil {
//		return err
//	}
//	out, err := reg.Convert("MCMXCIV", "roman", "decimal", nil)
//
// # Command line
//
//	formatkit convert --from text --to base64 "hello"
//	formatkit list --format roman
//	formatkit serve --config formatkit.yaml
package formatkit
