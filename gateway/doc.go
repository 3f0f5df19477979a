// Package gateway exposes a conversion registry to external clients.
//
// Every transport shares the same JSON envelope:
//
//	{"from": "binary", "to": "base64", "data": "aGVsbG8=", "data_encoding": "base64"}
//
// and answers with
//
//	{"from": "binary", "to": "base64", "result": "aGVsbG8=", "result_encoding": "text"}
//
// data_encoding selects how Data is read: text (a JSON string), base64
// (binary payloads such as images) or json (structured values for dict and
// decimal formats). Byte results are always returned base64 encoded.
//
// # Implementations
//
//   - HTTP: REST/JSON API with batch support (gateway/http/)
//   - NATS: request/reply responder with queue groups (gateway/nats/)
//
// # Error Mapping
//
// Failures are reported in an ErrorBody carrying the taxonomy kind and an
// HTTP-style status:
//
//	validation          400
//	unsupported_format  404 (with available_formats)
//	conversion          422
//	configuration       500
//
// Non-taxonomy errors are sanitized before they reach the client.
package gateway
