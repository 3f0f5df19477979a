// Package errors provides standardized error handling patterns for formatkit.
//
// # Overview
//
// Two layers live here. The classification layer sorts any error into
// Transient (temporary, retryable), Invalid (bad input, non-retryable) and
// Fatal (unrecoverable, stop processing). The conversion taxonomy is the flat
// set of errors returned by converters and the registry:
//
//   - Validation: input or options fail shape checks before a transform runs
//   - UnsupportedFormat: no converter is registered for the requested pair;
//     carries every known format so callers can self-correct
//   - Conversion: the transform itself failed; wraps the original error
//   - Configuration: registration-time programming error
//
// All four are *ConversionError values distinguished by Kind. They match the
// sentinels ErrValidation, ErrUnsupportedFormat, ErrConversion and
// ErrConfiguration with errors.Is, and errors.Unwrap yields the cause.
//
// # Quick Start
//
//	result, err := reg.Convert(data, "binary", "base64", nil)
//	switch {
//	case errors.IsUnsupportedFormat(err):
//	    fmt.Println("try one of:", errors.AvailableFormats(err))
//	case errors.IsValidation(err):
//	    // fix the input
//	case err != nil:
//	    // transform failed
//	}
//
// # Error Wrapping Pattern
//
// Infrastructure errors (config loading, servers, NATS) use the format:
//
//	"component.method: action failed: %w"
//
// via Wrap, WrapInvalid, WrapFatal and WrapTransient. Classification looks
// through wrapping: a ConversionError classifies as Invalid, except
// Configuration which is Fatal, and is never Transient.
package errors
