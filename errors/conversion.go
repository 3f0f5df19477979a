package errors

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind identifies which branch of the conversion taxonomy an error belongs to.
// Callers of a converter or registry only ever need to branch on these four.
type Kind int

const (
	// KindConversion is a generic transform failure (malformed payload, codec error).
	KindConversion Kind = iota
	// KindValidation is an input or option shape failure detected before the transform runs.
	KindValidation
	// KindUnsupportedFormat means no converter is registered for the requested pair.
	KindUnsupportedFormat
	// KindConfiguration is a registration-time programming error.
	KindConfiguration
)

// String returns the lower-case name of the kind
func (k Kind) String() string {
	switch k {
	case KindConversion:
		return "conversion"
	case KindValidation:
		return "validation"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Sentinels matching each kind with errors.Is.
var (
	ErrConversion        = errors.New("conversion failed")
	ErrValidation        = errors.New("validation failed")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrConfiguration     = errors.New("converter configuration error")
)

// ConversionError is the single error type produced by converters and the registry.
type ConversionError struct {
	Kind    Kind
	Message string
	From    string
	To      string
	Cause   error

	// AvailableFormats is set on KindUnsupportedFormat errors and lists every
	// format known to the registry at lookup time.
	AvailableFormats []string
}

// Error renders the message with the pair context, e.g.
// "conversion from 'binary' to 'base64': bad input".
func (e *ConversionError) Error() string {
	msg := e.Message
	if e.Kind == KindValidation {
		msg = "validation failed: " + msg
	}
	if e.Kind == KindUnsupportedFormat {
		return msg
	}

	switch {
	case e.From != "" && e.To != "":
		return fmt.Sprintf("conversion from '%s' to '%s': %s", e.From, e.To, msg)
	case e.From != "":
		return fmt.Sprintf("format '%s': %s", e.From, msg)
	case e.To != "":
		return fmt.Sprintf("format '%s': %s", e.To, msg)
	default:
		return msg
	}
}

// Unwrap exposes the original failure, if any.
func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *ConversionError) Is(target error) bool {
	switch target {
	case ErrConversion:
		return e.Kind == KindConversion
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrUnsupportedFormat:
		return e.Kind == KindUnsupportedFormat
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	}
	return false
}

// WithPair returns a copy with from/to filled in where they were empty.
func (e *ConversionError) WithPair(from, to string) *ConversionError {
	cp := *e
	if cp.From == "" {
		cp.From = from
	}
	if cp.To == "" {
		cp.To = to
	}
	return &cp
}

// NewConversion creates a generic transform failure wrapping cause.
func NewConversion(message, from, to string, cause error) *ConversionError {
	return &ConversionError{Kind: KindConversion, Message: message, From: from, To: to, Cause: cause}
}

// NewValidation creates an input validation failure for the given source format.
func NewValidation(message, from string) *ConversionError {
	return &ConversionError{Kind: KindValidation, Message: message, From: from}
}

// Validationf is NewValidation with fmt formatting.
func Validationf(from, format string, args ...any) *ConversionError {
	return NewValidation(fmt.Sprintf(format, args...), from)
}

// NewUnsupportedFormat creates a lookup failure that carries the formats the
// caller could have asked for instead.
func NewUnsupportedFormat(from, to string, available []string) *ConversionError {
	msg := fmt.Sprintf("conversion from '%s' to '%s' is not supported", from, to)
	if len(available) > 0 {
		msg += ". Available formats: " + strings.Join(available, ", ")
	}
	return &ConversionError{
		Kind:             KindUnsupportedFormat,
		Message:          msg,
		From:             from,
		To:               to,
		AvailableFormats: slices.Clone(available),
	}
}

// NewConfiguration creates a registration-time failure.
func NewConfiguration(message string, cause error) *ConversionError {
	return &ConversionError{Kind: KindConfiguration, Message: message, Cause: cause}
}

// AsConversion extracts the first ConversionError in err's chain.
func AsConversion(err error) (*ConversionError, bool) {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind of err; ok is false when err is not a ConversionError.
func KindOf(err error) (Kind, bool) {
	ce, ok := AsConversion(err)
	if !ok {
		return 0, false
	}
	return ce.Kind, true
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsUnsupportedFormat reports whether err is a lookup failure
func IsUnsupportedFormat(err error) bool { return errors.Is(err, ErrUnsupportedFormat) }

// IsConversion reports whether err is a generic transform failure
func IsConversion(err error) bool { return errors.Is(err, ErrConversion) }

// IsConfiguration reports whether err is a registration failure
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsTaxonomy reports whether err carries one of the four conversion kinds.
func IsTaxonomy(err error) bool {
	_, ok := AsConversion(err)
	return ok
}

// AvailableFormats returns the format hint carried by an unsupported-format error.
func AvailableFormats(err error) []string {
	ce, ok := AsConversion(err)
	if !ok || ce.Kind != KindUnsupportedFormat {
		return nil
	}
	return slices.Clone(ce.AvailableFormats)
}
