package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
)

// Payload encodings carried by the request and response envelopes.
const (
	EncodingText   = "text"
	EncodingBase64 = "base64"
	EncodingJSON   = "json"
)

// ConvertRequest is the envelope accepted by every gateway.
type ConvertRequest struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Data is interpreted according to DataEncoding. When DataEncoding is
	// empty a JSON string is read as text and anything else as json.
	Data         json.RawMessage `json:"data"`
	DataEncoding string          `json:"data_encoding,omitempty"`

	Options map[string]any `json:"options,omitempty"`
}

// ConvertResponse is returned for a single conversion. Exactly one of
// Result or Error is set.
type ConvertResponse struct {
	From           string     `json:"from"`
	To             string     `json:"to"`
	Result         any        `json:"result,omitempty"`
	ResultEncoding string     `json:"result_encoding,omitempty"`
	RequestID      string     `json:"request_id,omitempty"`
	Error          *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failure without leaking internals.
type ErrorBody struct {
	Kind             string   `json:"kind"`
	Message          string   `json:"message"`
	Status           int      `json:"status"`
	AvailableFormats []string `json:"available_formats,omitempty"`
}

// BatchRequest groups conversions that are executed concurrently.
type BatchRequest struct {
	Items []ConvertRequest `json:"items"`
}

// BatchResponse keeps results in request order.
type BatchResponse struct {
	Results   []ConvertResponse `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	RequestID string            `json:"request_id,omitempty"`
}

// Validate checks the envelope before any payload decoding.
func (r *ConvertRequest) Validate() error {
	if strings.TrimSpace(r.From) == "" || strings.TrimSpace(r.To) == "" {
		return errors.NewValidation("both 'from' and 'to' are required", r.From)
	}
	switch r.DataEncoding {
	case "", EncodingText, EncodingBase64, EncodingJSON:
	default:
		return errors.Validationf(r.From, "data_encoding %q must be one of text, base64, json", r.DataEncoding)
	}
	if len(r.Data) == 0 {
		return errors.NewValidation("'data' is required", r.From)
	}
	return nil
}

// DecodeData turns the raw payload into the value handed to the registry.
func (r *ConvertRequest) DecodeData() (any, error) {
	encoding := r.DataEncoding
	if encoding == "" {
		encoding = EncodingJSON
		if r.Data[0] == '"' {
			encoding = EncodingText
		}
	}

	switch encoding {
	case EncodingText:
		var s string
		if err := json.Unmarshal(r.Data, &s); err != nil {
			return nil, errors.NewValidation("text data must be a JSON string", r.From)
		}
		return s, nil
	case EncodingBase64:
		var s string
		if err := json.Unmarshal(r.Data, &s); err != nil {
			return nil, errors.NewValidation("base64 data must be a JSON string", r.From)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, errors.Validationf(r.From, "data is not valid base64: %v", err)
		}
		return b, nil
	default:
		var v any
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return nil, errors.Validationf(r.From, "data is not valid JSON: %v", err)
		}
		return v, nil
	}
}

// EncodeResult picks the wire form of a converter result. Bytes travel as
// base64 and strings as text; everything else is embedded as JSON.
func EncodeResult(result any) (any, string) {
	switch v := result.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(v), EncodingBase64
	case string:
		return v, EncodingText
	default:
		return v, EncodingJSON
	}
}

// Convert runs one request against reg. It gives up when ctx is done; the
// abandoned conversion finishes in the background.
func Convert(ctx context.Context, reg Registry, req ConvertRequest, requestID string) (ConvertResponse, error) {
	resp := ConvertResponse{From: req.From, To: req.To, RequestID: requestID}

	if err := req.Validate(); err != nil {
		return resp, err
	}
	data, err := req.DecodeData()
	if err != nil {
		return resp, err
	}

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := reg.Convert(data, req.From, req.To, converter.Options(req.Options))
		done <- outcome{result, err}
	}()

	select {
	case <-ctx.Done():
		return resp, errors.WrapTransient(ctx.Err(), "Gateway", "Convert",
			fmt.Sprintf("convert %s -> %s", req.From, req.To))
	case out := <-done:
		if out.err != nil {
			return resp, out.err
		}
		resp.Result, resp.ResultEncoding = EncodeResult(out.result)
		return resp, nil
	}
}

// Failed builds the response envelope for a failed request.
func Failed(req ConvertRequest, requestID string, err error) ConvertResponse {
	return ConvertResponse{From: req.From, To: req.To, RequestID: requestID, Error: NewErrorBody(err)}
}

// StatusCode maps an error to the HTTP status reported to clients.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if kind, ok := errors.KindOf(err); ok {
		switch kind {
		case errors.KindValidation:
			return http.StatusBadRequest
		case errors.KindUnsupportedFormat:
			return http.StatusNotFound
		case errors.KindConversion:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusInternalServerError
		}
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, errors.ErrPayloadTooBig):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, errors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsTransient(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// NewErrorBody builds the client-facing description of err. Taxonomy errors
// keep their message; anything else is reduced to a generic one.
func NewErrorBody(err error) *ErrorBody {
	status := StatusCode(err)
	if ce, ok := errors.AsConversion(err); ok {
		return &ErrorBody{
			Kind:             ce.Kind.String(),
			Message:          ce.Error(),
			Status:           status,
			AvailableFormats: errors.AvailableFormats(err),
		}
	}

	body := &ErrorBody{Kind: "internal", Message: "internal server error", Status: status}
	switch status {
	case http.StatusGatewayTimeout:
		body.Kind, body.Message = "timeout", "request timeout"
	case http.StatusRequestEntityTooLarge:
		body.Kind, body.Message = "too_large", "request body too large"
	case http.StatusTooManyRequests:
		body.Kind, body.Message = "rate_limited", "too many requests"
	case http.StatusBadRequest:
		body.Kind, body.Message = "invalid", "invalid request"
	case http.StatusServiceUnavailable:
		body.Kind, body.Message = "unavailable", "service temporarily unavailable"
	}
	return body
}
