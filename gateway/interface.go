package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/registry"
)

// Registry is the part of *registry.Registry a gateway serves.
type Registry interface {
	Convert(data any, from, to string, opts converter.Options) (any, error)
	ListFormats() []string
	ListConversions() []registry.Conversion
	ConversionsFor(name string) registry.FormatConversions
	Stats() registry.Stats
}

// Gateway is a transport that exposes a registry to external clients.
//
// Start must return once the gateway is accepting requests; serving happens
// in the background until Stop.
type Gateway interface {
	Name() string
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// HTTPHandler is implemented by gateways that can mount their routes on a
// shared mux.
type HTTPHandler interface {
	RegisterHTTPHandlers(prefix string, mux *http.ServeMux)
}

var _ Registry = (*registry.Registry)(nil)
