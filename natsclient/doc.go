// Package natsclient wraps the NATS Go client with a circuit breaker, slog
// logging, Prometheus connection metrics and context aware request/reply.
//
// # Core Features
//
// Circuit Breaker Pattern: Connect fails fast with ErrCircuitOpen after a
// threshold of consecutive failures (default: 5). The backoff doubles per
// round up to the configured maximum, after which the circuit half-opens
// and the next Connect is attempted.
//
// Connection Lifecycle: Disconnected → Connecting → Connected → Reconnecting →
// Connected. WithConnectionListener hears every transition into or out of
// Connected; the NATS responder uses it for its health status.
//
// Authentication: WithUserPassword or WithToken. Credentials are wiped when
// the client closes.
//
// Queue Groups: Subscribe with a queue name load balances messages across
// every process in the group, which is how several formatkit instances share
// one conversion subject.
//
// # Basic Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithLogger(logger),
//	    natsclient.WithMetrics(metrics))
//	if err != nil {
//	    return err
//	}
//
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	err = client.Subscribe(ctx, "formatkit.convert", "formatkit",
//	    func(ctx context.Context, msg *nats.Msg) {
//	        _ = msg.Respond(handle(ctx, msg.Data))
//	    })
//
// # Testing
//
// NewTestClient starts a NATS server in a container via testcontainers-go.
// Tests that use it carry the integration build tag:
//
//	go test -tags integration ./natsclient/...
package natsclient
