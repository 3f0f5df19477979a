package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/metric"
)

// ConnectionStatus is the client's view of its connection.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
)

var statusNames = [...]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusConnected:    "connected",
	StatusReconnecting: "reconnecting",
	StatusCircuitOpen:  "circuit_open",
}

func (s ConnectionStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrCircuitOpen  = stderrors.New("circuit breaker is open")
)

// MsgHandler handles one message. Its context ends after the handler timeout.
type MsgHandler func(ctx context.Context, msg *nats.Msg)

type connConfig struct {
	name           string
	maxReconnects  int
	reconnectWait  time.Duration
	pingInterval   time.Duration
	dialTimeout    time.Duration
	drainTimeout   time.Duration
	handlerTimeout time.Duration
}

// credentials are wiped by Close.
type credentials struct {
	user, password, token string
}

// breaker opens after threshold failed connects in a row and half-opens
// once the backoff elapses. Each opening doubles the backoff up to maxBackoff.
type breaker struct {
	threshold  int32
	maxBackoff time.Duration

	total   atomic.Int32
	streak  atomic.Int32
	backoff atomic.Int64 // time.Duration
}

// Client owns one NATS connection and the subscriptions made through it.
type Client struct {
	urls    []string
	conf    connConfig
	auth    credentials
	breaker breaker
	status  atomic.Int32 // ConnectionStatus

	logger       *slog.Logger
	metrics      *metric.Metrics
	onConnection func(bool)

	mu   sync.RWMutex
	conn *nats.Conn
	subs []*nats.Subscription

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewClient parses a comma separated server list and applies opts.
func NewClient(urls string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		logger: slog.Default(),
		conf: connConfig{
			maxReconnects:  -1,
			reconnectWait:  2 * time.Second,
			pingInterval:   30 * time.Second,
			dialTimeout:    5 * time.Second,
			drainTimeout:   30 * time.Second,
			handlerTimeout: 30 * time.Second,
		},
		breaker: breaker{threshold: 5, maxBackoff: time.Minute},
	}
	for _, u := range strings.Split(urls, ",") {
		if u = strings.TrimSpace(u); u != "" {
			c.urls = append(c.urls, u)
		}
	}
	if len(c.urls) == 0 {
		return nil, errors.WrapInvalid(stderrors.New("no server URL"), "Client", "NewClient", "parse URLs")
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	c.breaker.backoff.Store(int64(time.Second))
	return c, nil
}

// URL is the server list in the form nats.Connect takes.
func (c *Client) URL() string { return strings.Join(c.urls, ",") }

func (c *Client) Status() ConnectionStatus { return ConnectionStatus(c.status.Load()) }

// IsHealthy reports a live connection.
func (c *Client) IsHealthy() bool { return c.Status() == StatusConnected }

// Failures counts failed connects since the last success.
func (c *Client) Failures() int32 { return c.breaker.total.Load() }

// Backoff is how long the circuit stays open the next time it opens.
func (c *Client) Backoff() time.Duration { return time.Duration(c.breaker.backoff.Load()) }

func (c *Client) connection() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Client) setStatus(s ConnectionStatus) {
	c.status.Store(int32(s))
	c.metrics.RecordNATSStatus(s == StatusConnected)
}

func (c *Client) notify(connected bool) {
	if c.onConnection != nil {
		go c.onConnection(connected)
	}
}

func (c *Client) recordFailure() {
	total := c.breaker.total.Add(1)
	streak := c.breaker.streak.Add(1)
	c.logger.Debug("NATS connect failed", "failures", total, "streak", streak)
	if streak < c.breaker.threshold {
		return
	}

	prev := c.Status()
	alreadyOpen := prev == StatusCircuitOpen
	if !alreadyOpen && !c.status.CompareAndSwap(int32(prev), int32(StatusCircuitOpen)) {
		return
	}

	wait := c.Backoff()
	c.breaker.backoff.Store(int64(min(wait*2, c.breaker.maxBackoff)))
	c.breaker.streak.Store(0)

	if alreadyOpen {
		c.logger.Warn("NATS circuit still open", "backoff", c.Backoff())
		return
	}
	c.metrics.RecordNATSStatus(false)
	c.logger.Warn("NATS circuit opened", "failures", streak, "backoff", wait)
	time.AfterFunc(wait, c.halfOpen)
}

func (c *Client) resetCircuit() {
	c.breaker.total.Store(0)
	c.breaker.streak.Store(0)
	c.breaker.backoff.Store(int64(time.Second))
	if c.Status() == StatusCircuitOpen {
		c.setStatus(StatusDisconnected)
	}
}

// halfOpen lets the next Connect through.
func (c *Client) halfOpen() {
	if c.status.CompareAndSwap(int32(StatusCircuitOpen), int32(StatusDisconnected)) {
		c.logger.Debug("NATS circuit half-open")
	}
}

// WaitForConnection polls until the connection is up or ctx ends.
func (c *Client) WaitForConnection(ctx context.Context) error {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if c.IsHealthy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("connection timeout: %w", ctx.Err())
		case <-tick.C:
		}
	}
}

func (c *Client) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.conf.maxReconnects),
		nats.ReconnectWait(c.conf.reconnectWait),
		nats.PingInterval(c.conf.pingInterval),
		nats.Timeout(c.conf.dialTimeout),
		nats.DrainTimeout(c.conf.drainTimeout),
		nats.DisconnectErrHandler(c.onDisconnect),
		nats.ReconnectHandler(c.onReconnect),
		nats.ClosedHandler(c.onClosed),
		nats.ErrorHandler(c.onAsyncError),
	}
	switch {
	case c.auth.token != "":
		opts = append(opts, nats.Token(c.auth.token))
	case c.auth.user != "":
		opts = append(opts, nats.UserInfo(c.auth.user, c.auth.password))
	}
	if c.conf.name != "" {
		opts = append(opts, nats.Name(c.conf.name))
	}
	return opts
}

// Connect dials the servers once. It fails fast with ErrCircuitOpen while
// the breaker is open; a cancelled ctx abandons the dial.
func (c *Client) Connect(ctx context.Context) error {
	if c.Status() == StatusCircuitOpen {
		return ErrCircuitOpen
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "urls", c.URL())

	type dial struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan dial, 1)
	go func() {
		conn, err := nats.Connect(c.URL(), c.natsOptions()...)
		done <- dial{conn, err}
	}()

	var conn *nats.Conn
	select {
	case d := <-done:
		if d.err != nil {
			return c.connectFailed(errors.WrapTransient(d.err, "Client", "Connect", "dial"))
		}
		conn = d.conn
	case <-ctx.Done():
		go func() {
			if d := <-done; d.conn != nil {
				d.conn.Close()
			}
		}()
		return c.connectFailed(errors.WrapTransient(ctx.Err(), "Client", "Connect", "dial cancelled"))
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setStatus(StatusConnected)
	c.resetCircuit()
	c.logger.Info("Connected to NATS", "url", conn.ConnectedUrlRedacted())
	c.notify(true)
	return nil
}

func (c *Client) connectFailed(err error) error {
	c.recordFailure()
	if c.Status() == StatusCircuitOpen {
		return ErrCircuitOpen
	}
	c.setStatus(StatusDisconnected)
	return err
}

// Close unsubscribes, then drains the connection within the drain timeout
// or the ctx deadline, whichever is sooner. Later calls do nothing.
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() { err = c.close(ctx) })
	return err
}

func (c *Client) close(ctx context.Context) error {
	c.closed.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, errors.Wrap(err, "Client", "Close", "unsubscribe "+sub.Subject))
		}
	}
	c.subs = nil

	if c.conn != nil {
		limit := c.conf.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			limit = min(limit, max(time.Until(deadline), 0))
		}

		drained := make(chan error, 1)
		go func(conn *nats.Conn) { drained <- conn.Drain() }(c.conn)

		select {
		case err := <-drained:
			if err != nil {
				errs = append(errs, errors.Wrap(err, "Client", "Close", "drain"))
			}
		case <-time.After(limit):
			errs = append(errs, errors.WrapTransient(
				fmt.Errorf("drain did not finish within %v", limit), "Client", "Close", "drain"))
		case <-ctx.Done():
			errs = append(errs, errors.Wrap(ctx.Err(), "Client", "Close", "drain"))
		}

		c.conn.Close()
		c.conn = nil
	}

	c.auth = credentials{}
	c.setStatus(StatusDisconnected)

	err := stderrors.Join(errs...)
	if err != nil {
		c.logger.Error("NATS client closed with errors", "error", err)
	}
	return err
}

// RTT measures a round trip to the server.
func (c *Client) RTT() (time.Duration, error) {
	conn := c.connection()
	if conn == nil || !conn.IsConnected() {
		return 0, ErrNotConnected
	}
	return conn.RTT()
}

// Subscribe runs handler for every message on subject. A non-empty queue
// joins that queue group so each message reaches one member.
func (c *Client) Subscribe(ctx context.Context, subject, queue string, handler MsgHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return ErrNotConnected
	}

	timeout := c.conf.handlerTimeout
	cb := func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		handler(msgCtx, msg)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue == "" {
		sub, err = c.conn.Subscribe(subject, cb)
	} else {
		sub, err = c.conn.QueueSubscribe(subject, queue, cb)
	}
	if err != nil {
		return errors.WrapTransient(err, "Client", "Subscribe", "subscribe "+subject)
	}

	c.subs = append(c.subs, sub)
	c.logger.Debug("Subscribed", "subject", subject, "queue", queue)
	return nil
}

// Request sends data to subject and waits for one reply.
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	conn := c.connection()
	if conn == nil || !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "Request", "request "+subject)
	}
	return msg.Data, nil
}

func (c *Client) onDisconnect(_ *nats.Conn, err error) {
	if c.closed.Load() {
		return
	}
	c.setStatus(StatusReconnecting)
	c.logger.Warn("Lost NATS connection", "error", err)
	c.notify(false)
}

func (c *Client) onReconnect(conn *nats.Conn) {
	c.setStatus(StatusConnected)
	c.resetCircuit()
	c.metrics.RecordNATSReconnect()
	c.logger.Info("Reconnected to NATS", "url", conn.ConnectedUrlRedacted())
	c.notify(true)
}

func (c *Client) onClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
	c.notify(false)
}

// onAsyncError logs without counting a failure; slow consumers land here.
func (c *Client) onAsyncError(_ *nats.Conn, sub *nats.Subscription, err error) {
	subject := ""
	if sub != nil {
		subject = sub.Subject
	}
	c.logger.Error("NATS async error", "subject", subject, "error", err)
}
