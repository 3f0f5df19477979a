package natsclient

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/formatkit/metric"
)

// ClientOption adjusts a Client before it connects. An option returning an
// error makes NewClient fail.
type ClientOption func(*Client) error

func positive(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %v", name, d)
	}
	return nil
}

// WithMaxReconnects caps reconnect attempts after a lost connection. -1
// retries forever, 0 gives up at once.
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) error {
		c.conf.maxReconnects = n
		return nil
	}
}

// WithReconnectWait is the pause between reconnect attempts.
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.conf.reconnectWait = d
		return nil
	}
}

// WithPingInterval sets how often the server is pinged to detect a dead
// connection.
func WithPingInterval(d time.Duration) ClientOption {
	return func(c *Client) error {
		if err := positive("ping interval", d); err != nil {
			return err
		}
		c.conf.pingInterval = d
		return nil
	}
}

// WithTimeout bounds the dial of a single Connect.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if err := positive("timeout", d); err != nil {
			return err
		}
		c.conf.dialTimeout = d
		return nil
	}
}

// WithDrainTimeout is the longest Close waits for in-flight requests.
func WithDrainTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if err := positive("drain timeout", d); err != nil {
			return err
		}
		c.conf.drainTimeout = d
		return nil
	}
}

// WithHandlerTimeout is the deadline put on each message handler context.
func WithHandlerTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if err := positive("handler timeout", d); err != nil {
			return err
		}
		c.conf.handlerTimeout = d
		return nil
	}
}

// WithCircuitThreshold is the number of failed connects that opens the
// circuit.
func WithCircuitThreshold(n int) ClientOption {
	return func(c *Client) error {
		if n < 1 {
			return fmt.Errorf("circuit threshold must be at least 1, got %d", n)
		}
		c.breaker.threshold = int32(n)
		return nil
	}
}

// WithMaxBackoff caps how long an open circuit stays open.
func WithMaxBackoff(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.breaker.maxBackoff = d
		return nil
	}
}

// WithUserPassword authenticates with a user name and password.
func WithUserPassword(user, password string) ClientOption {
	return func(c *Client) error {
		c.auth.user, c.auth.password = user, password
		return nil
	}
}

// WithToken authenticates with a bearer token.
func WithToken(token string) ClientOption {
	return func(c *Client) error {
		c.auth.token = token
		return nil
	}
}

// WithClientName names the connection in server monitoring.
func WithClientName(name string) ClientOption {
	return func(c *Client) error {
		c.conf.name = name
		return nil
	}
}

// WithConnectionListener is called with true when the connection comes up
// or recovers, and with false when it drops or closes.
func WithConnectionListener(fn func(connected bool)) ClientOption {
	return func(c *Client) error {
		c.onConnection = fn
		return nil
	}
}

// WithLogger replaces slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithMetrics publishes the connection gauge and reconnect counter.
func WithMetrics(m *metric.Metrics) ClientOption {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}
