//go:build integration

package natsclient

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_ConnectAndRTT(t *testing.T) {
	events := make(chan bool, 1)
	tc := NewTestClient(t,
		WithClientName("formatkit-it"),
		WithConnectionListener(func(connected bool) { events <- connected }))

	assert.True(t, tc.Client.IsHealthy())
	assert.Equal(t, StatusConnected, tc.Client.Status())
	select {
	case connected := <-events:
		assert.True(t, connected)
	case <-time.After(time.Second):
		t.Fatal("no connection event")
	}

	rtt, err := tc.Client.RTT()
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

func TestIntegration_RequestReply(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	var handled atomic.Int32
	err := tc.Client.Subscribe(ctx, "echo", "workers", func(_ context.Context, msg *nats.Msg) {
		handled.Add(1)
		_ = msg.Respond(append([]byte("echo:"), msg.Data...))
	})
	require.NoError(t, err)

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	reply, err := tc.Client.Request(reqCtx, "echo", []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", string(reply))
	assert.Equal(t, int32(1), handled.Load())
}

func TestIntegration_RequestNoResponders(t *testing.T) {
	tc := NewTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := tc.Client.Request(ctx, "nobody.home", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, nats.ErrNoResponders)
}
