package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testServerImage = "nats:2.11.7-alpine"

// TestClient is a Client connected to a throwaway NATS container.
type TestClient struct {
	Client    *Client
	URL       string
	container testcontainers.Container
}

// NewTestClient starts a NATS server container, connects a Client with opts
// layered over test defaults and stops both when t finishes.
func NewTestClient(t testing.TB, opts ...ClientOption) *TestClient {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testServerImage,
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			Cmd:          []string{"--port", "4222", "--http_port", "8222"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4222/tcp"),
				wait.ForHTTP("/").WithPort("8222/tcp").WithStartupTimeout(30*time.Second),
			),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start NATS container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := serverURL(ctx, container)
	if err != nil {
		t.Fatal(err)
	}

	defaults := []ClientOption{WithTimeout(5 * time.Second), WithMaxReconnects(0)}
	client, err := NewClient(url, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("create NATS client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		t.Fatalf("connect to NATS: %v", err)
	}

	return &TestClient{Client: client, URL: url, container: container}
}

func serverURL(ctx context.Context, container testcontainers.Container) (string, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}
	return fmt.Sprintf("nats://%s:%s", host, port.Port()), nil
}
