package natsclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container image used by NewTestClient; SEMLINK_TEST_NATS_IMAGE overrides it.
const defaultTestImage = "nats:2.11.7-alpine"

// TestClient is a connected Client backed by a throwaway JetStream server
// container.
type TestClient struct {
	Client *Client
	URL    string
}

// NewTestClient starts the container, connects, and creates buckets. The
// container and the connection are released by t.Cleanup.
func NewTestClient(t testing.TB, buckets ...string) *TestClient {
	t.Helper()
	ctx := context.Background()

	image := os.Getenv("SEMLINK_TEST_NATS_IMAGE")
	if image == "" {
		image = defaultTestImage
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			Cmd:          []string{"--port", "4222", "--http_port", "8222", "--js"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4222/tcp"),
				wait.ForHTTP("/healthz").WithPort("8222/tcp"),
			).WithDeadline(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", image, err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	if err != nil {
		t.Fatalf("nats endpoint: %v", err)
	}

	client, err := NewClient(endpoint, WithMaxReconnects(0), WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("nats client: %v", err)
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		t.Fatalf("connect %s: %v", endpoint, err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	tc := &TestClient{Client: client, URL: endpoint}
	for _, bucket := range buckets {
		if _, err := tc.CreateKVBucket(ctx, bucket); err != nil {
			t.Fatalf("create bucket %s: %v", bucket, err)
		}
	}
	return tc
}

// CreateKVBucket creates or reuses a bucket with default settings.
func (tc *TestClient) CreateKVBucket(ctx context.Context, name string) (jetstream.KeyValue, error) {
	return tc.Client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: name})
}
