package health

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestServer_Reports_Lifecycle(t *testing.T) {
	req := require.New(t)

	// Given a health server on an in-memory listener
	lis := bufconn.Listen(1024 * 1024)
	server := NewServer(logs.GetLoggerFromLevel(slog.LevelDebug))
	done := make(chan error, 1)
	go func() { done <- server.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	req.NoError(err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		req.NoError(err)
		return resp.GetStatus()
	}

	// When the hub is still starting
	// Then it is not serving
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check())

	// When the hub is ready
	server.SetServing(true)

	// Then it is serving
	req.Equal(healthpb.HealthCheckResponse_SERVING, check())

	// When the hub stops
	server.Stop()

	// Then Serve returns cleanly
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("health server did not stop")
	}
}
