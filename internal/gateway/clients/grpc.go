package clients

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthClient queries the gRPC health service of a running gateway.
type HealthClient struct {
	Health healthpb.HealthClient
	conn   *grpc.ClientConn
}

func NewHealthClient(addr string) (*HealthClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("health service connection failed: %v", err)
	}
	return &HealthClient{
		Health: healthpb.NewHealthClient(conn),
		conn:   conn,
	}, nil
}

// Serving reports whether service answers SERVING. An empty service name asks
// about the server as a whole.
func (c *HealthClient) Serving(ctx context.Context, service string) (bool, error) {
	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

func (c *HealthClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
