package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcserver "github.com/autopeer-io/drivertrack/internal/pingwriter/server/grpc"
	grpcmw "github.com/autopeer-io/drivertrack/internal/pkg/middleware/grpc"
)

func newHealthCommand() *cobra.Command {
	var (
		target  = "localhost:8091"
		timeout = grpcmw.DefaultRPCTimeout
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the gRPC health service of a running ping writer",
		Long: `Health exits with an error unless the ping writer reports SERVING, i.e. its
store connection is established and the pings collection is provisioned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := checkHealth(cmd.Context(), target, timeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", target, status)
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("ping writer at %s is %s", target, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", target, "Address of the ping writer gRPC server.")
	cmd.Flags().DurationVar(&timeout, "timeout", timeout, "Timeout of the health check.")

	return cmd
}

func checkHealth(ctx context.Context, target string, timeout time.Duration) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcmw.UnaryTimeoutInterceptor(timeout)),
	)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("failed to create grpc client: %w", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: grpcserver.ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check failed: %w", err)
	}
	return resp.GetStatus(), nil
}
