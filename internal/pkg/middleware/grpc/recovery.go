package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/autopeer-io/drivertrack/pkg/log"
)

// UnaryRecoveryInterceptor turns a handler panic into codes.Internal.
func UnaryRecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if v := recover(); v != nil {
			log.Error(nil, "Recovered from panic in gRPC handler", "method", info.FullMethod, "panic", v)
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
