package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryTimeoutInterceptor(t *testing.T) {
	var got time.Duration
	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		got = time.Until(deadline)
		return nil
	}

	require.NoError(t, UnaryTimeoutInterceptor(time.Second)(context.Background(), "/m", nil, nil, nil, invoker))
	assert.LessOrEqual(t, got, time.Second)
	assert.Greater(t, got, 500*time.Millisecond)

	require.NoError(t, UnaryTimeoutInterceptor(0)(context.Background(), "/m", nil, nil, nil, invoker))
	assert.Greater(t, got, time.Second)

	// An existing deadline is kept.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, UnaryTimeoutInterceptor(time.Hour)(ctx, "/m", nil, nil, nil, invoker))
	assert.LessOrEqual(t, got, 100*time.Millisecond)
}

func TestUnaryRecoveryInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err := UnaryRecoveryInterceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))

	resp, err := UnaryRecoveryInterceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}
