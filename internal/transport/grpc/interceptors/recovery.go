package interceptors

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryRecovery turns a handler panic into codes.Internal and logs the stack.
func UnaryRecovery(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer recoverCall(logger, info.FullMethod, &err)
		return handler(ctx, req)
	}
}

// StreamRecovery is the streaming counterpart of UnaryRecovery.
func StreamRecovery(logger *zap.Logger) grpc.StreamServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer recoverCall(logger, info.FullMethod, &err)
		return handler(srv, ss)
	}
}

func recoverCall(logger *zap.Logger, method string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	logger.Error("grpc handler panicked",
		zap.String("method", method),
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()),
	)
	*err = status.Error(codes.Internal, "internal error")
}
