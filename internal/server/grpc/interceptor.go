package grpc

import (
	"context"

	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// methods callable without a user id
var anonymousMethods = map[string]bool{
	rpc.DocumentService_Ping_FullMethodName: true,
}

func userIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.UserIDHeaderName)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func withUserID(ctx context.Context, method string) (context.Context, error) {
	if anonymousMethods[method] {
		return ctx, nil
	}
	userID := userIDFromMetadata(ctx)
	if userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing user id")
	}
	return context.WithValue(ctx, userIDKey, userID), nil
}

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func (s *GRPCServer) userIDInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	ctx, err := withUserID(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type userStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *userStream) Context() context.Context {
	return w.ctx
}

func (s *GRPCServer) userIDStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := withUserID(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &userStream{ServerStream: ss, ctx: ctx})
}
