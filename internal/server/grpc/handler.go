package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Ping(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Save(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user id")
	}

	if _, err := s.documents.Save(ctx, userID, req.GetValue()); err != nil {
		if errors.Is(err, common.ErrInvalidDocument) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error(ctx, "save failed", "user_id", userID, "err", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &emptypb.Empty{}, nil
}

// Subscribe sends the current document (empty value when there is none)
// and then every new version until the client goes away or the server
// shuts down.
func (s *GRPCServer) Subscribe(req *emptypb.Empty, stream rpc.DocumentService_SubscribeServer) error {
	ctx := stream.Context()

	userID, ok := userIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing user id")
	}

	sub, err := s.documents.Subscribe(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "subscribe failed", "user_id", userID, "err", err)
		return status.Error(codes.Internal, "internal error")
	}
	defer sub.Close()

	initial := sub.Initial
	if !sub.Exists {
		initial = nil
	}
	if err := stream.Send(wrapperspb.Bytes(initial)); err != nil {
		return err
	}

	s.logger.Debug(ctx, "subscriber attached", "user_id", userID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopping:
			return status.Error(codes.Unavailable, "server shutting down")
		case doc, ok := <-sub.Updates:
			if !ok {
				return status.Error(codes.Unavailable, "subscription closed")
			}
			if err := stream.Send(wrapperspb.Bytes(doc)); err != nil {
				return err
			}
		}
	}
}
