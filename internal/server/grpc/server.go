package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/rpc"
	"github.com/dmitrijs2005/soullink/internal/server/services"
	"google.golang.org/grpc"
)

type documentService interface {
	Save(ctx context.Context, userID string, payload []byte) ([]byte, error)
	Subscribe(ctx context.Context, userID string) (*services.Subscription, error)
}

type GRPCServer struct {
	address   string
	documents documentService
	logger    logging.Logger

	// closed on shutdown so open Subscribe streams return and
	// GracefulStop can finish
	stopping chan struct{}
	stopOnce sync.Once
}

func NewGRPCServer(a string, l logging.Logger, ds documentService) (*GRPCServer, error) {
	return &GRPCServer{
		address:   a,
		logger:    logging.OrNop(l).With("module", "grpc_server"),
		documents: ds,
		stopping:  make(chan struct{}),
	}, nil
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve runs the server on an existing listener until ctx is canceled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.userIDInterceptor),
		grpc.ChainStreamInterceptor(s.userIDStreamInterceptor),
	)

	rpc.RegisterDocumentServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.stopOnce.Do(func() { close(s.stopping) })
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
