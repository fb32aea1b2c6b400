package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/models"
	"github.com/dmitrijs2005/soullink/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const DefaultRetryInterval = 5 * time.Second

type GRPCRemoteStore struct {
	endpointURL   string
	retryInterval time.Duration
	logger        logging.Logger
	dialOptions   []grpc.DialOption

	conn   *grpc.ClientConn
	client rpc.DocumentServiceClient

	mu      sync.Mutex
	closed  bool
	cancels map[int]context.CancelFunc
	nextSub int
	wg      sync.WaitGroup
}

func withUserID(ctx context.Context, userID string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.UserIDHeaderName, userID)

	return metadata.NewOutgoingContext(ctx, md)
}

// NewGRPCRemoteStore connects lazily to endpointURL. Extra dial options are
// appended after the defaults (insecure transport).
func NewGRPCRemoteStore(endpointURL string, retryInterval time.Duration, logger logging.Logger, opts ...grpc.DialOption) (*GRPCRemoteStore, error) {
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	c := &GRPCRemoteStore{
		endpointURL:   endpointURL,
		retryInterval: retryInterval,
		logger:        logging.OrNop(logger).With("module", "grpc_remote"),
		dialOptions:   opts,
		cancels:       make(map[int]context.CancelFunc),
	}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCRemoteStore) InitGRPCClient() error {
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, s.dialOptions...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewDocumentServiceClient(conn)
	return nil
}

func (s *GRPCRemoteStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.client.Ping(ctx, &emptypb.Empty{}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCRemoteStore) Save(ctx context.Context, userID string, doc models.Document) error {
	if s.isClosed() {
		return ErrClosed
	}

	b, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	if _, err := s.client.Save(withUserID(ctx, userID), wrapperspb.Bytes(b)); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Subscribe keeps a stream open in the background. When the stream breaks
// it is re-opened after the retry interval; the server then sends the
// current document again.
func (s *GRPCRemoteStore) Subscribe(ctx context.Context, userID string, onSnapshot SnapshotFunc) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	id := s.nextSub
	s.nextSub++
	s.cancels[id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.subscribeLoop(ctx, userID, onSnapshot)
	}()

	return func() { s.drop(id) }, nil
}

func (s *GRPCRemoteStore) subscribeLoop(ctx context.Context, userID string, fn SnapshotFunc) {
	for {
		err := s.consume(ctx, userID, fn)
		if ctx.Err() != nil {
			return
		}

		s.logger.Warn(ctx, "subscription lost, retrying", "err", s.mapError(err), "retry_in", s.retryInterval.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryInterval):
		}
	}
}

func (s *GRPCRemoteStore) consume(ctx context.Context, userID string, fn SnapshotFunc) error {
	stream, err := s.client.Subscribe(withUserID(ctx, userID), &emptypb.Empty{})
	if err != nil {
		return err
	}

	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrUnavailable
			}
			return err
		}

		doc, exists, err := decodeSnapshot(ctx, msg.GetValue(), s.logger)
		if err != nil {
			s.logger.Warn(ctx, "dropping undecodable snapshot", "err", err)
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fn(doc, exists)
	}
}

func (s *GRPCRemoteStore) drop(id int) {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	delete(s.cancels, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *GRPCRemoteStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops every subscription, waits for them and closes the connection.
func (s *GRPCRemoteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancels := s.cancels
	s.cancels = map[int]context.CancelFunc{}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.wg.Wait()

	return s.conn.Close()
}

func (s *GRPCRemoteStore) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
