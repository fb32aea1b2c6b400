package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/rpc"
	"github.com/dmitrijs2005/soullink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/soullink/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv, err := NewGRPCServer("127.0.0.1:0", nopLogger{}, (*services.DocumentService)(nil))
	if err != nil {
		t.Fatalf("NewGRPCServer error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv, err := NewGRPCServer("127.0.0.1:99999", nopLogger{}, (*services.DocumentService)(nil))
	if err != nil {
		t.Fatalf("NewGRPCServer error (constructor should not fail here): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

// startBufServer runs a server over an in-memory listener with the real
// document service on in-memory storage.
func startBufServer(t *testing.T) (rpc.DocumentServiceClient, context.CancelFunc, <-chan error) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ds := services.NewDocumentService(nil, repomanager.NewMemoryRepositoryManager(), nopLogger{})
	srv, err := NewGRPCServer("bufnet", nopLogger{}, ds)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
	})

	return rpc.NewDocumentServiceClient(conn), cancel, done
}

func asUser(ctx context.Context, id string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.UserIDHeaderName, id)
}

func TestServer_EndToEnd(t *testing.T) {
	client, _, _ := startBufServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	_, err = client.Save(ctx, wrapperspb.Bytes([]byte(`{"a":1}`)))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	uctx := asUser(ctx, "u1")

	_, err = client.Save(uctx, wrapperspb.Bytes([]byte(`"nope"`)))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	stream, err := client.Subscribe(uctx, &emptypb.Empty{})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Empty(t, first.GetValue(), "no document yet")

	_, err = client.Save(uctx, wrapperspb.Bytes([]byte(`{"a":1,"b":2}`)))
	require.NoError(t, err)
	_, err = client.Save(uctx, wrapperspb.Bytes([]byte(`{"b":3}`)))
	require.NoError(t, err)

	// the subscriber may skip intermediate versions but ends on the last one
	var last []byte
	for {
		msg, err := stream.Recv()
		require.NoError(t, err)
		last = msg.GetValue()
		if decodeField(t, last, "b") == 3.0 {
			break
		}
	}
	assert.JSONEq(t, `{"a":1,"b":3}`, string(last))

	// another user sees nothing of u1
	other, err := client.Subscribe(asUser(ctx, "u2"), &emptypb.Empty{})
	require.NoError(t, err)
	msg, err := other.Recv()
	require.NoError(t, err)
	assert.Empty(t, msg.GetValue())
}

func TestServer_ShutdownEndsSubscriptions(t *testing.T) {
	client, cancelServer, done := startBufServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Subscribe(asUser(ctx, "u1"), &emptypb.Empty{})
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)

	cancelServer()

	_, err = stream.Recv()
	require.Error(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop with an open subscription")
	}
}
