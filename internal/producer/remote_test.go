package producer

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hanpama/thundergql/internal/entity"
	"github.com/hanpama/thundergql/internal/eventbus"
	"github.com/hanpama/thundergql/internal/events"
)

type produceFunc func(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)

// startProducer serves fn as the Produce method on an in-memory listener and
// returns dial options reaching it.
func startProducer(t *testing.T, fn produceFunc) []grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: "thundergql.producer.v1.Producer",
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Produce",
			Handler: func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				in := new(structpb.Struct)
				if err := dec(in); err != nil {
					return nil, err
				}
				return fn(ctx, in)
			},
		}},
	}, struct{}{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	}
}

func newTestRemote(t *testing.T, fn produceFunc, opts ...RemoteOption) *Remote {
	t.Helper()
	dial := startProducer(t, fn)
	provider := NewStaticEndpoints(map[string][]string{"summarize": {"passthrough:///bufnet"}})
	r := NewRemote(append([]RemoteOption{WithProvider(provider), WithDialOptions(dial...)}, opts...)...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRemote_Call(t *testing.T) {
	var gotOp string
	var gotParams map[string]any
	r := newTestRemote(t, func(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		gotOp = md.Get(OperationHeader)[0]
		gotParams = req.AsMap()
		return structpb.NewValue(map[string]any{"summary": "red sky", "words": 2})
	})

	media := &entity.Entity{Type: "media", Bundle: "image", ID: "1", UUID: "u-1", Langcode: "en"}
	reg := NewRegistry()
	require.NoError(t, reg.Register("summarize", r.Operation("summarize")))
	op, _ := reg.Operation("summarize")

	v, ok, err := op.Produce(context.Background(), map[string]any{"entity": media, "limit": 2})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]any{"summary": "red sky", "words": float64(2)}, v)

	require.Equal(t, "summarize", gotOp)
	require.Equal(t, map[string]any{
		"entity": map[string]any{"type": "media", "bundle": "image", "id": "1", "uuid": "u-1", "langcode": "en"},
		"limit":  float64(2),
	}, gotParams)
}

func TestRemote_NullIsAbsent(t *testing.T) {
	r := newTestRemote(t, func(context.Context, *structpb.Struct) (*structpb.Value, error) {
		return structpb.NewNullValue(), nil
	})
	_, ok, err := r.Call(context.Background(), "summarize", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemote_ErrorAndEvents(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	var mu sync.Mutex
	var starts []events.RemoteProduceStart
	var finishes []events.RemoteProduceFinish
	eventbus.Subscribe(func(_ context.Context, e events.RemoteProduceStart) {
		mu.Lock()
		defer mu.Unlock()
		starts = append(starts, e)
	})
	eventbus.Subscribe(func(_ context.Context, e events.RemoteProduceFinish) {
		mu.Lock()
		defer mu.Unlock()
		finishes = append(finishes, e)
	})

	r := newTestRemote(t, func(context.Context, *structpb.Struct) (*structpb.Value, error) {
		return nil, status.Error(codes.Unavailable, "down")
	})
	_, _, err := r.Call(context.Background(), "summarize", map[string]any{"x": "y"})
	require.Error(t, err)
	require.Equal(t, codes.Unavailable, status.Code(errors.Cause(err)))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, 1)
	require.Len(t, finishes, 1)
	require.Equal(t, starts[0].CallID, finishes[0].CallID)
	require.Equal(t, "summarize", finishes[0].Operation)
	require.Equal(t, codes.Unavailable, finishes[0].Code)
}

func TestRemote_DefaultTimeout(t *testing.T) {
	r := newTestRemote(t, func(ctx context.Context, _ *structpb.Struct) (*structpb.Value, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, WithRPCTimeout(50*time.Millisecond))
	_, _, err := r.Call(context.Background(), "summarize", nil)
	require.Error(t, err)
	require.Equal(t, codes.DeadlineExceeded, status.Code(errors.Cause(err)))
}

func TestRemote_NoEndpoints(t *testing.T) {
	r := NewRemote(WithProvider(NewStaticEndpoints(nil)))
	defer r.Close()
	_, _, err := r.Call(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrNoEndpoints)
}

func TestRemote_Closed(t *testing.T) {
	r := NewRemote(WithProvider(NewStaticEndpoints(nil)))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, _, err := r.Call(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrClosed)
}

func TestRemote_NoPoolAfterClose(t *testing.T) {
	r := NewRemote(WithProvider(NewStaticEndpoints(map[string][]string{"op": {"localhost:1"}})))
	require.NoError(t, r.Close())

	_, err := r.getConn("localhost:1")
	require.ErrorIs(t, err, ErrClosed)
	r.mu.RLock()
	defer r.mu.RUnlock()
	require.Empty(t, r.pools)
}

func TestToWire(t *testing.T) {
	got := wireParams(map[string]any{
		"route": entity.Route{Path: "/a", EntityType: "media", EntityID: "1"},
		"items": entity.FieldList{{Values: map[string]any{"value": "x"}}},
		"list":  []any{1, "two"},
	})
	_, err := structpb.NewStruct(got)
	require.NoError(t, err)
	require.Equal(t, []any{map[string]any{"value": "x"}}, got["items"])
	require.Equal(t, map[string]any{"path": "/a", "entityType": "media", "entityId": "1"}, got["route"])
}
