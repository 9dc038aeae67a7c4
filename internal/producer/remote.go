package producer

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hanpama/thundergql/internal/eventbus"
	"github.com/hanpama/thundergql/internal/events"
)

const (
	// ProduceMethod is the full gRPC method remote producers implement. The
	// request is a google.protobuf.Struct of parameters, the response a
	// google.protobuf.Value; a null response is absence.
	ProduceMethod = "/thundergql.producer.v1.Producer/Produce"

	// OperationHeader carries the operation name in outgoing metadata.
	OperationHeader = "x-thundergql-operation"
)

// ErrClosed is returned by calls on a closed Remote.
var ErrClosed = errors.New("producer: remote client closed")

// Remote calls data producers served by other processes. Connections are
// pooled per endpoint.
type Remote struct {
	opts *RemoteOptions

	mu     sync.RWMutex
	pools  map[string]*connPool
	closed atomic.Bool
}

func NewRemote(opts ...RemoteOption) *Remote {
	o := defaultRemoteOptions()
	for _, f := range opts {
		f(o)
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	return &Remote{opts: o, pools: make(map[string]*connPool)}
}

// Operation returns a producer that forwards to the remote operation name.
func (r *Remote) Operation(name string) Operation {
	return OperationFunc(func(ctx context.Context, params map[string]any) (any, bool, error) {
		return r.Call(ctx, name, params)
	})
}

// Call invokes operation on one of its endpoints.
func (r *Remote) Call(ctx context.Context, operation string, params map[string]any) (out any, ok bool, err error) {
	if r.closed.Load() {
		return nil, false, ErrClosed
	}
	if r.opts.Provider == nil {
		return nil, false, errors.New("producer: endpoint provider not configured")
	}
	req, err := structpb.NewStruct(wireParams(params))
	if err != nil {
		return nil, false, errors.Wrapf(err, "%s: encode params", operation)
	}

	if _, has := ctx.Deadline(); !has && r.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.RPCTimeout)
		defer cancel()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, OperationHeader, operation)

	endpoints, err := r.opts.Provider.Endpoints(ctx, operation)
	if err != nil {
		return nil, false, err
	}
	if len(endpoints) == 0 {
		return nil, false, errors.Wrapf(ErrNoEndpoints, "%q", operation)
	}
	endpoint := endpoints[rand.IntN(len(endpoints))]

	cc, err := r.getConn(endpoint)
	if err != nil {
		return nil, false, err
	}
	defer r.returnConn(endpoint, cc)

	callID := uuid.NewString()
	start := time.Now()
	eventbus.Publish(ctx, events.RemoteProduceStart{CallID: callID, Operation: operation, Method: ProduceMethod, Target: endpoint})
	resp := new(structpb.Value)
	err = cc.Invoke(ctx, ProduceMethod, req, resp)
	eventbus.Publish(ctx, events.RemoteProduceFinish{
		CallID:    callID,
		Operation: operation,
		Method:    ProduceMethod,
		Target:    endpoint,
		Code:      status.Code(err),
		Err:       err,
		Duration:  time.Since(start),
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "%s @ %s", operation, endpoint)
	}
	if _, null := resp.GetKind().(*structpb.Value_NullValue); null || resp.GetKind() == nil {
		return nil, false, nil
	}
	return resp.AsInterface(), true, nil
}

// Close closes every pooled connection.
func (r *Remote) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pools {
		p.close()
	}
	r.pools = map[string]*connPool{}
	return nil
}

type connPool struct {
	endpoint string
	opts     *RemoteOptions
	conns    chan *grpc.ClientConn
	mu       sync.Mutex
	closed   bool
}

func newConnPool(endpoint string, opts *RemoteOptions) *connPool {
	n := opts.MaxConnsPerEndpoint
	if n <= 0 {
		n = 2
	}
	return &connPool{endpoint: endpoint, opts: opts, conns: make(chan *grpc.ClientConn, n)}
}

func (p *connPool) get() (*grpc.ClientConn, error) {
	select {
	case cc, ok := <-p.conns:
		if ok {
			return cc, nil
		}
		return nil, ErrClosed
	default:
	}
	cc, err := grpc.NewClient(p.endpoint, p.opts.DialOptions...)
	return cc, errors.Wrapf(err, "dial %s", p.endpoint)
}

func (p *connPool) put(cc *grpc.ClientConn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = cc.Close()
		return
	}
	select {
	case p.conns <- cc:
	default:
		_ = cc.Close()
	}
}

func (p *connPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.conns)
	for cc := range p.conns {
		_ = cc.Close()
	}
}

// getConn fails with ErrClosed once Close has reset the pools.
func (r *Remote) getConn(endpoint string) (*grpc.ClientConn, error) {
	r.mu.RLock()
	pool := r.pools[endpoint]
	r.mu.RUnlock()
	if pool == nil {
		r.mu.Lock()
		if r.closed.Load() {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		if pool = r.pools[endpoint]; pool == nil {
			pool = newConnPool(endpoint, r.opts)
			r.pools[endpoint] = pool
		}
		r.mu.Unlock()
	}
	return pool.get()
}

func (r *Remote) returnConn(endpoint string, cc *grpc.ClientConn) {
	r.mu.RLock()
	pool := r.pools[endpoint]
	r.mu.RUnlock()
	if pool != nil {
		pool.put(cc)
		return
	}
	_ = cc.Close()
}
