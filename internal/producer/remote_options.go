package producer

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

// ErrNoEndpoints indicates the provider returned no endpoints for an operation.
var ErrNoEndpoints = errors.New("producer: no endpoints available")

// EndpointProvider lists reachable endpoints (host:port) serving a remote
// operation. Implementations must be safe for concurrent use.
type EndpointProvider interface {
	Endpoints(ctx context.Context, operation string) ([]string, error)
}

// StaticEndpoints is a provider backed by an in-memory map from operation
// name to endpoints.
type StaticEndpoints struct {
	mu   sync.RWMutex
	data map[string][]string
}

func NewStaticEndpoints(m map[string][]string) *StaticEndpoints {
	cp := make(map[string][]string, len(m))
	for k, v := range m {
		cp[k] = append([]string(nil), v...)
	}
	return &StaticEndpoints{data: cp}
}

func (s *StaticEndpoints) Endpoints(_ context.Context, operation string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.data[operation]
	if len(arr) == 0 {
		return nil, errors.Wrapf(ErrNoEndpoints, "%q", operation)
	}
	return append([]string(nil), arr...), nil
}

// Operations returns the configured operation names.
func (s *StaticEndpoints) Operations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}

// RemoteOptions configures the remote producer client.
//
// Defaults:
//   - MaxConnsPerEndpoint: 2
//   - RPCTimeout:          3s (only when the incoming context has no deadline)
//   - DialOptions:         insecure credentials
type RemoteOptions struct {
	Provider EndpointProvider

	MaxConnsPerEndpoint int
	RPCTimeout          time.Duration

	DialOptions []grpc.DialOption
}

// RemoteOption mutates RemoteOptions.
type RemoteOption func(*RemoteOptions)

func defaultRemoteOptions() *RemoteOptions {
	return &RemoteOptions{
		MaxConnsPerEndpoint: 2,
		RPCTimeout:          3 * time.Second,
	}
}

func WithProvider(p EndpointProvider) RemoteOption { return func(o *RemoteOptions) { o.Provider = p } }
func WithMaxConnsPerEndpoint(n int) RemoteOption {
	return func(o *RemoteOptions) { o.MaxConnsPerEndpoint = n }
}
func WithRPCTimeout(d time.Duration) RemoteOption { return func(o *RemoteOptions) { o.RPCTimeout = d } }
func WithDialOptions(opts ...grpc.DialOption) RemoteOption {
	return func(o *RemoteOptions) { o.DialOptions = opts }
}
