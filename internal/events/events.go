// Package events defines the payloads published on the eventbus by the HTTP
// server, the executor runtime and remote data producers. Subscribers (otel,
// logging) pair Start and Finish events through the request id in the
// context or an explicit id field.
package events

import (
	"net/http"
	"time"

	"google.golang.org/grpc/codes"
)

// HTTPStart is emitted when an HTTP request is received.
// Context carries the request context.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler completes.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation. Errors holds
// validation and execution errors alike.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// RemoteProduceStart is emitted before a remote data producer is called.
// CallID pairs it with the matching RemoteProduceFinish.
type RemoteProduceStart struct {
	CallID    string
	Operation string
	Method    string
	Target    string
}

// RemoteProduceFinish is emitted after a remote data producer call completes.
type RemoteProduceFinish struct {
	CallID    string
	Operation string
	Method    string
	Target    string
	Code      codes.Code
	Err       error
	Duration  time.Duration
}

// ResolveBatchStart is emitted before the runtime resolves a batch of async
// fields that share one (type, field) pair.
type ResolveBatchStart struct {
	BatchID string
	Type    string
	Field   string
	Size    int
}

// ResolveBatchFinish is emitted after a batch completes. Failed counts the
// tasks that returned an error.
type ResolveBatchFinish struct {
	BatchID  string
	Type     string
	Field    string
	Size     int
	Failed   int
	Duration time.Duration
}
