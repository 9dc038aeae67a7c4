package logging

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"

	"github.com/hanpama/thundergql/internal/eventbus"
	"github.com/hanpama/thundergql/internal/events"
	"github.com/hanpama/thundergql/internal/reqid"
)

func TestNew(t *testing.T) {
	l, err := New("debug", "console")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("", "json")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud", "json")
	require.Error(t, err)
	_, err = New("info", "xml")
	require.Error(t, err)
}

func TestSubscribe(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	core, logs := observer.New(zapcore.DebugLevel)
	unsubscribe := Subscribe(zap.New(core))

	ctx, rid := reqid.WithID(context.Background(), "r-1")
	eventbus.Publish(ctx, events.HTTPFinish{Request: httptest.NewRequest("GET", "/graphql", nil), Status: 200, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationName: "Q", Errors: []error{errors.New("boom")}})
	eventbus.Publish(ctx, events.RemoteProduceFinish{CallID: "c", Operation: "load", Code: codes.OK})

	require.Equal(t, 3, logs.Len())
	entries := logs.All()
	require.Equal(t, "http request", entries[0].Message)
	require.Equal(t, rid, entries[0].ContextMap()["request_id"])
	require.Equal(t, int64(200), entries[0].ContextMap()["status"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, zapcore.DebugLevel, entries[2].Level)

	unsubscribe()
	eventbus.Publish(ctx, events.GraphQLFinish{})
	require.Equal(t, 3, logs.Len())
}
