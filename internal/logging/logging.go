// Package logging builds the process logger and attaches it to the event
// bus.
package logging

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hanpama/thundergql/internal/eventbus"
	"github.com/hanpama/thundergql/internal/events"
	"github.com/hanpama/thundergql/internal/reqid"
)

// New builds a logger. format is "json" (production encoder) or "console"
// (development encoder); level is any zapcore level name.
func New(level, format string) (*zap.Logger, error) {
	var config zap.Config
	switch format {
	case "", "json":
		config = zap.NewProductionConfig()
	case "console":
		config = zap.NewDevelopmentConfig()
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, errors.Wrap(err, "log level")
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	return config.Build()
}

func requestField(ctx context.Context) zap.Field {
	rid, _ := reqid.FromContext(ctx)
	return zap.String("request_id", rid)
}

// Subscribe logs finished requests, operations, batches and remote calls
// from the global bus. The returned function detaches the logger.
func Subscribe(logger *zap.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			logger.Info("http request",
				requestField(ctx),
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			fields := []zap.Field{
				requestField(ctx),
				zap.String("operation", e.OperationName),
				zap.String("type", e.OperationType),
				zap.Int("errors", len(e.Errors)),
				zap.Duration("duration", e.Duration),
			}
			if len(e.Errors) > 0 {
				fields = append(fields, zap.Errors("error_list", e.Errors))
				logger.Warn("graphql operation", fields...)
				return
			}
			logger.Debug("graphql operation", fields...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ResolveBatchFinish) {
			logger.Debug("resolve batch",
				requestField(ctx),
				zap.String("batch_id", e.BatchID),
				zap.String("field", e.Type+"."+e.Field),
				zap.Int("size", e.Size),
				zap.Int("failed", e.Failed),
				zap.Duration("duration", e.Duration),
			)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.RemoteProduceFinish) {
			fields := []zap.Field{
				requestField(ctx),
				zap.String("call_id", e.CallID),
				zap.String("operation", e.Operation),
				zap.String("target", e.Target),
				zap.Stringer("code", e.Code),
				zap.Duration("duration", e.Duration),
			}
			if e.Err != nil {
				logger.Warn("remote produce", append(fields, zap.Error(e.Err))...)
				return
			}
			logger.Debug("remote produce", fields...)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
