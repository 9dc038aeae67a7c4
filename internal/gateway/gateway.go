// Package gateway wires the configured content store, producers, schema
// extensions and runtime into an HTTP GraphQL handler.
package gateway

import (
	"context"
	"net/http"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hanpama/thundergql/internal/config"
	"github.com/hanpama/thundergql/internal/entity"
	"github.com/hanpama/thundergql/internal/executor"
	"github.com/hanpama/thundergql/internal/extension"
	"github.com/hanpama/thundergql/internal/introspection"
	"github.com/hanpama/thundergql/internal/language"
	"github.com/hanpama/thundergql/internal/producer"
	"github.com/hanpama/thundergql/internal/resolver"
	"github.com/hanpama/thundergql/internal/runtime"
	"github.com/hanpama/thundergql/internal/schema"
	"github.com/hanpama/thundergql/internal/server"
)

// Gateway is an assembled gateway. Close releases the store and remote
// producer connections.
type Gateway struct {
	Store      entity.Store
	Operations *producer.Registry
	Registry   *resolver.Registry
	Schema     *schema.Schema
	Document   *language.Schema
	Runtime    executor.Runtime
	Handler    *server.Handler

	cfg     *config.Config
	logger  *zap.Logger
	closers []func() error
}

// Extensions returns the schema extensions enabled by cfg, in registration
// order.
func Extensions(cfg *config.Config) []extension.Extension {
	exts := []extension.Extension{extension.Base{}, extension.Media{}}
	if len(cfg.CallbackFields) > 0 {
		exts = append(exts, extension.CallbackFields(cfg.CallbackFields))
	}
	return exts
}

// BuildSchema assembles the registry and the schema without opening a store.
func BuildSchema(cfg *config.Config, logger *zap.Logger) (*resolver.Registry, *schema.Schema, *language.Schema, error) {
	exts := Extensions(cfg)
	reg := resolver.NewRegistry()
	extension.Assemble(reg, logger, exts...)
	sch, doc, err := schema.Build(extension.Sources(exts...)...)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "build schema")
	}
	runtime.Classify(sch, reg)
	return reg, sch, doc, nil
}

// OpenStore opens the entity store selected by cfg. The returned function
// closes it.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (entity.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "", "memory":
		var f *entity.Fixtures
		if cfg.Fixtures != "" {
			var err error
			if f, err = entity.LoadFixtures(cfg.Fixtures); err != nil {
				return nil, nil, err
			}
		}
		s, err := entity.NewMemoryStore(f)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "sqlite":
		s, err := entity.OpenSQL(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, errors.Errorf("unknown store driver %q", cfg.Driver)
}

// New assembles a gateway from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Gateway, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = g.Close()
		}
	}()

	store, closeStore, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	g.Store = store
	g.closers = append(g.closers, closeStore)

	g.Operations = producer.NewRegistry()
	if err := producer.RegisterBuiltins(g.Operations, store, cfg.ProducerOptions()); err != nil {
		return nil, err
	}
	if err := g.registerRemote(); err != nil {
		return nil, err
	}

	g.Registry, g.Schema, g.Document, err = BuildSchema(cfg, logger)
	if err != nil {
		return nil, err
	}
	if rep := runtime.Coverage(g.Schema, g.Registry); !rep.OK() {
		logger.Warn("incomplete resolver registry",
			zap.Strings("missing_type_resolvers", rep.MissingTypeResolvers),
			zap.Int("unknown_fields", len(rep.UnknownFields)),
		)
	}

	var rt executor.Runtime = runtime.New(g.Registry, g.Operations, runtime.WithMaxConcurrency(cfg.Server.MaxConcurrency))
	execSchema := g.Schema
	if cfg.Server.Introspection {
		w := introspection.Wrap(rt, g.Schema)
		rt, execSchema = w.Runtime, w.Schema
	}
	g.Runtime = rt

	opts := []server.Option{
		server.WithTimeout(cfg.ServerTimeout()),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
		server.WithLogger(logger),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORS) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORS...))
	}
	g.Handler = server.New(rt, execSchema, g.Document, opts...)
	return g, nil
}

// registerRemote adds the configured remote operations. A remote operation
// may not shadow a builtin.
func (g *Gateway) registerRemote() error {
	ops := g.cfg.Remote.Operations
	if len(ops) == 0 {
		return nil
	}
	remote := producer.NewRemote(
		producer.WithProvider(producer.NewStaticEndpoints(ops)),
		producer.WithMaxConnsPerEndpoint(g.cfg.Remote.MaxConnsPerEndpoint),
		producer.WithRPCTimeout(g.cfg.RPCTimeout()),
	)
	g.closers = append(g.closers, remote.Close)

	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := g.Operations.Register(name, remote.Operation(name)); err != nil {
			return errors.Wrapf(err, "remote operation %s", name)
		}
		g.logger.Info("remote operation", zap.String("operation", name), zap.Strings("endpoints", ops[name]))
	}
	return nil
}

// Mux serves the GraphQL handler at the configured path.
func (g *Gateway) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(g.cfg.Server.Path, g.Handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Close releases resources in reverse order of acquisition.
func (g *Gateway) Close() error {
	var first error
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	g.closers = nil
	return first
}
