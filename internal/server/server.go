package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/thundergql/internal/eventbus"
	"github.com/hanpama/thundergql/internal/events"
	"github.com/hanpama/thundergql/internal/executor"
	"github.com/hanpama/thundergql/internal/language"
	"github.com/hanpama/thundergql/internal/reqid"
	"github.com/hanpama/thundergql/internal/schema"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
// Requests are parsed, validated against the schema document and executed.
type Handler struct {
	exec *executor.Executor
	doc  *language.Schema
	opt  Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

func WithGraphiQL(enable bool) Option { return func(o *Options) { o.GraphiQL = enable } }

// New creates a GraphQL HTTP handler. sch is the executable schema and doc
// the validated document it was built from (see schema.Build).
func New(runtime executor.Runtime, sch *schema.Schema, doc *language.Schema, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	return &Handler{exec: executor.NewExecutor(runtime, sch), doc: doc, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	r = r.WithContext(ctx)

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		h.writeJSON(w, status, requestError("method not allowed"))
		return
	}

	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, graphiqlPage)
		return
	}

	req, batch, err := parseRequest(r, h.opt.MaxBodyBytes)
	if err != nil {
		status = http.StatusBadRequest
		if err == errBodyTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		h.writeJSON(w, status, requestError(err.Error()))
		return
	}

	if batch != nil {
		out := make([]*executor.ExecutionResult, len(batch))
		for i := range batch {
			out[i] = h.executeOne(ctx, batch[i])
		}
		h.writeJSON(w, status, out)
		return
	}
	h.writeJSON(w, status, h.executeOne(ctx, req))
}

// Execute parses, validates and executes one request.
func (h *Handler) Execute(ctx context.Context, req Request) *executor.ExecutionResult {
	return h.executeOne(ctx, req)
}

func (h *Handler) executeOne(ctx context.Context, req Request) *executor.ExecutionResult {
	start := time.Now()
	doc, errs := language.ParseAndValidate(h.doc, req.Query)

	opType := ""
	if doc != nil {
		op := doc.Operations.ForName(req.OperationName)
		if op == nil && len(doc.Operations) == 1 {
			op = doc.Operations[0]
		}
		if op != nil {
			opType = string(op.Operation)
		}
	}
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})

	var result *executor.ExecutionResult
	if len(errs) > 0 {
		result = &executor.ExecutionResult{Errors: fromGQLErrors(errs)}
	} else {
		result = h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	}

	finished := make([]error, len(result.Errors))
	for i := range result.Errors {
		finished[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        finished,
		Duration:      time.Since(start),
	})
	return result
}

func fromGQLErrors(list language.ErrorList) []executor.GraphQLError {
	out := make([]executor.GraphQLError, len(list))
	for i, e := range list {
		ge := executor.GraphQLError{Message: e.Message, Extensions: e.Extensions}
		for _, loc := range e.Locations {
			ge.Locations = append(ge.Locations, executor.Location{Line: loc.Line, Column: loc.Column})
		}
		out[i] = ge
	}
	return out
}

func requestError(msg string) *executor.ExecutionResult {
	return &executor.ExecutionResult{Errors: []executor.GraphQLError{{Message: msg}}}
}

// ------------------ Request parsing ------------------

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

type requestErr string

func (e requestErr) Error() string { return string(e) }

const (
	errBodyTooLarge   requestErr = "body too large"
	errMissingQuery   requestErr = "missing 'query'"
	errInvalidJSON    requestErr = "invalid JSON"
	errEmptyBatch     requestErr = "empty batch"
	errContentType    requestErr = "unsupported Content-Type"
	errReadBody       requestErr = "failed to read body"
	errVariablesParam requestErr = "invalid 'variables' JSON"
)

func parseRequest(r *http.Request, maxBody int64) (Request, []Request, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return Request{}, nil, errMissingQuery
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return Request{}, nil, errVariablesParam
			}
		}
		return Request{Query: q, Variables: vars, OperationName: r.URL.Query().Get("operationName")}, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return Request{}, nil, errContentType
	}
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return Request{}, nil, errReadBody
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return Request{}, nil, errBodyTooLarge
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []Request
		if err := json.Unmarshal(body, &arr); err != nil {
			return Request{}, nil, errInvalidJSON
		}
		if len(arr) == 0 {
			return Request{}, nil, errEmptyBatch
		}
		return Request{}, arr, nil
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, nil, errInvalidJSON
	}
	if req.Query == "" {
		return Request{}, nil, errMissingQuery
	}
	return req, nil, nil
}

// ------------------ Response formatting ------------------

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		h.opt.Logger.Warn("write response", zap.Error(err))
	}
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	wildcard := slices.Contains(opts.AllowedOrigins, "*")
	if !wildcard && !slices.Contains(opts.AllowedOrigins, origin) {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", reqid.Header)
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func acceptsHTML(accept string) bool {
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}
