// Package router provides the ordered-alternation HTTP router of the
// Gatehouse framework. It evaluates an immutable route table of pipelines
// top to bottom: the first pipeline that does not fall through produces the
// response, a guard denial stops the search immediately, and exhausting the
// table yields the configured not-found response.
package router

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gatehouse-http/gatehouse/pkg/common"
	"github.com/gatehouse-http/gatehouse/pkg/gcontext"
	"github.com/gatehouse-http/gatehouse/pkg/pipeline"
)

// Router is the main router struct that implements http.Handler.
type Router struct {
	config  Config
	table   pipeline.Handler
	handler http.Handler
	logger  *zap.Logger

	traceIDGenerator *IDGenerator

	wg         sync.WaitGroup
	shutdown   bool
	shutdownMu sync.RWMutex
}

// NewRouter creates a Router from the given configuration. The route table
// is fixed at this point; evaluation is stateless per request and safe for
// concurrent use without synchronization.
func NewRouter(config Config) *Router {
	logger := config.Logger
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
	}

	if config.NotFound == nil {
		config.NotFound = pipeline.Text(http.StatusNotFound, "Not Found")
	}

	r := &Router{
		config: config,
		table:  pipeline.Choose(config.Routes...),
		logger: logger.Named("gatehouse"),
	}

	if config.TraceIDBufferSize > 0 {
		r.traceIDGenerator = NewIDGenerator(config.TraceIDBufferSize)
	}

	core := http.Handler(http.HandlerFunc(r.dispatch))
	if len(config.Middlewares) > 0 {
		core = common.Chain(config.Middlewares...)(core)
	}
	r.handler = core

	return r
}

// ServeHTTP implements the http.Handler interface. It attaches per-request
// context (trace ID, client IP, principal), runs the middleware chain and
// the route table, and records trace logs and metrics for the produced
// response.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.wg.Add(1)
	defer r.wg.Done()

	r.shutdownMu.RLock()
	isShutdown := r.shutdown
	r.shutdownMu.RUnlock()
	if isShutdown {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx := gcontext.WithClientIP(req.Context(), clientIP(req))
	if r.traceIDGenerator != nil {
		ctx = gcontext.WithTraceID(ctx, r.traceIDGenerator.Next())
	}
	req = req.WithContext(ctx)

	if r.config.MaxBodySize > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.config.MaxBodySize)
	}

	r.handler.ServeHTTP(w, req)
}

// dispatch resolves the principal, evaluates the route table, and writes
// the resulting response. It is the innermost handler under the configured
// http-level middlewares.
func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	if r.config.Metrics != nil {
		r.config.Metrics.RequestStarted()
	}

	if r.config.Sessions != nil {
		if principal, refresh, ok := r.config.Sessions.Principal(req); ok {
			req = req.WithContext(gcontext.WithPrincipal(req.Context(), principal))
			if refresh != nil {
				http.SetCookie(w, refresh)
			}
		}
	}

	resp := r.evaluate(req)

	if err := resp.Write(w); err != nil {
		r.logger.Error("failed writing response",
			zap.Error(err),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
	}

	elapsed := time.Since(start)
	if r.config.Metrics != nil {
		r.config.Metrics.RequestFinished(req.Method, resp.StatusCode, elapsed)
	}
	if r.config.EnableTraceLogging {
		r.logRequest(req, resp.StatusCode, elapsed)
	}
}

// evaluate runs the route table inside the error boundary. An unhandled
// failure, whether an error return or a panic, is logged and converted to a
// 500 response whose body is the failure's message text. Surfacing the raw
// message is part of the contract of this system; do not replace it with a
// generic message.
func (r *Router) evaluate(req *http.Request) (resp *pipeline.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logFailure(req, "panic recovered", zap.Any("panic", rec))
			resp = pipeline.Text(http.StatusInternalServerError, fmt.Sprint(rec))
		}
	}()

	out, err := r.table(req)
	if err != nil {
		r.logFailure(req, "unhandled failure", zap.Error(err))
		return pipeline.Text(http.StatusInternalServerError, err.Error())
	}
	if out.IsUnmatched() {
		return r.config.NotFound
	}
	return out.Response()
}

func (r *Router) logFailure(req *http.Request, msg string, field zap.Field) {
	fields := []zap.Field{
		field,
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
	}
	if traceID := gcontext.GetTraceIDFromRequest(req); traceID != "" {
		fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
	}
	r.logger.Error(msg, fields...)
}

// logRequest logs a completed request at a level chosen from its status
// class and duration.
func (r *Router) logRequest(req *http.Request, status int, elapsed time.Duration) {
	ip, _ := gcontext.GetClientIP(req.Context())
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.Duration("duration", elapsed),
		zap.String("ip", ip),
	}
	if traceID := gcontext.GetTraceIDFromRequest(req); traceID != "" {
		fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
	}

	switch {
	case status >= 500:
		r.logger.Error("server error", fields...)
	case status >= 400:
		r.logger.Warn("client error", fields...)
	case elapsed > time.Second:
		r.logger.Warn("slow request", fields...)
	default:
		r.logger.Debug("request", fields...)
	}
}

// Shutdown gracefully shuts down the router. It stops accepting new
// requests and waits for in-flight requests to complete or the context to
// be canceled.
func (r *Router) Shutdown(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.shutdownMu.Lock()
	r.shutdown = true
	r.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clientIP extracts the client address, preferring X-Forwarded-For when
// present.
func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
