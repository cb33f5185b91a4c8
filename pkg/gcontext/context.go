// Package gcontext holds the per-request values Gatehouse attaches to
// request contexts: the authenticated principal, trace ID, client IP, path
// parameters extracted by typed path templates, and boolean flags. All
// values live under a single private context key to avoid deep nesting of
// context.WithValue wrappers.
package gcontext

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/gatehouse-http/gatehouse/pkg/session"
)

// gatehouseContextKey is a private type for the context key to avoid collisions.
type gatehouseContextKey struct{}

// Context holds all values Gatehouse adds to request contexts.
type Context struct {
	Principal *session.Principal

	TraceID  string
	ClientIP string

	PathParams httprouter.Params

	principalSet  bool
	traceIDSet    bool
	clientIPSet   bool
	pathParamsSet bool

	Flags map[string]bool
}

// New creates a new empty request context wrapper.
func New() *Context {
	return &Context{Flags: make(map[string]bool)}
}

// Get retrieves the wrapper from a context.
func Get(ctx context.Context) (*Context, bool) {
	gc, ok := ctx.Value(gatehouseContextKey{}).(*Context)
	return gc, ok
}

// With adds or replaces the wrapper in a context.
func With(ctx context.Context, gc *Context) context.Context {
	return context.WithValue(ctx, gatehouseContextKey{}, gc)
}

// Ensure retrieves the wrapper, creating and attaching one if absent.
func Ensure(ctx context.Context) (*Context, context.Context) {
	gc, ok := Get(ctx)
	if !ok {
		gc = New()
		ctx = With(ctx, gc)
	}
	return gc, ctx
}

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p *session.Principal) context.Context {
	gc, ctx := Ensure(ctx)
	gc.Principal = p
	gc.principalSet = true
	return ctx
}

// GetPrincipal retrieves the authenticated principal, if any.
func GetPrincipal(ctx context.Context) (*session.Principal, bool) {
	gc, ok := Get(ctx)
	if !ok || !gc.principalSet || gc.Principal == nil {
		return nil, false
	}
	return gc.Principal, true
}

// GetPrincipalFromRequest is a convenience accessor over the request context.
func GetPrincipalFromRequest(r *http.Request) (*session.Principal, bool) {
	return GetPrincipal(r.Context())
}

// WithTraceID attaches a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	gc, ctx := Ensure(ctx)
	gc.TraceID = traceID
	gc.traceIDSet = true
	return ctx
}

// GetTraceID retrieves the trace ID, or "" when absent.
func GetTraceID(ctx context.Context) string {
	gc, ok := Get(ctx)
	if !ok || !gc.traceIDSet {
		return ""
	}
	return gc.TraceID
}

// GetTraceIDFromRequest is a convenience accessor over the request context.
func GetTraceIDFromRequest(r *http.Request) string {
	return GetTraceID(r.Context())
}

// WithClientIP attaches the client IP to the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	gc, ctx := Ensure(ctx)
	gc.ClientIP = ip
	gc.clientIPSet = true
	return ctx
}

// GetClientIP retrieves the client IP, if set.
func GetClientIP(ctx context.Context) (string, bool) {
	gc, ok := Get(ctx)
	if !ok || !gc.clientIPSet {
		return "", false
	}
	return gc.ClientIP, true
}

// WithPathParams attaches path parameters extracted by a path template.
// The wrapper is copied before the params are set: template matching runs
// during ordered alternation, and a pipeline that matches a template but
// falls through on a later guard must not leak its params into the next
// pipeline's evaluation.
func WithPathParams(ctx context.Context, params httprouter.Params) context.Context {
	gc, ok := Get(ctx)
	if !ok {
		gc = New()
	} else {
		clone := *gc
		gc = &clone
	}
	gc.PathParams = params
	gc.pathParamsSet = true
	return With(ctx, gc)
}

// GetPathParams retrieves the path parameters, if any.
func GetPathParams(ctx context.Context) (httprouter.Params, bool) {
	gc, ok := Get(ctx)
	if !ok || !gc.pathParamsSet {
		return nil, false
	}
	return gc.PathParams, true
}

// Param returns the named path parameter from the request, or "".
func Param(r *http.Request, name string) string {
	params, ok := GetPathParams(r.Context())
	if !ok {
		return ""
	}
	return params.ByName(name)
}

// WithFlag sets a named boolean flag on the context.
func WithFlag(ctx context.Context, name string, value bool) context.Context {
	gc, ctx := Ensure(ctx)
	if gc.Flags == nil {
		gc.Flags = make(map[string]bool)
	}
	gc.Flags[name] = value
	return ctx
}

// GetFlag retrieves a named flag. The second return reports presence.
func GetFlag(ctx context.Context, name string) (bool, bool) {
	gc, ok := Get(ctx)
	if !ok || gc.Flags == nil {
		return false, false
	}
	value, exists := gc.Flags[name]
	return value, exists
}
