package router

import (
	"go.uber.org/zap"

	"github.com/gatehouse-http/gatehouse/pkg/common"
	"github.com/gatehouse-http/gatehouse/pkg/metrics"
	"github.com/gatehouse-http/gatehouse/pkg/pipeline"
	"github.com/gatehouse-http/gatehouse/pkg/session"
)

// Config defines the configuration for a Router.
type Config struct {
	// ServiceName names the service for logging and metrics.
	ServiceName string

	// Logger for all router operations. Defaults to a production zap logger.
	Logger *zap.Logger

	// Routes is the ordered route table. Insertion order is significant:
	// the first pipeline that does not fall through wins. The table is
	// immutable after NewRouter returns.
	Routes []pipeline.Handler

	// NotFound is returned when every pipeline falls through.
	// Defaults to 404 "Not Found".
	NotFound *pipeline.Response

	// Sessions, when set, resolves the request's session cookie to a
	// principal before the route table is evaluated.
	Sessions *session.Manager

	// Middlewares are http-level middlewares applied around the whole
	// table evaluation, outermost first.
	Middlewares []common.Middleware

	// MaxBodySize limits request body reads in bytes; zero means no limit.
	MaxBodySize int64

	// EnableTraceLogging logs every request with status-class levels.
	EnableTraceLogging bool

	// TraceIDBufferSize is the buffer size for the trace ID generator;
	// zero disables trace IDs.
	TraceIDBufferSize int

	// Metrics, when set, records request counts and durations.
	Metrics *metrics.Metrics
}
