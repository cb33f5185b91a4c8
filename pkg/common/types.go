// Package common provides shared types used across the Gatehouse framework.
package common

import (
	"net/http"
	"time"
)

// Middleware defines the type for HTTP middleware functions.
// It takes an http.Handler and returns an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together into a single middleware.
// The middlewares are applied in reverse order, so the first middleware in
// the list is the outermost wrapper (the first to see the request and the
// last to see the response).
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// RateLimiter defines the interface for rate limiting algorithms.
type RateLimiter interface {
	// Allow checks if a request is allowed based on the key and rate limit
	// config. Returns whether the request is allowed, the number of remaining
	// requests, and the approximate time until the limit resets.
	Allow(key string, limit int, window time.Duration) (allowed bool, remaining int, reset time.Duration)
}

// RateLimitConfig defines configuration for the rate-limit guard.
type RateLimitConfig struct {
	// BucketName provides a namespace for the rate limit. Pipelines sharing
	// a BucketName share the same counters.
	BucketName string

	// Limit is the maximum number of requests allowed within the Window.
	Limit int

	// Window is the time duration for the rate limit.
	Window time.Duration

	// KeyExtractor derives the per-client key from the request. When nil,
	// the client's remote address is used.
	KeyExtractor func(r *http.Request) string
}
