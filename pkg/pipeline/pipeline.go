// Package pipeline provides the combinator layer of the Gatehouse framework:
// guards, responders, and the operators that compose them into ordered,
// first-match-wins route pipelines.
//
// Every pipeline evaluation produces exactly one Outcome with three possible
// verdicts. Unmatched means the pipeline does not apply to the request and
// the caller should try the next one. Matched carries a terminal response.
// Denied also carries a terminal response, but signals that the outer search
// must stop immediately: an authorization refusal from one pipeline must not
// fall through to a later pipeline.
package pipeline

import "net/http"

type verdict uint8

const (
	verdictUnmatched verdict = iota
	verdictMatched
	verdictDenied
)

// Outcome is the result of evaluating a pipeline stage against a request.
type Outcome struct {
	verdict verdict
	resp    *Response
}

// Matched creates a terminal outcome carrying a response.
func Matched(resp *Response) Outcome {
	return Outcome{verdict: verdictMatched, resp: resp}
}

// Denied creates a short-circuit outcome carrying a refusal response.
// Unlike Matched it is produced by a guard rather than a responder, but the
// router treats both as terminal.
func Denied(resp *Response) Outcome {
	return Outcome{verdict: verdictDenied, resp: resp}
}

// Unmatched creates a fall-through outcome: this pipeline does not apply.
func Unmatched() Outcome {
	return Outcome{verdict: verdictUnmatched}
}

// IsUnmatched reports whether the outcome is a fall-through.
func (o Outcome) IsUnmatched() bool { return o.verdict == verdictUnmatched }

// IsDenied reports whether the outcome is a guard short-circuit.
func (o Outcome) IsDenied() bool { return o.verdict == verdictDenied }

// Response returns the terminal response, or nil for an unmatched outcome.
func (o Outcome) Response() *Response { return o.resp }

// Handler evaluates a request to an Outcome. A non-nil error is an unhandled
// failure; the router's error boundary converts it to a 500 response whose
// body is the error's message text.
type Handler func(r *http.Request) (Outcome, error)

// Guard wraps a Handler. A guard either passes control to the next stage,
// possibly with a transformed request context, or short-circuits with a
// terminal outcome of its own.
type Guard func(next Handler) Handler

// Chain composes guards left to right into a single guard, so that
// Chain(a, b, c)(next) evaluates a first and next last.
func Chain(guards ...Guard) Guard {
	return func(next Handler) Handler {
		for i := len(guards) - 1; i >= 0; i-- {
			next = guards[i](next)
		}
		return next
	}
}

// Choose evaluates handlers in registration order and returns the first
// outcome that is not Unmatched. A Denied outcome stops the search exactly
// like a Matched one. If every handler falls through, Choose itself falls
// through.
func Choose(handlers ...Handler) Handler {
	return func(r *http.Request) (Outcome, error) {
		for _, h := range handlers {
			out, err := h(r)
			if err != nil {
				return Outcome{}, err
			}
			if !out.IsUnmatched() {
				return out, nil
			}
		}
		return Unmatched(), nil
	}
}

// Respond creates a responder producing a fixed plain-text response.
func Respond(status int, body string) Handler {
	return func(*http.Request) (Outcome, error) {
		return Matched(Text(status, body)), nil
	}
}

// RespondFunc creates a responder from a function computing the response
// per request.
func RespondFunc(f func(r *http.Request) (*Response, error)) Handler {
	return func(r *http.Request) (Outcome, error) {
		resp, err := f(r)
		if err != nil {
			return Outcome{}, err
		}
		return Matched(resp), nil
	}
}

// Fail creates a responder that always returns the given error. It exists
// for routes whose contract is to surface a failure through the router's
// error boundary.
func Fail(err error) Handler {
	return func(*http.Request) (Outcome, error) {
		return Outcome{}, err
	}
}
