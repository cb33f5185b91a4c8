package guard

import (
	"net/http"

	"github.com/gatehouse-http/gatehouse/pkg/gcontext"
	"github.com/gatehouse-http/gatehouse/pkg/pipeline"
	"github.com/gatehouse-http/gatehouse/pkg/session"
)

// AccessDenied is the default refusal responder. The source system answers
// 401 for both "not authenticated" and "authenticated but wrong role"; that
// behavior is preserved here.
var AccessDenied = pipeline.Respond(http.StatusUnauthorized, "Access Denied")

// deny evaluates the refusal responder and forces its outcome to Denied so
// the router stops searching instead of falling through to later pipelines.
func deny(onFail pipeline.Handler, r *http.Request) (pipeline.Outcome, error) {
	if onFail == nil {
		onFail = AccessDenied
	}
	out, err := onFail(r)
	if err != nil {
		return pipeline.Outcome{}, err
	}
	return pipeline.Denied(out.Response()), nil
}

// RequireAuth passes only when the request carries an authenticated
// principal; otherwise it short-circuits with the onFail responder. A nil
// onFail uses AccessDenied.
func RequireAuth(onFail pipeline.Handler) pipeline.Guard {
	return func(next pipeline.Handler) pipeline.Handler {
		return func(r *http.Request) (pipeline.Outcome, error) {
			if _, ok := gcontext.GetPrincipalFromRequest(r); !ok {
				return deny(onFail, r)
			}
			return next(r)
		}
	}
}

// RequireRole passes only when the authenticated principal's role set
// contains role. An anonymous request is refused the same way as a
// principal lacking the role.
func RequireRole(role string, onFail pipeline.Handler) pipeline.Guard {
	return func(next pipeline.Handler) pipeline.Handler {
		return func(r *http.Request) (pipeline.Outcome, error) {
			p, ok := gcontext.GetPrincipalFromRequest(r)
			if !ok || !p.HasRole(role) {
				return deny(onFail, r)
			}
			return next(r)
		}
	}
}

// RequirePermission passes only when the policy grants the principal's
// roles the action on the target.
func RequirePermission(policy session.Policy, action, target string, onFail pipeline.Handler) pipeline.Guard {
	return func(next pipeline.Handler) pipeline.Handler {
		return func(r *http.Request) (pipeline.Outcome, error) {
			p, _ := gcontext.GetPrincipalFromRequest(r)
			allowed, err := policy.Can(p, action, target)
			if err != nil {
				return pipeline.Outcome{}, err
			}
			if !allowed {
				return deny(onFail, r)
			}
			return next(r)
		}
	}
}
