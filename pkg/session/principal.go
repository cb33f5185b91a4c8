package session

import (
	"slices"

	"github.com/zpatrick/rbac"
)

// Principal is the authenticated identity for the current session: a name,
// a set of claims, and a set of roles. It is created by Manager.Issue on
// login and destroyed by Manager.Clear on logout; until login the request
// simply has no principal.
type Principal struct {
	Name   string            `json:"name"`
	Claims map[string]string `json:"claims,omitempty"`
	Roles  []string          `json:"roles,omitempty"`
}

// HasRole reports whether the principal's role set contains role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// Claim returns the value of the named claim, or "" when absent.
func (p *Principal) Claim(name string) string {
	if p == nil {
		return ""
	}
	return p.Claims[name]
}

// Policy maps role names to rbac role definitions. It decides whether a
// principal holding a set of role names may perform an action on a target.
type Policy map[string]rbac.Role

// Can reports whether any of the principal's roles permits the action on
// the target. An unknown role name carries no permissions.
func (pol Policy) Can(p *Principal, action, target string) (bool, error) {
	if p == nil {
		return false, nil
	}
	for _, name := range p.Roles {
		role, ok := pol[name]
		if !ok {
			continue
		}
		allowed, err := role.Can(action, target)
		if err != nil {
			return false, err
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}
