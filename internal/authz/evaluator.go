// Package authz implements authorization for every privileged engine action.
//
// The evaluator matches role and action against per-role allowlist/denylist
// patterns. The order of checks is fixed: absent role, then denylist, then
// allowlist, then default deny. The denylist always dominates, including over
// a global "*" allowlist entry.
package authz

import (
	"strings"

	"github.com/ixado/ixado/internal/domain"
)

// DenyReason explains why an action was denied.
type DenyReason string

// Deny reasons emitted by the evaluator and its orchestrator wrapper.
const (
	DenyNoRole               DenyReason = "no-role"
	DenyDenylistMatch        DenyReason = "denylist-match"
	DenyNoAllowlistMatch     DenyReason = "no-allowlist-match"
	DenyPolicyLoadFailed     DenyReason = "policy-load-failed"
	DenyRoleResolutionFailed DenyReason = "role-resolution-failed"
	DenyEvaluatorError       DenyReason = "evaluator-error"
	DenyMissingActionMapping DenyReason = "missing-action-mapping"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	// Reason is set on deny.
	Reason DenyReason
	// MatchedPattern is the first allowlist pattern that matched, set on allow.
	MatchedPattern string
	// Detail preserves the underlying error message for composed denials.
	Detail string
}

// Allow builds an allowing decision.
func Allow(pattern string) Decision {
	return Decision{Allowed: true, MatchedPattern: pattern}
}

// Deny builds a denying decision.
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Evaluate decides whether role may perform action under policy.
//
// Check order is fixed:
//  1. an absent role denies with no-role
//  2. any denylist match denies with denylist-match
//  3. the first allowlist match allows
//  4. default deny with no-allowlist-match
func Evaluate(role domain.Role, action string, policy *domain.AuthPolicy) Decision {
	if role == domain.RoleNone {
		return Deny(DenyNoRole)
	}

	rolePolicy, ok := rolePolicyFor(role, policy)
	if !ok {
		return Deny(DenyNoAllowlistMatch)
	}

	for _, pattern := range rolePolicy.Denylist {
		if MatchPattern(pattern, action) {
			return Deny(DenyDenylistMatch)
		}
	}

	for _, pattern := range rolePolicy.Allowlist {
		if MatchPattern(pattern, action) {
			return Allow(pattern)
		}
	}

	return Deny(DenyNoAllowlistMatch)
}

// MatchPattern reports whether pattern matches action.
// "*" matches any string. "p:*" matches strings starting with "p:" but not
// the bare "p". Everything else is an exact match.
func MatchPattern(pattern, action string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(action, prefix)
	}
	return pattern == action
}

func rolePolicyFor(role domain.Role, policy *domain.AuthPolicy) (domain.RolePolicy, bool) {
	if policy == nil || policy.Roles == nil {
		return domain.RolePolicy{}, false
	}
	rp, ok := policy.Roles[role]
	return rp, ok
}
