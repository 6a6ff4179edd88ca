package authz

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// RoleResolver maps an actor to a role. Implementations may consult config,
// an identity file, or a remote directory.
type RoleResolver func(actor string) (domain.Role, error)

// PolicyProvider supplies the current policy. Implementations typically wrap
// LoadPolicy with caching.
type PolicyProvider func() (*domain.AuthPolicy, error)

// AuthorizationError carries a deny decision across package boundaries.
type AuthorizationError struct {
	Action   string
	Role     domain.Role
	Decision Decision
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("action %q denied for role %s: %s", e.Action, e.Role, e.Decision.Reason)
	if e.Decision.Detail != "" {
		msg += ": " + e.Decision.Detail
	}
	return msg
}

// Unwrap lets callers match the sentinel with errors.Is().
func (e *AuthorizationError) Unwrap() error {
	return ixerrors.ErrAuthorizationDenied
}

// Orchestrator composes role resolution, policy loading, and evaluation for
// orchestrator-level actions, auditing every decision.
type Orchestrator struct {
	resolveRole RoleResolver
	loadPolicy  PolicyProvider
	auditor     Auditor
	logger      zerolog.Logger
}

// NewOrchestrator wires an orchestrator-level authorizer.
func NewOrchestrator(resolve RoleResolver, policy PolicyProvider, auditor Auditor, logger zerolog.Logger) *Orchestrator {
	if auditor == nil {
		auditor = NopAuditor{}
	}
	return &Orchestrator{
		resolveRole: resolve,
		loadPolicy:  policy,
		auditor:     auditor,
		logger:      logger,
	}
}

// AuthorizeRequest describes one privileged action to authorize.
type AuthorizeRequest struct {
	Actor string
	// Role, when set, skips role resolution. Used by callers that already
	// carry a resolved role through their call chain.
	Role   domain.Role
	Action string
	Target string
	// Command is the full command line about to be attempted, hashed into
	// the audit entry. Never logged verbatim.
	Command string
}

// Authorize decides the request and records the decision in the audit log.
// All failure modes deny: unknown actions, policy load errors, and role
// resolution errors each map to their own reason with the underlying error
// message preserved in Detail.
func (o *Orchestrator) Authorize(req AuthorizeRequest) Decision {
	decision := o.decide(&req)

	o.auditor.Record(DecisionEntry(req.Actor, req.Role, req.Action, req.Target, req.Command, decision))

	evt := o.logger.Debug()
	if !decision.Allowed {
		evt = o.logger.Warn()
	}
	evt.Str("action", req.Action).
		Str("role", req.Role.String()).
		Bool("allowed", decision.Allowed).
		Str("reason", string(decision.Reason)).
		Msg("authorization decision")

	return decision
}

// AuthorizeOrErr is Authorize with the deny converted to a typed error.
func (o *Orchestrator) AuthorizeOrErr(req AuthorizeRequest) error {
	decision := o.Authorize(req)
	if decision.Allowed {
		return nil
	}
	return &AuthorizationError{Action: req.Action, Role: req.Role, Decision: decision}
}

func (o *Orchestrator) decide(req *AuthorizeRequest) Decision {
	if _, known := constants.KnownActions[req.Action]; !known {
		d := Deny(DenyMissingActionMapping)
		d.Detail = fmt.Sprintf("%s: %s", ixerrors.ErrUnknownAction, req.Action)
		return d
	}

	if req.Role == domain.RoleNone && o.resolveRole != nil {
		role, err := o.resolveRole(req.Actor)
		if err != nil {
			d := Deny(DenyRoleResolutionFailed)
			d.Detail = err.Error()
			return d
		}
		req.Role = role
	}

	if o.loadPolicy == nil {
		d := Deny(DenyEvaluatorError)
		d.Detail = "no policy provider configured"
		return d
	}
	policy, err := o.loadPolicy()
	if err != nil {
		d := Deny(DenyPolicyLoadFailed)
		d.Detail = err.Error()
		return d
	}

	return Evaluate(req.Role, req.Action, policy)
}
