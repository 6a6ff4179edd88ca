package authz

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// DefaultPolicy returns the built-in role policy.
//
// owner and admin may do anything. operator gets read, planning, and
// execution but no privileged git, config, or agent control. viewer is
// read-only.
func DefaultPolicy() *domain.AuthPolicy {
	return &domain.AuthPolicy{
		Version: 1,
		Roles: map[domain.Role]domain.RolePolicy{
			domain.RoleOwner: {
				Allowlist: []string{"*"},
				Denylist:  []string{},
			},
			domain.RoleAdmin: {
				Allowlist: []string{"*"},
				Denylist:  []string{},
			},
			domain.RoleOperator: {
				Allowlist: []string{
					"status:read", "tasks:read", "logs:read", "usage:read",
					"phase:create", "task:*",
					"execution:*",
					"orchestrator:*",
				},
				Denylist: []string{
					"git:privileged:*", "config:write", "agent:kill", "agent:restart",
				},
			},
			domain.RoleViewer: {
				Allowlist: []string{
					"status:read", "tasks:read", "logs:read", "usage:read",
				},
				Denylist: []string{
					"execution:*", "phase:create", "task:*",
					"git:privileged:*", "config:write", "agent:*",
				},
			},
		},
	}
}

// LoadPolicy reads the policy YAML at path. A missing file falls back to the
// default policy; an unreadable or malformed file is an error so that a
// broken policy never silently widens access.
func LoadPolicy(path string) (*domain.AuthPolicy, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is project-local configuration
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicy(), nil
		}
		return nil, fmt.Errorf("read policy %s: %v: %w", path, err, ixerrors.ErrPolicyLoad)
	}

	var policy domain.AuthPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse policy %s: %v: %w", path, err, ixerrors.ErrPolicyLoad)
	}
	if len(policy.Roles) == 0 {
		return nil, fmt.Errorf("policy %s defines no roles: %w", path, ixerrors.ErrPolicyLoad)
	}
	return &policy, nil
}
