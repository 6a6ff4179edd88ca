package recovery

import (
	"fmt"
	"strings"

	ixerrors "github.com/ixado/ixado/internal/errors"
)

// ValidateActions applies the policy guardrails to the adapter's reported
// actions. Git is restricted to staging and committing: "git push" and
// "git rebase" are forbidden in any form, and so is every other git
// subcommand. Non-git actions pass through unchanged.
func ValidateActions(actions []string) error {
	for _, action := range actions {
		if err := validateAction(action); err != nil {
			return err
		}
	}
	return nil
}

func validateAction(action string) error {
	fields := strings.Fields(strings.ToLower(action))
	if len(fields) == 0 || fields[0] != "git" {
		return nil
	}
	if len(fields) < 2 {
		return fmt.Errorf("%w: %q", ixerrors.ErrForbiddenAction, action)
	}
	switch fields[1] {
	case "add", "commit":
		return nil
	}
	return fmt.Errorf("%w: %q", ixerrors.ErrForbiddenAction, action)
}
