package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ixerrors "github.com/ixado/ixado/internal/errors"
)

func TestValidateActions(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		forbidden bool
	}{
		{"git add", "git add -A", false},
		{"git commit", `git commit -m "fix: stabilize tests"`, false},
		{"git push", "git push origin main", true},
		{"git push force", "git push --force", true},
		{"git rebase", "git rebase -i HEAD~3", true},
		{"uppercase git push", "GIT PUSH origin main", true},
		{"other git subcommand", "git checkout -b hotfix", true},
		{"git reset", "git reset --hard HEAD", true},
		{"bare git", "git", true},
		{"non-git command", "npm install left-pad", false},
		{"prose action", "edited src/index.ts to fix the import", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateActions([]string{tt.action})
			if tt.forbidden {
				assert.ErrorIs(t, err, ixerrors.ErrForbiddenAction)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateActionsFirstForbiddenWins(t *testing.T) {
	err := ValidateActions([]string{"git add .", "git push origin", "git commit -m x"})
	assert.ErrorIs(t, err, ixerrors.ErrForbiddenAction)
	assert.Contains(t, err.Error(), "git push origin")
}
