package recovery

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

func TestClassifyAdapterFailure(t *testing.T) {
	tests := []struct {
		name    string
		message string
		code    string
		want    domain.AdapterFailureKind
	}{
		{"auth keyword", "request failed: Unauthorized", "", domain.FailureAuth},
		{"http 401", "server returned 401", "", domain.FailureAuth},
		{"api key", "invalid API key supplied", "", domain.FailureAuth},
		{"missing binary", `exec: "claude": executable file not found in $PATH`, "", domain.FailureMissingBinary},
		{"enoent code", "spawn failed", "ENOENT", domain.FailureMissingBinary},
		{"timeout", "operation timed out after 30m", "", domain.FailureTimeout},
		{"deadline", "context deadline exceeded", "", domain.FailureTimeout},
		{"conn refused", "dial tcp: ECONNREFUSED", "", domain.FailureNetwork},
		{"dns", "lookup api.example.com: ENOTFOUND", "", domain.FailureNetwork},
		{"unmatched", "something else broke", "", domain.FailureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAdapterFailure(tt.message, tt.code))
		})
	}
}

func TestClassifyCategories(t *testing.T) {
	meta := Classify(fmt.Errorf("branching: %w", ixerrors.ErrDirtyWorktree), "ph-1", "")
	assert.Equal(t, domain.ExceptionDirtyWorktree, meta.Category)
	assert.Equal(t, "ph-1", meta.PhaseID)
	assert.True(t, meta.Recoverable())

	meta = Classify(ixerrors.ErrMissingCommit, "ph-1", "")
	assert.Equal(t, domain.ExceptionMissingCommit, meta.Category)

	meta = Classify(fmt.Errorf("%w: claude: unauthorized", ixerrors.ErrAdapterInvocation), "ph-1", "t-1")
	assert.Equal(t, domain.ExceptionAgentFailure, meta.Category)
	assert.Equal(t, domain.FailureAuth, meta.AdapterFailureKind)
	assert.False(t, meta.Recoverable())

	meta = Classify(fmt.Errorf("adapter: %w", ixerrors.ErrCommandTimeout), "ph-1", "t-1")
	assert.Equal(t, domain.FailureTimeout, meta.AdapterFailureKind)
	assert.True(t, meta.Recoverable())

	meta = Classify(fmt.Errorf("nobody knows"), "", "")
	assert.Equal(t, domain.ExceptionUnknown, meta.Category)
	assert.False(t, meta.Recoverable())
}
