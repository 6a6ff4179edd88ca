package ci

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// FixTaskPrefix starts the title of every check-derived fix-task. Titles are
// the dedup key, so the prefix plus normalized check name must be stable.
const FixTaskPrefix = "CI_FIX: "

// MappingResult is one check-mapper pass over a CI summary.
type MappingResult struct {
	Created []domain.Task
	Skipped int
}

// Context renders the human-readable line recorded on the phase.
func (r MappingResult) Context() string {
	return fmt.Sprintf("CI_FIX mapping: created=%d, skipped_existing=%d", len(r.Created), r.Skipped)
}

// NormalizeCheckName canonicalizes a check name for titles and dedup:
// lowercased, dashes and underscores become spaces, whitespace collapsed.
func NormalizeCheckName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// MapFixTasks derives targeted fix-tasks from a CI summary. Blocking checks
// are sorted by (normalized name, state, details URL) so the derived task
// order is identical across runs. A check whose title already exists as a
// CI_FIX task is skipped. With zero blocking checks but a terminal
// non-success overall state, one fallback pipeline task is produced.
// Exceeding fanOutCap fails the pass without creating anything.
func MapFixTasks(summary *domain.CiStatusSummary, prURL string, existing []domain.Task, fanOutCap int) (*MappingResult, error) {
	if fanOutCap <= 0 {
		fanOutCap = constants.DefaultMaxFixTaskFanOut
	}

	blocking := summary.BlockingChecks()
	sort.SliceStable(blocking, func(a, b int) bool {
		an, bn := NormalizeCheckName(blocking[a].Name), NormalizeCheckName(blocking[b].Name)
		if an != bn {
			return an < bn
		}
		if blocking[a].State != blocking[b].State {
			return blocking[a].State < blocking[b].State
		}
		return blocking[a].DetailsURL < blocking[b].DetailsURL
	})

	existingFix := make(map[string]bool)
	for _, t := range existing {
		if t.Status == constants.TaskCIFix {
			existingFix[t.Title] = true
		}
	}

	result := &MappingResult{}
	seen := make(map[string]bool)

	for _, check := range blocking {
		title := FixTaskPrefix + NormalizeCheckName(check.Name)
		if seen[title] {
			continue
		}
		seen[title] = true
		if existingFix[title] {
			result.Skipped++
			continue
		}
		result.Created = append(result.Created, domain.Task{
			Title:       title,
			Description: fixTaskDescription(prURL, check),
			Status:      constants.TaskCIFix,
		})
	}

	if len(blocking) == 0 && summary.Overall.Terminal() && summary.Overall != domain.CheckSuccess {
		title := fmt.Sprintf("%sCI pipeline (%s)", FixTaskPrefix, summary.Overall)
		if existingFix[title] {
			result.Skipped++
		} else {
			result.Created = append(result.Created, domain.Task{
				Title: title,
				Description: fmt.Sprintf(
					"The CI pipeline for %s finished in state %s without any individually failing check.\n\nNext action: inspect the pipeline run on the hosting service and fix the underlying cause.",
					prURL, summary.Overall,
				),
				Status: constants.TaskCIFix,
			})
		}
	}

	if len(result.Created) > fanOutCap {
		return nil, fmt.Errorf("%w (%d): %d new fix-tasks required", ixerrors.ErrFixTaskFanOut, fanOutCap, len(result.Created))
	}

	return result, nil
}

func fixTaskDescription(prURL string, check domain.CiCheck) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CI check %q finished in state %s on %s.\n", check.Name, check.State, prURL)
	if check.DetailsURL != "" {
		fmt.Fprintf(&b, "Details: %s\n", check.DetailsURL)
	}
	fmt.Fprintf(&b, "\nNext action: reproduce the %s failure locally, fix it, and commit the fix.", NormalizeCheckName(check.Name))
	return b.String()
}

// IsFixTask reports whether a task was derived by the tester or the check
// mapper. Fix chains are walked through these tasks for the depth cap.
func IsFixTask(t *domain.Task) bool {
	return strings.HasPrefix(t.Title, FixTaskPrefix) || strings.HasPrefix(t.Title, "Fix tests after ")
}

// CheckFixTaskDepth rejects a new fix-task whose dependency chain of
// consecutive fix-tasks is already maxDepth long.
func CheckFixTaskDepth(dependencies []string, tasks []domain.Task, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = constants.DefaultCIFixMaxDepth
	}

	byID := make(map[string]*domain.Task, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
	}

	depth := 1 + maxFixChainDepth(dependencies, byID, make(map[string]int))
	if depth > maxDepth {
		return fmt.Errorf("%w (%d)", ixerrors.ErrFixTaskDepth, maxDepth)
	}
	return nil
}

func maxFixChainDepth(dependencies []string, byID map[string]*domain.Task, memo map[string]int) int {
	longest := 0
	for _, dep := range dependencies {
		task, ok := byID[dep]
		if !ok || !IsFixTask(task) {
			continue
		}
		d, cached := memo[dep]
		if !cached {
			memo[dep] = 0 // cycle guard
			d = 1 + maxFixChainDepth(task.Dependencies, byID, memo)
			memo[dep] = d
		}
		if d > longest {
			longest = d
		}
	}
	return longest
}
