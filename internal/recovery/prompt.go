package recovery

import (
	"fmt"

	"github.com/ixado/ixado/internal/domain"
)

// DirtyWorktreeNudge is the first-attempt cleanup instruction for a dirty
// worktree. The adapter resumes its previous session and is simply told to
// stage and commit; no structured reply is expected.
const DirtyWorktreeNudge = "You left uncommitted changes. Please `git add` and `git commit` all your work with a descriptive message, then verify the repository is clean."

const resultSchema = `{
  "status": "fixed" | "unfixable",
  "reasoning": "<why you believe the problem is or is not resolved>",
  "actionsTaken": ["<each command or edit you performed>"],
  "filesTouched": ["<each file you modified>"]
}`

// Prompt is the instruction handed to the recovery adapter for one attempt.
type Prompt struct {
	Text string
	// Resume continues the adapter's previous session instead of starting fresh.
	Resume bool
	// ExpectJSON is false only for the dirty-worktree nudge, whose success is
	// decided by the postcondition re-check alone.
	ExpectJSON bool
}

// BuildPrompt constructs the recovery prompt for an exception and attempt
// number. Attempt numbers start at 1.
func BuildPrompt(exception domain.ExceptionMetadata, attemptNumber int) Prompt {
	if exception.Category == domain.ExceptionDirtyWorktree && attemptNumber == 1 {
		return Prompt{Text: DirtyWorktreeNudge, Resume: true}
	}

	text := fmt.Sprintf(`A previous automated step failed and you must recover from it.

Failure category: %s
Failure message: %s
Recovery attempt: %d

Investigate the repository state and fix the problem. You may run commands and edit files, with two hard restrictions: never run "git push" and never run "git rebase" in any form. "git add" and "git commit" are allowed.

When you are done, reply with ONLY a JSON object matching this schema exactly, with no extra keys and no surrounding prose:

%s`, exception.Category, exception.Message, attemptNumber, resultSchema)

	return Prompt{Text: text, ExpectJSON: true}
}
