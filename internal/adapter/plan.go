package adapter

import (
	"slices"

	"github.com/ixado/ixado/internal/domain"
)

// ExecutionPlan is the concrete argument vector and stdin payload for one
// adapter invocation.
type ExecutionPlan struct {
	Args  []string
	Stdin string
}

// BuildExecutionPlan maps (adapter, baseArgs, prompt, resume) to the CLI's
// invocation convention. It is a pure function; baseArgs is never mutated.
//
// Conventions encoded here:
//   - codex reads the prompt from stdin via a literal "-" positional and
//     resumes with an "exec resume --last" subcommand chain.
//   - claude also reads from stdin via "-" and resumes by appending its
//     continue flag.
//   - gemini passes an empty --prompt flag and the real prompt on stdin.
//   - mock-cli mirrors the simplest convention for tests.
func BuildExecutionPlan(id domain.AdapterID, baseArgs []string, prompt string, resume bool) ExecutionPlan {
	switch id {
	case domain.AdapterCodex:
		return codexPlan(baseArgs, prompt, resume)
	case domain.AdapterClaude:
		args := slices.Clone(baseArgs)
		if resume {
			args = append(args, "--continue")
		}
		args = append(args, "-")
		return ExecutionPlan{Args: args, Stdin: prompt}
	case domain.AdapterGemini:
		args := slices.Clone(baseArgs)
		if resume {
			args = append(args, "--resume")
		}
		args = append(args, "--prompt", "")
		return ExecutionPlan{Args: args, Stdin: prompt}
	case domain.AdapterMock, domain.AdapterUnassigned:
		args := slices.Clone(baseArgs)
		if resume {
			args = append(args, "--resume")
		}
		return ExecutionPlan{Args: args, Stdin: prompt}
	}
	return ExecutionPlan{Args: slices.Clone(baseArgs), Stdin: prompt}
}

// codexPlan encodes the codex CLI convention. The non-resume form is
// [...baseArgs, "-"]. The resume form rewrites the leading "exec" subcommand
// into "exec resume --last", keeping the remaining args in place.
func codexPlan(baseArgs []string, prompt string, resume bool) ExecutionPlan {
	if !resume {
		args := append(slices.Clone(baseArgs), "-")
		return ExecutionPlan{Args: args, Stdin: prompt}
	}

	argsAfterExec := baseArgs
	if len(baseArgs) > 0 && baseArgs[0] == "exec" {
		argsAfterExec = baseArgs[1:]
	}
	args := make([]string, 0, len(argsAfterExec)+4)
	args = append(args, "exec", "resume", "--last")
	args = append(args, argsAfterExec...)
	args = append(args, "-")
	return ExecutionPlan{Args: args, Stdin: prompt}
}
