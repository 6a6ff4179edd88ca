// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ixado/ixado/internal/procrunner"
)

// ScriptedResponse is one canned subprocess outcome.
type ScriptedResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// ScriptedRunner is a procrunner.Runner for tests. Responses are matched by
// command-line prefix; unmatched invocations succeed with empty output unless
// Strict is set.
type ScriptedRunner struct {
	mu        sync.Mutex
	responses map[string][]ScriptedResponse
	calls     []procrunner.Request
	// Strict makes unmatched invocations fail the run.
	Strict bool
}

// NewScriptedRunner creates an empty scripted runner.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{responses: make(map[string][]ScriptedResponse)}
}

// On queues a response for invocations whose command line starts with prefix.
// Multiple responses for the same prefix are consumed in order, the last one
// repeating.
func (r *ScriptedRunner) On(prefix string, resp ScriptedResponse) *ScriptedRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[prefix] = append(r.responses[prefix], resp)
	return r
}

// Calls returns a copy of every request seen so far.
func (r *ScriptedRunner) Calls() []procrunner.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]procrunner.Request, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallLines renders every request as a single command line, for assertions.
func (r *ScriptedRunner) CallLines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = commandLine(c)
	}
	return lines
}

// Run implements procrunner.Runner.
func (r *ScriptedRunner) Run(_ context.Context, req procrunner.Request) (*procrunner.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req)
	line := commandLine(req)

	var resp *ScriptedResponse
	var bestPrefix string
	for prefix, queue := range r.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(bestPrefix) && len(queue) > 0 {
			bestPrefix = prefix
		}
	}
	if bestPrefix != "" {
		queue := r.responses[bestPrefix]
		resp = &queue[0]
		if len(queue) > 1 {
			r.responses[bestPrefix] = queue[1:]
		}
	}
	r.mu.Unlock()

	if resp == nil {
		if r.Strict {
			return nil, fmt.Errorf("no scripted response for %q", line)
		}
		return &procrunner.Result{}, nil
	}

	result := &procrunner.Result{
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		ExitCode: resp.ExitCode,
	}
	if resp.Err != nil {
		return result, resp.Err
	}
	if resp.ExitCode != 0 {
		return result, &procrunner.ProcessExecutionError{
			Command: req.Command,
			Args:    req.Args,
			Result:  result,
		}
	}
	return result, nil
}

func commandLine(req procrunner.Request) string {
	if len(req.Args) == 0 {
		return req.Command
	}
	return req.Command + " " + strings.Join(req.Args, " ")
}

// Compile-time check that ScriptedRunner implements Runner.
var _ procrunner.Runner = (*ScriptedRunner)(nil)
