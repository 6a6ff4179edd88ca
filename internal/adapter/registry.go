package adapter

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/procrunner"
)

// ClaudeSpec returns the adapter record for the Claude Code CLI.
func ClaudeSpec() Spec {
	return Spec{
		ID:               domain.AdapterClaude,
		DefaultCommand:   "claude",
		RequiredBaseArgs: []string{"-p", "--output-format", "json"},
		ForbiddenArgs:    []string{"--interactive", "--ide"},
		BypassFlag:       "--dangerously-skip-permissions",
	}
}

// CodexSpec returns the adapter record for the OpenAI Codex CLI.
func CodexSpec() Spec {
	return Spec{
		ID:               domain.AdapterCodex,
		DefaultCommand:   "codex",
		RequiredBaseArgs: []string{"exec", "--json"},
		ForbiddenArgs:    []string{"--interactive"},
		BypassFlag:       "--dangerously-bypass-approvals-and-sandbox",
	}
}

// GeminiSpec returns the adapter record for the Gemini CLI.
func GeminiSpec() Spec {
	return Spec{
		ID:               domain.AdapterGemini,
		DefaultCommand:   "gemini",
		RequiredBaseArgs: []string{"--output-format", "json"},
		ForbiddenArgs:    []string{"--interactive"},
		BypassFlag:       "--yolo",
	}
}

// MockSpec returns the adapter record for the test CLI.
func MockSpec() Spec {
	return Spec{
		ID:             domain.AdapterMock,
		DefaultCommand: "mock-cli",
	}
}

// SpecFor returns the record for a known adapter ID.
func SpecFor(id domain.AdapterID) (Spec, error) {
	switch id {
	case domain.AdapterClaude:
		return ClaudeSpec(), nil
	case domain.AdapterCodex:
		return CodexSpec(), nil
	case domain.AdapterGemini:
		return GeminiSpec(), nil
	case domain.AdapterMock:
		return MockSpec(), nil
	case domain.AdapterUnassigned:
	}
	return Spec{}, fmt.Errorf("%w: %s", ixerrors.ErrAdapterNotFound, id)
}

// Registry holds constructed adapters keyed by ID.
// It provides thread-safe registration and lookup.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.AdapterID]*Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.AdapterID]*Adapter)}
}

// Register adds an adapter. An existing entry for the same ID is replaced.
func (r *Registry) Register(a *Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

// Get retrieves the adapter for an ID.
// Returns ErrAdapterNotFound when none is registered.
func (r *Registry) Get(id domain.AdapterID) (*Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ixerrors.ErrAdapterNotFound, id)
	}
	return a, nil
}

// Has checks if an adapter is registered for the ID.
func (r *Registry) Has(id domain.AdapterID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[id]
	return ok
}

// IDs returns all registered adapter IDs.
func (r *Registry) IDs() []domain.AdapterID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]domain.AdapterID, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}

// DefaultRegistry constructs a registry with every supported adapter wired to
// the given runner.
func DefaultRegistry(runner procrunner.Runner, logger zerolog.Logger, opts ...Option) (*Registry, error) {
	registry := NewRegistry()
	for _, spec := range []Spec{ClaudeSpec(), CodexSpec(), GeminiSpec(), MockSpec()} {
		allOpts := append([]Option{WithLogger(logger)}, opts...)
		a, err := New(spec, runner, allOpts...)
		if err != nil {
			return nil, fmt.Errorf("construct adapter %s: %w", spec.ID, err)
		}
		registry.Register(a)
	}
	return registry, nil
}
