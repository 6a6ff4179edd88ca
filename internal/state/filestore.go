package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
	ixerrors "github.com/ixado/ixado/internal/errors"
	"github.com/ixado/ixado/internal/tester"
)

// WorkExecutor runs one adapter session. The composition root wires this to
// the adapter registry.
type WorkExecutor func(ctx context.Context, req domain.WorkRequest) (*domain.WorkResult, error)

// FileStore persists project state as JSON under .ixado/state.json.
// Writes are atomic: a temp file in the same directory is renamed over the
// live one, so a crash mid-write never corrupts state.
type FileStore struct {
	path     string
	mu       sync.Mutex
	execWork WorkExecutor
	logger   zerolog.Logger
}

// NewFileStore creates a store rooted at projectRoot.
func NewFileStore(projectRoot string, execWork WorkExecutor, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:     filepath.Join(projectRoot, constants.ProjectDirName, constants.StateFileName),
		execWork: execWork,
		logger:   logger,
	}
}

// GetState implements Store.
func (s *FileStore) GetState() (*domain.ProjectState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// SetPhaseStatus implements Store.
func (s *FileStore) SetPhaseStatus(req SetPhaseStatusRequest) error {
	return s.mutate(func(state *domain.ProjectState) error {
		phase := state.PhaseByID(req.PhaseID)
		if phase == nil {
			return fmt.Errorf("%w: %s", ixerrors.ErrPhaseNotFound, req.PhaseID)
		}
		phase.Status = req.Status
		if req.FailureKind != "" {
			phase.FailureKind = req.FailureKind
		}
		if req.CIStatusContext != "" {
			phase.CIStatusContext = req.CIStatusContext
		}
		s.logger.Info().Str("phase", phase.Name).Str("status", req.Status.String()).Msg("phase status updated")
		return nil
	})
}

// SetPhasePrUrl implements Store.
func (s *FileStore) SetPhasePrUrl(phaseID, prURL string) error {
	return s.mutate(func(state *domain.ProjectState) error {
		phase := state.PhaseByID(phaseID)
		if phase == nil {
			return fmt.Errorf("%w: %s", ixerrors.ErrPhaseNotFound, phaseID)
		}
		phase.PRURL = prURL
		return nil
	})
}

// StartActiveTaskAndWait implements Store. The task is marked IN_PROGRESS
// before the adapter runs and DONE or FAILED after, each persisted, so a
// crash leaves a reconcilable IN_PROGRESS marker rather than silent loss.
func (s *FileStore) StartActiveTaskAndWait(ctx context.Context, req StartTaskRequest) (*domain.ProjectState, error) {
	var taskID, prompt string
	var phaseID string

	err := s.mutate(func(state *domain.ProjectState) error {
		phase := state.ActivePhase()
		if phase == nil {
			return fmt.Errorf("%w: no active phase", ixerrors.ErrPhaseNotFound)
		}
		if req.TaskNumber < 1 || req.TaskNumber > len(phase.Tasks) {
			return fmt.Errorf("%w: task number %d", ixerrors.ErrTaskNotFound, req.TaskNumber)
		}
		task := &phase.Tasks[req.TaskNumber-1]
		task.Status = constants.TaskInProgress
		taskID = task.ID
		phaseID = phase.ID
		prompt = task.Title
		if task.Description != "" {
			prompt = task.Title + "\n\n" + task.Description
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	work, workErr := s.execWork(ctx, domain.WorkRequest{
		Assignee: req.Assignee,
		Prompt:   prompt,
		PhaseID:  phaseID,
		TaskID:   taskID,
		Resume:   req.Resume,
	})

	err = s.mutate(func(state *domain.ProjectState) error {
		phase := state.PhaseByID(phaseID)
		if phase == nil {
			return fmt.Errorf("%w: %s", ixerrors.ErrPhaseNotFound, phaseID)
		}
		task := phase.TaskByID(taskID)
		if task == nil {
			return fmt.Errorf("%w: %s", ixerrors.ErrTaskNotFound, taskID)
		}
		if workErr != nil {
			task.Status = constants.TaskFailed
			task.ErrorLogs = tester.Truncate(workErr.Error(), constants.MaxTesterOutputLength)
			return nil
		}
		task.Status = constants.TaskDone
		task.ErrorLogs = ""
		if work != nil {
			task.ResultContext = tester.Truncate(work.Stdout, constants.MaxTesterOutputLength)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// CreateTask implements Store.
func (s *FileStore) CreateTask(req CreateTaskRequest) (*domain.Task, error) {
	task := domain.Task{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Assignee:     req.Assignee,
		Dependencies: req.Dependencies,
	}
	if task.Status == "" {
		task.Status = constants.TaskTodo
	}

	err := s.mutate(func(state *domain.ProjectState) error {
		phase := state.PhaseByID(req.PhaseID)
		if phase == nil {
			return fmt.Errorf("%w: %s", ixerrors.ErrPhaseNotFound, req.PhaseID)
		}
		phase.Tasks = append(phase.Tasks, task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ReconcileInProgressTasks implements Store.
func (s *FileStore) ReconcileInProgressTasks() (int, error) {
	count := 0
	err := s.mutate(func(state *domain.ProjectState) error {
		for p := range state.Phases {
			for t := range state.Phases[p].Tasks {
				task := &state.Phases[p].Tasks[t]
				if task.Status == constants.TaskInProgress {
					task.Status = constants.TaskTodo
					count++
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info().Int("count", count).Msg("reconciled in-progress tasks to todo")
	}
	return count, nil
}

// RecordRecoveryAttempt implements Store.
func (s *FileStore) RecordRecoveryAttempt(req RecordRecoveryRequest) error {
	return s.mutate(func(state *domain.ProjectState) error {
		state.RecoveryAttempts = append(state.RecoveryAttempts, domain.RecoveryAttemptRecord{
			ID:            uuid.NewString(),
			OccurredAt:    time.Now().UTC(),
			AttemptNumber: req.AttemptNumber,
			Exception:     req.Exception,
			Result:        req.Result,
		})
		return nil
	})
}

// RunInternalWork implements Store.
func (s *FileStore) RunInternalWork(ctx context.Context, req domain.WorkRequest) (*domain.WorkResult, error) {
	return s.execWork(ctx, req)
}

// mutate runs a read-modify-write transaction over the on-disk state.
func (s *FileStore) mutate(fn func(state *domain.ProjectState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.save(state)
}

func (s *FileStore) load() (*domain.ProjectState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.ProjectState{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var state domain.ProjectState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s", ixerrors.ErrStateCorrupted, err)
	}
	return &state, nil
}

func (s *FileStore) save(state *domain.ProjectState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, constants.StateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("state temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(state); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// SeedState writes an initial project state. Used by project initialization
// and tests.
func (s *FileStore) SeedState(state *domain.ProjectState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(state)
}

// Compile-time check that FileStore implements Store.
var _ Store = (*FileStore)(nil)
