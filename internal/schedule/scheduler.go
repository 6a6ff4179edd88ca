// Package schedule selects the next actionable task from a phase.
//
// PickNextTask is a stateless pure function so that the ordering survives
// state reloads unchanged.
package schedule

import (
	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
)

// PickNextTask returns the index of the next actionable task, or -1 when no
// task is actionable.
//
// Selection rules, highest priority first:
//  1. the earliest CI_FIX task
//  2. the earliest TODO task
//
// Within a tier the lowest index wins. IN_PROGRESS is never pickable; it
// means active work or a crashed predecessor, which startup reconciliation
// resets to TODO before the scheduler runs.
func PickNextTask(tasks []domain.Task) int {
	firstTodo := -1
	for i := range tasks {
		switch tasks[i].Status {
		case constants.TaskCIFix:
			return i
		case constants.TaskTodo:
			if firstTodo == -1 {
				firstTodo = i
			}
		case constants.TaskInProgress, constants.TaskDone, constants.TaskFailed:
		}
	}
	return firstTodo
}
