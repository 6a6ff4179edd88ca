package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ixado/ixado/internal/constants"
	"github.com/ixado/ixado/internal/domain"
)

func task(id string, status constants.TaskStatus) domain.Task {
	return domain.Task{ID: id, Title: id, Status: status}
}

func TestPickNextTaskEmptyList(t *testing.T) {
	assert.Equal(t, -1, PickNextTask(nil))
	assert.Equal(t, -1, PickNextTask([]domain.Task{}))
}

func TestPickNextTaskCIFixOutranksTodo(t *testing.T) {
	tasks := []domain.Task{
		task("a", constants.TaskTodo),
		task("b", constants.TaskDone),
		task("c", constants.TaskCIFix),
		task("d", constants.TaskCIFix),
	}
	assert.Equal(t, 2, PickNextTask(tasks))
}

func TestPickNextTaskEarliestTodo(t *testing.T) {
	tasks := []domain.Task{
		task("a", constants.TaskDone),
		task("b", constants.TaskTodo),
		task("c", constants.TaskTodo),
	}
	assert.Equal(t, 1, PickNextTask(tasks))
}

func TestPickNextTaskSkipsInProgressAndFailed(t *testing.T) {
	tasks := []domain.Task{
		task("a", constants.TaskInProgress),
		task("b", constants.TaskFailed),
		task("c", constants.TaskDone),
	}
	assert.Equal(t, -1, PickNextTask(tasks))
}

func TestPickNextTaskIdempotent(t *testing.T) {
	tasks := []domain.Task{
		task("a", constants.TaskDone),
		task("b", constants.TaskCIFix),
		task("c", constants.TaskTodo),
	}
	first := PickNextTask(tasks)
	second := PickNextTask(tasks)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first)
}
