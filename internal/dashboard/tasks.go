package dashboard

import (
	"context"

	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

// Task states.
const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task belongs to a project.
type Task struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	Priority  int        `json:"priority"`
}

func (t Task) RecordID() string { return t.ID }

// Tasks is the tasks service.
type Tasks struct {
	*service.Service[Task]
}

func newTasks(reg *registry.Registry) (*Tasks, error) {
	base, err := service.For(reg, TasksCollection)
	if err != nil {
		return nil, err
	}
	return &Tasks{Service: base}, nil
}

// ByProject returns the tasks of a project in collection order.
func (t *Tasks) ByProject(ctx context.Context, projectID string, opts ...types.Option) types.Envelope[[]Task] {
	return t.Where(ctx, func(task Task) bool { return task.ProjectID == projectID }, opts...)
}

var seedTasks = []Task{
	{ID: "t_1", ProjectID: "prj_1", Title: "Setup App Router structure", Status: TaskDone, Priority: 1},
	{ID: "t_2", ProjectID: "prj_1", Title: "Implement Plugin Pods", Status: TaskInProgress, Priority: 2},
	{ID: "t_3", ProjectID: "prj_1", Title: "Document Data Prefixing", Status: TaskTodo, Priority: 3},
}
