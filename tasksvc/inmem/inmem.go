package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ichigozero/focusflow/tasksvc"
	"github.com/twinj/uuid"
)

type taskRepository struct {
	mtx   sync.RWMutex
	tasks map[string]tasksvc.Task
}

// NewTaskRepository returns a TaskRepository backed by process memory.
func NewTaskRepository() tasksvc.TaskRepository {
	return &taskRepository{tasks: make(map[string]tasksvc.Task)}
}

func (r *taskRepository) Create(_ context.Context, t tasksvc.Task) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	t.ID = uuid.NewV4().String()
	r.tasks[t.ID] = t
	return t, nil
}

func (r *taskRepository) FindAll(_ context.Context, ownerID string) ([]tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	tasks := []tasksvc.Task{}
	for _, t := range r.tasks {
		if t.OwnerID == ownerID {
			tasks = append(tasks, t)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (r *taskRepository) Find(_ context.Context, taskID string) (tasksvc.Task, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return t, nil
}

func (r *taskRepository) Update(_ context.Context, taskID string, p tasksvc.Patch, updatedAt time.Time) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	t = p.Apply(t)
	t.UpdatedAt = updatedAt
	r.tasks[taskID] = t
	return t, nil
}

func (r *taskRepository) Delete(_ context.Context, taskID string) (tasksvc.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	delete(r.tasks, taskID)
	return t, nil
}
