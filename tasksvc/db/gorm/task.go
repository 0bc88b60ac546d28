package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/ichigozero/focusflow/tasksvc"
	"github.com/twinj/uuid"
	libgorm "gorm.io/gorm"
)

type taskRepository struct {
	db *libgorm.DB
}

func NewTaskRepository(db *libgorm.DB) tasksvc.TaskRepository {
	return &taskRepository{db}
}

func (r *taskRepository) Create(ctx context.Context, task tasksvc.Task) (tasksvc.Task, error) {
	task.ID = uuid.NewV4().String()
	result := r.db.WithContext(ctx).Create(&task)

	return task, result.Error
}

func (r *taskRepository) FindAll(ctx context.Context, ownerID string) ([]tasksvc.Task, error) {
	tasks := []tasksvc.Task{}
	result := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&tasks)

	return tasks, result.Error
}

func (r *taskRepository) Find(ctx context.Context, taskID string) (tasksvc.Task, error) {
	return r.find(r.db.WithContext(ctx), taskID)
}

func (r *taskRepository) find(db *libgorm.DB, taskID string) (tasksvc.Task, error) {
	var task tasksvc.Task
	result := db.Where("id = ?", taskID).First(&task)

	return task, notFound(result.Error)
}

func (r *taskRepository) Update(ctx context.Context, taskID string, p tasksvc.Patch, updatedAt time.Time) (tasksvc.Task, error) {
	db := r.db.WithContext(ctx)

	task, err := r.find(db, taskID)
	if err != nil {
		return tasksvc.Task{}, err
	}

	result := db.Model(&task).Updates(columns(p, updatedAt))
	if result.Error != nil {
		return tasksvc.Task{}, result.Error
	}

	return r.find(db, taskID)
}

func (r *taskRepository) Delete(ctx context.Context, taskID string) (tasksvc.Task, error) {
	db := r.db.WithContext(ctx)

	task, err := r.find(db, taskID)
	if err != nil {
		return tasksvc.Task{}, err
	}

	result := db.Delete(&tasksvc.Task{}, "id = ?", taskID)
	if result.Error != nil {
		return tasksvc.Task{}, result.Error
	}
	if result.RowsAffected == 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	return task, nil
}

// columns maps a patch onto an update map; a struct would drop zero values.
func columns(p tasksvc.Patch, updatedAt time.Time) map[string]interface{} {
	m := map[string]interface{}{"updated_at": updatedAt}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.DueDate != nil {
		m["due_date"] = p.DueDate.Ptr()
	}
	if p.Completed != nil {
		m["completed"] = *p.Completed
	}
	return m
}

func notFound(err error) error {
	if errors.Is(err, libgorm.ErrRecordNotFound) {
		return tasksvc.ErrTaskNotFound
	}
	return err
}
