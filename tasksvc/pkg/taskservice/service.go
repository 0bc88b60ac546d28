package taskservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/focusflow/tasksvc"
)

// Service decides, per operation, whether a caller gets live records, the
// sample records or an error. Only Tasks and CreateTask look at the caller;
// single-record operations are addressed by id alone.
type Service interface {
	Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error)
	Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error)
	CreateTask(ctx context.Context, a tasksvc.Auth, d tasksvc.Draft) (tasksvc.Task, error)
	UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error)
	CompleteTask(ctx context.Context, a tasksvc.Auth, taskID string, completed *bool) (tasksvc.Task, error)
	DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error)
}

func New(t tasksvc.TaskRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
	now   func() time.Time
}

func NewBasicService(t tasksvc.TaskRepository) Service {
	return basicService{tasks: t, now: time.Now}
}

func (s basicService) Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error) {
	if a.Anonymous() {
		return tasksvc.Samples(s.now()), nil
	}
	return s.tasks.FindAll(ctx, a.UserID)
}

func (s basicService) Task(ctx context.Context, _ tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	return s.tasks.Find(ctx, taskID)
}

func (s basicService) CreateTask(ctx context.Context, a tasksvc.Auth, d tasksvc.Draft) (tasksvc.Task, error) {
	if a.Anonymous() {
		return tasksvc.Task{}, tasksvc.ErrUnauthorized
	}
	if err := d.Validate(); err != nil {
		return tasksvc.Task{}, err
	}

	now := s.now().UTC()
	return s.tasks.Create(ctx, tasksvc.Task{
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Category:    d.Category,
		DueDate:     d.DueDate.Ptr(),
		OwnerID:     a.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s basicService) UpdateTask(ctx context.Context, _ tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	if err := p.Validate(); err != nil {
		return tasksvc.Task{}, err
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	return s.tasks.Update(ctx, taskID, p, s.now().UTC())
}

func (s basicService) CompleteTask(ctx context.Context, a tasksvc.Auth, taskID string, completed *bool) (tasksvc.Task, error) {
	if completed == nil {
		return tasksvc.Task{}, fmt.Errorf("%w: completed is required", tasksvc.ErrInvalidArgument)
	}
	return s.UpdateTask(ctx, a, taskID, tasksvc.Patch{Completed: completed})
}

func (s basicService) DeleteTask(ctx context.Context, _ tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	return s.tasks.Delete(ctx, taskID)
}
