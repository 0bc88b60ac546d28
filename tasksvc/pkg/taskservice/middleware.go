package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/focusflow/tasksvc"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Tasks",
			"user_id", a.UserID,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.Tasks(ctx, a)
}

func (mw loggingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Task",
			"user_id", a.UserID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.Task(ctx, a, taskID)
}

func (mw loggingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, d tasksvc.Draft) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "CreateTask",
			"user_id", a.UserID,
			"title", d.Title,
			"category", d.Category,
			"task_id", t.ID,
			"err", err,
		)
	}()
	return mw.next.CreateTask(ctx, a, d)
}

func (mw loggingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "UpdateTask",
			"user_id", a.UserID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.UpdateTask(ctx, a, taskID, p)
}

func (mw loggingMiddleware) CompleteTask(ctx context.Context, a tasksvc.Auth, taskID string, completed *bool) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "CompleteTask",
			"user_id", a.UserID,
			"task_id", taskID,
			"completed", t.Completed,
			"err", err,
		)
	}()
	return mw.next.CompleteTask(ctx, a, taskID, completed)
}

func (mw loggingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "DeleteTask",
			"user_id", a.UserID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.DeleteTask(ctx, a, taskID)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) observe(method string, begin time.Time) {
	mw.requestCount.With("method", method).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mw instrumentingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error) {
	defer mw.observe("tasks", time.Now())
	return mw.next.Tasks(ctx, a)
}

func (mw instrumentingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	defer mw.observe("task", time.Now())
	return mw.next.Task(ctx, a, taskID)
}

func (mw instrumentingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, d tasksvc.Draft) (tasksvc.Task, error) {
	defer mw.observe("create_task", time.Now())
	return mw.next.CreateTask(ctx, a, d)
}

func (mw instrumentingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	defer mw.observe("update_task", time.Now())
	return mw.next.UpdateTask(ctx, a, taskID, p)
}

func (mw instrumentingMiddleware) CompleteTask(ctx context.Context, a tasksvc.Auth, taskID string, completed *bool) (tasksvc.Task, error) {
	defer mw.observe("complete_task", time.Now())
	return mw.next.CompleteTask(ctx, a, taskID, completed)
}

func (mw instrumentingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	defer mw.observe("delete_task", time.Now())
	return mw.next.DeleteTask(ctx, a, taskID)
}

// OwnershipMiddleware restricts single-record operations to the record's
// owner. Anonymous callers get ErrUnauthorized; records owned by someone
// else are reported as ErrTaskNotFound.
func OwnershipMiddleware() Middleware {
	return func(next Service) Service {
		return ownershipMiddleware{next}
	}
}

type ownershipMiddleware struct {
	next Service
}

func (mw ownershipMiddleware) check(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	if a.Anonymous() {
		return tasksvc.Task{}, tasksvc.ErrUnauthorized
	}

	t, err := mw.next.Task(ctx, a, taskID)
	if err != nil {
		return tasksvc.Task{}, err
	}
	if t.OwnerID != a.UserID {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return t, nil
}

func (mw ownershipMiddleware) Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error) {
	return mw.next.Tasks(ctx, a)
}

func (mw ownershipMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	return mw.check(ctx, a, taskID)
}

func (mw ownershipMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, d tasksvc.Draft) (tasksvc.Task, error) {
	return mw.next.CreateTask(ctx, a, d)
}

func (mw ownershipMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	if _, err := mw.check(ctx, a, taskID); err != nil {
		return tasksvc.Task{}, err
	}
	return mw.next.UpdateTask(ctx, a, taskID, p)
}

func (mw ownershipMiddleware) CompleteTask(ctx context.Context, a tasksvc.Auth, taskID string, completed *bool) (tasksvc.Task, error) {
	if _, err := mw.check(ctx, a, taskID); err != nil {
		return tasksvc.Task{}, err
	}
	return mw.next.CompleteTask(ctx, a, taskID, completed)
}

func (mw ownershipMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	if _, err := mw.check(ctx, a, taskID); err != nil {
		return tasksvc.Task{}, err
	}
	return mw.next.DeleteTask(ctx, a, taskID)
}
