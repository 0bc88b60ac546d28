package taskservice

import (
	"context"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/ichigozero/focusflow/tasksvc"
	"golang.org/x/sync/singleflight"
)

// ListCache holds owner-scoped task lists.
type ListCache interface {
	Get(ctx context.Context, ownerID string) ([]tasksvc.Task, bool, error)
	Set(ctx context.Context, ownerID string, tasks []tasksvc.Task) error
	Delete(ctx context.Context, ownerID string) error
}

// CachingMiddleware serves authenticated Tasks calls from c and drops the
// owner's entry after every successful write. A list loaded while a write
// for the same owner completed is returned but not stored. Cache failures
// are logged and the call falls through to the next service.
func CachingMiddleware(c ListCache, logger log.Logger) Middleware {
	return func(next Service) Service {
		return &cachingMiddleware{
			cache:  c,
			logger: logger,
			next:   next,
			gens:   make(map[string]uint64),
		}
	}
}

type cachingMiddleware struct {
	cache  ListCache
	logger log.Logger
	group  singleflight.Group
	next   Service

	mtx  sync.Mutex
	gens map[string]uint64 // per-owner write generation
}

func (mw *cachingMiddleware) generation(ownerID string) uint64 {
	mw.mtx.Lock()
	defer mw.mtx.Unlock()
	return mw.gens[ownerID]
}

// fill stores tasks unless the owner's list was invalidated after gen was
// read. The check and the write happen under mtx so an invalidation either
// prevents the write or deletes it afterwards.
func (mw *cachingMiddleware) fill(ctx context.Context, ownerID string, gen uint64, tasks []tasksvc.Task) {
	mw.mtx.Lock()
	defer mw.mtx.Unlock()

	if mw.gens[ownerID] != gen {
		return
	}
	if err := mw.cache.Set(ctx, ownerID, tasks); err != nil {
		level.Warn(mw.logger).Log("msg", "list cache write failed", "user_id", ownerID, "err", err)
	}
}

func (mw *cachingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error) {
	if a.Anonymous() {
		return mw.next.Tasks(ctx, a)
	}

	tasks, ok, err := mw.cache.Get(ctx, a.UserID)
	if err != nil {
		level.Warn(mw.logger).Log("msg", "list cache read failed", "user_id", a.UserID, "err", err)
	}
	if ok {
		return tasks, nil
	}

	v, err, _ := mw.group.Do(a.UserID, func() (interface{}, error) {
		gen := mw.generation(a.UserID)
		tasks, err := mw.next.Tasks(ctx, a)
		if err != nil {
			return nil, err
		}
		mw.fill(ctx, a.UserID, gen, tasks)
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]tasksvc.Task), nil
}

func (mw *cachingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	return mw.next.Task(ctx, a, taskID)
}

func (mw *cachingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, d tasksvc.Draft) (tasksvc.Task, error) {
	return mw.invalidate(ctx)(mw.next.CreateTask(ctx, a, d))
}

func (mw *cachingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	return mw.invalidate(ctx)(mw.next.UpdateTask(ctx, a, taskID, p))
}

func (mw *cachingMiddleware) CompleteTask(ctx context.Context, a tasksvc.Auth, taskID string, completed *bool) (tasksvc.Task, error) {
	return mw.invalidate(ctx)(mw.next.CompleteTask(ctx, a, taskID, completed))
}

func (mw *cachingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	return mw.invalidate(ctx)(mw.next.DeleteTask(ctx, a, taskID))
}

// invalidate drops the cached list of whoever owns the written record, which
// is not necessarily the caller.
func (mw *cachingMiddleware) invalidate(ctx context.Context) func(tasksvc.Task, error) (tasksvc.Task, error) {
	return func(t tasksvc.Task, err error) (tasksvc.Task, error) {
		if err != nil || t.OwnerID == "" {
			return t, err
		}

		mw.mtx.Lock()
		mw.gens[t.OwnerID]++
		mw.mtx.Unlock()
		mw.group.Forget(t.OwnerID)

		if err := mw.cache.Delete(ctx, t.OwnerID); err != nil {
			level.Warn(mw.logger).Log("msg", "list cache invalidation failed", "user_id", t.OwnerID, "err", err)
		}
		return t, nil
	}
}
