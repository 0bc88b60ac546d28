package taskservice

import (
	"context"
	"testing"
	"time"

	"github.com/ichigozero/focusflow/tasksvc"
	"github.com/ichigozero/focusflow/tasksvc/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ann = tasksvc.Auth{UserID: "ann"}
	bob = tasksvc.Auth{UserID: "bob"}
)

func newTestService(t *testing.T) (Service, tasksvc.TaskRepository) {
	t.Helper()

	repo := inmem.NewTaskRepository()
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return basicService{tasks: repo, now: now}, repo
}

func mustCreate(t *testing.T, svc Service, a tasksvc.Auth, title string) tasksvc.Task {
	t.Helper()

	task, err := svc.CreateTask(context.Background(), a, tasksvc.Draft{Title: title, Category: tasksvc.CategoryWork})
	require.NoError(t, err)
	return task
}

func TestTasksAnonymousReturnsSamples(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, ann, "live")

	tasks, err := svc.Tasks(context.Background(), tasksvc.Auth{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "sample1", tasks[0].ID)
	assert.Equal(t, "sample2", tasks[1].ID)
}

func TestTasksScopedToOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := mustCreate(t, svc, ann, "first")
	mustCreate(t, svc, bob, "foreign")
	second := mustCreate(t, svc, ann, "second")

	tasks, err := svc.Tasks(ctx, ann)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, "ann", task.OwnerID)
	}
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)

	tasks, err = svc.Tasks(ctx, tasksvc.Auth{UserID: "carol"})
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestCreateThenGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	due := tasksvc.Date{Time: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	created, err := svc.CreateTask(ctx, ann, tasksvc.Draft{
		Title:       " T ",
		Description: "d",
		Category:    tasksvc.CategoryStudy,
		DueDate:     due,
	})
	require.NoError(t, err)

	got, err := svc.Task(ctx, tasksvc.Auth{}, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.OwnerID)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, tasksvc.CategoryStudy, got.Category)
	assert.False(t, got.Completed)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, due.Time, *got.DueDate)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
}

func TestCreateRequiresIdentity(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.CreateTask(context.Background(), tasksvc.Auth{}, tasksvc.Draft{Title: "T", Category: tasksvc.CategoryWork})
	assert.ErrorIs(t, err, tasksvc.ErrUnauthorized)

	tasks, err := repo.FindAll(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestInvalidCategoryRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, ann, tasksvc.Draft{Title: "T", Category: "chores"})
	assert.ErrorIs(t, err, tasksvc.ErrInvalidArgument)

	task := mustCreate(t, svc, ann, "T")
	chores := tasksvc.Category("chores")
	_, err = svc.UpdateTask(ctx, ann, task.ID, tasksvc.Patch{Category: &chores})
	assert.ErrorIs(t, err, tasksvc.ErrInvalidArgument)

	got, err := svc.Task(ctx, ann, task.ID)
	require.NoError(t, err)
	assert.Equal(t, tasksvc.CategoryWork, got.Category)
}

func TestUpdateIgnoresOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task := mustCreate(t, svc, ann, "T")
	title := "changed by bob"
	updated, err := svc.UpdateTask(ctx, bob, task.ID, tasksvc.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "ann", updated.OwnerID)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = svc.UpdateTask(ctx, ann, "missing", tasksvc.Patch{Title: &title})
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)
}

func TestCompleteTaskIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task := mustCreate(t, svc, ann, "T")
	done := true

	once, err := svc.CompleteTask(ctx, ann, task.ID, &done)
	require.NoError(t, err)
	twice, err := svc.CompleteTask(ctx, ann, task.ID, &done)
	require.NoError(t, err)

	assert.True(t, once.Completed)
	assert.True(t, twice.Completed)
	assert.Equal(t, once.Title, twice.Title)
	assert.Equal(t, once.OwnerID, twice.OwnerID)

	_, err = svc.CompleteTask(ctx, ann, task.ID, nil)
	assert.ErrorIs(t, err, tasksvc.ErrInvalidArgument)
}

func TestDeleteTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task := mustCreate(t, svc, ann, "T")

	deleted, err := svc.DeleteTask(ctx, tasksvc.Auth{}, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, deleted.ID)

	_, err = svc.Task(ctx, ann, task.ID)
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)
	_, err = svc.DeleteTask(ctx, ann, task.ID)
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)
}
