package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/ichigozero/focusflow/tasksvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) tasksvc.TaskRepository {
	t.Helper()

	db, err := libgorm.Open(sqlite.Open(":memory:"), &libgorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&tasksvc.Task{}))
	return NewTaskRepository(db)
}

func TestTaskRepositoryCreateFind(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	due := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	created, err := r.Create(ctx, tasksvc.Task{
		Title:     "T",
		Category:  tasksvc.CategoryWork,
		DueDate:   &due,
		OwnerID:   "ann",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	found, err := r.Find(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", found.Title)
	assert.Equal(t, "ann", found.OwnerID)
	assert.Equal(t, tasksvc.CategoryWork, found.Category)
	require.NotNil(t, found.DueDate)
	assert.True(t, due.Equal(*found.DueDate))

	_, err = r.Find(ctx, "missing")
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)
}

func TestTaskRepositoryFindAll(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, owner := range []string{"ann", "bob", "ann"} {
		_, err := r.Create(ctx, tasksvc.Task{
			Title:     owner,
			Category:  tasksvc.CategoryStudy,
			OwnerID:   owner,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	tasks, err := r.FindAll(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, "ann", task.OwnerID)
	}
	assert.True(t, tasks[0].CreatedAt.After(tasks[1].CreatedAt))

	tasks, err = r.FindAll(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestTaskRepositoryUpdate(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	due := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	created, err := r.Create(ctx, tasksvc.Task{
		Title:       "T",
		Description: "d",
		Category:    tasksvc.CategoryWork,
		DueDate:     &due,
		OwnerID:     "ann",
	})
	require.NoError(t, err)

	empty := ""
	done := true
	later := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)
	updated, err := r.Update(ctx, created.ID, tasksvc.Patch{
		Description: &empty,
		Completed:   &done,
		DueDate:     &tasksvc.Date{},
	}, later)
	require.NoError(t, err)

	assert.Equal(t, "T", updated.Title)
	assert.Equal(t, "", updated.Description)
	assert.True(t, updated.Completed)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, "ann", updated.OwnerID)
	assert.True(t, later.Equal(updated.UpdatedAt))

	_, err = r.Update(ctx, "missing", tasksvc.Patch{Completed: &done}, later)
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)
}

func TestTaskRepositoryDelete(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	created, err := r.Create(ctx, tasksvc.Task{Title: "T", Category: tasksvc.CategoryWork, OwnerID: "ann"})
	require.NoError(t, err)

	deleted, err := r.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, "T", deleted.Title)

	_, err = r.Find(ctx, created.ID)
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)

	_, err = r.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)
}
