//go:build container
// +build container

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ichigozero/focusflow/tasksvc"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Terminate(context.Background()) })

	url, err := c.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)

	rdb, err := NewClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestListCacheContainer(t *testing.T) {
	rdb := newTestClient(t)
	c := NewListCache(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "ann")
	require.NoError(t, err)
	assert.False(t, ok)

	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2029, 12, 1, 8, 0, 0, 0, time.UTC)
	list := []tasksvc.Task{{
		ID:        "1",
		Title:     "T",
		Category:  tasksvc.CategoryWork,
		DueDate:   &due,
		OwnerID:   "ann",
		CreatedAt: created,
		UpdatedAt: created,
	}}
	require.NoError(t, c.Set(ctx, "ann", list))

	got, ok, err := c.Get(ctx, "ann")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, list, got)

	ttl, err := rdb.TTL(ctx, listKey("ann")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, c.Set(ctx, "bob", nil))
	got, ok, err = c.Get(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.NoError(t, c.Delete(ctx, "ann"))
	_, ok, err = c.Get(ctx, "ann")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListCacheExpires(t *testing.T) {
	rdb := newTestClient(t)
	c := NewListCache(rdb, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ann", []tasksvc.Task{{ID: "1", OwnerID: "ann"}}))
	require.Eventually(t, func() bool {
		_, ok, err := c.Get(ctx, "ann")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}
