package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ichigozero/focusflow/tasksvc"
	"github.com/redis/go-redis/v9"
)

const keyList = "todo:list:"

// ListCache keeps owner-scoped task lists in Redis.
type ListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewListCache(rdb *redis.Client, ttl time.Duration) *ListCache {
	return &ListCache{rdb: rdb, ttl: ttl}
}

// Get reports false on a miss.
func (c *ListCache) Get(ctx context.Context, ownerID string) ([]tasksvc.Task, bool, error) {
	b, err := c.rdb.Get(ctx, listKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var tasks []tasksvc.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return nil, false, err
	}
	if tasks == nil {
		tasks = []tasksvc.Task{}
	}
	return tasks, true, nil
}

func (c *ListCache) Set(ctx context.Context, ownerID string, tasks []tasksvc.Task) error {
	b, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, listKey(ownerID), b, c.ttl).Err()
}

func (c *ListCache) Delete(ctx context.Context, ownerID string) error {
	return c.rdb.Del(ctx, listKey(ownerID)).Err()
}

func listKey(ownerID string) string {
	return keyList + ownerID
}

// NewClient parses a redis:// or rediss:// URL and checks the server is
// reachable.
func NewClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
