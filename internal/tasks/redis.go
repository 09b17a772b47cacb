package tasks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"whisperasr/internal/domain"
)

const redisKeyPrefix = "whisperasr:task:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisRegistry stores each task as a hash so that concurrent updates to
// distinct fields never overwrite each other.
type RedisRegistry struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisRegistry(cfg RedisConfig) (*RedisRegistry, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisRegistry{rdb: rdb, now: time.Now}, nil
}

func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}

func (r *RedisRegistry) Create(ctx context.Context, id string) (domain.Task, error) {
	key := redisKeyPrefix + id
	ok, err := r.rdb.HSetNX(ctx, key, "task_id", id).Result()
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	if !ok {
		return domain.Task{}, ErrTaskExists
	}

	task := newTask(id, r.now())
	if err := r.rdb.HSet(ctx, key, taskFields(task)).Err(); err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (r *RedisRegistry) Update(ctx context.Context, id string, u Update) (bool, error) {
	key := redisKeyPrefix + id
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	fields := map[string]any{"updated_at": r.now().Unix()}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.Progress != nil {
		fields["progress"] = strconv.FormatFloat(*u.Progress, 'f', -1, 64)
	}
	if u.Message != nil {
		fields["message"] = *u.Message
	}
	if u.ResultID != nil {
		fields["result_id"] = *u.ResultID
	}

	if err := r.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	return true, nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (domain.Task, bool, error) {
	values, err := r.rdb.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("get task: %w", err)
	}
	if len(values) == 0 {
		return domain.Task{}, false, nil
	}
	return parseTask(values), true, nil
}

func (r *RedisRegistry) Cleanup(ctx context.Context, id string) error {
	task, ok, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTaskNotFound
	}
	if !task.Status.Terminal() {
		return ErrTaskActive
	}
	return r.rdb.Del(ctx, redisKeyPrefix+id).Err()
}

func (r *RedisRegistry) Sweep(ctx context.Context, before time.Time) (int, error) {
	removed := 0
	cutoff := before.Unix()

	iter := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		values, err := r.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return removed, fmt.Errorf("sweep tasks: %w", err)
		}
		task := parseTask(values)
		if !task.Status.Terminal() || task.UpdatedAt >= cutoff {
			continue
		}
		if err := r.rdb.Del(ctx, key).Err(); err != nil {
			return removed, fmt.Errorf("sweep tasks: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("sweep tasks: %w", err)
	}
	return removed, nil
}

func taskFields(task domain.Task) map[string]any {
	return map[string]any{
		"task_id":    task.TaskID,
		"status":     string(task.Status),
		"progress":   strconv.FormatFloat(task.Progress, 'f', -1, 64),
		"message":    task.Message,
		"result_id":  task.ResultID,
		"created_at": task.CreatedAt,
		"updated_at": task.UpdatedAt,
	}
}

func parseTask(values map[string]string) domain.Task {
	progress, _ := strconv.ParseFloat(values["progress"], 64)
	createdAt, _ := strconv.ParseInt(values["created_at"], 10, 64)
	updatedAt, _ := strconv.ParseInt(values["updated_at"], 10, 64)
	return domain.Task{
		TaskID:    values["task_id"],
		Status:    domain.TaskStatus(values["status"]),
		Progress:  progress,
		Message:   values["message"],
		ResultID:  values["result_id"],
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}
