package tasks

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperasr/internal/domain"
)

// setupRedisRegistry connects to REDIS_ADDR and skips when it is unset or unreachable.
func setupRedisRegistry(t *testing.T) *RedisRegistry {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	reg, err := NewRedisRegistry(RedisConfig{Addr: addr})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRedisRegistryLifecycle(t *testing.T) {
	reg := setupRedisRegistry(t)
	ctx := context.Background()
	id := "test-" + uuid.NewString()
	defer reg.rdb.Del(ctx, redisKeyPrefix+id)

	_, err := reg.Create(ctx, id)
	require.NoError(t, err)
	_, err = reg.Create(ctx, id)
	assert.ErrorIs(t, err, ErrTaskExists)

	ok, err := reg.Update(ctx, id, Update{Status: Status(domain.TaskStatusProcessing), Progress: Progress(50)})
	require.NoError(t, err)
	assert.True(t, ok)

	task, found, err := reg.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.TaskStatusProcessing, task.Status)
	assert.Equal(t, 50.0, task.Progress)
	assert.Equal(t, "task created", task.Message)

	assert.ErrorIs(t, reg.Cleanup(ctx, id), ErrTaskActive)

	_, err = reg.Update(ctx, id, Update{Status: Status(domain.TaskStatusCompleted), ResultID: Text("r1")})
	require.NoError(t, err)
	removed, err := reg.Sweep(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, 1)

	_, found, err = reg.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisRegistryUpdateMissing(t *testing.T) {
	reg := setupRedisRegistry(t)

	ok, err := reg.Update(context.Background(), "missing-"+uuid.NewString(), Update{Progress: Progress(1)})
	require.NoError(t, err)
	assert.False(t, ok)
}
