package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/news-portal/internal/models"
)

const testTimeout = 10 * time.Second

// redisURL заполняется в TestMain, если включены интеграционные тесты.
var redisURL string

func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis testcontainer: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redisC.Endpoint(ctx, "")
	if err != nil {
		_ = redisC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}

	redisURL = "redis://" + endpoint + "/0"

	code := m.Run()

	_ = redisC.Terminate(context.Background())
	os.Exit(code)
}

func newTestCache(t *testing.T) SessionCache {
	t.Helper()
	if redisURL == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	c, err := NewRedisCache(ctx, redisURL, "test:"+t.Name()+":")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestNewRedisCache_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisCache(context.Background(), "://bad", "")
	require.Error(t, err)
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)
	s := &models.RefreshSession{
		ID:        5,
		UserID:    7,
		TokenHash: "hash-1",
		UserAgent: "curl/8",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	_, ok, err := c.Get(ctx, s.TokenHash)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, s, time.Hour))

	got, ok, err := c.Get(ctx, s.TokenHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, s, got)

	require.NoError(t, c.Delete(ctx, s.TokenHash))
	require.NoError(t, c.Delete(ctx, s.TokenHash), "повторное удаление — не ошибка")

	_, ok, err = c.Get(ctx, s.TokenHash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_NonPositiveTTLIsSkipped(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	s := &models.RefreshSession{ID: 1, UserID: 1, TokenHash: "dead", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, c.Set(ctx, s, 0))

	_, ok, err := c.Get(ctx, "dead")
	require.NoError(t, err)
	require.False(t, ok)
}
