package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/storage"
)

// testTimeout — общий дедлайн на операции с БД в тестах.
const testTimeout = 10 * time.Second

// mongoURI заполняется в TestMain, если включены интеграционные тесты.
var mongoURI string

// TestMain запускает MongoDB в контейнере один раз на весь пакет.
// Каждый тест работает в своей базе (см. newTestMongo).
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	mongoURI = fmt.Sprintf("mongodb://%s:%s", host, port.Port())

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

func newTestMongo(t *testing.T) *Mongo {
	t.Helper()
	if mongoURI == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	uri := mongoURI + "/t_" + uuid.NewString()[:8]
	m, err := New(ctx, uri)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = m.db.Drop(context.Background())
		_ = m.Close(context.Background())
	})

	return m
}

func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "portal", databaseFromURI("mongodb://localhost:27017/portal"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017"))
	require.Equal(t, defaultDBName, databaseFromURI("::bad::"))
}

func TestIntegration_Comments_CRUD(t *testing.T) {
	m := newTestMongo(t)
	repo := m.Comments()
	ctx := context.Background()

	c1, err := repo.Create(ctx, models.CommentCreate{Text: "first", NewsID: 1, AuthorID: 10})
	require.NoError(t, err)
	c2, err := repo.Create(ctx, models.CommentCreate{Text: "second", NewsID: 1, AuthorID: 11})
	require.NoError(t, err)
	require.Equal(t, c1.ID+1, c2.ID, "id выдаются последовательно")
	require.Nil(t, c1.UpdatedAt)

	got, err := repo.Get(ctx, c1.ID)
	require.NoError(t, err)
	require.Equal(t, "first", got.Text)

	text := "edited"
	upd, err := repo.Update(ctx, c1.ID, models.CommentUpdate{Text: &text})
	require.NoError(t, err)
	require.Equal(t, "edited", upd.Text)
	require.NotNil(t, upd.UpdatedAt)

	_, err = repo.Update(ctx, 9999, models.CommentUpdate{Text: &text})
	require.ErrorIs(t, err, storage.ErrNotFound)

	list, err := repo.ByNews(ctx, 1, models.ListParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, c1.ID, list[0].ID)

	cnt, err := repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, cnt)

	require.NoError(t, repo.Delete(ctx, c2.ID))
	require.ErrorIs(t, repo.Delete(ctx, c2.ID), storage.ErrNotFound)
	_, err = repo.Get(ctx, c2.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_Comments_CascadeDeletes(t *testing.T) {
	m := newTestMongo(t)
	repo := m.Comments()
	ctx := context.Background()

	for _, in := range []models.CommentCreate{
		{Text: "a", NewsID: 1, AuthorID: 10},
		{Text: "b", NewsID: 1, AuthorID: 11},
		{Text: "c", NewsID: 2, AuthorID: 10},
	} {
		_, err := repo.Create(ctx, in)
		require.NoError(t, err)
	}

	n, err := repo.DeleteByNews(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = repo.DeleteByAuthor(ctx, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	all, err := repo.GetAll(ctx, models.ListParams{Limit: 10})
	require.NoError(t, err)
	require.Empty(t, all)
}
