package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/storage"
)

const newsColumns = `id, title, content, cover, author_id, created_at, updated_at`

// News — репозиторий новостей. content хранится в JSONB.
type News struct {
	db *pgxpool.Pool
}

func scanNews(row pgx.Row) (*models.News, error) {
	var n models.News
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Content,
		&n.Cover,
		&n.AuthorID,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if n.Content == nil {
		n.Content = map[string]any{}
	}

	return &n, nil
}

func collectNews(rows pgx.Rows, capacity int) ([]models.News, error) {
	defer rows.Close()

	out := make([]models.News, 0, capacity)
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}

	return out, rows.Err()
}

// Get находит новость по ID.
func (r *News) Get(ctx context.Context, id int64) (*models.News, error) {
	const op = "storage.postgres.News.Get"

	n, err := scanNews(r.db.QueryRow(ctx, `SELECT `+newsColumns+` FROM news WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// GetAll возвращает страницу новостей, новые первыми.
func (r *News) GetAll(ctx context.Context, p models.ListParams) ([]models.News, error) {
	const op = "storage.postgres.News.GetAll"

	rows, err := r.db.Query(ctx,
		`SELECT `+newsColumns+` FROM news ORDER BY created_at DESC, id DESC OFFSET $1 LIMIT $2`,
		p.Skip, p.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := collectNews(rows, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ByAuthor возвращает новости автора, новые первыми.
func (r *News) ByAuthor(ctx context.Context, authorID int64, p models.ListParams) ([]models.News, error) {
	const op = "storage.postgres.News.ByAuthor"

	rows, err := r.db.Query(ctx,
		`SELECT `+newsColumns+` FROM news WHERE author_id = $1 ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3`,
		authorID, p.Skip, p.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := collectNews(rows, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Create сохраняет новость; cover передаётся только если задан.
func (r *News) Create(ctx context.Context, in models.NewsCreate) (*models.News, error) {
	const op = "storage.postgres.News.Create"

	content := in.Content
	if content == nil {
		content = map[string]any{}
	}

	var f fields
	f.add("title", in.Title)
	f.add("content", content)
	if in.Cover != nil {
		f.add("cover", *in.Cover)
	}
	f.add("author_id", in.AuthorID)

	n, err := scanNews(r.db.QueryRow(ctx, `INSERT INTO news `+f.insert()+` RETURNING `+newsColumns, f.args...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// Update применяет только заданные поля.
func (r *News) Update(ctx context.Context, id int64, in models.NewsUpdate) (*models.News, error) {
	const op = "storage.postgres.News.Update"

	if in.Empty() {
		return r.Get(ctx, id)
	}

	var f fields
	if in.Title != nil {
		f.add("title", *in.Title)
	}
	if in.Content != nil {
		f.add("content", in.Content)
	}
	if in.Cover != nil {
		f.add("cover", *in.Cover)
	}

	query := `UPDATE news SET ` + f.set() + `, updated_at = now() WHERE id = ` + f.next() + ` RETURNING ` + newsColumns

	n, err := scanNews(r.db.QueryRow(ctx, query, append(f.args, id)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// Delete удаляет новость.
func (r *News) Delete(ctx context.Context, id int64) error {
	const op = "storage.postgres.News.Delete"

	tag, err := r.db.Exec(ctx, `DELETE FROM news WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// Count — общее число новостей.
func (r *News) Count(ctx context.Context) (int64, error) {
	const op = "storage.postgres.News.Count"

	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM news`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

var _ storage.NewsRepository = (*News)(nil)
