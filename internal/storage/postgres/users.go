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

const userColumns = `id, name, email, password_hash, github_id, avatar, is_verified, is_admin, created_at, updated_at`

// Users — репозиторий пользователей.
type Users struct {
	db *pgxpool.Pool
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.GitHubID,
		&u.Avatar,
		&u.IsVerified,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *Users) one(ctx context.Context, op, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// Get находит пользователя по ID.
func (r *Users) Get(ctx context.Context, id int64) (*models.User, error) {
	return r.one(ctx, "storage.postgres.Users.Get", "id = $1", id)
}

// ByEmail находит пользователя по email.
func (r *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.one(ctx, "storage.postgres.Users.ByEmail", "email = $1", email)
}

// ByGitHubID находит пользователя по привязанному GitHub-аккаунту.
func (r *Users) ByGitHubID(ctx context.Context, githubID string) (*models.User, error) {
	return r.one(ctx, "storage.postgres.Users.ByGitHubID", "github_id = $1", githubID)
}

// GetAll возвращает страницу пользователей в порядке id.
func (r *Users) GetAll(ctx context.Context, p models.ListParams) ([]models.User, error) {
	const op = "storage.postgres.Users.GetAll"

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, p.Skip, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.User, 0, p.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Create сохраняет пользователя. Незаданные опциональные поля не передаются,
// и для них срабатывают значения по умолчанию схемы.
func (r *Users) Create(ctx context.Context, in models.UserCreate) (*models.User, error) {
	const op = "storage.postgres.Users.Create"

	var f fields
	f.add("name", in.Name)
	f.add("email", in.Email)
	if in.PasswordHash != nil {
		f.add("password_hash", *in.PasswordHash)
	}
	if in.GitHubID != nil {
		f.add("github_id", *in.GitHubID)
	}
	if in.Avatar != nil {
		f.add("avatar", *in.Avatar)
	}
	f.add("is_verified", in.IsVerified)
	f.add("is_admin", in.IsAdmin)

	query := `INSERT INTO users ` + f.insert() + ` RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, f.args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// Update применяет только заданные поля и выставляет updated_at.
func (r *Users) Update(ctx context.Context, id int64, in models.UserUpdate) (*models.User, error) {
	const op = "storage.postgres.Users.Update"

	if in.Empty() {
		return r.Get(ctx, id)
	}

	var f fields
	if in.Name != nil {
		f.add("name", *in.Name)
	}
	if in.Avatar != nil {
		f.add("avatar", *in.Avatar)
	}
	if in.GitHubID != nil {
		f.add("github_id", *in.GitHubID)
	}
	if in.PasswordHash != nil {
		f.add("password_hash", *in.PasswordHash)
	}
	if in.IsVerified != nil {
		f.add("is_verified", *in.IsVerified)
	}
	if in.IsAdmin != nil {
		f.add("is_admin", *in.IsAdmin)
	}

	query := `UPDATE users SET ` + f.set() + `, updated_at = now() WHERE id = ` + f.next() +
		` RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, append(f.args, id)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// Delete удаляет пользователя; сессии и новости удаляются каскадом (FK).
func (r *Users) Delete(ctx context.Context, id int64) error {
	const op = "storage.postgres.Users.Delete"

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// Counts считает всех пользователей, админов и верифицированных одним запросом.
func (r *Users) Counts(ctx context.Context) (models.UserCounts, error) {
	const op = "storage.postgres.Users.Counts"

	query := `
		SELECT count(*),
		       count(*) FILTER (WHERE is_admin),
		       count(*) FILTER (WHERE is_verified)
		FROM users
	`

	var c models.UserCounts
	if err := r.db.QueryRow(ctx, query).Scan(&c.Total, &c.Admins, &c.Verified); err != nil {
		return models.UserCounts{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// Проверка на соответствие интерфейсу.
var _ storage.UserRepository = (*Users)(nil)
