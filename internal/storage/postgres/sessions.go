package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/storage"
)

const sessionColumns = `id, user_id, token_hash, user_agent, created_at, expires_at`

// Sessions — репозиторий refresh-сессий.
type Sessions struct {
	db *pgxpool.Pool
}

func scanSession(row pgx.Row) (*models.RefreshSession, error) {
	var s models.RefreshSession
	if err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return nil, err
	}

	return &s, nil
}

// Insert сохраняет новую сессию.
func (r *Sessions) Insert(ctx context.Context, s models.RefreshSession) (int64, error) {
	const op = "storage.postgres.Sessions.Insert"

	query := `
		INSERT INTO refresh_sessions(user_id, token_hash, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query, s.UserID, s.TokenHash, s.UserAgent, s.CreatedAt, s.ExpiresAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// FindActive находит живую сессию по хэшу токена.
// Просроченная сессия неотличима от отсутствующей.
func (r *Sessions) FindActive(ctx context.Context, hash string, now time.Time) (*models.RefreshSession, error) {
	const op = "storage.postgres.Sessions.FindActive"

	query := `SELECT ` + sessionColumns + ` FROM refresh_sessions WHERE token_hash = $1 AND expires_at > $2`

	s, err := scanSession(r.db.QueryRow(ctx, query, hash, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// Get находит сессию по id.
func (r *Sessions) Get(ctx context.Context, id int64) (*models.RefreshSession, error) {
	const op = "storage.postgres.Sessions.Get"

	s, err := scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM refresh_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// ListActive возвращает живые сессии пользователя, новые первыми.
func (r *Sessions) ListActive(ctx context.Context, userID int64, now time.Time) ([]models.RefreshSession, error) {
	const op = "storage.postgres.Sessions.ListActive"

	query := `
		SELECT ` + sessionColumns + `
		FROM refresh_sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.RefreshSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// DeleteByHash удаляет сессию по хэшу токена (идемпотентно).
func (r *Sessions) DeleteByHash(ctx context.Context, hash string) error {
	const op = "storage.postgres.Sessions.DeleteByHash"

	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE token_hash = $1`, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteByID удаляет сессию по id (идемпотентно).
func (r *Sessions) DeleteByID(ctx context.Context, id int64) error {
	const op = "storage.postgres.Sessions.DeleteByID"

	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Rotate в одной транзакции забирает живую старую сессию (compare-and-delete)
// и вставляет новую для того же пользователя.
// Из двух конкурентных ротаций одного токена строку удалит только одна:
// вторая дождётся блокировки строки и получит 0 строк -> ErrNotFound.
func (r *Sessions) Rotate(ctx context.Context, oldHash string, now time.Time, next models.RefreshSession) (*models.RefreshSession, error) {
	const op = "storage.postgres.Sessions.Rotate"

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const del = `
		DELETE FROM refresh_sessions
		WHERE token_hash = $1 AND expires_at > $2
		RETURNING user_id
	`

	if err := tx.QueryRow(ctx, del, oldHash, now).Scan(&next.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: delete: %w", op, err)
	}

	const ins = `
		INSERT INTO refresh_sessions(user_id, token_hash, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err = tx.QueryRow(ctx, ins, next.UserID, next.TokenHash, next.UserAgent, next.CreatedAt, next.ExpiresAt).Scan(&next.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return &next, nil
}

// DeleteExpired удаляет все просроченные сессии.
func (r *Sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.Sessions.DeleteExpired"

	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

var _ storage.SessionRepository = (*Sessions)(nil)
