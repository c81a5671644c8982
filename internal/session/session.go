// session управляет refresh-сессиями: выпуск, поиск, ротация, отзыв.
//
// Refresh-токен — 64 случайных байта в base64url. В хранилище и кэше
// лежит только base64url(sha256(token)); сам токен возвращается
// клиенту один раз, в момент выпуска.
//
// Просроченная сессия неотличима от отсутствующей: FindActive и Rotate
// отвечают ErrSessionNotFound в обоих случаях.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/news-portal/internal/cache"
	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/pkg/log"
	"github.com/pribylovaa/news-portal/internal/pkg/redact"
	"github.com/pribylovaa/news-portal/internal/storage"
)

var (
	// ErrSessionNotFound — сессии нет или она просрочена.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenCollision — исчерпаны попытки выпустить уникальный токен.
	ErrTokenCollision = errors.New("refresh token collision")
)

const (
	tokenBytes      = 64
	maxAttempts     = 5
	defaultTTL      = 7 * 24 * time.Hour
	maxUserAgentLen = 512
)

// Store — хранилище сессий поверх SessionRepository с опциональным кэшем.
// Безопасен для конкурентного использования, если таковы repo и cache.
type Store struct {
	repo  storage.SessionRepository
	cache cache.SessionCache // может быть nil
	ttl   time.Duration
	now   func() time.Time
}

// Option настраивает Store.
type Option func(*Store)

// WithCache подключает кэш сессий.
func WithCache(c cache.SessionCache) Option {
	return func(s *Store) { s.cache = c }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New создаёт Store. ttl <= 0 заменяется на 7 суток.
func New(repo storage.SessionRepository, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	s := &Store{
		repo: repo,
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now — текущее время по часам Store.
func (s *Store) Now() time.Time { return s.now() }

// HashToken возвращает base64url(sha256(token)).
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func trimUserAgent(ua string) string {
	if len(ua) > maxUserAgentLen {
		return ua[:maxUserAgentLen]
	}

	return ua
}

func (s *Store) draft(userID int64, userAgent string) (models.RefreshSession, error) {
	plain, err := newToken()
	if err != nil {
		return models.RefreshSession{}, err
	}

	now := s.now()

	return models.RefreshSession{
		UserID:       userID,
		TokenHash:    HashToken(plain),
		RefreshToken: plain,
		UserAgent:    trimUserAgent(userAgent),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}, nil
}

// Create выпускает новую сессию пользователя. При редкой коллизии хэша
// токен генерируется заново (до maxAttempts раз).
func (s *Store) Create(ctx context.Context, userID int64, userAgent string) (*models.RefreshSession, error) {
	const op = "session.Create"

	lg := log.From(ctx)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		sess, err := s.draft(userID, userAgent)
		if err != nil {
			lg.Error("refresh_rand_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		id, err := s.repo.Insert(ctx, sess)
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия — пробуем сгенерировать заново.
				continue
			}

			lg.Error("session_insert_failed",
				slog.String("op", op),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		sess.ID = id
		s.remember(ctx, &sess)

		return &sess, nil
	}

	lg.Error("refresh_collision_exceeded",
		slog.String("op", op),
		slog.Int64("user_id", userID),
	)

	return nil, fmt.Errorf("%s: %w", op, ErrTokenCollision)
}

// FindActive возвращает живую сессию по токену.
func (s *Store) FindActive(ctx context.Context, token string) (*models.RefreshSession, error) {
	const op = "session.FindActive"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}

	hash := HashToken(token)
	now := s.now()

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, hash)
		switch {
		case err != nil:
			log.From(ctx).Warn("session_cache_get_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		case ok && cached.Active(now):
			return cached, nil
		}
	}

	sess, err := s.repo.FindActive(ctx, hash, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.remember(ctx, sess)

	return sess, nil
}

// Delete удаляет сессию по токену. Отсутствие сессии — не ошибка.
func (s *Store) Delete(ctx context.Context, token string) error {
	const op = "session.Delete"

	if token == "" {
		return nil
	}

	hash := HashToken(token)
	s.forget(ctx, hash)

	if err := s.repo.DeleteByHash(ctx, hash); err != nil {
		log.From(ctx).Error("session_delete_failed",
			slog.String("op", op),
			slog.String("token", redact.Token(token)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Rotate атомарно заменяет живую сессию token новой от имени того же пользователя.
// Из нескольких конкурентных вызовов с одним токеном успешен ровно один,
// остальные получают ErrSessionNotFound.
func (s *Store) Rotate(ctx context.Context, token, userAgent string) (*models.RefreshSession, error) {
	const op = "session.Rotate"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}

	lg := log.From(ctx)
	oldHash := HashToken(token)

	// Кэш сбрасывается до ротации, иначе старый токен ещё какое-то время
	// находился бы через FindActive.
	s.forget(ctx, oldHash)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		next, err := s.draft(0, userAgent)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		sess, err := s.repo.Rotate(ctx, oldHash, s.now(), next)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrAlreadyExists):
				continue
			case errors.Is(err, storage.ErrNotFound):
				return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
			}

			lg.Error("session_rotate_failed",
				slog.String("op", op),
				slog.String("token", redact.Token(token)),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		sess.RefreshToken = next.RefreshToken
		s.remember(ctx, sess)

		return sess, nil
	}

	lg.Error("refresh_collision_exceeded",
		slog.String("op", op),
	)

	return nil, fmt.Errorf("%s: %w", op, ErrTokenCollision)
}

// ListActive — живые сессии пользователя, новые первыми.
func (s *Store) ListActive(ctx context.Context, userID int64) ([]models.RefreshSession, error) {
	const op = "session.ListActive"

	list, err := s.repo.ListActive(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// Revoke удаляет сессию id, если allow её разрешает.
// Отсутствующая сессия — ErrSessionNotFound; ошибка allow возвращается как есть.
func (s *Store) Revoke(ctx context.Context, id int64, allow func(models.RefreshSession) error) error {
	const op = "session.Revoke"

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if allow != nil {
		if err := allow(*sess); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.forget(ctx, sess.TokenHash)

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpired удаляет просроченные сессии (фоновая очистка).
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	const op = "session.DeleteExpired"

	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// remember кладёт сессию в кэш; ошибки кэша только логируются.
func (s *Store) remember(ctx context.Context, sess *models.RefreshSession) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, sess, sess.ExpiresAt.Sub(s.now())); err != nil {
		log.From(ctx).Warn("session_cache_set_failed",
			slog.String("op", "session.remember"),
			slog.String("err", err.Error()),
		)
	}
}

func (s *Store) forget(ctx context.Context, hash string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, hash); err != nil {
		log.From(ctx).Warn("session_cache_delete_failed",
			slog.String("op", "session.forget"),
			slog.String("err", err.Error()),
		)
	}
}
