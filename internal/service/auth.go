package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/pkg/log"
	"github.com/pribylovaa/news-portal/internal/pkg/redact"
	"github.com/pribylovaa/news-portal/internal/session"
	"github.com/pribylovaa/news-portal/internal/storage"
)

// RegisterInput — данные регистрации.
type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	Avatar    *string
	UserAgent string
}

// Register создаёт пользователя и сразу выдаёт ему пару токенов.
//
// Если пользователь записан, а сессию создать не удалось, запись
// пользователя остаётся: ошибка возвращается, клиент входит позже.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.AuthResult, error) {
	const op = "service.auth.Register"

	lg := log.From(ctx)

	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.users.ByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.Create(ctx, models.UserCreate{
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		Avatar:       trimOptional(in.Avatar),
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.issue(ctx, u, in.UserAgent)
	if err != nil {
		lg.Error("register_session_failed",
			slog.String("op", op),
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.Int64("user_id", u.ID),
		slog.String("email", redact.Email(email)),
	)

	return res, nil
}

// Login — вход по e-mail и паролю. Любая неудача даёт ErrInvalidCredentials.
// Устаревший хэш пароля после успешного входа пересчитывается.
func (s *Service) Login(ctx context.Context, email, pw, userAgent string) (*models.AuthResult, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	norm, err := normalizeEmail(email)
	if err != nil || pw == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	u, err := s.users.ByEmail(ctx, norm)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Verify(pw, s.dummyHash)
			lg.Info("login_failed",
				slog.String("email", redact.Email(norm)),
				slog.String("reason", "unknown_email"),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if u.PasswordHash == nil {
		// Учётка только через OAuth: проверка идёт по заглушке, как для неизвестного e-mail.
		s.hasher.Verify(pw, s.dummyHash)
		lg.Info("login_failed",
			slog.Int64("user_id", u.ID),
			slog.String("reason", "no_password"),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !s.hasher.Verify(pw, *u.PasswordHash) {
		lg.Info("login_failed",
			slog.Int64("user_id", u.ID),
			slog.String("reason", "bad_password"),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if s.hasher.NeedsRehash(*u.PasswordHash) {
		s.rehash(ctx, u.ID, pw)
	}

	return s.issue(ctx, u, userAgent)
}

// Refresh меняет refresh-токен на новый и выдаёт свежий access-токен.
// Старый токен после этого мёртв; из конкурентных вызовов успешен один.
func (s *Service) Refresh(ctx context.Context, refreshToken, userAgent string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx)

	sess, err := s.sessions.FindActive(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	next, err := s.sessions.Rotate(ctx, refreshToken, userAgent)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			lg.Warn("refresh_rotate_lost",
				slog.String("op", op),
				slog.Int64("user_id", u.ID),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	at, exp, err := s.tokens.IssueAccess(u.Identity(), s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      at,
		RefreshToken:     next.RefreshToken,
		AccessExpiresAt:  exp,
		RefreshExpiresAt: next.ExpiresAt,
	}, nil
}

// Logout удаляет сессию. Повторный вызов и неизвестный токен — не ошибка.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	const op = "service.auth.Logout"

	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Me возвращает актуальную запись аутентифицированного пользователя.
func (s *Service) Me(ctx context.Context, id models.Identity) (*models.User, error) {
	const op = "service.auth.Me"

	u, err := s.users.Get(ctx, id.ID)
	if err != nil {
		return nil, notFound(op, err)
	}

	return u, nil
}

// Sessions — живые сессии пользователя.
func (s *Service) Sessions(ctx context.Context, id models.Identity) ([]models.RefreshSession, error) {
	const op = "service.auth.Sessions"

	list, err := s.sessions.ListActive(ctx, id.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// RevokeSession удаляет сессию по id: владелец или администратор.
func (s *Service) RevokeSession(ctx context.Context, id models.Identity, sessionID int64) error {
	const op = "service.auth.RevokeSession"

	err := s.sessions.Revoke(ctx, sessionID, func(rs models.RefreshSession) error {
		return access.OwnerOrAdmin(id, rs)
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// issue выпускает access-токен и новую сессию для пользователя.
func (s *Service) issue(ctx context.Context, u *models.User, userAgent string) (*models.AuthResult, error) {
	const op = "service.auth.issue"

	at, exp, err := s.tokens.IssueAccess(u.Identity(), s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.sessions.Create(ctx, u.ID, userAgent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AuthResult{
		User: u,
		Tokens: models.TokenPair{
			AccessToken:      at,
			RefreshToken:     sess.RefreshToken,
			AccessExpiresAt:  exp,
			RefreshExpiresAt: sess.ExpiresAt,
		},
		Session: sess,
	}, nil
}

// rehash пересчитывает хэш пароля с текущими параметрами; ошибки только логируются.
func (s *Service) rehash(ctx context.Context, userID int64, pw string) {
	const op = "service.auth.rehash"

	lg := log.From(ctx)

	hash, err := s.hasher.Hash(pw)
	if err == nil {
		_, err = s.users.Update(ctx, userID, models.UserUpdate{PasswordHash: &hash})
	}

	if err != nil {
		lg.Warn("password_rehash_failed",
			slog.String("op", op),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return
	}

	lg.Info("password_rehashed", slog.Int64("user_id", userID))
}

// normalizeEmail обрезает пробелы, проверяет формат и приводит к нижнему регистру.
func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrInvalidArgument
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidArgument
	}

	return strings.ToLower(email), nil
}

func trimOptional(p *string) *string {
	if p == nil {
		return nil
	}

	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}

	return &v
}
