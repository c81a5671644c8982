package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/pkg/log"
	"github.com/pribylovaa/news-portal/internal/pkg/redact"
	"github.com/pribylovaa/news-portal/internal/storage"
)

// Демонстрационный GitHub-провайдер: реального обмена кода на токен нет,
// любой код с префиксом demoCodePrefix превращается в фиксированный профиль.
const (
	demoCodePrefix = "demo_"
	demoGitHubID   = "github_12345"
	demoAvatarURL  = "https://avatars.githubusercontent.com/u/583231?v=4"
)

// GitHubProfile — профиль, полученный от провайдера.
type GitHubProfile struct {
	ID     string
	Email  string
	Name   string
	Avatar string
}

// NewOAuthState возвращает случайный state для демонстрационного редиректа.
func NewOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DemoCode — код авторизации, который принимает GitHubLogin.
func DemoCode(state string) string { return demoCodePrefix + state }

// exchangeCode имитирует обмен кода на профиль GitHub.
func exchangeCode(code string) (GitHubProfile, error) {
	if !strings.HasPrefix(code, demoCodePrefix) || len(code) == len(demoCodePrefix) {
		return GitHubProfile{}, ErrInvalidArgument
	}

	emailTag := make([]byte, 8)
	nameTag := make([]byte, 4)
	if _, err := rand.Read(emailTag); err != nil {
		return GitHubProfile{}, err
	}
	if _, err := rand.Read(nameTag); err != nil {
		return GitHubProfile{}, err
	}

	return GitHubProfile{
		ID:     demoGitHubID,
		Email:  "github_user_" + hex.EncodeToString(emailTag) + "@example.com",
		Name:   "GitHub User " + hex.EncodeToString(nameTag),
		Avatar: demoAvatarURL,
	}, nil
}

// GitHubLogin — вход через (демонстрационный) GitHub.
//
// Пользователь ищется по github_id, затем по e-mail (к найденной учётке
// привязывается github_id, пустой аватар заполняется из профиля).
// Если никого нет, создаётся подтверждённый пользователь без пароля.
func (s *Service) GitHubLogin(ctx context.Context, code, userAgent string) (*models.AuthResult, error) {
	const op = "service.oauth.GitHubLogin"

	lg := log.From(ctx)

	prof, err := exchangeCode(code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.ByGitHubID(ctx, prof.ID)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		u, err = s.linkOrCreate(ctx, prof)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("oauth_login",
		slog.String("provider", "github"),
		slog.Int64("user_id", u.ID),
		slog.String("email", redact.Email(u.Email)),
	)

	return s.issue(ctx, u, userAgent)
}

func (s *Service) linkOrCreate(ctx context.Context, prof GitHubProfile) (*models.User, error) {
	const op = "service.oauth.linkOrCreate"

	email := strings.ToLower(prof.Email)

	u, err := s.users.ByEmail(ctx, email)
	if err == nil {
		upd := models.UserUpdate{GitHubID: &prof.ID}
		if u.Avatar == nil || *u.Avatar == "" {
			upd.Avatar = &prof.Avatar
		}

		linked, err := s.users.Update(ctx, u.ID, upd)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return linked, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.users.Create(ctx, models.UserCreate{
		Name:       prof.Name,
		Email:      email,
		GitHubID:   &prof.ID,
		Avatar:     &prof.Avatar,
		IsVerified: true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}
