package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/pkg/log"
	"github.com/pribylovaa/news-portal/internal/storage"
	"github.com/pribylovaa/news-portal/internal/token"
)

// TokenVerifier — проверка access-токена (реализует *token.Codec).
type TokenVerifier interface {
	VerifyAccess(tokenStr string, now time.Time) (models.Identity, error)
}

// UserGetter — чтение актуальной записи пользователя.
type UserGetter interface {
	Get(ctx context.Context, id int64) (*models.User, error)
}

// Guard превращает bearer-токен в Identity.
type Guard struct {
	tokens TokenVerifier
	users  UserGetter
	now    func() time.Time
}

// NewGuard создаёт Guard.
func NewGuard(tokens TokenVerifier, users UserGetter) *Guard {
	return &Guard{
		tokens: tokens,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// BearerToken извлекает токен из значения заголовка Authorization.
func BearerToken(header string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(tok)
}

// Authenticate проверяет токен и сверяет его с живой записью пользователя.
// Роли берутся из хранилища, а не из claims: снятые права действуют сразу.
func (g *Guard) Authenticate(ctx context.Context, bearer string) (models.Identity, error) {
	const op = "access.Authenticate"

	lg := log.From(ctx)

	if bearer == "" {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	claims, err := g.tokens.VerifyAccess(bearer, g.now())
	if err != nil {
		reason := "invalid"
		if errors.Is(err, token.ErrTokenExpired) {
			reason = "expired"
		}
		lg.Debug("access_token_rejected",
			slog.String("op", op),
			slog.String("reason", reason),
		)
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	u, err := g.users.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("access_user_gone",
				slog.String("op", op),
				slog.Int64("user_id", claims.ID),
			)
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
		}

		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	return u.Identity(), nil
}
