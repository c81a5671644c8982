package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/news-portal/internal/access"
	apierrors "github.com/pribylovaa/news-portal/internal/http/errors"
	"github.com/pribylovaa/news-portal/internal/models"
	logctx "github.com/pribylovaa/news-portal/internal/pkg/log"
)

// Authenticator превращает bearer-токен в Identity (реализует *access.Guard).
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (models.Identity, error)
}

// RequireAuth пускает дальше только аутентифицированные запросы.
// Identity кладётся в контекст, логгер обогащается user_id.
func RequireAuth(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := access.BearerToken(r.Header.Get("Authorization"))

			id, err := a.Authenticate(r.Context(), bearer)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxIdentity, id)
			ctx = logctx.With(ctx, slog.Int64("user_id", id.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom достаёт Identity, положенную RequireAuth.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(models.Identity)
	return id, ok
}
