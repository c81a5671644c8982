package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/news-portal/internal/config"
	"github.com/pribylovaa/news-portal/internal/http/handlers"
	"github.com/pribylovaa/news-portal/internal/http/middleware"
	"github.com/pribylovaa/news-portal/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string              // например, "/api"; если пустой — роуты регистрируются на корне.
	Metrics  *middleware.Metrics // nil — без метрик.
	OAuth    config.OAuthConfig
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// auth превращает bearer-токен в Identity для защищённых групп.
func NewRouter(svc *service.Service, auth middleware.Authenticator, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Metrics != nil {
		root.Use(opts.Metrics.Middleware())
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc, opts.OAuth)
	requireAuth := middleware.RequireAuth(auth)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, requireAuth)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, requireAuth)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, requireAuth middleware.Middleware) {
	// public
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)

	r.Get("/auth/oauth/github/login", h.GitHubLogin)
	r.Get("/auth/oauth/github/demo", h.GitHubDemo)
	r.Get("/auth/oauth/github/callback", h.GitHubCallback)

	r.Get("/users", h.ListUsers)
	r.Get("/users/{id}", h.GetUser)

	r.Get("/news", h.ListNews)
	r.Get("/news/author/{author_id}", h.NewsByAuthor)
	r.Get("/news/{id}", h.GetNews)
	r.Get("/news/{id}/comments", h.CommentsByNews)

	r.Get("/comments", h.ListComments)
	r.Get("/comments/{id}", h.GetComment)

	// authenticated; права на конкретный ресурс проверяет сервис.
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/auth/check", h.Check)
		r.Get("/auth/sessions", h.Sessions)
		r.Delete("/auth/sessions/{id}", h.RevokeSession)
		r.Get("/auth/check-admin/{user_id}", h.CheckAdmin)

		r.Patch("/users/{id}", h.UpdateProfile)
		r.Post("/users/{id}/avatar/presign", h.AvatarPresign)
		r.Post("/users/{id}/avatar/confirm", h.AvatarConfirm)

		r.Post("/news", h.CreateNews)
		r.Put("/news/{id}", h.UpdateNews)
		r.Delete("/news/{id}", h.DeleteNews)
		r.Post("/news/{id}/comments", h.CreateComment)

		r.Put("/comments/{id}", h.UpdateComment)
		r.Delete("/comments/{id}", h.DeleteComment)

		r.Get("/admin/stats", h.Stats)
		r.Patch("/admin/users/{id}", h.SetUserFlags)
		r.Post("/admin/users/{id}/make-admin", h.MakeAdmin)
		r.Delete("/admin/users/{id}", h.DeleteUser)
	})
}
