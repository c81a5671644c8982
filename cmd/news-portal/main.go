package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/cache"
	"github.com/pribylovaa/news-portal/internal/config"
	porthttp "github.com/pribylovaa/news-portal/internal/http"
	"github.com/pribylovaa/news-portal/internal/http/middleware"
	"github.com/pribylovaa/news-portal/internal/pkg/password"
	"github.com/pribylovaa/news-portal/internal/service"
	"github.com/pribylovaa/news-portal/internal/session"
	"github.com/pribylovaa/news-portal/internal/storage"
	"github.com/pribylovaa/news-portal/internal/storage/memory"
	"github.com/pribylovaa/news-portal/internal/storage/minio"
	"github.com/pribylovaa/news-portal/internal/storage/mongo"
	"github.com/pribylovaa/news-portal/internal/storage/postgres"
	"github.com/pribylovaa/news-portal/internal/token"
	"github.com/pribylovaa/news-portal/migrations"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

// repos — выбранные реализации хранилищ и функция их закрытия.
type repos struct {
	users    storage.UserRepository
	news     storage.NewsRepository
	comments storage.CommentRepository
	sessions storage.SessionRepository
	close    func()
}

func main() {
	var (
		configPath string
		migrate    bool
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.BoolVar(&migrate, "migrate", false, "apply database migrations before start")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	if migrate {
		cfg.DB.Migrate = true
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting news-portal", "env", cfg.Env, slog.String("driver", cfg.DB.Driver))

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	st, err := openStorage(rootCtx, cfg, log)
	if err != nil {
		log.Error("storage_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer st.close()

	// Кэш refresh-сессий — опционален, без него всё работает через БД.
	var sessOpts []session.Option
	if cfg.Redis.RedisURL != "" {
		rc, err := cache.NewRedisCache(rootCtx, cfg.Redis.RedisURL, cfg.Redis.Prefix)
		if err != nil {
			log.Warn("redis_unavailable", slog.String("err", err.Error()))
		} else {
			defer func() {
				if cerr := rc.Close(); cerr != nil {
					log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
				}
			}()
			sessOpts = append(sessOpts, session.WithCache(rc))
			log.Info("redis_connected")
		}
	}

	codec, err := token.NewCodec(cfg.Auth)
	if err != nil {
		log.Error("token_codec_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	sessions := session.New(st.sessions, cfg.Auth.RefreshTokenTTL, sessOpts...)

	svc := service.New(service.Deps{
		Users:    st.users,
		News:     st.news,
		Comments: st.comments,
		Sessions: sessions,
		Tokens:   codec,
		Hasher:   password.New(cfg.Password),
	}, cfg)

	if cfg.S3.Endpoint != "" {
		s3Ctx, s3Cancel := context.WithTimeout(rootCtx, 10*time.Second)
		av, err := minio.New(s3Ctx, cfg.S3, cfg.Avatar)
		s3Cancel()
		if err != nil {
			log.Warn("minio_unavailable", slog.String("err", err.Error()))
		} else {
			svc.SetAvatars(av)
			log.Info("minio_connected", slog.String("bucket", cfg.S3.Bucket))
		}
	}
	log.Info("service_initialized")

	if err := svc.EnsureSystemAdmin(rootCtx); err != nil {
		log.Error("system_admin_bootstrap_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	// Фоновая очистка просроченных refresh-сессий.
	startRefreshJanitor(rootCtx, sessions, log, cfg.Janitor.Period)

	apiHandler := porthttp.NewRouter(svc, access.NewGuard(codec, st.users), porthttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Request,
		BasePath: cfg.HTTP.BasePath,
		Metrics:  middleware.NewMetrics(nil),
		OAuth:    cfg.OAuth,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("portal_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownTimeout := cfg.Timeouts.Shutdown
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// openStorage поднимает хранилища по db.driver:
//   - memory — всё в памяти процесса (демо и локальная разработка);
//   - postgres — пользователи, новости и сессии в PostgreSQL, комментарии в MongoDB.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*repos, error) {
	switch cfg.DB.Driver {
	case driverMemory:
		mem := memory.New()
		log.Warn("memory_storage_enabled")
		return &repos{
			users:    mem.Users(),
			news:     mem.News(),
			comments: mem.Comments(),
			sessions: mem.Sessions(),
			close:    func() {},
		}, nil

	case driverPostgres, "":
		if cfg.DB.DatabaseURL == "" {
			return nil, errors.New("db.db_url is required for postgres driver")
		}
		if cfg.Mongo.URL == "" {
			return nil, errors.New("mongo.url is required for postgres driver")
		}

		if cfg.DB.Migrate {
			migCtx, migCancel := context.WithTimeout(ctx, time.Minute)
			err := migrations.Up(migCtx, cfg.DB.DatabaseURL)
			migCancel()
			if err != nil {
				return nil, err
			}
			log.Info("migrations_applied")
		}

		// Подключение к БД c таймаутом.
		dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
		pg, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
		dbCancel()
		if err != nil {
			return nil, err
		}
		log.Info("postgres_connected")

		mCtx, mCancel := context.WithTimeout(ctx, 10*time.Second)
		mg, err := mongo.New(mCtx, cfg.Mongo.URL)
		mCancel()
		if err != nil {
			pg.Close()
			return nil, err
		}
		log.Info("mongo_connected")

		return &repos{
			users:    pg.Users(),
			news:     pg.News(),
			comments: mg.Comments(),
			sessions: pg.Sessions(),
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := mg.Close(closeCtx); err != nil {
					log.Warn("mongo_close_failed", slog.String("err", err.Error()))
				}
				pg.Close()
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// startRefreshJanitor запускает фоновую задачу, которая периодически удаляет
// просроченные refresh-сессии.
func startRefreshJanitor(ctx context.Context, sessions *session.Store, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := sessions.DeleteExpired(ctx)
				if err != nil {
					log.Error("refresh_janitor_failed", slog.String("err", err.Error()))
					continue
				}
				if n > 0 {
					log.Info("refresh_janitor_swept", slog.Int64("deleted", n))
				}
			}
		}
	}()
}
