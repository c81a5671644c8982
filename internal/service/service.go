// service содержит бизнес-логику портала:
// регистрацию/аутентификацию, управление сессиями, пользователей,
// новости, комментарии и администрирование.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования, если таковы переданные хранилища.
//   - Решения о доступе принимает пакет access; Service только вызывает
//     нужную политику перед изменением ресурса.
//   - Ошибки возвращаются сентинелами ниже (или access.*) и маппятся
//     транспортом на HTTP-статусы.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/news-portal/internal/config"
	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/session"
	"github.com/pribylovaa/news-portal/internal/storage"
	"github.com/pribylovaa/news-portal/internal/token"
)

var (
	// ErrInvalidArgument — некорректные входные данные. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmailTaken — e-mail уже занят другим пользователем. HTTP 409.
	ErrEmailTaken = errors.New("email already registered")

	// ErrNotFound — запрошенная сущность не найдена. HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials — неизвестный e-mail или неверный пароль.
	// Оба случая неразличимы для клиента. HTTP 401.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrInvalidToken — refresh-токен неизвестен, просрочен или уже использован. HTTP 401.
	ErrInvalidToken = errors.New("invalid refresh token")

	// ErrUnavailable — опциональная подсистема (хранилище аватаров) не сконфигурирована. HTTP 503.
	ErrUnavailable = errors.New("feature unavailable")
)

// PasswordHasher — хэширование и проверка паролей (см. pkg/password).
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) bool
	NeedsRehash(encoded string) bool
}

// dummyPassword хэшируется в New; Login сверяет с ним пароль, когда
// сравнивать не с чем, чтобы время ответа не выдавало наличие e-mail.
const dummyPassword = "news-portal/no-such-user"

// Deps — зависимости Service.
type Deps struct {
	Users    storage.UserRepository
	News     storage.NewsRepository
	Comments storage.CommentRepository
	Sessions *session.Store
	Tokens   *token.Codec
	Hasher   PasswordHasher
}

// Service описывает бизнес-логику портала.
type Service struct {
	users    storage.UserRepository
	news     storage.NewsRepository
	comments storage.CommentRepository
	sessions *session.Store
	tokens   *token.Codec
	hasher   PasswordHasher
	avatars  storage.Avatars // может быть nil, если MinIO не сконфигурирован

	auth   config.AuthConfig
	admin  config.AdminConfig
	limits config.LimitsConfig

	// dummyHash — хэш dummyPassword с текущими параметрами хэшера.
	dummyHash string

	now func() time.Time
}

// New создаёт новый экземпляр Service.
func New(d Deps, cfg *config.Config) *Service {
	s := &Service{
		users:    d.Users,
		news:     d.News,
		comments: d.Comments,
		sessions: d.Sessions,
		tokens:   d.Tokens,
		hasher:   d.Hasher,
		auth:     cfg.Auth,
		admin:    cfg.Admin,
		limits:   cfg.Limits,
		now:      func() time.Time { return time.Now().UTC() },
	}

	if d.Hasher != nil {
		if h, err := d.Hasher.Hash(dummyPassword); err == nil {
			s.dummyHash = h
		}
	}

	return s
}

// SetAvatars подключает хранилище аватаров (опционально).
func (s *Service) SetAvatars(a storage.Avatars) {
	s.avatars = a
}

// page нормализует параметры страницы: limit по умолчанию и верхняя граница.
func (s *Service) page(p models.ListParams) (models.ListParams, error) {
	if p.Skip < 0 || p.Limit < 0 {
		return p, ErrInvalidArgument
	}

	if p.Limit == 0 {
		p.Limit = s.limits.Default
	}
	if p.Limit > s.limits.Max {
		p.Limit = s.limits.Max
	}

	return p, nil
}

// notFound переводит storage.ErrNotFound в ErrNotFound, остальное оборачивает как есть.
func notFound(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, err)
}
