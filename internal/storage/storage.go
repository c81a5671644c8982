// storage описывает контракты хранилищ портала.
//
// Общий CRUD выражен обобщённым интерфейсом Repository[T, C, U]:
// T — сущность, C — данные для создания, U — частичное обновление.
// Каждая сущность реализует его отдельно (postgres, mongo, memory)
// и при необходимости добавляет свои выборки.
package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/storage.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/news-portal/internal/models"
)

var (
	// ErrNotFound — запись не найдена (или сессия просрочена).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/github_id/хэш refresh-токена).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument — нарушены ограничения запроса к хранилищу (тип/размер аватара).
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository — общий CRUD по целочисленному id.
type Repository[T any, C any, U any] interface {
	// Get возвращает сущность или ErrNotFound.
	Get(ctx context.Context, id int64) (*T, error)
	// GetAll возвращает страницу в порядке id.
	GetAll(ctx context.Context, p models.ListParams) ([]T, error)
	// Create сохраняет сущность; nil-поля C не попадают в запись.
	Create(ctx context.Context, in C) (*T, error)
	// Update применяет только заданные поля U; ErrNotFound, если записи нет.
	Update(ctx context.Context, id int64, in U) (*T, error)
	// Delete удаляет запись; ErrNotFound, если записи нет.
	Delete(ctx context.Context, id int64) error
}

// UserRepository — пользователи.
type UserRepository interface {
	Repository[models.User, models.UserCreate, models.UserUpdate]
	// ByEmail ищет по e-mail (ожидается в нижнем регистре).
	ByEmail(ctx context.Context, email string) (*models.User, error)
	// ByGitHubID ищет по привязанному GitHub-аккаунту.
	ByGitHubID(ctx context.Context, githubID string) (*models.User, error)
	// Counts возвращает агрегаты для админской статистики.
	Counts(ctx context.Context) (models.UserCounts, error)
}

// NewsRepository — новости.
type NewsRepository interface {
	Repository[models.News, models.NewsCreate, models.NewsUpdate]
	ByAuthor(ctx context.Context, authorID int64, p models.ListParams) ([]models.News, error)
	Count(ctx context.Context) (int64, error)
}

// CommentRepository — комментарии.
type CommentRepository interface {
	Repository[models.Comment, models.CommentCreate, models.CommentUpdate]
	ByNews(ctx context.Context, newsID int64, p models.ListParams) ([]models.Comment, error)
	// DeleteByNews удаляет все комментарии новости (каскад при удалении новости).
	DeleteByNews(ctx context.Context, newsID int64) (int64, error)
	// DeleteByAuthor удаляет все комментарии пользователя (каскад при удалении пользователя).
	DeleteByAuthor(ctx context.Context, authorID int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// SessionRepository — refresh-сессии. Ключ поиска — хэш токена.
type SessionRepository interface {
	// Insert сохраняет сессию и возвращает её id; ErrAlreadyExists при коллизии хэша.
	Insert(ctx context.Context, s models.RefreshSession) (int64, error)
	// FindActive ищет сессию по хэшу, у которой expires_at > now.
	FindActive(ctx context.Context, hash string, now time.Time) (*models.RefreshSession, error)
	// Get ищет сессию по id (без фильтра по сроку).
	Get(ctx context.Context, id int64) (*models.RefreshSession, error)
	// ListActive возвращает живые сессии пользователя, новые первыми.
	ListActive(ctx context.Context, userID int64, now time.Time) ([]models.RefreshSession, error)
	// DeleteByHash удаляет сессию; отсутствие записи ошибкой не считается.
	DeleteByHash(ctx context.Context, hash string) error
	// DeleteByID удаляет сессию по id; отсутствие записи ошибкой не считается.
	DeleteByID(ctx context.Context, id int64) error
	// Rotate атомарно удаляет живую сессию oldHash и сохраняет next от имени того же пользователя.
	// ErrNotFound — старой живой сессии нет (или её уже забрал конкурентный запрос);
	// ErrAlreadyExists — коллизия хэша next, старая сессия при этом не тронута.
	Rotate(ctx context.Context, oldHash string, now time.Time, next models.RefreshSession) (*models.RefreshSession, error)
	// DeleteExpired удаляет просроченные сессии и возвращает их число.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// UploadInfo — данные для presigned PUT загрузки аватара.
type UploadInfo struct {
	UploadURL      string            `json:"upload_url"`
	AvatarKey      string            `json:"avatar_key"`
	Expires        time.Duration     `json:"expires"`
	RequiredHeader map[string]string `json:"required_headers"`
}

// Avatars — выдача presigned URL и подтверждение загрузки.
type Avatars interface {
	AvatarUploadURL(ctx context.Context, userID int64, contentType string, contentLength int64) (*UploadInfo, error)
	// CheckAvatarUpload проверяет наличие/тип/размер объекта и возвращает публичный URL.
	CheckAvatarUpload(ctx context.Context, userID int64, key string) (string, error)
}
