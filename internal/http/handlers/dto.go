package handlers

import (
	"time"

	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/storage"
)

// Входные/выходные модели REST.

type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Email    string  `json:"email" validate:"required,max=254"`
	Password string  `json:"password" validate:"required,max=256"`
	Avatar   *string `json:"avatar,omitempty" validate:"omitempty,max=2048"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserResponse struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Avatar     *string    `json:"avatar"`
	IsVerified bool       `json:"is_verified"`
	IsAdmin    bool       `json:"is_admin"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// TokenResponse — пара токенов; моменты истечения в Unix UTC.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	AccessExpiresAt  int64  `json:"access_expires_at"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}

type AuthResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

type SessionResponse struct {
	ID        int64     `json:"id"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CheckAdminResponse struct {
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsAdmin    bool   `json:"is_admin"`
	IsVerified bool   `json:"is_verified"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Avatar *string `json:"avatar,omitempty" validate:"omitempty,max=2048"`
}

type AvatarPresignRequest struct {
	ContentType   string `json:"content_type" validate:"required"`
	ContentLength int64  `json:"content_length" validate:"gt=0"`
}

type AvatarConfirmRequest struct {
	AvatarKey string `json:"avatar_key" validate:"required"`
}

type AvatarPresignResponse struct {
	UploadURL       string            `json:"upload_url"`
	AvatarKey       string            `json:"avatar_key"`
	ExpiresSeconds  int64             `json:"expires_seconds"`
	RequiredHeaders map[string]string `json:"required_headers,omitempty"`
}

// NewsRequest используется и для создания, и для PUT-обновления:
// отсутствующее поле при обновлении не меняется.
type NewsRequest struct {
	Title   *string        `json:"title,omitempty"`
	Content map[string]any `json:"content,omitempty"`
	Cover   *string        `json:"cover,omitempty" validate:"omitempty,max=2048"`
}

type NewsResponse struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Content   map[string]any `json:"content"`
	Cover     *string        `json:"cover"`
	AuthorID  int64          `json:"author_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

type CommentResponse struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	NewsID    int64      `json:"news_id"`
	AuthorID  int64      `json:"author_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type UserFlagsRequest struct {
	IsVerified *bool `json:"is_verified,omitempty"`
	IsAdmin    *bool `json:"is_admin,omitempty"`
}

func userFromModel(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Avatar:     u.Avatar,
		IsVerified: u.IsVerified,
		IsAdmin:    u.IsAdmin,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func usersFromModel(list []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(list))
	for i := range list {
		out = append(out, userFromModel(&list[i]))
	}
	return out
}

func tokensFromModel(p models.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        "bearer",
		AccessExpiresAt:  p.AccessExpiresAt.Unix(),
		RefreshExpiresAt: p.RefreshExpiresAt.Unix(),
	}
}

func authFromModel(res *models.AuthResult) AuthResponse {
	return AuthResponse{
		User:   userFromModel(res.User),
		Tokens: tokensFromModel(res.Tokens),
	}
}

func sessionsFromModel(list []models.RefreshSession) []SessionResponse {
	out := make([]SessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, SessionResponse{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	return out
}

func presignFromModel(info *storage.UploadInfo) AvatarPresignResponse {
	return AvatarPresignResponse{
		UploadURL:       info.UploadURL,
		AvatarKey:       info.AvatarKey,
		ExpiresSeconds:  int64(info.Expires.Seconds()),
		RequiredHeaders: info.RequiredHeader,
	}
}

func newsFromModel(n *models.News) NewsResponse {
	content := n.Content
	if content == nil {
		content = map[string]any{}
	}

	return NewsResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   content,
		Cover:     n.Cover,
		AuthorID:  n.AuthorID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func newsListFromModel(list []models.News) []NewsResponse {
	out := make([]NewsResponse, 0, len(list))
	for i := range list {
		out = append(out, newsFromModel(&list[i]))
	}
	return out
}

func commentFromModel(c *models.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		Text:      c.Text,
		NewsID:    c.NewsID,
		AuthorID:  c.AuthorID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func commentsFromModel(list []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(list))
	for i := range list {
		out = append(out, commentFromModel(&list[i]))
	}
	return out
}
