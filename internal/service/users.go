package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/storage"
)

// ProfileUpdate — изменения, которые пользователь может внести в свой профиль.
type ProfileUpdate struct {
	Name   *string
	Avatar *string
}

// ListUsers — страница пользователей.
func (s *Service) ListUsers(ctx context.Context, p models.ListParams) ([]models.User, error) {
	const op = "service.users.ListUsers"

	p, err := s.page(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	list, err := s.users.GetAll(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// GetUser — пользователь по id.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "service.users.GetUser"

	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, notFound(op, err)
	}

	return u, nil
}

// UpdateProfile меняет имя/аватар: владелец профиля или администратор.
func (s *Service) UpdateProfile(ctx context.Context, id models.Identity, userID int64, in ProfileUpdate) (*models.User, error) {
	const op = "service.users.UpdateProfile"

	upd := models.UserUpdate{Avatar: in.Avatar}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		upd.Name = &name
	}

	target, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, notFound(op, err)
	}

	if err := access.OwnerOrAdmin(id, *target); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if upd.Empty() {
		return target, nil
	}

	u, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		return nil, notFound(op, err)
	}

	return u, nil
}

// AvatarUploadURL выдаёт presigned URL для загрузки аватара пользователя userID.
func (s *Service) AvatarUploadURL(ctx context.Context, id models.Identity, userID int64, contentType string, size int64) (*storage.UploadInfo, error) {
	const op = "service.users.AvatarUploadURL"

	if s.avatars == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	if err := access.OwnerOrAdmin(id, models.User{ID: userID}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info, err := s.avatars.AvatarUploadURL(ctx, userID, contentType, size)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return info, nil
}

// ConfirmAvatar проверяет загруженный объект и записывает его URL в профиль.
func (s *Service) ConfirmAvatar(ctx context.Context, id models.Identity, userID int64, key string) (*models.User, error) {
	const op = "service.users.ConfirmAvatar"

	if s.avatars == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	if err := access.OwnerOrAdmin(id, models.User{ID: userID}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.avatars.CheckAvatarUpload(ctx, userID, key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidArgument):
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.Update(ctx, userID, models.UserUpdate{Avatar: &url})
	if err != nil {
		return nil, notFound(op, err)
	}

	return u, nil
}
