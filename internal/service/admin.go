package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/pkg/log"
	"github.com/pribylovaa/news-portal/internal/pkg/redact"
	"github.com/pribylovaa/news-portal/internal/storage"
)

// UserFlags — изменения ролей пользователя администратором.
type UserFlags struct {
	IsVerified *bool
	IsAdmin    *bool
}

// Stats — сводная статистика портала.
func (s *Service) Stats(ctx context.Context, id models.Identity) (*models.AdminStats, error) {
	const op = "service.admin.Stats"

	if err := access.AdminOnly(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uc, err := s.users.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	news, err := s.news.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	comments, err := s.comments.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AdminStats{
		TotalUsers:    uc.Total,
		TotalNews:     news,
		TotalComments: comments,
		AdminUsers:    uc.Admins,
		VerifiedUsers: uc.Verified,
		RegularUsers:  uc.Total - uc.Admins,
	}, nil
}

// CheckUser возвращает пользователя для административной проверки ролей.
func (s *Service) CheckUser(ctx context.Context, id models.Identity, userID int64) (*models.User, error) {
	const op = "service.admin.CheckUser"

	if err := access.AdminOnly(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, notFound(op, err)
	}

	return u, nil
}

// SetUserFlags меняет is_verified/is_admin пользователя.
func (s *Service) SetUserFlags(ctx context.Context, id models.Identity, userID int64, in UserFlags) (*models.User, error) {
	const op = "service.admin.SetUserFlags"

	if err := access.AdminOnly(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	upd := models.UserUpdate{IsVerified: in.IsVerified, IsAdmin: in.IsAdmin}
	if upd.Empty() {
		return s.GetUser(ctx, userID)
	}

	u, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		return nil, notFound(op, err)
	}

	log.From(ctx).Info("user_flags_changed",
		slog.Int64("user_id", userID),
		slog.Int64("by", id.ID),
		slog.Bool("is_admin", u.IsAdmin),
		slog.Bool("is_verified", u.IsVerified),
	)

	return u, nil
}

// MakeAdmin делает пользователя администратором (и подтверждённым).
func (s *Service) MakeAdmin(ctx context.Context, id models.Identity, userID int64) (*models.User, error) {
	yes := true
	return s.SetUserFlags(ctx, id, userID, UserFlags{IsVerified: &yes, IsAdmin: &yes})
}

// DeleteUser удаляет пользователя по правилам access.CanDeleteUser.
// Сессии и новости удаляются каскадом в БД; комментарии пользователя
// и комментарии к его новостям — отдельно.
func (s *Service) DeleteUser(ctx context.Context, id models.Identity, userID int64) error {
	const op = "service.admin.DeleteUser"

	lg := log.From(ctx)

	if err := access.AdminOnly(id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	target, err := s.users.Get(ctx, userID)
	if err != nil {
		return notFound(op, err)
	}

	if err := access.CanDeleteUser(id, *target, s.auth.SystemEmail); err != nil {
		lg.Warn("user_delete_denied",
			slog.Int64("user_id", userID),
			slog.Int64("by", id.ID),
			slog.String("reason", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.dropNewsComments(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	removed, err := s.comments.DeleteByAuthor(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return notFound(op, err)
	}

	lg.Info("user_deleted",
		slog.Int64("user_id", userID),
		slog.Int64("by", id.ID),
		slog.Int64("comments_removed", removed),
	)

	return nil
}

// dropNewsComments удаляет комментарии ко всем новостям автора.
func (s *Service) dropNewsComments(ctx context.Context, authorID int64) error {
	p := models.ListParams{Limit: s.limits.Max}

	for {
		list, err := s.news.ByAuthor(ctx, authorID, p)
		if err != nil {
			return err
		}

		for _, n := range list {
			if _, err := s.comments.DeleteByNews(ctx, n.ID); err != nil {
				return err
			}
		}

		if len(list) < p.Limit {
			return nil
		}
		p.Skip += p.Limit
	}
}

// EnsureSystemAdmin создаёт служебного администратора (auth.system_email),
// если задан admin.password. Существующей учётке возвращаются права администратора.
func (s *Service) EnsureSystemAdmin(ctx context.Context) error {
	const op = "service.admin.EnsureSystemAdmin"

	lg := log.From(ctx)

	if s.admin.Password == "" {
		return nil
	}

	email, err := normalizeEmail(s.auth.SystemEmail)
	if err != nil {
		return fmt.Errorf("%s: system email: %w", op, err)
	}

	u, err := s.users.ByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsAdmin && u.IsVerified {
			return nil
		}
		yes := true
		if _, err := s.users.Update(ctx, u.ID, models.UserUpdate{IsAdmin: &yes, IsVerified: &yes}); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		lg.Info("system_admin_restored", slog.Int64("user_id", u.ID))
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(s.admin.Password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	name := strings.TrimSpace(s.admin.Name)
	if name == "" {
		name = "System"
	}

	u, err = s.users.Create(ctx, models.UserCreate{
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		IsVerified:   true,
		IsAdmin:      true,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("system_admin_created",
		slog.Int64("user_id", u.ID),
		slog.String("email", redact.Email(email)),
	)

	return nil
}
