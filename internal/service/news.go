package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/pkg/log"
)

const maxTitleLen = 200

// NewsInput — данные новости от клиента. При обновлении nil-поля не меняются.
type NewsInput struct {
	Title   *string
	Content map[string]any
	Cover   *string
}

func validTitle(t string) (string, bool) {
	t = strings.TrimSpace(t)
	return t, t != "" && utf8.RuneCountInString(t) <= maxTitleLen
}

// ListNews — лента новостей, новые первыми.
func (s *Service) ListNews(ctx context.Context, p models.ListParams) ([]models.News, error) {
	const op = "service.news.ListNews"

	p, err := s.page(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	list, err := s.news.GetAll(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// NewsByAuthor — новости автора.
func (s *Service) NewsByAuthor(ctx context.Context, authorID int64, p models.ListParams) ([]models.News, error) {
	const op = "service.news.NewsByAuthor"

	p, err := s.page(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	list, err := s.news.ByAuthor(ctx, authorID, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// GetNews — новость по id.
func (s *Service) GetNews(ctx context.Context, id int64) (*models.News, error) {
	const op = "service.news.GetNews"

	n, err := s.news.Get(ctx, id)
	if err != nil {
		return nil, notFound(op, err)
	}

	return n, nil
}

// CreateNews публикует новость от имени вызывающего.
// Требуется подтверждённый пользователь или администратор.
func (s *Service) CreateNews(ctx context.Context, id models.Identity, in NewsInput) (*models.News, error) {
	const op = "service.news.CreateNews"

	if err := access.VerifiedOrAdmin(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Title == nil || in.Content == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	title, ok := validTitle(*in.Title)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	n, err := s.news.Create(ctx, models.NewsCreate{
		Title:    title,
		Content:  in.Content,
		Cover:    trimOptional(in.Cover),
		AuthorID: id.ID,
	})
	if err != nil {
		return nil, notFound(op, err)
	}

	log.From(ctx).Info("news_created",
		slog.Int64("news_id", n.ID),
		slog.Int64("author_id", id.ID),
	)

	return n, nil
}

// UpdateNews — частичное обновление: автор или администратор.
func (s *Service) UpdateNews(ctx context.Context, id models.Identity, newsID int64, in NewsInput) (*models.News, error) {
	const op = "service.news.UpdateNews"

	upd := models.NewsUpdate{Content: in.Content, Cover: in.Cover}
	if in.Title != nil {
		title, ok := validTitle(*in.Title)
		if !ok {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		upd.Title = &title
	}

	n, err := s.news.Get(ctx, newsID)
	if err != nil {
		return nil, notFound(op, err)
	}

	if err := access.OwnerOrAdmin(id, *n); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if upd.Empty() {
		return n, nil
	}

	n, err = s.news.Update(ctx, newsID, upd)
	if err != nil {
		return nil, notFound(op, err)
	}

	return n, nil
}

// DeleteNews удаляет новость вместе с её комментариями: автор или администратор.
func (s *Service) DeleteNews(ctx context.Context, id models.Identity, newsID int64) error {
	const op = "service.news.DeleteNews"

	lg := log.From(ctx)

	n, err := s.news.Get(ctx, newsID)
	if err != nil {
		return notFound(op, err)
	}

	if err := access.OwnerOrAdmin(id, *n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Комментарии живут в другом хранилище, поэтому удаляются первыми:
	// при сбое новость остаётся и удаление можно повторить.
	removed, err := s.comments.DeleteByNews(ctx, newsID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.news.Delete(ctx, newsID); err != nil {
		return notFound(op, err)
	}

	lg.Info("news_deleted",
		slog.Int64("news_id", newsID),
		slog.Int64("by", id.ID),
		slog.Int64("comments_removed", removed),
	)

	return nil
}
