package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/models"
)

// ListComments — все комментарии постранично.
func (s *Service) ListComments(ctx context.Context, p models.ListParams) ([]models.Comment, error) {
	const op = "service.comments.ListComments"

	p, err := s.page(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	list, err := s.comments.GetAll(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// CommentsByNews — комментарии новости в порядке публикации.
func (s *Service) CommentsByNews(ctx context.Context, newsID int64, p models.ListParams) ([]models.Comment, error) {
	const op = "service.comments.CommentsByNews"

	p, err := s.page(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	list, err := s.comments.ByNews(ctx, newsID, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// GetComment — комментарий по id.
func (s *Service) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	const op = "service.comments.GetComment"

	c, err := s.comments.Get(ctx, id)
	if err != nil {
		return nil, notFound(op, err)
	}

	return c, nil
}

// CreateComment добавляет комментарий к существующей новости от имени вызывающего.
func (s *Service) CreateComment(ctx context.Context, id models.Identity, newsID int64, text string) (*models.Comment, error) {
	const op = "service.comments.CreateComment"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if _, err := s.news.Get(ctx, newsID); err != nil {
		return nil, notFound(op, err)
	}

	c, err := s.comments.Create(ctx, models.CommentCreate{
		Text:     text,
		NewsID:   newsID,
		AuthorID: id.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// UpdateComment меняет текст: автор или администратор.
func (s *Service) UpdateComment(ctx context.Context, id models.Identity, commentID int64, text string) (*models.Comment, error) {
	const op = "service.comments.UpdateComment"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	c, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return nil, notFound(op, err)
	}

	if err := access.OwnerOrAdmin(id, *c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err = s.comments.Update(ctx, commentID, models.CommentUpdate{Text: &text})
	if err != nil {
		return nil, notFound(op, err)
	}

	return c, nil
}

// DeleteComment удаляет комментарий: автор или администратор.
func (s *Service) DeleteComment(ctx context.Context, id models.Identity, commentID int64) error {
	const op = "service.comments.DeleteComment"

	c, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return notFound(op, err)
	}

	if err := access.OwnerOrAdmin(id, *c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return notFound(op, err)
	}

	return nil
}
