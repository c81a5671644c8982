package models

import "time"

// News — новость, опубликованная пользователем.
// Content — произвольный JSON-объект (блоки редактора).
type News struct {
	ID        int64
	Title     string
	Content   map[string]any
	Cover     *string
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (n News) OwnerID() int64 { return n.AuthorID }

type NewsCreate struct {
	Title    string
	Content  map[string]any
	Cover    *string
	AuthorID int64
}

// NewsUpdate — частичное обновление; Content == nil означает «не менять».
type NewsUpdate struct {
	Title   *string
	Content map[string]any
	Cover   *string
}

func (u NewsUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Cover == nil
}

// ListParams — параметры постраничной выборки (skip/limit).
type ListParams struct {
	Skip  int
	Limit int
}
