package models

import "time"

// Comment — комментарий к новости. Хранится в MongoDB с целочисленным id.
type Comment struct {
	ID        int64      `bson:"_id"`
	Text      string     `bson:"text"`
	NewsID    int64      `bson:"news_id"`
	AuthorID  int64      `bson:"author_id"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty"`
}

func (c Comment) OwnerID() int64 { return c.AuthorID }

type CommentCreate struct {
	Text     string
	NewsID   int64
	AuthorID int64
}

type CommentUpdate struct {
	Text *string
}

func (u CommentUpdate) Empty() bool { return u.Text == nil }
