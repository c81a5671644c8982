package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/storage"
)

// Comments — репозиторий комментариев.
type Comments struct {
	m *Mongo
}

// MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func normalize(c *models.Comment) {
	c.CreatedAt = c.CreatedAt.UTC()
	if c.UpdatedAt != nil {
		u := c.UpdatedAt.UTC()
		c.UpdatedAt = &u
	}
}

func (r *Comments) find(ctx context.Context, op string, filter bson.D, p models.ListParams) ([]models.Comment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(p.Skip)).
		SetLimit(int64(p.Limit))

	cur, err := r.m.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	items := make([]models.Comment, 0, p.Limit)
	for cur.Next(ctx) {
		var c models.Comment
		if err := cur.Decode(&c); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		normalize(&c)
		items = append(items, c)
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return items, nil
}

// Get возвращает комментарий по id или storage.ErrNotFound.
func (r *Comments) Get(ctx context.Context, id int64) (*models.Comment, error) {
	const op = "storage.mongo.Comments.Get"

	var out models.Comment
	if err := r.m.comments.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&out); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	normalize(&out)
	return &out, nil
}

// GetAll возвращает страницу всех комментариев в порядке создания.
func (r *Comments) GetAll(ctx context.Context, p models.ListParams) ([]models.Comment, error) {
	return r.find(ctx, "storage.mongo.Comments.GetAll", bson.D{}, p)
}

// ByNews возвращает комментарии новости в порядке создания.
func (r *Comments) ByNews(ctx context.Context, newsID int64, p models.ListParams) ([]models.Comment, error) {
	return r.find(ctx, "storage.mongo.Comments.ByNews", bson.D{{Key: "news_id", Value: newsID}}, p)
}

// Create вставляет комментарий с очередным id из counters.
func (r *Comments) Create(ctx context.Context, in models.CommentCreate) (*models.Comment, error) {
	const op = "storage.mongo.Comments.Create"

	id, err := r.m.nextID(ctx, commentsCollection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := models.Comment{
		ID:        id,
		Text:      in.Text,
		NewsID:    in.NewsID,
		AuthorID:  in.AuthorID,
		CreatedAt: toMS(time.Now()),
	}

	if _, err := r.m.comments.InsertOne(ctx, c); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	return &c, nil
}

// Update меняет текст (если задан) и updated_at.
func (r *Comments) Update(ctx context.Context, id int64, in models.CommentUpdate) (*models.Comment, error) {
	const op = "storage.mongo.Comments.Update"

	if in.Empty() {
		return r.Get(ctx, id)
	}

	var out models.Comment
	err := r.m.comments.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "text", Value: *in.Text},
			{Key: "updated_at", Value: toMS(time.Now())},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	normalize(&out)
	return &out, nil
}

// Delete удаляет комментарий; storage.ErrNotFound, если его нет.
func (r *Comments) Delete(ctx context.Context, id int64) error {
	const op = "storage.mongo.Comments.Delete"

	res, err := r.m.comments.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteByNews удаляет все комментарии новости.
func (r *Comments) DeleteByNews(ctx context.Context, newsID int64) (int64, error) {
	const op = "storage.mongo.Comments.DeleteByNews"

	res, err := r.m.comments.DeleteMany(ctx, bson.D{{Key: "news_id", Value: newsID}})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount, nil
}

// DeleteByAuthor удаляет все комментарии пользователя.
func (r *Comments) DeleteByAuthor(ctx context.Context, authorID int64) (int64, error) {
	const op = "storage.mongo.Comments.DeleteByAuthor"

	res, err := r.m.comments.DeleteMany(ctx, bson.D{{Key: "author_id", Value: authorID}})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount, nil
}

// Count — общее число комментариев.
func (r *Comments) Count(ctx context.Context) (int64, error) {
	const op = "storage.mongo.Comments.Count"

	n, err := r.m.comments.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

var _ storage.CommentRepository = (*Comments)(nil)
