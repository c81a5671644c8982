// memory — потокобезопасное in-memory хранилище всех сущностей портала.
// Используется при db.driver=memory (локальный запуск без PostgreSQL/MongoDB)
// и в сценарных тестах сервиса и HTTP-слоя. Семантика совпадает с postgres/mongo:
// каскады при удалении, фильтрация просроченных сессий, атомарная ротация.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/storage"
)

// Store держит все таблицы под одним мьютексом.
type Store struct {
	mu sync.Mutex

	users    map[int64]models.User
	news     map[int64]models.News
	comments map[int64]models.Comment
	sessions map[int64]models.RefreshSession

	seqUser, seqNews, seqComment, seqSession int64

	now func() time.Time
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		users:    make(map[int64]models.User),
		news:     make(map[int64]models.News),
		comments: make(map[int64]models.Comment),
		sessions: make(map[int64]models.RefreshSession),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() *Users       { return &Users{s: s} }
func (s *Store) News() *News         { return &News{s: s} }
func (s *Store) Comments() *Comments { return &Comments{s: s} }
func (s *Store) Sessions() *Sessions { return &Sessions{s: s} }

// page применяет skip/limit к отсортированному срезу.
func page[T any](items []T, p models.ListParams) []T {
	if p.Skip >= len(items) {
		return []T{}
	}

	items = items[p.Skip:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}

	return items
}

func sortedValues[T any](m map[int64]T, less func(a, b T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })

	return out
}

func notFound(op string) error { return fmt.Errorf("%s: %w", op, storage.ErrNotFound) }

func ptrNow(t time.Time) *time.Time { return &t }

// cloneUser копирует указатели, чтобы вызывающий не мог изменить запись в хранилище.
func cloneUser(u models.User) *models.User {
	cp := u
	if u.PasswordHash != nil {
		v := *u.PasswordHash
		cp.PasswordHash = &v
	}
	if u.GitHubID != nil {
		v := *u.GitHubID
		cp.GitHubID = &v
	}
	if u.Avatar != nil {
		v := *u.Avatar
		cp.Avatar = &v
	}

	return &cp
}

func cloneNews(n models.News) *models.News {
	cp := n
	cp.Content = maps.Clone(n.Content)
	if n.Cover != nil {
		v := *n.Cover
		cp.Cover = &v
	}

	return &cp
}

// Users — in-memory репозиторий пользователей.
type Users struct{ s *Store }

func (r *Users) Get(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("storage.memory.Users.Get")
	}

	return cloneUser(u), nil
}

func (r *Users) find(op string, match func(models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}

	return nil, notFound(op)
}

func (r *Users) ByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find("storage.memory.Users.ByEmail", func(u models.User) bool { return u.Email == email })
}

func (r *Users) ByGitHubID(_ context.Context, githubID string) (*models.User, error) {
	return r.find("storage.memory.Users.ByGitHubID", func(u models.User) bool {
		return u.GitHubID != nil && *u.GitHubID == githubID
	})
}

func (r *Users) GetAll(_ context.Context, p models.ListParams) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := sortedValues(r.s.users, func(a, b models.User) bool { return a.ID < b.ID })
	return page(all, p), nil
}

// uniqueLocked проверяет email/github_id; вызывается под мьютексом.
func (r *Users) uniqueLocked(selfID int64, email string, githubID *string) bool {
	for id, u := range r.s.users {
		if id == selfID {
			continue
		}
		if u.Email == email {
			return false
		}
		if githubID != nil && u.GitHubID != nil && *u.GitHubID == *githubID {
			return false
		}
	}

	return true
}

func (r *Users) Create(_ context.Context, in models.UserCreate) (*models.User, error) {
	const op = "storage.memory.Users.Create"

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.uniqueLocked(0, in.Email, in.GitHubID) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	r.s.seqUser++
	u := models.User{
		ID:           r.s.seqUser,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		GitHubID:     in.GitHubID,
		Avatar:       in.Avatar,
		IsVerified:   in.IsVerified,
		IsAdmin:      in.IsAdmin,
		CreatedAt:    r.s.now(),
	}
	r.s.users[u.ID] = *cloneUser(u)

	return cloneUser(u), nil
}

func (r *Users) Update(_ context.Context, id int64, in models.UserUpdate) (*models.User, error) {
	const op = "storage.memory.Users.Update"

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound(op)
	}

	if in.Empty() {
		return cloneUser(u), nil
	}

	if in.GitHubID != nil && !r.uniqueLocked(id, u.Email, in.GitHubID) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Avatar != nil {
		v := *in.Avatar
		u.Avatar = &v
	}
	if in.GitHubID != nil {
		v := *in.GitHubID
		u.GitHubID = &v
	}
	if in.PasswordHash != nil {
		v := *in.PasswordHash
		u.PasswordHash = &v
	}
	if in.IsVerified != nil {
		u.IsVerified = *in.IsVerified
	}
	if in.IsAdmin != nil {
		u.IsAdmin = *in.IsAdmin
	}
	u.UpdatedAt = ptrNow(r.s.now())
	r.s.users[id] = u

	return cloneUser(u), nil
}

// Delete удаляет пользователя вместе с его сессиями и новостями (как FK CASCADE).
// Комментарии удаляет сервис через CommentRepository.DeleteByAuthor.
func (r *Users) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return notFound("storage.memory.Users.Delete")
	}

	delete(r.s.users, id)
	for sid, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, sid)
		}
	}
	for nid, n := range r.s.news {
		if n.AuthorID == id {
			delete(r.s.news, nid)
		}
	}

	return nil
}

func (r *Users) Counts(_ context.Context) (models.UserCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var c models.UserCounts
	for _, u := range r.s.users {
		c.Total++
		if u.IsAdmin {
			c.Admins++
		}
		if u.IsVerified {
			c.Verified++
		}
	}

	return c, nil
}

// News — in-memory репозиторий новостей.
type News struct{ s *Store }

func newsNewestFirst(a, b models.News) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r *News) Get(_ context.Context, id int64) (*models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.news[id]
	if !ok {
		return nil, notFound("storage.memory.News.Get")
	}

	return cloneNews(n), nil
}

func (r *News) GetAll(_ context.Context, p models.ListParams) ([]models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return page(sortedValues(r.s.news, newsNewestFirst), p), nil
}

func (r *News) ByAuthor(_ context.Context, authorID int64, p models.ListParams) ([]models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.News
	for _, n := range sortedValues(r.s.news, newsNewestFirst) {
		if n.AuthorID == authorID {
			out = append(out, n)
		}
	}

	return page(out, p), nil
}

func (r *News) Create(_ context.Context, in models.NewsCreate) (*models.News, error) {
	const op = "storage.memory.News.Create"

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[in.AuthorID]; !ok {
		return nil, fmt.Errorf("%s: author %d: %w", op, in.AuthorID, storage.ErrNotFound)
	}

	content := maps.Clone(in.Content)
	if content == nil {
		content = map[string]any{}
	}

	r.s.seqNews++
	n := models.News{
		ID:        r.s.seqNews,
		Title:     in.Title,
		Content:   content,
		Cover:     in.Cover,
		AuthorID:  in.AuthorID,
		CreatedAt: r.s.now(),
	}
	r.s.news[n.ID] = n

	return cloneNews(n), nil
}

func (r *News) Update(_ context.Context, id int64, in models.NewsUpdate) (*models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.news[id]
	if !ok {
		return nil, notFound("storage.memory.News.Update")
	}

	if in.Empty() {
		return cloneNews(n), nil
	}

	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = maps.Clone(in.Content)
	}
	if in.Cover != nil {
		v := *in.Cover
		n.Cover = &v
	}
	n.UpdatedAt = ptrNow(r.s.now())
	r.s.news[id] = n

	return cloneNews(n), nil
}

func (r *News) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.news[id]; !ok {
		return notFound("storage.memory.News.Delete")
	}
	delete(r.s.news, id)

	return nil
}

func (r *News) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return int64(len(r.s.news)), nil
}

// Comments — in-memory репозиторий комментариев.
type Comments struct{ s *Store }

func commentsOldestFirst(a, b models.Comment) bool { return a.ID < b.ID }

func (r *Comments) Get(_ context.Context, id int64) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, notFound("storage.memory.Comments.Get")
	}

	return &c, nil
}

func (r *Comments) GetAll(_ context.Context, p models.ListParams) ([]models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return page(sortedValues(r.s.comments, commentsOldestFirst), p), nil
}

func (r *Comments) ByNews(_ context.Context, newsID int64, p models.ListParams) ([]models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Comment
	for _, c := range sortedValues(r.s.comments, commentsOldestFirst) {
		if c.NewsID == newsID {
			out = append(out, c)
		}
	}

	return page(out, p), nil
}

func (r *Comments) Create(_ context.Context, in models.CommentCreate) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seqComment++
	c := models.Comment{
		ID:        r.s.seqComment,
		Text:      in.Text,
		NewsID:    in.NewsID,
		AuthorID:  in.AuthorID,
		CreatedAt: r.s.now(),
	}
	r.s.comments[c.ID] = c

	return &c, nil
}

func (r *Comments) Update(_ context.Context, id int64, in models.CommentUpdate) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, notFound("storage.memory.Comments.Update")
	}

	if in.Text != nil {
		c.Text = *in.Text
		c.UpdatedAt = ptrNow(r.s.now())
		r.s.comments[id] = c
	}

	return &c, nil
}

func (r *Comments) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.comments[id]; !ok {
		return notFound("storage.memory.Comments.Delete")
	}
	delete(r.s.comments, id)

	return nil
}

func (r *Comments) deleteWhere(match func(models.Comment) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, c := range r.s.comments {
		if match(c) {
			delete(r.s.comments, id)
			n++
		}
	}

	return n
}

func (r *Comments) DeleteByNews(_ context.Context, newsID int64) (int64, error) {
	return r.deleteWhere(func(c models.Comment) bool { return c.NewsID == newsID }), nil
}

func (r *Comments) DeleteByAuthor(_ context.Context, authorID int64) (int64, error) {
	return r.deleteWhere(func(c models.Comment) bool { return c.AuthorID == authorID }), nil
}

func (r *Comments) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return int64(len(r.s.comments)), nil
}

// Sessions — in-memory репозиторий refresh-сессий.
type Sessions struct{ s *Store }

func (r *Sessions) byHashLocked(hash string) (models.RefreshSession, bool) {
	for _, sess := range r.s.sessions {
		if sess.TokenHash == hash {
			return sess, true
		}
	}

	return models.RefreshSession{}, false
}

func (r *Sessions) insertLocked(op string, sess models.RefreshSession) (int64, error) {
	if _, dup := r.byHashLocked(sess.TokenHash); dup {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	if _, ok := r.s.users[sess.UserID]; !ok {
		return 0, fmt.Errorf("%s: user %d: %w", op, sess.UserID, storage.ErrNotFound)
	}

	r.s.seqSession++
	sess.ID = r.s.seqSession
	sess.RefreshToken = ""
	r.s.sessions[sess.ID] = sess

	return sess.ID, nil
}

func (r *Sessions) Insert(_ context.Context, sess models.RefreshSession) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.insertLocked("storage.memory.Sessions.Insert", sess)
}

func (r *Sessions) FindActive(_ context.Context, hash string, now time.Time) (*models.RefreshSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.byHashLocked(hash)
	if !ok || !sess.Active(now) {
		return nil, notFound("storage.memory.Sessions.FindActive")
	}

	return &sess, nil
}

func (r *Sessions) Get(_ context.Context, id int64) (*models.RefreshSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, notFound("storage.memory.Sessions.Get")
	}

	return &sess, nil
}

func (r *Sessions) ListActive(_ context.Context, userID int64, now time.Time) ([]models.RefreshSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := sortedValues(r.s.sessions, func(a, b models.RefreshSession) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	var out []models.RefreshSession
	for _, sess := range all {
		if sess.UserID == userID && sess.Active(now) {
			out = append(out, sess)
		}
	}

	return out, nil
}

func (r *Sessions) DeleteByHash(_ context.Context, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if sess, ok := r.byHashLocked(hash); ok {
		delete(r.s.sessions, sess.ID)
	}

	return nil
}

func (r *Sessions) DeleteByID(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.sessions, id)
	return nil
}

// Rotate выполняет compare-and-delete и вставку под одним мьютексом.
func (r *Sessions) Rotate(_ context.Context, oldHash string, now time.Time, next models.RefreshSession) (*models.RefreshSession, error) {
	const op = "storage.memory.Sessions.Rotate"

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.byHashLocked(oldHash)
	if !ok || !old.Active(now) {
		return nil, notFound(op)
	}

	if _, dup := r.byHashLocked(next.TokenHash); dup {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	delete(r.s.sessions, old.ID)

	next.UserID = old.UserID
	id, err := r.insertLocked(op, next)
	if err != nil {
		r.s.sessions[old.ID] = old
		return nil, err
	}
	next.ID = id

	return &next, nil
}

func (r *Sessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, sess := range r.s.sessions {
		if !sess.Active(now) {
			delete(r.s.sessions, id)
			n++
		}
	}

	return n, nil
}

var (
	_ storage.UserRepository    = (*Users)(nil)
	_ storage.NewsRepository    = (*News)(nil)
	_ storage.CommentRepository = (*Comments)(nil)
	_ storage.SessionRepository = (*Sessions)(nil)
)
