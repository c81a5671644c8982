// postgres реализует репозитории пользователей, новостей и refresh-сессий
// поверх общего пула pgxpool. Каждая операция — один запрос или одна транзакция.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage владеет пулом соединений и выдаёт репозитории.
type Storage struct {
	db *pgxpool.Pool
}

// New создает новое подключение к PostgreSQL.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Users возвращает репозиторий пользователей.
func (s *Storage) Users() *Users { return &Users{db: s.db} }

// News возвращает репозиторий новостей.
func (s *Storage) News() *News { return &News{db: s.db} }

// Sessions возвращает репозиторий refresh-сессий.
func (s *Storage) Sessions() *Sessions { return &Sessions{db: s.db} }

// Ping проверяет доступность БД (readiness).
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// fields собирает список колонок и аргументов для INSERT/UPDATE,
// пропуская не заданные (nil) значения.
type fields struct {
	cols []string
	args []any
}

func (f *fields) add(col string, v any) {
	f.cols = append(f.cols, col)
	f.args = append(f.args, v)
}

// insert возвращает "(a, b) VALUES ($1, $2)".
func (f *fields) insert() string {
	ph := make([]string, len(f.cols))
	for i := range f.cols {
		ph[i] = "$" + strconv.Itoa(i+1)
	}

	return "(" + strings.Join(f.cols, ", ") + ") VALUES (" + strings.Join(ph, ", ") + ")"
}

// set возвращает "a = $1, b = $2"; нумерация начинается с 1.
func (f *fields) set() string {
	parts := make([]string, len(f.cols))
	for i, c := range f.cols {
		parts[i] = c + " = $" + strconv.Itoa(i+1)
	}

	return strings.Join(parts, ", ")
}

// next — номер следующего плейсхолдера после уже добавленных полей.
func (f *fields) next() string {
	return "$" + strconv.Itoa(len(f.args)+1)
}
