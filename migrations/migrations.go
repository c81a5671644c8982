// migrations содержит SQL-схему PostgreSQL и применяет её через goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Up применяет все миграции к базе по DSN.
func Up(ctx context.Context, dsn string) error {
	const op = "migrations.Up"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	if err := UpDB(ctx, db); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UpDB применяет миграции к открытому *sql.DB.
func UpDB(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
