package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores values in a single table of a SQLite database file.
type SQLite struct {
	db *sqlx.DB
}

type sqliteRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func NewSQLite(fname string) (*SQLite, error) {
	if fname == "" {
		return nil, errors.New("no SQLite filename supplied")
	}

	db, err := sqlx.Connect("sqlite3", fname)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv(
		"key" varchar not null primary key,
		"value" text not null
	)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT "value" FROM kv WHERE "key" = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ioError("select "+key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.NamedExecContext(
		ctx,
		`INSERT INTO kv("key", "value") VALUES (:key, :value) ON CONFLICT("key") DO UPDATE SET "value" = excluded."value"`,
		&sqliteRow{Key: key, Value: value},
	)
	if err != nil {
		return ioError("upsert "+key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
