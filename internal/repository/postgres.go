package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// NewPostgresDB opens a PostgreSQL connection, verifies it and applies migrations
func NewPostgresDB(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := RunMigrations(ctx, db, "postgres"); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

const pqUniqueViolation = "23505"

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
