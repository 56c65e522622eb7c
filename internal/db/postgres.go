package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is compiled into the binary at build time so schema init works
// inside the runtime image, which does not ship .sql files.
//
//go:embed schema.sql
var schemaSQL string

// Querier is the subset of pgx executed by row operations. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so every operation in this package
// can run standalone or inside a caller-owned transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store owns the PostgreSQL connection pool. All engine state lives behind
// it; commands compose row operations inside WithTx.
type Store struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool and verifies it with a ping.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements. Statements
// are idempotent (CREATE IF NOT EXISTS / ON CONFLICT DO NOTHING) so boot
// is safe against an already-initialized database.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}
	return nil
}

// Pool exposes the raw pool for read paths and subsystems that manage
// their own queries.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Ping verifies connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithTx runs fn inside a transaction. Any error aborts the transaction;
// the deferred rollback is a no-op after a successful commit.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// IsNoRows reports whether err is the pgx no-rows sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505). Commands use it to map races on unique rows
// to domain conflicts.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
