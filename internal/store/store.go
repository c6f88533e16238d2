package store

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound reports a lookup that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique-constraint violation, e.g. duplicate platform IDs.
	ErrConflict = errors.New("already exists")
)

const pgUniqueViolation = "23505"

// Store is the Postgres-backed repository shared by the bot runtime and the
// management API.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("component", "store")),
	}
}

// classify maps driver errors onto the store's sentinel errors so callers can
// branch without importing pgx.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrConflict
	}
	return err
}
