package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"oshiquiz/internal/app"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store persists quizzes, attempts, users and counters in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ app.CatalogStore  = (*Store)(nil)
	_ app.AttemptStore  = (*Store)(nil)
	_ app.StatsStore    = (*Store)(nil)
	_ app.UserDirectory = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool, retrying while the database comes up.
func Connect(ctx context.Context, url string, maxElapsed time.Duration) (*pgxpool.Pool, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	return backoff.RetryWithData(func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.Connect(ctx, url)
		if err != nil {
			log.Warn().Err(err).Msg("postgres not reachable yet")
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	}, backoff.WithContext(b, ctx))
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
