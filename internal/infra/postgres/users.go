package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"oshiquiz/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username) VALUES ($1) RETURNING id, created_at`,
		user.Username,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return wrap("create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, created_at FROM users WHERE id = $1`, userID,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, wrap("get user", err)
	}
	return u, nil
}

func (s *Store) LookupUsers(ctx context.Context, ids []int64) (map[int64]domain.User, error) {
	out := make(map[int64]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, created_at FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, wrap("lookup users", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, wrap("scan user", err)
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}
