package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
)

const userColumns = `id, username, password_hash, created_at`

// FindUserByUsername returns the user with exactly this username, or nil when
// there is none.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.wrap(s.conn).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? LIMIT 1`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("store: find user by username: %w", err)
	}
	return u, nil
}

// FindUserByID returns the user with id, or nil when there is none.
func (s *Store) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.wrap(s.conn).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("store: find user by id: %w", err)
	}
	return u, nil
}

// CreateUser inserts a user. A taken username yields apperr.ErrConflict; the
// unique index decides, so concurrent signups cannot both succeed.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	now := s.timestamp()
	res, err := s.wrap(s.conn).ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("username already exists")
		}
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: create user: last insert id: %w", err)
	}
	return &models.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
