package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
)

// UserRepository defines persistence for application users
type UserRepository interface {
	CreateUser(ctx context.Context, u entities.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	ListUsers(ctx context.Context) ([]entities.User, error)
}

// SQLiteUserRepository implements UserRepository using SQLite
type SQLiteUserRepository struct {
	m *Manager
}

// NewUserRepository creates a repository on the manager's pool
func NewUserRepository(m *Manager) *SQLiteUserRepository {
	return &SQLiteUserRepository{m: m}
}

// CreateUser inserts a user whose password is already hashed
func (r *SQLiteUserRepository) CreateUser(ctx context.Context, u entities.User) (int64, error) {
	if u.Role == "" {
		u.Role = entities.RoleTech
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	res, err := r.m.db.ExecContext(ctx, `
		INSERT INTO users(username, password_hash, display_name, role, created_at)
		VALUES(?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.DisplayName, string(u.Role), FormatTimestamp(u.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to create user %s: %w", u.Username, err)
	}
	r.m.markModified()
	return res.LastInsertId()
}

// GetUserByUsername looks a user up by login name
func (r *SQLiteUserRepository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	row := r.m.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, COALESCE(display_name, ''), role, created_at
		FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return u, nil
}

// ListUsers returns all users ordered by username
func (r *SQLiteUserRepository) ListUsers(ctx context.Context) ([]entities.User, error) {
	rows, err := r.m.db.QueryContext(ctx, `
		SELECT id, username, password_hash, COALESCE(display_name, ''), role, created_at
		FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var result []entities.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

func scanUser(s rowScanner) (*entities.User, error) {
	var u entities.User
	var role string
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = entities.UserRole(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

var _ UserRepository = (*SQLiteUserRepository)(nil)
