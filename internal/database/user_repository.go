package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ErrNoUser is returned by updates when no user row matched
var ErrNoUser = errors.New("user not found")

// UserRepository handles user database operations
type UserRepository struct {
	db querier
}

// NewUserRepository creates a new user repository
func NewUserRepository(db querier) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, password_hash, two_fa_enabled, two_fa_secret, temp_2fa_secret,
	plex_token, plex_user_data, created_at, updated_at, last_login`

func scanUser(row interface{ Scan(dest ...any) error }) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.TwoFAEnabled, &user.TwoFASecret,
		&user.Temp2FASecret, &user.PlexToken, &user.PlexUserData,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username, or nil when none exists
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// GetFirstUser returns the single account, or nil when setup has not run
func (r *UserRepository) GetFirstUser(ctx context.Context) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT 1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserCount returns the total number of users
func (r *UserRepository) GetUserCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get user count: %w", err)
	}

	return count, nil
}

// CreateUser creates a new user account
func (r *UserRepository) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO users (username, password_hash) VALUES (?, ?)`

	result, err := r.db.ExecContext(ctx, query, user.Username, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}

	user.ID = id
	return nil
}

func (r *UserRepository) update(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNoUser
	}

	return nil
}

// UpdatePassword updates a user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	return r.update(ctx, "update password", `
		UPDATE users SET password_hash = ?, updated_at = datetime('now') WHERE username = ?
	`, passwordHash, username)
}

// UpdateUsername renames a user
func (r *UserRepository) UpdateUsername(ctx context.Context, oldName, newName string) error {
	return r.update(ctx, "update username", `
		UPDATE users SET username = ?, updated_at = datetime('now') WHERE username = ?
	`, newName, oldName)
}

// UpdateLastLogin updates the user's last login timestamp
func (r *UserRepository) UpdateLastLogin(ctx context.Context, username string) error {
	return r.update(ctx, "update last login", `
		UPDATE users SET last_login = datetime('now') WHERE username = ?
	`, username)
}

// SetTemp2FASecret stores a pending secret until it is verified
func (r *UserRepository) SetTemp2FASecret(ctx context.Context, username, secret string) error {
	return r.update(ctx, "store pending 2FA secret", `
		UPDATE users SET temp_2fa_secret = ?, updated_at = datetime('now') WHERE username = ?
	`, secret, username)
}

// Enable2FA promotes a verified secret and clears the pending one
func (r *UserRepository) Enable2FA(ctx context.Context, username, secret string) error {
	return r.update(ctx, "enable 2FA", `
		UPDATE users
		SET two_fa_enabled = TRUE, two_fa_secret = ?, temp_2fa_secret = NULL, updated_at = datetime('now')
		WHERE username = ?
	`, secret, username)
}

// Disable2FA clears every 2FA secret
func (r *UserRepository) Disable2FA(ctx context.Context, username string) error {
	return r.update(ctx, "disable 2FA", `
		UPDATE users
		SET two_fa_enabled = FALSE, two_fa_secret = NULL, temp_2fa_secret = NULL, updated_at = datetime('now')
		WHERE username = ?
	`, username)
}

// SetPlexAccount stores the linked Plex token and user JSON. Nil values unlink.
func (r *UserRepository) SetPlexAccount(ctx context.Context, username string, token, userData *string) error {
	return r.update(ctx, "update plex account", `
		UPDATE users SET plex_token = ?, plex_user_data = ?, updated_at = datetime('now') WHERE username = ?
	`, token, userData, username)
}
