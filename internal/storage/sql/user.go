package sql

import (
	"database/sql"
	"time"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// ========== User Repository ==========

const userColumns = `id, email, username, first_name, last_name, avatar_url, password_hash,
       role, is_active, created_at, updated_at, last_login_at`

// CreateUser 创建新用户
func (s *Store) CreateUser(user *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, first_name, last_name, avatar_url, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.exec(query,
		user.ID,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.AvatarURL,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

// scanUser 从单行结果扫描用户
func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}

	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return &user, nil
}

// GetUserByID 根据 ID 获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(s.queryRow(query, id))
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(s.queryRow(query, email))
}

// GetUserByUsername 根据用户名获取用户
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower(?)`
	return scanUser(s.queryRow(query, username))
}

// UpdateUser 更新用户信息
func (s *Store) UpdateUser(user *domain.User) error {
	query := `
		UPDATE users
		SET email = ?, username = ?, first_name = ?, last_name = ?, avatar_url = ?,
		    password_hash = ?, role = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.exec(query,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.AvatarURL,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		time.Now().UTC(),
		user.ID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin 更新用户最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	query := `UPDATE users SET last_login_at = ? WHERE id = ?`
	_, err := s.exec(query, time.Now().UTC(), userID)
	return err
}
