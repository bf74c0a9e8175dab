package memory

import (
	"errors"
	"strings"
	"sync"
	"time"

	"intramail/backend/internal/domain"
	"intramail/backend/internal/storage"
)

// Store 使用内存保存用户、邮件与群组数据，主要用于开发验证和单元测试。
type Store struct {
	mu sync.RWMutex

	// 用户存储
	users      map[string]*domain.User // userID -> user
	byEmail    map[string]string       // email -> userID
	byUsername map[string]string       // username(lower) -> userID

	// 邮件存储
	messages   map[string]*domain.Message  // messageID -> message
	deliveries map[string]*domain.Delivery // deliveryID -> delivery

	// 文件夹标签与彻底删除标记
	folderTags map[string]*domain.FolderTag         // "deliveryID:userID:kind" -> tag
	purges     map[string]*domain.PermanentDeletion // "deliveryID:userID" -> marker

	// 群组存储
	groups      map[string]*domain.Group                  // groupID -> group
	byGroupName map[string]string                         // name -> groupID
	members     map[string]map[string]*domain.GroupMember // groupID -> userID -> member

	// 草稿存储
	drafts map[string]*domain.Draft // draftID -> draft

	// 速率限制相关
	rateLimits        map[string]*rateLimitEntry
	rateLimitsCleanup time.Time // 下次清理过期速率限制的时间

	// JWT 黑名单与会话缓存（单实例场景够用，多实例部署请启用 Redis）
	blacklist map[string]time.Time    // jti -> 过期时间
	sessions  map[string]sessionEntry // sessionID -> 会话
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// sessionEntry 会话条目
type sessionEntry struct {
	UserID    string
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		users:             make(map[string]*domain.User),
		byEmail:           make(map[string]string),
		byUsername:        make(map[string]string),
		messages:          make(map[string]*domain.Message),
		deliveries:        make(map[string]*domain.Delivery),
		folderTags:        make(map[string]*domain.FolderTag),
		purges:            make(map[string]*domain.PermanentDeletion),
		groups:            make(map[string]*domain.Group),
		byGroupName:       make(map[string]string),
		members:           make(map[string]map[string]*domain.GroupMember),
		drafts:            make(map[string]*domain.Draft),
		rateLimits:        make(map[string]*rateLimitEntry),
		rateLimitsCleanup: time.Now().Add(5 * time.Minute),
		blacklist:         make(map[string]time.Time),
		sessions:          make(map[string]sessionEntry),
	}
}

// ========== User Repository ==========

// CreateUser 创建新用户
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		return errors.New("user ID is required")
	}

	// 检查邮箱是否已存在
	if _, exists := s.byEmail[user.Email]; exists {
		return storage.ErrEmailExists
	}

	// 检查用户名是否已存在（用户名不区分大小写）
	if _, exists := s.byUsername[strings.ToLower(user.Username)]; exists {
		return storage.ErrUsernameExists
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	s.users[user.ID] = user
	s.byEmail[user.Email] = user.ID
	s.byUsername[strings.ToLower(user.Username)] = user.ID

	return nil
}

// GetUserByID 根据 ID 获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return user, nil
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return s.users[userID], nil
}

// GetUserByUsername 根据用户名获取用户
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return s.users[userID], nil
}

// UpdateUser 更新用户信息
func (s *Store) UpdateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}

	newUsername := strings.ToLower(user.Username)
	oldUsername := strings.ToLower(old.Username)
	if oldUsername != newUsername {
		if _, exists := s.byUsername[newUsername]; exists {
			return storage.ErrUsernameExists
		}
		delete(s.byUsername, oldUsername)
	}

	user.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = user
	s.byUsername[newUsername] = user.ID
	s.byEmail[user.Email] = user.ID

	return nil
}

// UpdateLastLogin 更新用户最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	user.UpdatedAt = now

	return nil
}

// ========== JWT 黑名单 ==========

// AddToBlacklist 将 JWT 添加到黑名单
func (s *Store) AddToBlacklist(jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// 已过期的令牌无需拉黑
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blacklist[jti] = time.Now().Add(ttl)
	return nil
}

// IsBlacklisted 检查 JWT 是否在黑名单中
func (s *Store) IsBlacklisted(jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.blacklist[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		delete(s.blacklist, jti)
		return false, nil
	}
	return true, nil
}

// ========== 限流 ==========

// IncrementRateLimit 增加限流计数
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	// 清理过期的速率限制条目（每5分钟清理一次）
	if now.After(s.rateLimitsCleanup) {
		for k, v := range s.rateLimits {
			if now.After(v.ExpiresAt) {
				delete(s.rateLimits, k)
			}
		}
		s.rateLimitsCleanup = now.Add(5 * time.Minute)
	}

	entry, exists := s.rateLimits[key]
	if !exists || now.After(entry.ExpiresAt) {
		entry = &rateLimitEntry{
			Count:     1,
			ExpiresAt: now.Add(window),
		}
		s.rateLimits[key] = entry
		return 1, nil
	}

	entry.Count++
	return entry.Count, nil
}

// GetRateLimit 获取限流计数
func (s *Store) GetRateLimit(key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.rateLimits[key]
	if !exists || time.Now().After(entry.ExpiresAt) {
		return 0, nil
	}

	return entry.Count, nil
}

// ========== 会话管理 ==========

// CacheSession 缓存用户会话
func (s *Store) CacheSession(sessionID string, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = sessionEntry{
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// GetCachedSession 获取缓存的会话
func (s *Store) GetCachedSession(sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return "", errors.New("session not found")
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(s.sessions, sessionID)
		return "", errors.New("session not found")
	}
	return entry.UserID, nil
}

// DeleteCachedSession 删除缓存的会话
func (s *Store) DeleteCachedSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// ========== 工具方法 ==========

// Close 关闭存储连接
func (s *Store) Close() error {
	// 内存存储不需要关闭连接
	return nil
}

// Health 健康检查
func (s *Store) Health() error {
	// 内存存储总是健康的
	return nil
}
