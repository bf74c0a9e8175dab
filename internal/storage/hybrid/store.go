package hybrid

import (
	"fmt"
	"time"

	"intramail/backend/internal/domain"
	sqlstore "intramail/backend/internal/storage/sql"
	"intramail/backend/internal/storage/redis"
)

// Store 混合存储实现：SQL 承载持久数据，Redis 承载黑名单、限流与会话
type Store struct {
	sql   *sqlstore.Store
	redis *redis.Cache
}

// NewStore 创建混合存储实例
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
	redisAddr, redisPassword string,
	redisDB int,
) (*Store, error) {
	dbStore, err := sqlstore.NewStore(driverName, dsn, maxOpenConns, maxIdleConns, connMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisCache, err := redis.NewCache(redisAddr, redisPassword, redisDB)
	if err != nil {
		dbStore.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{
		sql:   dbStore,
		redis: redisCache,
	}, nil
}

// ========== User Repository ==========

func (s *Store) CreateUser(user *domain.User) error {
	return s.sql.CreateUser(user)
}

func (s *Store) GetUserByID(id string) (*domain.User, error) {
	return s.sql.GetUserByID(id)
}

func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	return s.sql.GetUserByEmail(email)
}

func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	return s.sql.GetUserByUsername(username)
}

func (s *Store) UpdateUser(user *domain.User) error {
	return s.sql.UpdateUser(user)
}

func (s *Store) UpdateLastLogin(userID string) error {
	return s.sql.UpdateLastLogin(userID)
}

// ========== Message Repository ==========

func (s *Store) SaveMessage(message *domain.Message) error {
	return s.sql.SaveMessage(message)
}

func (s *Store) GetMessage(id string) (*domain.Message, error) {
	return s.sql.GetMessage(id)
}

func (s *Store) UpdateMessage(message *domain.Message) error {
	return s.sql.UpdateMessage(message)
}

func (s *Store) DeleteMessage(id string) error {
	return s.sql.DeleteMessage(id)
}

func (s *Store) DeleteOrphanMessages() (int, error) {
	return s.sql.DeleteOrphanMessages()
}

// ========== Delivery Repository ==========

func (s *Store) CreateDelivery(message *domain.Message, delivery *domain.Delivery) error {
	return s.sql.CreateDelivery(message, delivery)
}

func (s *Store) CreateDeliveryForMessage(delivery *domain.Delivery) error {
	return s.sql.CreateDeliveryForMessage(delivery)
}

func (s *Store) GetDelivery(id string) (*domain.Delivery, error) {
	return s.sql.GetDelivery(id)
}

func (s *Store) SetDeliveryUnread(id string, unread bool) error {
	return s.sql.SetDeliveryUnread(id, unread)
}

func (s *Store) ListInbox(userID string, unread *bool, page, pageSize int) ([]domain.Delivery, int, error) {
	return s.sql.ListInbox(userID, unread, page, pageSize)
}

func (s *Store) ListSent(userID string, page, pageSize int) ([]domain.Delivery, int, error) {
	return s.sql.ListSent(userID, page, pageSize)
}

// ========== Folder Repository ==========

func (s *Store) UpsertFolderTag(tag *domain.FolderTag) error {
	return s.sql.UpsertFolderTag(tag)
}

func (s *Store) RemoveFolderTag(deliveryID, actingUserID string, kind domain.FolderKind) error {
	return s.sql.RemoveFolderTag(deliveryID, actingUserID, kind)
}

func (s *Store) HasFolderTag(deliveryID, actingUserID string, kind domain.FolderKind) (bool, error) {
	return s.sql.HasFolderTag(deliveryID, actingUserID, kind)
}

func (s *Store) ListFolder(actingUserID string, kind domain.FolderKind, page, pageSize int) ([]domain.Delivery, int, error) {
	return s.sql.ListFolder(actingUserID, kind, page, pageSize)
}

func (s *Store) CreatePermanentDeletion(marker *domain.PermanentDeletion) error {
	return s.sql.CreatePermanentDeletion(marker)
}

func (s *Store) HasPermanentDeletion(deliveryID, deleterID string) (bool, error) {
	return s.sql.HasPermanentDeletion(deliveryID, deleterID)
}

// ========== Group Repository ==========

func (s *Store) SaveGroup(group *domain.Group) error {
	return s.sql.SaveGroup(group)
}

func (s *Store) GetGroup(id string) (*domain.Group, error) {
	return s.sql.GetGroup(id)
}

func (s *Store) GetGroupByName(name string) (*domain.Group, error) {
	return s.sql.GetGroupByName(name)
}

func (s *Store) UpdateGroup(group *domain.Group) error {
	return s.sql.UpdateGroup(group)
}

func (s *Store) DeleteGroup(id string) error {
	return s.sql.DeleteGroup(id)
}

func (s *Store) ListGroupsByUserID(userID string) ([]domain.Group, error) {
	return s.sql.ListGroupsByUserID(userID)
}

func (s *Store) AddGroupMember(member *domain.GroupMember) error {
	return s.sql.AddGroupMember(member)
}

func (s *Store) RemoveGroupMember(groupID, userID string) error {
	return s.sql.RemoveGroupMember(groupID, userID)
}

func (s *Store) IsGroupMember(groupID, userID string) (bool, error) {
	return s.sql.IsGroupMember(groupID, userID)
}

func (s *Store) ListGroupMembers(groupID string) ([]domain.GroupMember, error) {
	return s.sql.ListGroupMembers(groupID)
}

// ========== Draft Repository ==========

func (s *Store) SaveDraft(draft *domain.Draft, message *domain.Message) error {
	return s.sql.SaveDraft(draft, message)
}

func (s *Store) GetDraft(id string) (*domain.Draft, error) {
	return s.sql.GetDraft(id)
}

func (s *Store) UpdateDraft(draft *domain.Draft) error {
	return s.sql.UpdateDraft(draft)
}

func (s *Store) ListDraftsByUser(userID string, page, pageSize int) ([]domain.Draft, int, error) {
	return s.sql.ListDraftsByUser(userID, page, pageSize)
}

func (s *Store) DeleteDraft(id string) error {
	return s.sql.DeleteDraft(id)
}

// ========== JWT 黑名单 ==========

func (s *Store) AddToBlacklist(jti string, ttl time.Duration) error {
	// 只使用 Redis 存储黑名单
	return s.redis.AddToBlacklist(jti, ttl)
}

func (s *Store) IsBlacklisted(jti string) (bool, error) {
	return s.redis.IsBlacklisted(jti)
}

// ========== 限流 ==========

func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	// 只使用 Redis 进行限流
	return s.redis.IncrementRateLimit(key, window)
}

func (s *Store) GetRateLimit(key string) (int64, error) {
	return s.redis.GetRateLimit(key)
}

// ========== 会话管理 ==========

func (s *Store) CacheSession(sessionID string, userID string, ttl time.Duration) error {
	// 只使用 Redis 存储会话
	return s.redis.CacheSession(sessionID, userID, ttl)
}

func (s *Store) GetCachedSession(sessionID string) (string, error) {
	return s.redis.GetCachedSession(sessionID)
}

func (s *Store) DeleteCachedSession(sessionID string) error {
	return s.redis.DeleteCachedSession(sessionID)
}

// ========== 工具方法 ==========

// Close 关闭存储连接
func (s *Store) Close() error {
	if err := s.sql.Close(); err != nil {
		return err
	}
	return s.redis.Close()
}

// Health 健康检查
func (s *Store) Health() error {
	return s.sql.Health()
}
