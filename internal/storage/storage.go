package storage

import (
	"errors"
	"time"

	"intramail/backend/internal/domain"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrMessageNotFound 邮件内容不存在
	ErrMessageNotFound = errors.New("message not found")
	// ErrDeliveryNotFound 投递记录不存在
	ErrDeliveryNotFound = errors.New("delivery not found")
	// ErrFolderTagNotFound 文件夹标签不存在
	ErrFolderTagNotFound = errors.New("folder tag not found")
	// ErrGroupNotFound 群组不存在
	ErrGroupNotFound = errors.New("group not found")
	// ErrGroupNameTaken 群组名称已被占用
	ErrGroupNameTaken = errors.New("group name already taken")
	// ErrAlreadyMember 用户已是群组成员
	ErrAlreadyMember = errors.New("user is already a group member")
	// ErrMemberNotFound 群组成员不存在
	ErrMemberNotFound = errors.New("group member not found")
	// ErrDraftNotFound 草稿不存在
	ErrDraftNotFound = errors.New("draft not found")
	// ErrEmailExists 邮箱已被注册
	ErrEmailExists = errors.New("email already exists")
	// ErrUsernameExists 用户名已被注册
	ErrUsernameExists = errors.New("username already exists")
)

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	UpdateUser(user *domain.User) error
	UpdateLastLogin(userID string) error
}

// MessageRepository 定义邮件内容存取操作。
//
// 内容创建后不可变；UpdateMessage 仅用于未投递的草稿内容。
type MessageRepository interface {
	SaveMessage(message *domain.Message) error
	GetMessage(id string) (*domain.Message, error)
	UpdateMessage(message *domain.Message) error
	DeleteMessage(id string) error
	// DeleteOrphanMessages 删除没有任何投递和草稿引用的内容，返回删除数量
	DeleteOrphanMessages() (int, error)
}

// DeliveryRepository 定义投递台账存取操作。
type DeliveryRepository interface {
	// CreateDelivery 原子地创建内容与投递记录（要么都成功，要么都失败）
	CreateDelivery(message *domain.Message, delivery *domain.Delivery) error
	// CreateDeliveryForMessage 为已存在的内容创建投递记录（草稿发送）
	CreateDeliveryForMessage(delivery *domain.Delivery) error
	GetDelivery(id string) (*domain.Delivery, error)
	SetDeliveryUnread(id string, unread bool) error
	// ListInbox 按排除法计算收件箱：寄给该用户或其所在群组的投递，
	// 去掉该用户标记为 trash/spam/junk 或已彻底删除的，按 sentAt 降序、id 降序
	ListInbox(userID string, unread *bool, page, pageSize int) ([]domain.Delivery, int, error)
	// ListSent 返回该用户发出的投递，按 sentAt 降序、id 降序
	ListSent(userID string, page, pageSize int) ([]domain.Delivery, int, error)
}

// FolderRepository 定义文件夹标签与彻底删除标记的存取操作。
type FolderRepository interface {
	// UpsertFolderTag 幂等写入标签；(deliveryId, actingUserId, kind) 已存在时不产生重复行
	UpsertFolderTag(tag *domain.FolderTag) error
	// RemoveFolderTag 删除标签；不存在时返回 ErrFolderTagNotFound
	RemoveFolderTag(deliveryID, actingUserID string, kind domain.FolderKind) error
	HasFolderTag(deliveryID, actingUserID string, kind domain.FolderKind) (bool, error)
	// ListFolder 返回该用户标记为指定种类的投递，按 sentAt 降序、id 降序
	ListFolder(actingUserID string, kind domain.FolderKind, page, pageSize int) ([]domain.Delivery, int, error)
	// CreatePermanentDeletion 幂等写入彻底删除标记
	CreatePermanentDeletion(marker *domain.PermanentDeletion) error
	HasPermanentDeletion(deliveryID, deleterID string) (bool, error)
}

// GroupRepository 定义群组与成员关系存取操作。
type GroupRepository interface {
	// SaveGroup 创建群组；名称冲突时返回 ErrGroupNameTaken
	SaveGroup(group *domain.Group) error
	GetGroup(id string) (*domain.Group, error)
	GetGroupByName(name string) (*domain.Group, error)
	UpdateGroup(group *domain.Group) error
	// DeleteGroup 删除群组及其全部成员关系
	DeleteGroup(id string) error
	ListGroupsByUserID(userID string) ([]domain.Group, error)
	// AddGroupMember 添加成员；已存在时返回 ErrAlreadyMember
	AddGroupMember(member *domain.GroupMember) error
	// RemoveGroupMember 移除成员；不存在时返回 ErrMemberNotFound
	RemoveGroupMember(groupID, userID string) error
	IsGroupMember(groupID, userID string) (bool, error)
	ListGroupMembers(groupID string) ([]domain.GroupMember, error)
}

// DraftRepository 定义草稿存取操作。
type DraftRepository interface {
	// SaveDraft 原子地创建内容与草稿记录
	SaveDraft(draft *domain.Draft, message *domain.Message) error
	GetDraft(id string) (*domain.Draft, error)
	UpdateDraft(draft *domain.Draft) error
	ListDraftsByUser(userID string, page, pageSize int) ([]domain.Draft, int, error)
	DeleteDraft(id string) error
}

// JWTRepository 定义 JWT 黑名单操作。
type JWTRepository interface {
	AddToBlacklist(jti string, ttl time.Duration) error
	IsBlacklisted(jti string) (bool, error)
}

// RateLimitRepository 定义限流操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
	GetRateLimit(key string) (int64, error)
}

// SessionRepository 定义会话管理操作。
type SessionRepository interface {
	CacheSession(sessionID string, userID string, ttl time.Duration) error
	GetCachedSession(sessionID string) (string, error)
	DeleteCachedSession(sessionID string) error
}

// Store 定义完整的存储接口。
type Store interface {
	UserRepository
	MessageRepository
	DeliveryRepository
	FolderRepository
	GroupRepository
	DraftRepository
	JWTRepository
	RateLimitRepository
	SessionRepository

	// 工具方法
	Close() error
	Health() error
}
