package domain

import (
	"errors"
	"time"
)

// FolderKind 文件夹标签种类
type FolderKind string

const (
	FolderTrash     FolderKind = "trash"
	FolderSpam      FolderKind = "spam"
	FolderJunk      FolderKind = "junk"
	FolderFavorites FolderKind = "favorites"
)

// ErrUnknownFolderKind 未知的文件夹种类
var ErrUnknownFolderKind = errors.New("unknown folder kind")

// ParseFolderKind 将外部输入解析为文件夹种类
//
// 业务逻辑只接受显式的类型化参数，不从 URL 尾缀推断
func ParseFolderKind(value string) (FolderKind, error) {
	switch FolderKind(value) {
	case FolderTrash, FolderSpam, FolderJunk, FolderFavorites:
		return FolderKind(value), nil
	}
	return "", ErrUnknownFolderKind
}

// IsExclusion 判断该种类是否参与收件箱排除
//
// trash/spam/junk 三类互斥并从收件箱排除；favorites 正交，不影响收件箱
func (k FolderKind) IsExclusion() bool {
	return k == FolderTrash || k == FolderSpam || k == FolderJunk
}

// ExclusionKinds 返回参与收件箱排除的全部种类
func ExclusionKinds() []FolderKind {
	return []FolderKind{FolderTrash, FolderSpam, FolderJunk}
}

// FolderTag 表示某个用户对某条投递的文件夹标记
//
// 不变式：(DeliveryID, ActingUserID, Kind) 最多一行；重复打标是幂等的。
// 标签按操作用户隔离：同一条投递可以同时被 A 移入回收站、被 B 收藏。
type FolderTag struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DeliveryID   string     `json:"deliveryId" gorm:"type:varchar(36);uniqueIndex:idx_tag_identity;not null"`
	ActingUserID string     `json:"actingUserId" gorm:"type:varchar(36);uniqueIndex:idx_tag_identity;not null"`
	Kind         FolderKind `json:"kind" gorm:"type:varchar(20);uniqueIndex:idx_tag_identity;not null"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// PermanentDeletion 表示某个用户已将一条投递从回收站彻底清除
//
// 标记只隐藏该用户自己的视图，不影响其他收件人，也不删除邮件内容。
type PermanentDeletion struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DeliveryID string    `json:"deliveryId" gorm:"type:varchar(36);uniqueIndex:idx_purge_identity;not null"`
	DeleterID  string    `json:"deleterId" gorm:"type:varchar(36);uniqueIndex:idx_purge_identity;not null"`
	CreatedAt  time.Time `json:"createdAt"`
}
