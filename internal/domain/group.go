package domain

import "time"

// Group 表示一个命名的收件群组
//
// 不变式：创建者始终是成员，且不能被移除（包括自行退出）；
// 解散群组是创建者唯一的退出途径。
type Group struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"uniqueIndex;type:varchar(100);not null"`
	Description string    `json:"description" gorm:"type:varchar(300)"`
	CreatorID   string    `json:"creatorId" gorm:"type:varchar(36);index;not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// 成员 ID 列表（查询时填充，不映射数据库列）
	MemberIDs []string `json:"memberIds,omitempty" gorm:"-"`
}

// TableName 避开 MySQL 8 的 GROUPS 保留字
func (Group) TableName() string {
	return "mail_groups"
}

// IsCreator 判断用户是否为群组创建者
func (g *Group) IsCreator(userID string) bool {
	return g.CreatorID == userID
}

// GroupMember 表示群组成员关系
type GroupMember struct {
	ID      string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	GroupID string `json:"groupId" gorm:"type:varchar(36);uniqueIndex:idx_member_identity;not null"`
	UserID  string `json:"userId" gorm:"type:varchar(36);uniqueIndex:idx_member_identity;not null"`
	AddedBy string    `json:"addedBy" gorm:"type:varchar(36)"` // 执行添加操作的成员
	AddedAt time.Time `json:"addedAt"`
}
