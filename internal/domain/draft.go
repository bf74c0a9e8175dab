package domain

import "time"

// Draft 表示尚未投递的邮件：一条没有 Delivery 的 Message
//
// 发送草稿时将其提升为投递记录并删除草稿行，内容记录原样复用。
type Draft struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DrafterID string    `json:"drafterId" gorm:"type:varchar(36);index;not null"`
	MessageID string    `json:"messageId" gorm:"type:varchar(36);index;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// 关联内容（查询时填充，不映射数据库列）
	Message *Message `json:"message,omitempty" gorm:"-"`
}
