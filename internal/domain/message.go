package domain

import "time"

// Message 表示一封邮件的内容记录
//
// 内容在发送时创建一次，之后不可变；多个投递视图共享同一条内容，
// 各收件人的文件夹操作只作用于投递记录，不触碰内容本身。
// 内容仅在没有任何投递和草稿引用它时由后台清理任务删除。
type Message struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Subject       string    `json:"subject" gorm:"type:varchar(200);not null"`
	Body          string    `json:"body" gorm:"type:text;not null"`
	AttachmentRef *string   `json:"attachmentRef,omitempty" gorm:"type:varchar(500)"` // 附件引用（外部对象存储的 key），可选
	CreatedAt     time.Time `json:"createdAt"`
}
