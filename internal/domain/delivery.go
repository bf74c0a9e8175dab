package domain

import "time"

// Delivery 表示一次投递：一封邮件从发件人到单个收件人或单个群组的传输事件
//
// 每次发送恰好创建一条投递记录；MessageID、SenderID 与目标在创建后不可变。
// RecipientID 与 GroupID 恰好设置其一。
//
// Unread 是整条投递记录上的共享标志：群组投递的任一成员标记已读都会影响
// 所有成员的视图。这是有意保留的语义，见 DESIGN.md。
type Delivery struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MessageID   string    `json:"messageId" gorm:"type:varchar(36);index;not null"`
	SenderID    string    `json:"senderId" gorm:"type:varchar(36);index;not null"`
	RecipientID *string   `json:"recipientId,omitempty" gorm:"type:varchar(36);index"`
	GroupID     *string   `json:"groupId,omitempty" gorm:"type:varchar(36);index"`
	SentAt      time.Time `json:"sentAt" gorm:"index;not null"` // 服务端时钟，创建后不可变
	Unread      bool      `json:"unread" gorm:"default:true;index"`

	// 关联内容（查询时填充，不映射数据库列）
	Message *Message `json:"message,omitempty" gorm:"-"`
}

// IsGroupDelivery 判断是否为群组投递
func (d *Delivery) IsGroupDelivery() bool {
	return d.GroupID != nil
}

// AddressedTo 判断投递是否直接寄给指定用户
func (d *Delivery) AddressedTo(userID string) bool {
	return d.RecipientID != nil && *d.RecipientID == userID
}
