package domain

import "time"

// UserRole 用户角色
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleSuper UserRole = "super" // 超级管理员，可绕过资源归属检查
)

// User 表示站内邮件系统的注册用户
//
// 核心业务只读取用户身份和群组归属，不管理用户生命周期
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Username     string     `json:"username" gorm:"uniqueIndex;type:varchar(100)"`
	FirstName    string     `json:"firstName,omitempty" gorm:"type:varchar(100)"`
	LastName     string     `json:"lastName,omitempty" gorm:"type:varchar(100)"`
	AvatarURL    string     `json:"avatarUrl,omitempty" gorm:"type:varchar(500)"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255)"` // 不返回给前端
	Role         UserRole   `json:"role" gorm:"type:varchar(20);default:'user';index"`
	IsActive     bool       `json:"isActive" gorm:"default:true"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// IsSuper 判断用户是否为超级管理员
func (u *User) IsSuper() bool {
	return u.Role == RoleSuper
}
