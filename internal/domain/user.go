package domain

import "time"

// UserStatus 用户状态
type UserStatus int

const (
	UserStatusNormal UserStatus = 0
	UserStatusBanned UserStatus = 1
)

// User 表示注册用户的业务实体
type User struct {
	UserID     int64      `json:"userId" gorm:"column:user_id;primaryKey;autoIncrement"`
	Email      string     `json:"email" gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	Type       int64      `json:"type" gorm:"column:type;index"` // 角色ID
	Status     UserStatus `json:"status" gorm:"column:status;default:0"`
	CreateTime time.Time  `json:"createTime" gorm:"column:create_time;autoCreateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "user"
}

// Role 用户角色，定义账户配额与可用域名
type Role struct {
	RoleID       int64    `json:"roleId" gorm:"column:role_id;primaryKey;autoIncrement"`
	Name         string   `json:"name" gorm:"column:name;type:varchar(64)"`
	AccountCount int      `json:"accountCount" gorm:"column:account_count;default:0"` // 0 表示不限制
	AvailDomain  []string `json:"availDomain" gorm:"column:avail_domain;serializer:json;type:text"`
}

// TableName 指定表名
func (Role) TableName() string {
	return "role"
}

// HasAccountQuota 角色是否设置了账户数量上限
func (r *Role) HasAccountQuota() bool {
	return r.AccountCount > 0
}
