package domain

import "time"

// AccountStatus 账户生命周期状态（对应 is_del 列）
type AccountStatus int

const (
	// AccountNormal 正常
	AccountNormal AccountStatus = 0
	// AccountDeleted 已软删除，等待物理清理
	AccountDeleted AccountStatus = 1
)

// String 返回状态名称
func (s AccountStatus) String() string {
	switch s {
	case AccountNormal:
		return "normal"
	case AccountDeleted:
		return "delete"
	default:
		return "unknown"
	}
}

// MaxAccountNameLength 账户显示名称最大长度（按字符计）
const MaxAccountNameLength = 30

// Account 表示绑定在用户名下的附属邮箱身份
type Account struct {
	AccountID  int64         `json:"accountId" gorm:"column:account_id;primaryKey;autoIncrement"`
	UserID     int64         `json:"userId" gorm:"column:user_id;index;not null"`
	Email      string        `json:"email" gorm:"column:email;type:varchar(255);index;not null"`
	Name       string        `json:"name" gorm:"column:name;type:varchar(64)"`
	Status     AccountStatus `json:"isDel" gorm:"column:is_del;not null;index"`
	CreateTime time.Time     `json:"createTime" gorm:"column:create_time;autoCreateTime"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "account"
}

// IsDeleted 判断账户是否处于软删除状态
func (a *Account) IsDeleted() bool {
	return a.Status == AccountDeleted
}

// UserAccountCount 按用户分组的账户数量
type UserAccountCount struct {
	UserID int64 `json:"userId" gorm:"column:user_id"`
	Count  int64 `json:"count" gorm:"column:count"`
}
