package domain

import "time"

// Email 账户下的邮件数据，账户物理删除时级联清理
type Email struct {
	EmailID    int64     `json:"emailId" gorm:"column:email_id;primaryKey;autoIncrement"`
	AccountID  int64     `json:"accountId" gorm:"column:account_id;index;not null"`
	UserID     int64     `json:"userId" gorm:"column:user_id;index;not null"`
	SendEmail  string    `json:"sendEmail" gorm:"column:send_email;type:varchar(255)"`
	ToEmail    string    `json:"toEmail" gorm:"column:to_email;type:varchar(255)"`
	Subject    string    `json:"subject" gorm:"column:subject;type:varchar(500)"`
	Content    string    `json:"content" gorm:"column:content;type:text"`
	Type       int       `json:"type" gorm:"column:type;default:0"` // 0 收件 1 发件
	IsDel      int       `json:"isDel" gorm:"column:is_del;default:0"`
	CreateTime time.Time `json:"createTime" gorm:"column:create_time;autoCreateTime"`
}

// TableName 指定表名
func (Email) TableName() string {
	return "email"
}

// Attachment 邮件附件元数据
type Attachment struct {
	AttID       int64  `json:"attId" gorm:"column:att_id;primaryKey;autoIncrement"`
	EmailID     int64  `json:"emailId" gorm:"column:email_id;index;not null"`
	AccountID   int64  `json:"accountId" gorm:"column:account_id;index;not null"`
	UserID      int64  `json:"userId" gorm:"column:user_id;index;not null"`
	Key         string `json:"key" gorm:"column:key;type:varchar(255)"` // 对象存储路径
	Filename    string `json:"filename" gorm:"column:filename;type:varchar(255)"`
	ContentType string `json:"contentType" gorm:"column:content_type;type:varchar(100)"`
	Size        int64  `json:"size" gorm:"column:size"`
}

// TableName 指定表名
func (Attachment) TableName() string {
	return "attachments"
}
