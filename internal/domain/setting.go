package domain

// SettingID 系统设置只有一行
const SettingID = 1

// Setting 系统设置
type Setting struct {
	SettingID      int    `json:"-" gorm:"column:setting_id;primaryKey"`
	Title          string `json:"title" gorm:"column:title;type:varchar(64)"`
	Register       bool   `json:"register" gorm:"column:register"`
	RegisterVerify bool   `json:"registerVerify" gorm:"column:register_verify"`
	AddEmail       bool   `json:"addEmail" gorm:"column:add_email"`              // 是否允许添加邮箱
	AddEmailVerify bool   `json:"addEmailVerify" gorm:"column:add_email_verify"` // 添加邮箱是否需要人机验证
	SiteKey        string `json:"siteKey" gorm:"column:site_key;type:varchar(255)"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "setting"
}

// DefaultSetting 返回默认系统设置
func DefaultSetting() *Setting {
	return &Setting{
		SettingID:      SettingID,
		Title:          "Cloud Mail",
		Register:       true,
		RegisterVerify: false,
		AddEmail:       true,
		AddEmailVerify: false,
	}
}
