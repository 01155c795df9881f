package domain

import "net/http"

// BizError 业务错误，携带本地化消息键与 HTTP 状态码
type BizError struct {
	Key    string // 本地化消息键
	Status int    // HTTP 状态码
}

// Error 实现 error 接口
func (e *BizError) Error() string {
	return e.Key
}

// NewBizError 创建业务错误（默认 400）
func NewBizError(key string) *BizError {
	return &BizError{Key: key, Status: http.StatusBadRequest}
}

// NewBizErrorWithStatus 创建指定状态码的业务错误
func NewBizErrorWithStatus(key string, status int) *BizError {
	return &BizError{Key: key, Status: status}
}

// 账户相关的业务错误
var (
	// 功能关闭
	ErrAddAccountDisabled = NewBizError("addAccountDisabled")

	// 参数校验
	ErrEmptyEmail  = NewBizError("emptyEmail")
	ErrNotEmail    = NewBizError("notEmail")
	ErrNameTooLong = NewBizError("usernameLengthLimit")

	// 冲突
	ErrDomainNotExist    = NewBizError("notExistDomain")
	ErrAccountDeleted    = NewBizError("isDelAccount")
	ErrAccountRegistered = NewBizError("isRegAccount")

	// 权限
	ErrAccountLimit     = NewBizErrorWithStatus("accountLimit", http.StatusForbidden)
	ErrNoDomainPermAdd  = NewBizErrorWithStatus("noDomainPermAdd", http.StatusForbidden)
	ErrDeleteOwnAccount = NewBizError("delMyAccount")
	ErrNotUserAccount   = NewBizError("noUserAccount")

	// 资源不存在
	ErrAccountNotFound = NewBizErrorWithStatus("accountNotExist", http.StatusNotFound)
	ErrUserNotFound    = NewBizErrorWithStatus("userNotExist", http.StatusNotFound)
	ErrRoleNotFound    = NewBizErrorWithStatus("roleNotExist", http.StatusNotFound)

	// 人机验证
	ErrBotVerifyFailed = NewBizError("botVerifyFail")
)
