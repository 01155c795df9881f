package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailworker/backend/internal/domain"
)

// 业务错误键 -> 中文消息
var errorMessages = map[string]string{
	domain.ErrAddAccountDisabled.Key: "添加邮箱功能已关闭",
	domain.ErrEmptyEmail.Key:         "邮箱不能为空",
	domain.ErrNotEmail.Key:           "邮箱格式不正确",
	domain.ErrNameTooLong.Key:        "名称长度超出限制",
	domain.ErrDomainNotExist.Key:     "邮箱域名不存在",
	domain.ErrAccountDeleted.Key:     "该邮箱已被删除",
	domain.ErrAccountRegistered.Key:  "该邮箱已被注册",
	domain.ErrAccountLimit.Key:       "邮箱数量已达上限",
	domain.ErrNoDomainPermAdd.Key:    "没有该域名的添加权限",
	domain.ErrDeleteOwnAccount.Key:   "不能删除自己的主邮箱",
	domain.ErrNotUserAccount.Key:     "该邮箱不属于当前用户",
	domain.ErrAccountNotFound.Key:    "邮箱不存在",
	domain.ErrUserNotFound.Key:       "用户不存在",
	domain.ErrRoleNotFound.Key:       "角色不存在",
	domain.ErrBotVerifyFailed.Key:    "人机验证失败",
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"
	MsgAuthRequired   = "需要登录认证"
	MsgInternalError  = "服务器内部错误"
)

// GetErrorMessage 获取业务错误键对应的中文消息，未登记的键原样返回
func GetErrorMessage(key string) string {
	if msg, ok := errorMessages[key]; ok {
		return msg
	}
	return key
}

// respondError 将业务错误映射为其状态码与本地化消息，其他错误一律 500
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var biz *domain.BizError
	if errors.As(err, &biz) {
		status := biz.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		Error(c, status, GetErrorMessage(biz.Key))
		return
	}

	log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalError(c, MsgInternalError)
}
