package httptransport

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailworker/backend/internal/domain"
	"mailworker/backend/internal/middleware"
	"mailworker/backend/internal/service"
)

// AccountHandler 账户接口处理器
type AccountHandler struct {
	accounts *service.AccountService
	log      *zap.Logger
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(accounts *service.AccountService, log *zap.Logger) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountHandler{accounts: accounts, log: log}
}

// currentUser 取出认证中间件写入的用户ID
func currentUser(c *gin.Context) (int64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		Error(c, http.StatusUnauthorized, MsgAuthRequired)
	}
	return userID, ok
}

// add 添加邮箱账户
// POST /v1/account/add {email, token}
func (h *AccountHandler) add(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input service.AddAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.Add(c.Request.Context(), input, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	Created(c, account)
}

// list 分页列出当前用户的正常账户
// GET /v1/account/list?accountId=&size=
func (h *AccountHandler) list(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input service.ListAccountInput
	if err := c.ShouldBindQuery(&input); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	accounts, err := h.accounts.List(c.Request.Context(), input, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}

	Success(c, accounts)
}

// delete 软删除账户
// DELETE /v1/account/delete?accountId=
func (h *AccountHandler) delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	accountID, err := strconv.ParseInt(strings.TrimSpace(c.Query("accountId")), 10, 64)
	if err != nil || accountID <= 0 {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), service.DeleteAccountInput{AccountID: accountID}, userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	Success(c, nil)
}

// setName 修改账户显示名称
// PUT /v1/account/setName {accountId, name}
func (h *AccountHandler) setName(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input service.SetNameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.accounts.SetName(c.Request.Context(), input, userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	Success(c, nil)
}
