package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"mailworker/backend/internal/config"
	"mailworker/backend/internal/domain"
	"mailworker/backend/internal/monitoring"
	"mailworker/backend/internal/storage"
)

const (
	// PurgeBatchSize 物理清理每批处理的账户数
	PurgeBatchSize = 99
	// DefaultListSize 账户列表默认（也是最大）单页条数
	DefaultListSize = 30
)

// SettingChecker 读取系统开关
type SettingChecker interface {
	IsAddEmailEnabled(ctx context.Context) (bool, error)
	IsAddEmailVerifyRequired(ctx context.Context) (bool, error)
}

// UserLookup 查询用户
type UserLookup interface {
	GetByID(ctx context.Context, userID int64) (*domain.User, error)
}

// RoleLookup 查询角色及其域名权限
type RoleLookup interface {
	GetByID(ctx context.Context, roleID int64) (*domain.Role, error)
	DomainAllowed(availDomain []string, email string) bool
}

// BotVerifier 人机验证
type BotVerifier interface {
	Verify(ctx context.Context, token string) error
}

// EmailPurger 级联删除账户下的邮件数据
type EmailPurger interface {
	PurgeByAccountIDs(ctx context.Context, accountIDs []int64) error
	PurgeByUserIDs(ctx context.Context, userIDs []int64) error
}

// AccountServiceDeps 账户服务依赖的协作方
type AccountServiceDeps struct {
	Settings SettingChecker
	Users    UserLookup
	Roles    RoleLookup
	Verifier BotVerifier
	Emails   EmailPurger
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger
}

// AccountService 邮箱账户生命周期：创建、查询、软删除、恢复、改名和物理清理。
type AccountService struct {
	repo      storage.AccountRepository
	settings  SettingChecker
	users     UserLookup
	roles     RoleLookup
	verifier  BotVerifier
	emails    EmailPurger
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	cfg       *config.AccountConfig
	domainSet map[string]struct{}
	validator *domain.EmailValidator
}

// NewAccountService 创建账户服务。
func NewAccountService(repo storage.AccountRepository, deps AccountServiceDeps, cfg *config.AccountConfig) *AccountService {
	domainSet := make(map[string]struct{}, len(cfg.Domains))
	for _, d := range cfg.Domains {
		domainSet[strings.ToLower(strings.TrimPrefix(d, "@"))] = struct{}{}
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AccountService{
		repo:      repo,
		settings:  deps.Settings,
		users:     deps.Users,
		roles:     deps.Roles,
		verifier:  deps.Verifier,
		emails:    deps.Emails,
		metrics:   deps.Metrics,
		logger:    logger,
		cfg:       cfg,
		domainSet: domainSet,
		validator: domain.NewEmailValidator(),
	}
}

// AddAccountInput 定义添加账户所需的输入。
type AddAccountInput struct {
	Email string `json:"email"`
	Token string `json:"token"` // 人机验证令牌
}

// ListAccountInput 列表查询参数，原样接收字符串后再做容错转换。
type ListAccountInput struct {
	AccountID string `form:"accountId"` // 游标：返回 account_id 大于该值的账户
	Size      string `form:"size"`
}

// DeleteAccountInput 定义删除账户的输入。
type DeleteAccountInput struct {
	AccountID int64 `form:"accountId" json:"accountId"`
}

// SetNameInput 定义账户改名的输入。
type SetNameInput struct {
	AccountID int64  `json:"accountId"`
	Name      string `json:"name"`
}

// Add 为用户添加一个邮箱账户。
//
// 校验按固定顺序进行，任一失败立即返回对应的业务错误：
// 功能开关、邮箱格式、域名、是否已存在、角色配额与域名权限、人机验证。
func (s *AccountService) Add(ctx context.Context, input AddAccountInput, userID int64) (account *domain.Account, err error) {
	defer func() {
		var bizErr *domain.BizError
		if errors.As(err, &bizErr) {
			s.metrics.RecordAccountRejected(bizErr.Key)
		}
	}()

	enabled, err := s.settings.IsAddEmailEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, domain.ErrAddAccountDisabled
	}

	email := input.Email
	if email == "" {
		return nil, domain.ErrEmptyEmail
	}
	if err := s.validator.ValidateEmail(email); err != nil {
		return nil, domain.ErrNotEmail
	}
	if _, ok := s.domainSet[domain.EmailDomain(email)]; !ok {
		return nil, domain.ErrDomainNotExist
	}

	existing, err := s.repo.GetAccountByEmailFold(ctx, email)
	switch {
	case err == nil && existing.IsDeleted():
		return nil, domain.ErrAccountDeleted
	case err == nil:
		return nil, domain.ErrAccountRegistered
	case !errors.Is(err, storage.ErrAccountNotFound):
		return nil, fmt.Errorf("check account %s: %w", email, err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.GetByID(ctx, user.Type)
	if err != nil {
		return nil, err
	}

	if !s.isSuperAdmin(user) {
		if role.HasAccountQuota() {
			count, err := s.repo.CountAccounts(ctx, userID, domain.AccountNormal)
			if err != nil {
				return nil, fmt.Errorf("count accounts: %w", err)
			}
			if count >= int64(role.AccountCount) {
				return nil, domain.ErrAccountLimit
			}
		}

		if !s.roles.DomainAllowed(role.AvailDomain, email) {
			return nil, domain.ErrNoDomainPermAdd
		}
	}

	verify, err := s.settings.IsAddEmailVerifyRequired(ctx)
	if err != nil {
		return nil, err
	}
	if verify {
		if s.verifier == nil {
			return nil, ErrTurnstileNotConfigured
		}
		if err := s.verifier.Verify(ctx, input.Token); err != nil {
			return nil, err
		}
	}

	account = &domain.Account{
		UserID: userID,
		Email:  email,
		Name:   domain.EmailName(email),
		Status: domain.AccountNormal,
	}
	if err := s.repo.InsertAccount(ctx, account); err != nil {
		// 并发添加同一邮箱时由唯一索引兜底
		if errors.Is(err, storage.ErrAccountExists) {
			return nil, domain.ErrAccountRegistered
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	s.metrics.RecordAccountCreated()
	s.logger.Info("account created",
		zap.Int64("account_id", account.AccountID),
		zap.Int64("user_id", userID),
		zap.String("email", email),
	)
	return account, nil
}

// isSuperAdmin 超级管理员不受角色配额和域名权限限制
func (s *AccountService) isSuperAdmin(user *domain.User) bool {
	return s.cfg.AdminEmail != "" && strings.EqualFold(user.Email, s.cfg.AdminEmail)
}

// GetByEmailIncludeDelNoCase 忽略大小写查询账户，包含已删除账户
func (s *AccountService) GetByEmailIncludeDelNoCase(ctx context.Context, email string) (*domain.Account, error) {
	return s.lookup(s.repo.GetAccountByEmailFold(ctx, email))
}

// GetByEmailIncludeDel 精确查询账户，包含已删除账户
func (s *AccountService) GetByEmailIncludeDel(ctx context.Context, email string) (*domain.Account, error) {
	return s.lookup(s.repo.GetAccountByEmail(ctx, email, true))
}

// GetByEmail 精确查询正常状态的账户
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.lookup(s.repo.GetAccountByEmail(ctx, email, false))
}

// GetByID 查询正常状态的账户
func (s *AccountService) GetByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	return s.lookup(s.repo.GetAccountByID(ctx, accountID))
}

func (s *AccountService) lookup(account *domain.Account, err error) (*domain.Account, error) {
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// List 按 account_id 升序分页返回用户的正常账户。
func (s *AccountService) List(ctx context.Context, input ListAccountInput, userID int64) ([]domain.Account, error) {
	cursor := parseCursor(input.AccountID)
	size := parseSize(input.Size, s.listMaxSize())

	accounts, err := s.repo.ListAccounts(ctx, userID, cursor, size)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// listMaxSize 配置值只能调小单页上限，不能超过 DefaultListSize
func (s *AccountService) listMaxSize() int {
	if s.cfg.ListMaxSize > 0 {
		return min(s.cfg.ListMaxSize, DefaultListSize)
	}
	return DefaultListSize
}

// parseCursor 非数字、缺失或负数视为 0；小数向下取整
func parseCursor(raw string) int64 {
	v, ok := parseNumber(raw)
	if !ok || v <= 0 {
		return 0
	}
	return int64(v)
}

// parseSize 非数字、缺失或非正数使用最大值；超过最大值截断
func parseSize(raw string, maxSize int) int {
	v, ok := parseNumber(raw)
	if !ok || v < 1 || v > float64(maxSize) {
		return maxSize
	}
	return int(v)
}

func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return float64(n), true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return math.Floor(f), true
}

// Delete 软删除用户名下的账户。
//
// 不能删除与用户登录邮箱相同的主账户，也不能删除其他用户的账户。
func (s *AccountService) Delete(ctx context.Context, input DeleteAccountInput, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	account, err := s.GetByID(ctx, input.AccountID)
	if err != nil {
		return err
	}

	if strings.EqualFold(account.Email, user.Email) {
		return domain.ErrDeleteOwnAccount
	}
	if account.UserID != user.UserID {
		return domain.ErrNotUserAccount
	}

	n, err := s.repo.UpdateAccountStatus(ctx, userID, input.AccountID, domain.AccountDeleted)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", input.AccountID, err)
	}
	if n > 0 {
		s.metrics.RecordAccountDeleted()
		s.logger.Info("account deleted",
			zap.Int64("account_id", input.AccountID),
			zap.Int64("user_id", userID),
		)
	}
	return nil
}

// RestoreByEmail 恢复指定邮箱的账户，供内部可信流程调用
func (s *AccountService) RestoreByEmail(ctx context.Context, email string) error {
	n, err := s.repo.RestoreAccountsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("restore account %s: %w", email, err)
	}
	s.metrics.RecordAccountsRestored(n)
	s.logger.Info("accounts restored by email", zap.String("email", email), zap.Int64("rows", n))
	return nil
}

// RestoreByUserID 恢复用户的全部账户，供内部可信流程调用
func (s *AccountService) RestoreByUserID(ctx context.Context, userID int64) error {
	n, err := s.repo.RestoreAccountsByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("restore accounts of user %d: %w", userID, err)
	}
	s.metrics.RecordAccountsRestored(n)
	s.logger.Info("accounts restored by user", zap.Int64("user_id", userID), zap.Int64("rows", n))
	return nil
}

// SetName 修改账户显示名称；账户不属于该用户时不做任何修改
func (s *AccountService) SetName(ctx context.Context, input SetNameInput, userID int64) error {
	if !domain.ValidateAccountName(input.Name) {
		return domain.ErrNameTooLong
	}

	if _, err := s.repo.UpdateAccountName(ctx, userID, input.AccountID, input.Name); err != nil {
		return fmt.Errorf("rename account %d: %w", input.AccountID, err)
	}
	return nil
}

// Insert 直接插入账户，不做任何资格校验。仅供注册等可信流程使用。
func (s *AccountService) Insert(ctx context.Context, account *domain.Account) error {
	if err := s.repo.InsertAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			return domain.ErrAccountRegistered
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// PhysicsDeleteAll 分批物理删除所有已软删除的账户及其邮件数据，返回删除的账户数。
//
// 每批最多 PurgeBatchSize 个：先级联删除邮件，再删除账户行。级联失败时该批账户保留，
// 下次执行会重新处理。
func (s *AccountService) PhysicsDeleteAll(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		ids, err := s.repo.ListDeletedAccountIDs(ctx, PurgeBatchSize)
		if err != nil {
			return total, fmt.Errorf("list deleted accounts: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		if err := s.emails.PurgeByAccountIDs(ctx, ids); err != nil {
			s.logger.Error("purge email data failed", zap.Int("batch", len(ids)), zap.Error(err))
			return total, fmt.Errorf("purge email data: %w", err)
		}

		n, err := s.repo.DeleteAccountsByIDs(ctx, ids)
		if err != nil {
			return total, fmt.Errorf("delete accounts: %w", err)
		}
		total += int(n)

		if len(ids) < PurgeBatchSize {
			break
		}
		if n == 0 {
			return total, fmt.Errorf("purge made no progress on batch starting at account %d", ids[0])
		}
	}

	if total > 0 {
		s.logger.Info("deleted accounts purged", zap.Int("count", total))
	}
	return total, nil
}

// PhysicsDeleteByUserIDs 删除用户的全部账户（不论状态）及其邮件数据
func (s *AccountService) PhysicsDeleteByUserIDs(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	if err := s.emails.PurgeByUserIDs(ctx, userIDs); err != nil {
		s.logger.Error("purge email data failed", zap.Int64s("user_ids", userIDs), zap.Error(err))
		return fmt.Errorf("purge email data: %w", err)
	}

	n, err := s.repo.DeleteAccountsByUserIDs(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("delete accounts: %w", err)
	}

	s.logger.Info("user accounts purged", zap.Int64s("user_ids", userIDs), zap.Int64("count", n))
	return nil
}

// CountUserAccount 统计用户正常状态的账户数
func (s *AccountService) CountUserAccount(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountAccounts(ctx, userID, domain.AccountNormal)
}

// SelectUserAccountCountList 按用户分组统计账户数，status 缺省为正常状态
func (s *AccountService) SelectUserAccountCountList(ctx context.Context, userIDs []int64, status ...domain.AccountStatus) ([]domain.UserAccountCount, error) {
	st := domain.AccountNormal
	if len(status) > 0 {
		st = status[0]
	}
	return s.repo.CountAccountsByUserIDs(ctx, userIDs, st)
}
