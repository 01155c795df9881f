package storage

import (
	"context"
	"errors"

	"mailworker/backend/internal/domain"
)

var (
	// ErrAccountNotFound 账户未找到
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists 账户邮箱已存在（唯一索引冲突）
	ErrAccountExists = errors.New("account already exists")
	// ErrUserNotFound 用户未找到
	ErrUserNotFound = errors.New("user not found")
	// ErrRoleNotFound 角色未找到
	ErrRoleNotFound = errors.New("role not found")
)

// AccountRepository 定义账户数据存取操作。
//
// 所有修改语句都带上 user_id 条件，并发交错时只会更新 0 行，而不会改到别人的数据。
type AccountRepository interface {
	InsertAccount(ctx context.Context, account *domain.Account) error

	// GetAccountByEmailFold 忽略大小写匹配，包含已删除账户
	GetAccountByEmailFold(ctx context.Context, email string) (*domain.Account, error)
	// GetAccountByEmail 精确匹配；includeDeleted 为 false 时只查正常账户
	GetAccountByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.Account, error)
	// GetAccountByID 只查正常账户
	GetAccountByID(ctx context.Context, accountID int64) (*domain.Account, error)
	// ListAccounts 按 account_id 升序返回 account_id > afterID 的正常账户
	ListAccounts(ctx context.Context, userID, afterID int64, limit int) ([]domain.Account, error)

	CountAccounts(ctx context.Context, userID int64, status domain.AccountStatus) (int64, error)
	CountAccountsByUserIDs(ctx context.Context, userIDs []int64, status domain.AccountStatus) ([]domain.UserAccountCount, error)

	UpdateAccountStatus(ctx context.Context, userID, accountID int64, status domain.AccountStatus) (int64, error)
	UpdateAccountName(ctx context.Context, userID, accountID int64, name string) (int64, error)
	RestoreAccountsByEmail(ctx context.Context, email string) (int64, error)
	RestoreAccountsByUserID(ctx context.Context, userID int64) (int64, error)

	// ListDeletedAccountIDs 返回最多 limit 个处于删除状态的账户ID（升序）
	ListDeletedAccountIDs(ctx context.Context, limit int) ([]int64, error)
	DeleteAccountsByIDs(ctx context.Context, accountIDs []int64) (int64, error)
	DeleteAccountsByUserIDs(ctx context.Context, userIDs []int64) (int64, error)
}

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	GetUserByID(ctx context.Context, userID int64) (*domain.User, error)
}

// RoleRepository 定义角色数据存取操作。
type RoleRepository interface {
	GetRoleByID(ctx context.Context, roleID int64) (*domain.Role, error)
}

// SettingRepository 定义系统设置存取操作。
type SettingRepository interface {
	GetSetting(ctx context.Context) (*domain.Setting, error)
	SaveSetting(ctx context.Context, setting *domain.Setting) error
}

// EmailRepository 定义邮件数据的级联清理操作。
type EmailRepository interface {
	DeleteEmailsByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error)
	DeleteEmailsByUserIDs(ctx context.Context, userIDs []int64) (int64, error)
	DeleteAttachmentsByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error)
	DeleteAttachmentsByUserIDs(ctx context.Context, userIDs []int64) (int64, error)
}

// Store 定义完整的存储接口。
type Store interface {
	AccountRepository
	UserRepository
	RoleRepository
	SettingRepository
	EmailRepository

	// 工具方法
	Close() error
	Health() error
}
