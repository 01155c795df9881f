package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mailworker/backend/internal/config"
	"mailworker/backend/internal/domain"
	"mailworker/backend/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store 基于 GORM 的 SQL 存储实现（PostgreSQL / MySQL）
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(cfg.DSN), cfg)
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(cfg *config.DatabaseConfig) (*Store, error) {
	return NewStoreWithDialector(gormmysql.Open(cfg.DSN), cfg)
}

// Open 根据配置中的数据库类型创建存储实例
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	switch cfg.Type {
	case "postgres":
		return NewStore(cfg)
	case "mysql":
		return NewMySQLStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: mysql, postgres)", cfg.Type)
	}
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector, cfg *config.DatabaseConfig) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 静默模式
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db}

	if cfg.AutoMigrate {
		if err := store.migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return store, nil
}

// NewStoreWithDB 使用已有的 GORM 连接创建存储实例（不执行迁移）
func NewStoreWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// migrate 自动迁移数据库表结构，仅用于开发环境；生产环境使用 migrations 目录的 SQL
func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(
		&domain.User{},
		&domain.Role{},
		&domain.Setting{},
		&domain.Account{},
		&domain.Email{},
		&domain.Attachment{},
	); err != nil {
		return err
	}
	return s.ensureEmailFoldIndex()
}

// ensureEmailFoldIndex 建立邮箱忽略大小写的唯一索引。
// MySQL 依赖表的 utf8mb4_general_ci 排序规则，无需额外索引。
func (s *Store) ensureEmailFoldIndex() error {
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}
	return s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_account_email_lower ON account (LOWER(email))`).Error
}

// ========== Account Repository ==========

// InsertAccount 插入账户
func (s *Store) InsertAccount(ctx context.Context, account *domain.Account) error {
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAccountExists
		}
		return err
	}
	return nil
}

// GetAccountByEmailFold 忽略大小写查询账户（包含已删除）
func (s *Store) GetAccountByEmailFold(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		Order("account_id ASC").
		First(&account).Error
	if err != nil {
		return nil, accountErr(err)
	}
	return &account, nil
}

// GetAccountByEmail 精确匹配邮箱查询账户
func (s *Store) GetAccountByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.Account, error) {
	var account domain.Account
	query := s.db.WithContext(ctx).Where("email = ?", email)
	if !includeDeleted {
		query = query.Where("is_del = ?", domain.AccountNormal)
	}
	if err := query.Order("account_id ASC").First(&account).Error; err != nil {
		return nil, accountErr(err)
	}
	return &account, nil
}

// GetAccountByID 根据ID查询正常状态的账户
func (s *Store) GetAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND is_del = ?", accountID, domain.AccountNormal).
		First(&account).Error
	if err != nil {
		return nil, accountErr(err)
	}
	return &account, nil
}

// ListAccounts 分页返回用户的正常账户
func (s *Store) ListAccounts(ctx context.Context, userID, afterID int64, limit int) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0)
	if limit <= 0 {
		return accounts, nil
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_del = ? AND account_id > ?", userID, domain.AccountNormal, afterID).
		Order("account_id ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}

// CountAccounts 统计用户指定状态的账户数量
func (s *Store) CountAccounts(ctx context.Context, userID int64, status domain.AccountStatus) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("user_id = ? AND is_del = ?", userID, status).
		Count(&count).Error
	return count, err
}

// CountAccountsByUserIDs 按用户分组统计账户数量
func (s *Store) CountAccountsByUserIDs(ctx context.Context, userIDs []int64, status domain.AccountStatus) ([]domain.UserAccountCount, error) {
	result := make([]domain.UserAccountCount, 0)
	if len(userIDs) == 0 {
		return result, nil
	}
	err := s.db.WithContext(ctx).Model(&domain.Account{}).
		Select("user_id, COUNT(account_id) AS count").
		Where("user_id IN ? AND is_del = ?", userIDs, status).
		Group("user_id").
		Order("user_id ASC").
		Scan(&result).Error
	return result, err
}

// UpdateAccountStatus 更新同时匹配用户和账户ID的记录状态
func (s *Store) UpdateAccountStatus(ctx context.Context, userID, accountID int64, status domain.AccountStatus) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("user_id = ? AND account_id = ?", userID, accountID).
		Update("is_del", status)
	return tx.RowsAffected, tx.Error
}

// UpdateAccountName 更新同时匹配用户和账户ID的记录名称
func (s *Store) UpdateAccountName(ctx context.Context, userID, accountID int64, name string) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("user_id = ? AND account_id = ?", userID, accountID).
		Update("name", name)
	return tx.RowsAffected, tx.Error
}

// RestoreAccountsByEmail 恢复指定邮箱的账户
func (s *Store) RestoreAccountsByEmail(ctx context.Context, email string) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("email = ?", email).
		Update("is_del", domain.AccountNormal)
	return tx.RowsAffected, tx.Error
}

// RestoreAccountsByUserID 恢复用户的全部账户
func (s *Store) RestoreAccountsByUserID(ctx context.Context, userID int64) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("user_id = ?", userID).
		Update("is_del", domain.AccountNormal)
	return tx.RowsAffected, tx.Error
}

// ListDeletedAccountIDs 返回处于删除状态的账户ID
func (s *Store) ListDeletedAccountIDs(ctx context.Context, limit int) ([]int64, error) {
	ids := make([]int64, 0)
	err := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("is_del = ?", domain.AccountDeleted).
		Order("account_id ASC").
		Limit(limit).
		Pluck("account_id", &ids).Error
	return ids, err
}

// DeleteAccountsByIDs 物理删除指定账户
func (s *Store) DeleteAccountsByIDs(ctx context.Context, accountIDs []int64) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Where("account_id IN ?", accountIDs).Delete(&domain.Account{})
	return tx.RowsAffected, tx.Error
}

// DeleteAccountsByUserIDs 物理删除用户的全部账户
func (s *Store) DeleteAccountsByUserIDs(ctx context.Context, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Delete(&domain.Account{})
	return tx.RowsAffected, tx.Error
}

// ========== User / Role Repository ==========

// GetUserByID 根据ID获取用户
func (s *Store) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetRoleByID 根据ID获取角色
func (s *Store) GetRoleByID(ctx context.Context, roleID int64) (*domain.Role, error) {
	var role domain.Role
	if err := s.db.WithContext(ctx).Where("role_id = ?", roleID).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

// ========== Setting Repository ==========

// GetSetting 获取系统设置，不存在时返回默认值
func (s *Store) GetSetting(ctx context.Context) (*domain.Setting, error) {
	var setting domain.Setting
	err := s.db.WithContext(ctx).Where("setting_id = ?", domain.SettingID).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DefaultSetting(), nil
		}
		return nil, err
	}
	return &setting, nil
}

// SaveSetting 保存系统设置
func (s *Store) SaveSetting(ctx context.Context, setting *domain.Setting) error {
	setting.SettingID = domain.SettingID
	return s.db.WithContext(ctx).Save(setting).Error
}

// ========== Email Repository ==========

// DeleteEmailsByAccountIDs 删除账户下的全部邮件
func (s *Store) DeleteEmailsByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Where("account_id IN ?", accountIDs).Delete(&domain.Email{})
	return tx.RowsAffected, tx.Error
}

// DeleteEmailsByUserIDs 删除用户的全部邮件
func (s *Store) DeleteEmailsByUserIDs(ctx context.Context, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Delete(&domain.Email{})
	return tx.RowsAffected, tx.Error
}

// DeleteAttachmentsByAccountIDs 删除账户下的附件元数据
func (s *Store) DeleteAttachmentsByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Where("account_id IN ?", accountIDs).Delete(&domain.Attachment{})
	return tx.RowsAffected, tx.Error
}

// DeleteAttachmentsByUserIDs 删除用户的附件元数据
func (s *Store) DeleteAttachmentsByUserIDs(ctx context.Context, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Delete(&domain.Attachment{})
	return tx.RowsAffected, tx.Error
}

// ========== 工具方法 ==========

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("database connection is nil: %w", err)
	}
	return sqlDB.Ping()
}

// accountErr 将 GORM 的未找到错误转换为存储层错误
func accountErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrAccountNotFound
	}
	return err
}

// isUniqueViolation 判断是否为唯一索引冲突（PostgreSQL 23505 / MySQL 1062）
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	return false
}
