package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mailworker/backend/internal/domain"
	"mailworker/backend/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store 使用内存保存账户及关联数据，主要用于开发验证和测试。
type Store struct {
	mu          sync.RWMutex
	accounts    map[int64]*domain.Account // accountID -> account
	users       map[int64]*domain.User    // userID -> user
	roles       map[int64]*domain.Role    // roleID -> role
	emails      map[int64]*domain.Email   // emailID -> email
	attachments map[int64]*domain.Attachment
	setting     *domain.Setting

	nextAccountID int64
	nextUserID    int64
	nextEmailID   int64
	nextAttID     int64
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		accounts:    make(map[int64]*domain.Account),
		users:       make(map[int64]*domain.User),
		roles:       make(map[int64]*domain.Role),
		emails:      make(map[int64]*domain.Email),
		attachments: make(map[int64]*domain.Attachment),
		setting:     domain.DefaultSetting(),
	}
}

// ========== Account Repository ==========

// InsertAccount 插入账户，邮箱忽略大小写唯一。
func (s *Store) InsertAccount(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return storage.ErrAccountExists
		}
	}

	if account.AccountID == 0 {
		s.nextAccountID++
		account.AccountID = s.nextAccountID
	} else if account.AccountID > s.nextAccountID {
		s.nextAccountID = account.AccountID
	}
	if account.CreateTime.IsZero() {
		account.CreateTime = time.Now().UTC()
	}

	stored := *account
	s.accounts[stored.AccountID] = &stored
	return nil
}

// GetAccountByEmailFold 忽略大小写查询账户（包含已删除）。
func (s *Store) GetAccountByEmailFold(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lowered := strings.ToLower(email)
	for _, id := range s.sortedAccountIDsLocked() {
		a := s.accounts[id]
		if strings.ToLower(a.Email) == lowered {
			found := *a
			return &found, nil
		}
	}
	return nil, storage.ErrAccountNotFound
}

// GetAccountByEmail 精确匹配邮箱查询账户。
func (s *Store) GetAccountByEmail(_ context.Context, email string, includeDeleted bool) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.sortedAccountIDsLocked() {
		a := s.accounts[id]
		if a.Email != email {
			continue
		}
		if !includeDeleted && a.Status != domain.AccountNormal {
			continue
		}
		found := *a
		return &found, nil
	}
	return nil, storage.ErrAccountNotFound
}

// GetAccountByID 根据ID查询正常状态的账户。
func (s *Store) GetAccountByID(_ context.Context, accountID int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok || a.Status != domain.AccountNormal {
		return nil, storage.ErrAccountNotFound
	}
	found := *a
	return &found, nil
}

// ListAccounts 分页返回用户的正常账户。
func (s *Store) ListAccounts(_ context.Context, userID, afterID int64, limit int) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Account, 0)
	if limit <= 0 {
		return result, nil
	}
	for _, id := range s.sortedAccountIDsLocked() {
		a := s.accounts[id]
		if a.UserID != userID || a.Status != domain.AccountNormal || a.AccountID <= afterID {
			continue
		}
		result = append(result, *a)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// CountAccounts 统计用户指定状态的账户数量。
func (s *Store) CountAccounts(_ context.Context, userID int64, status domain.AccountStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.accounts {
		if a.UserID == userID && a.Status == status {
			n++
		}
	}
	return n, nil
}

// CountAccountsByUserIDs 按用户分组统计账户数量，只返回至少有一条记录的用户。
func (s *Store) CountAccountsByUserIDs(_ context.Context, userIDs []int64, status domain.AccountStatus) ([]domain.UserAccountCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := int64Set(userIDs)
	counts := make(map[int64]int64)
	for _, a := range s.accounts {
		if _, ok := wanted[a.UserID]; ok && a.Status == status {
			counts[a.UserID]++
		}
	}

	result := make([]domain.UserAccountCount, 0, len(counts))
	for userID, n := range counts {
		result = append(result, domain.UserAccountCount{UserID: userID, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// UpdateAccountStatus 更新同时匹配用户和账户ID的记录状态。
func (s *Store) UpdateAccountStatus(_ context.Context, userID, accountID int64, status domain.AccountStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return 0, nil
	}
	a.Status = status
	return 1, nil
}

// UpdateAccountName 更新同时匹配用户和账户ID的记录名称。
func (s *Store) UpdateAccountName(_ context.Context, userID, accountID int64, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return 0, nil
	}
	a.Name = name
	return 1, nil
}

// RestoreAccountsByEmail 恢复指定邮箱的账户。
func (s *Store) RestoreAccountsByEmail(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.accounts {
		if a.Email == email {
			a.Status = domain.AccountNormal
			n++
		}
	}
	return n, nil
}

// RestoreAccountsByUserID 恢复用户的全部账户。
func (s *Store) RestoreAccountsByUserID(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.accounts {
		if a.UserID == userID {
			a.Status = domain.AccountNormal
			n++
		}
	}
	return n, nil
}

// ListDeletedAccountIDs 返回处于删除状态的账户ID。
func (s *Store) ListDeletedAccountIDs(_ context.Context, limit int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0)
	for _, id := range s.sortedAccountIDsLocked() {
		if len(ids) == limit {
			break
		}
		if s.accounts[id].Status == domain.AccountDeleted {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// DeleteAccountsByIDs 物理删除指定账户。
func (s *Store) DeleteAccountsByIDs(_ context.Context, accountIDs []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range accountIDs {
		if _, ok := s.accounts[id]; ok {
			delete(s.accounts, id)
			n++
		}
	}
	return n, nil
}

// DeleteAccountsByUserIDs 物理删除用户的全部账户（不区分状态）。
func (s *Store) DeleteAccountsByUserIDs(_ context.Context, userIDs []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := int64Set(userIDs)
	var n int64
	for id, a := range s.accounts {
		if _, ok := wanted[a.UserID]; ok {
			delete(s.accounts, id)
			n++
		}
	}
	return n, nil
}

// sortedAccountIDsLocked 返回升序的账户ID，调用方需持有锁。
func (s *Store) sortedAccountIDsLocked() []int64 {
	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ========== User / Role Repository ==========

// CreateUser 创建用户。
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.UserID == 0 {
		s.nextUserID++
		user.UserID = s.nextUserID
	} else if user.UserID > s.nextUserID {
		s.nextUserID = user.UserID
	}
	stored := *user
	s.users[stored.UserID] = &stored
	return nil
}

// GetUserByID 根据ID获取用户。
func (s *Store) GetUserByID(_ context.Context, userID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

// SaveRole 保存角色。
func (s *Store) SaveRole(role *domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *role
	stored.AvailDomain = append([]string(nil), role.AvailDomain...)
	s.roles[stored.RoleID] = &stored
	return nil
}

// GetRoleByID 根据ID获取角色。
func (s *Store) GetRoleByID(_ context.Context, roleID int64) (*domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[roleID]
	if !ok {
		return nil, storage.ErrRoleNotFound
	}
	found := *r
	found.AvailDomain = append([]string(nil), r.AvailDomain...)
	return &found, nil
}

// ========== Setting Repository ==========

// GetSetting 获取系统设置。
func (s *Store) GetSetting(_ context.Context) (*domain.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := *s.setting
	return &found, nil
}

// SaveSetting 保存系统设置。
func (s *Store) SaveSetting(_ context.Context, setting *domain.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *setting
	stored.SettingID = domain.SettingID
	s.setting = &stored
	return nil
}

// ========== Email Repository ==========

// SaveEmail 保存邮件。
func (s *Store) SaveEmail(email *domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if email.EmailID == 0 {
		s.nextEmailID++
		email.EmailID = s.nextEmailID
	}
	stored := *email
	s.emails[stored.EmailID] = &stored
	return nil
}

// SaveAttachment 保存附件元数据。
func (s *Store) SaveAttachment(att *domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if att.AttID == 0 {
		s.nextAttID++
		att.AttID = s.nextAttID
	}
	stored := *att
	s.attachments[stored.AttID] = &stored
	return nil
}

// CountEmailsByAccountID 统计账户下的邮件数量。
func (s *Store) CountEmailsByAccountID(accountID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.emails {
		if e.AccountID == accountID {
			n++
		}
	}
	return n
}

// CountAttachmentsByAccountID 统计账户下的附件数量。
func (s *Store) CountAttachmentsByAccountID(accountID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.attachments {
		if a.AccountID == accountID {
			n++
		}
	}
	return n
}

// DeleteEmailsByAccountIDs 删除账户下的全部邮件。
func (s *Store) DeleteEmailsByAccountIDs(_ context.Context, accountIDs []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := int64Set(accountIDs)
	var n int64
	for id, e := range s.emails {
		if _, ok := wanted[e.AccountID]; ok {
			delete(s.emails, id)
			n++
		}
	}
	return n, nil
}

// DeleteEmailsByUserIDs 删除用户的全部邮件。
func (s *Store) DeleteEmailsByUserIDs(_ context.Context, userIDs []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := int64Set(userIDs)
	var n int64
	for id, e := range s.emails {
		if _, ok := wanted[e.UserID]; ok {
			delete(s.emails, id)
			n++
		}
	}
	return n, nil
}

// DeleteAttachmentsByAccountIDs 删除账户下的附件元数据。
func (s *Store) DeleteAttachmentsByAccountIDs(_ context.Context, accountIDs []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := int64Set(accountIDs)
	var n int64
	for id, a := range s.attachments {
		if _, ok := wanted[a.AccountID]; ok {
			delete(s.attachments, id)
			n++
		}
	}
	return n, nil
}

// DeleteAttachmentsByUserIDs 删除用户的附件元数据。
func (s *Store) DeleteAttachmentsByUserIDs(_ context.Context, userIDs []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := int64Set(userIDs)
	var n int64
	for id, a := range s.attachments {
		if _, ok := wanted[a.UserID]; ok {
			delete(s.attachments, id)
			n++
		}
	}
	return n, nil
}

// ========== 工具方法 ==========

// Close 内存存储无需关闭
func (s *Store) Close() error {
	return nil
}

// Health 内存存储始终健康
func (s *Store) Health() error {
	return nil
}

func int64Set(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
