package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mailworker/backend/internal/config"
	"mailworker/backend/internal/domain"
	"mailworker/backend/internal/storage/memory"
)

const testAdminEmail = "admin@example.com"

type accountFixture struct {
	ctx      context.Context
	store    *memory.Store
	svc      *AccountService
	verifier *MockVerifier
}

func newAccountFixture(t *testing.T, emails EmailPurger) *accountFixture {
	t.Helper()

	store := memory.NewStore()
	verifier := new(MockVerifier)
	if emails == nil {
		emails = NewEmailService(store, nil)
	}

	svc := NewAccountService(store, AccountServiceDeps{
		Settings: NewSettingService(store, nil, 0),
		Users:    NewUserService(store),
		Roles:    NewRoleService(store),
		Verifier: verifier,
		Emails:   emails,
	}, &config.AccountConfig{
		Domains:     []string{"example.com", "mail.test"},
		AdminEmail:  testAdminEmail,
		ListMaxSize: 30,
	})

	return &accountFixture{
		ctx:      context.Background(),
		store:    store,
		svc:      svc,
		verifier: verifier,
	}
}

func (f *accountFixture) addUser(t *testing.T, email string, role domain.Role) int64 {
	t.Helper()
	require.NoError(t, f.store.SaveRole(&role))
	user := &domain.User{Email: email, Type: role.RoleID}
	require.NoError(t, f.store.CreateUser(user))
	return user.UserID
}

func (f *accountFixture) seed(t *testing.T, userID int64, email string, status domain.AccountStatus) *domain.Account {
	t.Helper()
	acc := &domain.Account{UserID: userID, Email: email, Name: domain.EmailName(email)}
	require.NoError(t, f.store.InsertAccount(f.ctx, acc))
	if status == domain.AccountDeleted {
		_, err := f.store.UpdateAccountStatus(f.ctx, userID, acc.AccountID, domain.AccountDeleted)
		require.NoError(t, err)
		acc.Status = domain.AccountDeleted
	}
	return acc
}

func (f *accountFixture) setSetting(t *testing.T, addEmail, verify bool) {
	t.Helper()
	require.NoError(t, f.store.SaveSetting(f.ctx, &domain.Setting{AddEmail: addEmail, AddEmailVerify: verify}))
}

func TestAccountService_Add(t *testing.T) {
	t.Run("添加成功并以本地部分命名", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		f.setSetting(t, true, true)
		f.verifier.On("Verify", mock.Anything, "tok").Return(nil).Once()

		acc, err := f.svc.Add(f.ctx, AddAccountInput{Email: "Bob.Smith@mail.test", Token: "tok"}, userID)
		require.NoError(t, err)
		assert.NotZero(t, acc.AccountID)
		assert.Equal(t, userID, acc.UserID)
		assert.Equal(t, "Bob.Smith", acc.Name)
		assert.Equal(t, domain.AccountNormal, acc.Status)

		stored, err := f.svc.GetByEmail(f.ctx, "Bob.Smith@mail.test")
		require.NoError(t, err)
		assert.Equal(t, acc.AccountID, stored.AccountID)
		f.verifier.AssertExpectations(t)
	})

	t.Run("未开启人机验证时不调用", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})

		_, err := f.svc.Add(f.ctx, AddAccountInput{Email: "bob@example.com"}, userID)
		require.NoError(t, err)
		f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	testCases := []struct {
		name     string
		setup    func(t *testing.T, f *accountFixture) int64
		email    string
		expected *domain.BizError
	}{
		{
			name: "功能关闭优先于其他校验",
			setup: func(t *testing.T, f *accountFixture) int64 {
				f.setSetting(t, false, false)
				return f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
			},
			email:    "",
			expected: domain.ErrAddAccountDisabled,
		},
		{
			name: "邮箱为空",
			setup: func(t *testing.T, f *accountFixture) int64 {
				return f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
			},
			email:    "",
			expected: domain.ErrEmptyEmail,
		},
		{
			name: "邮箱格式错误",
			setup: func(t *testing.T, f *accountFixture) int64 {
				return f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
			},
			email:    "not-an-email",
			expected: domain.ErrNotEmail,
		},
		{
			name: "带显示名的地址",
			setup: func(t *testing.T, f *accountFixture) int64 {
				return f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
			},
			email:    "Bob <bob@example.com>",
			expected: domain.ErrNotEmail,
		},
		{
			name: "域名不在服务范围",
			setup: func(t *testing.T, f *accountFixture) int64 {
				return f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
			},
			email:    "bob@other.org",
			expected: domain.ErrDomainNotExist,
		},
		{
			name: "邮箱已被删除",
			setup: func(t *testing.T, f *accountFixture) int64 {
				other := f.addUser(t, "other@example.com", domain.Role{RoleID: 2})
				f.seed(t, other, "bob@example.com", domain.AccountDeleted)
				return f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
			},
			email:    "BOB@example.com",
			expected: domain.ErrAccountDeleted,
		},
		{
			name: "邮箱已注册（忽略大小写）",
			setup: func(t *testing.T, f *accountFixture) int64 {
				other := f.addUser(t, "other@example.com", domain.Role{RoleID: 2})
				f.seed(t, other, "bob@example.com", domain.AccountNormal)
				return f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
			},
			email:    "Bob@Example.COM",
			expected: domain.ErrAccountRegistered,
		},
		{
			name: "用户不存在",
			setup: func(t *testing.T, f *accountFixture) int64 {
				return 404
			},
			email:    "bob@example.com",
			expected: domain.ErrUserNotFound,
		},
		{
			name: "角色不存在",
			setup: func(t *testing.T, f *accountFixture) int64 {
				user := &domain.User{Email: "owner@example.com", Type: 77}
				require.NoError(t, f.store.CreateUser(user))
				return user.UserID
			},
			email:    "bob@example.com",
			expected: domain.ErrRoleNotFound,
		},
		{
			name: "达到角色账户配额",
			setup: func(t *testing.T, f *accountFixture) int64 {
				f.setSetting(t, true, true)
				userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2, AccountCount: 2})
				f.seed(t, userID, "owner@example.com", domain.AccountNormal)
				f.seed(t, userID, "second@example.com", domain.AccountNormal)
				return userID
			},
			email:    "third@example.com",
			expected: domain.ErrAccountLimit,
		},
		{
			name: "无域名权限",
			setup: func(t *testing.T, f *accountFixture) int64 {
				return f.addUser(t, "owner@example.com", domain.Role{RoleID: 2, AvailDomain: []string{"@mail.test"}})
			},
			email:    "bob@example.com",
			expected: domain.ErrNoDomainPermAdd,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAccountFixture(t, nil)
			userID := tc.setup(t, f)
			before, err := f.store.CountAccounts(f.ctx, userID, domain.AccountNormal)
			require.NoError(t, err)

			acc, err := f.svc.Add(f.ctx, AddAccountInput{Email: tc.email, Token: "tok"}, userID)
			assert.Nil(t, acc)
			assert.ErrorIs(t, err, tc.expected)

			after, err := f.store.CountAccounts(f.ctx, userID, domain.AccountNormal)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
		})
	}

	t.Run("配额错误返回403", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, domain.ErrAccountLimit.Status)
		assert.Equal(t, http.StatusForbidden, domain.ErrNoDomainPermAdd.Status)
		assert.Equal(t, http.StatusBadRequest, domain.ErrNotEmail.Status)
	})

	t.Run("已删除账户不计入配额", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2, AccountCount: 2})
		f.seed(t, userID, "owner@example.com", domain.AccountNormal)
		f.seed(t, userID, "gone@example.com", domain.AccountDeleted)

		_, err := f.svc.Add(f.ctx, AddAccountInput{Email: "new@example.com"}, userID)
		assert.NoError(t, err)
	})

	t.Run("超级管理员不受配额和域名限制", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, testAdminEmail, domain.Role{RoleID: 1, AccountCount: 1, AvailDomain: []string{"mail.test"}})
		f.seed(t, userID, testAdminEmail, domain.AccountNormal)

		acc, err := f.svc.Add(f.ctx, AddAccountInput{Email: "extra@example.com"}, userID)
		require.NoError(t, err)
		assert.Equal(t, "extra", acc.Name)
	})

	t.Run("人机验证失败不插入", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		f.setSetting(t, true, true)
		f.verifier.On("Verify", mock.Anything, "bad").Return(domain.ErrBotVerifyFailed).Once()

		_, err := f.svc.Add(f.ctx, AddAccountInput{Email: "bob@example.com", Token: "bad"}, userID)
		assert.ErrorIs(t, err, domain.ErrBotVerifyFailed)

		_, err = f.svc.GetByEmailIncludeDel(f.ctx, "bob@example.com")
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		f.verifier.AssertExpectations(t)
	})

	t.Run("人机验证服务异常原样返回", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		f.setSetting(t, true, true)
		boom := errors.New("siteverify unreachable")
		f.verifier.On("Verify", mock.Anything, "tok").Return(boom).Once()

		_, err := f.svc.Add(f.ctx, AddAccountInput{Email: "bob@example.com", Token: "tok"}, userID)
		assert.ErrorIs(t, err, boom)
	})
}

func TestAccountService_Lookups(t *testing.T) {
	f := newAccountFixture(t, nil)
	userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
	live := f.seed(t, userID, "Live@example.com", domain.AccountNormal)
	gone := f.seed(t, userID, "gone@example.com", domain.AccountDeleted)

	acc, err := f.svc.GetByEmailIncludeDelNoCase(f.ctx, "LIVE@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, live.AccountID, acc.AccountID)

	_, err = f.svc.GetByEmailIncludeDel(f.ctx, "live@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	acc, err = f.svc.GetByEmailIncludeDel(f.ctx, "gone@example.com")
	require.NoError(t, err)
	assert.True(t, acc.IsDeleted())

	_, err = f.svc.GetByEmail(f.ctx, "gone@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = f.svc.GetByID(f.ctx, gone.AccountID)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	acc, err = f.svc.GetByID(f.ctx, live.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "Live", acc.Name)
}

func TestAccountService_List(t *testing.T) {
	f := newAccountFixture(t, nil)
	userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
	otherID := f.addUser(t, "other@example.com", domain.Role{RoleID: 2})

	for i := 0; i < 35; i++ {
		f.seed(t, userID, fmt.Sprintf("u%d@example.com", i), domain.AccountNormal)
	}
	f.seed(t, otherID, "other@example.com", domain.AccountNormal)
	_, err := f.store.UpdateAccountStatus(f.ctx, userID, 3, domain.AccountDeleted)
	require.NoError(t, err)

	ids := func(list []domain.Account) []int64 {
		out := make([]int64, 0, len(list))
		for _, a := range list {
			out = append(out, a.AccountID)
		}
		return out
	}

	t.Run("默认大小并排除已删除", func(t *testing.T) {
		list, err := f.svc.List(f.ctx, ListAccountInput{}, userID)
		require.NoError(t, err)
		require.Len(t, list, 30)
		assert.Equal(t, []int64{1, 2, 4, 5}, ids(list)[:4])
	})

	t.Run("游标分页", func(t *testing.T) {
		list, err := f.svc.List(f.ctx, ListAccountInput{AccountID: "31", Size: "10"}, userID)
		require.NoError(t, err)
		assert.Equal(t, []int64{32, 33, 34, 35}, ids(list))
	})

	t.Run("只返回自己的账户", func(t *testing.T) {
		list, err := f.svc.List(f.ctx, ListAccountInput{}, otherID)
		require.NoError(t, err)
		assert.Equal(t, []int64{36}, ids(list))
	})

	sizeCases := []struct {
		name     string
		input    ListAccountInput
		expected []int64
		count    int
	}{
		{name: "指定大小", input: ListAccountInput{Size: "2"}, expected: []int64{1, 2}, count: 2},
		{name: "超过上限截断", input: ListAccountInput{Size: "500"}, count: 30},
		{name: "非数字大小", input: ListAccountInput{Size: "abc"}, count: 30},
		{name: "零大小", input: ListAccountInput{Size: "0"}, count: 30},
		{name: "负数大小", input: ListAccountInput{Size: "-4"}, count: 30},
		{name: "非数字游标从头开始", input: ListAccountInput{AccountID: "abc", Size: "2"}, expected: []int64{1, 2}, count: 2},
		{name: "小数游标向下取整", input: ListAccountInput{AccountID: "1.9", Size: "2"}, expected: []int64{2, 4}, count: 2},
	}
	for _, tc := range sizeCases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := f.svc.List(f.ctx, tc.input, userID)
			require.NoError(t, err)
			assert.Len(t, list, tc.count)
			if tc.expected != nil {
				assert.Equal(t, tc.expected, ids(list))
			}
		})
	}
}

func TestAccountService_ListMaxSizeCapped(t *testing.T) {
	store := memory.NewStore()
	svc := NewAccountService(store, AccountServiceDeps{
		Settings: NewSettingService(store, nil, 0),
		Users:    NewUserService(store),
		Roles:    NewRoleService(store),
		Verifier: new(MockVerifier),
		Emails:   NewEmailService(store, nil),
	}, &config.AccountConfig{
		Domains:     []string{"example.com"},
		AdminEmail:  testAdminEmail,
		ListMaxSize: 100,
	})
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		acc := &domain.Account{UserID: 1, Email: fmt.Sprintf("u%d@example.com", i)}
		require.NoError(t, store.InsertAccount(ctx, acc))
	}

	cases := []struct {
		name  string
		size  string
		count int
	}{
		{name: "配置上限大于30仍按30截断", size: "50", count: DefaultListSize},
		{name: "未指定大小", size: "", count: DefaultListSize},
		{name: "小于上限按请求返回", size: "12", count: 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := svc.List(ctx, ListAccountInput{Size: tc.size}, 1)
			require.NoError(t, err)
			assert.Len(t, list, tc.count)
		})
	}
}

func TestParseListParams(t *testing.T) {
	cursorCases := map[string]int64{"": 0, "abc": 0, "-5": 0, "0": 0, "12": 12, " 7 ": 7, "3.7": 3, "NaN": 0}
	for raw, expected := range cursorCases {
		assert.Equal(t, expected, parseCursor(raw), "cursor %q", raw)
	}

	sizeCases := map[string]int{"": 30, "abc": 30, "0": 30, "-1": 30, "0.5": 30, "1": 1, "29.9": 29, "30": 30, "31": 30, "Inf": 30}
	for raw, expected := range sizeCases {
		assert.Equal(t, expected, parseSize(raw, 30), "size %q", raw)
	}
}

func TestAccountService_Delete(t *testing.T) {
	t.Run("删除成功后不可见", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		acc := f.seed(t, userID, "alias@example.com", domain.AccountNormal)

		require.NoError(t, f.svc.Delete(f.ctx, DeleteAccountInput{AccountID: acc.AccountID}, userID))

		_, err := f.svc.GetByID(f.ctx, acc.AccountID)
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		stored, err := f.svc.GetByEmailIncludeDel(f.ctx, "alias@example.com")
		require.NoError(t, err)
		assert.True(t, stored.IsDeleted())
	})

	t.Run("不能删除主账户", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		acc := f.seed(t, userID, "Owner@example.com", domain.AccountNormal)

		err := f.svc.Delete(f.ctx, DeleteAccountInput{AccountID: acc.AccountID}, userID)
		assert.ErrorIs(t, err, domain.ErrDeleteOwnAccount)
	})

	t.Run("主账户检查先于归属检查", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		otherID := f.addUser(t, "other@example.com", domain.Role{RoleID: 2})
		acc := f.seed(t, otherID, "owner@example.com", domain.AccountNormal)

		err := f.svc.Delete(f.ctx, DeleteAccountInput{AccountID: acc.AccountID}, userID)
		assert.ErrorIs(t, err, domain.ErrDeleteOwnAccount)
	})

	t.Run("不能删除他人账户", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		otherID := f.addUser(t, "other@example.com", domain.Role{RoleID: 2})
		acc := f.seed(t, otherID, "theirs@example.com", domain.AccountNormal)

		err := f.svc.Delete(f.ctx, DeleteAccountInput{AccountID: acc.AccountID}, userID)
		assert.ErrorIs(t, err, domain.ErrNotUserAccount)

		stored, err := f.svc.GetByID(f.ctx, acc.AccountID)
		require.NoError(t, err)
		assert.False(t, stored.IsDeleted())
	})

	t.Run("账户不存在或已删除", func(t *testing.T) {
		f := newAccountFixture(t, nil)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		gone := f.seed(t, userID, "gone@example.com", domain.AccountDeleted)

		assert.ErrorIs(t, f.svc.Delete(f.ctx, DeleteAccountInput{AccountID: 999}, userID), domain.ErrAccountNotFound)
		assert.ErrorIs(t, f.svc.Delete(f.ctx, DeleteAccountInput{AccountID: gone.AccountID}, userID), domain.ErrAccountNotFound)
	})
}

func TestAccountService_Restore(t *testing.T) {
	f := newAccountFixture(t, nil)
	userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
	a := f.seed(t, userID, "a@example.com", domain.AccountDeleted)
	b := f.seed(t, userID, "b@example.com", domain.AccountDeleted)

	require.NoError(t, f.svc.RestoreByEmail(f.ctx, "a@example.com"))
	_, err := f.svc.GetByID(f.ctx, a.AccountID)
	assert.NoError(t, err)
	_, err = f.svc.GetByID(f.ctx, b.AccountID)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, f.svc.RestoreByUserID(f.ctx, userID))
	_, err = f.svc.GetByID(f.ctx, b.AccountID)
	assert.NoError(t, err)

	// 无匹配时不报错
	assert.NoError(t, f.svc.RestoreByEmail(f.ctx, "nobody@example.com"))
	assert.NoError(t, f.svc.RestoreByUserID(f.ctx, 999))
}

func TestAccountService_SetName(t *testing.T) {
	f := newAccountFixture(t, nil)
	userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
	otherID := f.addUser(t, "other@example.com", domain.Role{RoleID: 2})
	acc := f.seed(t, userID, "alias@example.com", domain.AccountNormal)

	t.Run("超过30个字符", func(t *testing.T) {
		err := f.svc.SetName(f.ctx, SetNameInput{AccountID: acc.AccountID, Name: strings.Repeat("名", 31)}, userID)
		assert.ErrorIs(t, err, domain.ErrNameTooLong)
	})

	t.Run("30个字符允许", func(t *testing.T) {
		name := strings.Repeat("名", 30)
		require.NoError(t, f.svc.SetName(f.ctx, SetNameInput{AccountID: acc.AccountID, Name: name}, userID))

		stored, err := f.svc.GetByID(f.ctx, acc.AccountID)
		require.NoError(t, err)
		assert.Equal(t, name, stored.Name)
	})

	t.Run("他人账户静默忽略", func(t *testing.T) {
		require.NoError(t, f.svc.SetName(f.ctx, SetNameInput{AccountID: acc.AccountID, Name: "hijack"}, otherID))

		stored, err := f.svc.GetByID(f.ctx, acc.AccountID)
		require.NoError(t, err)
		assert.NotEqual(t, "hijack", stored.Name)
	})
}

func TestAccountService_PhysicsDeleteAll(t *testing.T) {
	t.Run("250个账户分三批清理", func(t *testing.T) {
		emails := new(MockEmailPurger)
		f := newAccountFixture(t, emails)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		for i := 0; i < 250; i++ {
			f.seed(t, userID, fmt.Sprintf("d%d@example.com", i), domain.AccountDeleted)
		}
		for _, e := range []string{"keep1@example.com", "keep2@example.com", "keep3@example.com"} {
			f.seed(t, userID, e, domain.AccountNormal)
		}

		emails.On("PurgeByAccountIDs", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				// 级联删除时账户行必须仍在
				batch := args.Get(1).([]int64)
				pending, err := f.store.ListDeletedAccountIDs(f.ctx, 1000)
				require.NoError(t, err)
				assert.Subset(t, pending, batch)
			}).
			Return(nil)

		purged, err := f.svc.PhysicsDeleteAll(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, 250, purged)

		require.Len(t, emails.Calls, 3)
		sizes := make([]int, 0, 3)
		seen := make(map[int64]bool)
		for _, call := range emails.Calls {
			batch := call.Arguments.Get(1).([]int64)
			sizes = append(sizes, len(batch))
			for _, id := range batch {
				assert.False(t, seen[id], "account %d purged twice", id)
				seen[id] = true
			}
		}
		assert.Equal(t, []int{99, 99, 52}, sizes)

		remaining, err := f.store.ListDeletedAccountIDs(f.ctx, 1000)
		require.NoError(t, err)
		assert.Empty(t, remaining)
		count, err := f.svc.CountUserAccount(f.ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("恰好一批", func(t *testing.T) {
		emails := new(MockEmailPurger)
		f := newAccountFixture(t, emails)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		for i := 0; i < PurgeBatchSize; i++ {
			f.seed(t, userID, fmt.Sprintf("d%d@example.com", i), domain.AccountDeleted)
		}
		emails.On("PurgeByAccountIDs", mock.Anything, mock.Anything).Return(nil)

		purged, err := f.svc.PhysicsDeleteAll(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, PurgeBatchSize, purged)
		emails.AssertNumberOfCalls(t, "PurgeByAccountIDs", 1)
	})

	t.Run("没有待清理账户", func(t *testing.T) {
		emails := new(MockEmailPurger)
		f := newAccountFixture(t, emails)

		purged, err := f.svc.PhysicsDeleteAll(f.ctx)
		require.NoError(t, err)
		assert.Zero(t, purged)
		emails.AssertNotCalled(t, "PurgeByAccountIDs", mock.Anything, mock.Anything)
	})

	t.Run("级联失败时保留该批账户", func(t *testing.T) {
		emails := new(MockEmailPurger)
		f := newAccountFixture(t, emails)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		for i := 0; i < 150; i++ {
			f.seed(t, userID, fmt.Sprintf("d%d@example.com", i), domain.AccountDeleted)
		}
		boom := errors.New("object storage unavailable")
		emails.On("PurgeByAccountIDs", mock.Anything, mock.Anything).Return(nil).Once()
		emails.On("PurgeByAccountIDs", mock.Anything, mock.Anything).Return(boom).Once()

		purged, err := f.svc.PhysicsDeleteAll(f.ctx)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 99, purged)

		remaining, err := f.store.ListDeletedAccountIDs(f.ctx, 1000)
		require.NoError(t, err)
		assert.Len(t, remaining, 51)
	})

	t.Run("上下文取消", func(t *testing.T) {
		emails := new(MockEmailPurger)
		f := newAccountFixture(t, emails)
		userID := f.addUser(t, "owner@example.com", domain.Role{RoleID: 2})
		f.seed(t, userID, "d@example.com", domain.AccountDeleted)

		ctx, cancel := context.WithCancel(f.ctx)
		cancel()

		_, err := f.svc.PhysicsDeleteAll(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		emails.AssertNotCalled(t, "PurgeByAccountIDs", mock.Anything, mock.Anything)
	})
}

func TestAccountService_PhysicsDeleteByUserIDs(t *testing.T) {
	f := newAccountFixture(t, nil)
	u1 := f.addUser(t, "u1@example.com", domain.Role{RoleID: 2})
	u2 := f.addUser(t, "u2@example.com", domain.Role{RoleID: 2})

	a := f.seed(t, u1, "u1@example.com", domain.AccountNormal)
	b := f.seed(t, u1, "u1-old@example.com", domain.AccountDeleted)
	c := f.seed(t, u2, "u2@example.com", domain.AccountNormal)
	for _, acc := range []*domain.Account{a, b, c} {
		require.NoError(t, f.store.SaveEmail(&domain.Email{AccountID: acc.AccountID, UserID: acc.UserID}))
		require.NoError(t, f.store.SaveAttachment(&domain.Attachment{AccountID: acc.AccountID, UserID: acc.UserID}))
	}

	require.NoError(t, f.svc.PhysicsDeleteByUserIDs(f.ctx, []int64{u1}))

	_, err := f.svc.GetByEmailIncludeDel(f.ctx, "u1@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = f.svc.GetByEmailIncludeDel(f.ctx, "u1-old@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Zero(t, f.store.CountEmailsByAccountID(a.AccountID))
	assert.Zero(t, f.store.CountAttachmentsByAccountID(b.AccountID))

	_, err = f.svc.GetByID(f.ctx, c.AccountID)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.store.CountEmailsByAccountID(c.AccountID))

	assert.NoError(t, f.svc.PhysicsDeleteByUserIDs(f.ctx, nil))
}

func TestAccountService_Counts(t *testing.T) {
	f := newAccountFixture(t, nil)
	u1 := f.addUser(t, "u1@example.com", domain.Role{RoleID: 2})
	u2 := f.addUser(t, "u2@example.com", domain.Role{RoleID: 2})
	f.seed(t, u1, "a@example.com", domain.AccountNormal)
	f.seed(t, u1, "b@example.com", domain.AccountNormal)
	f.seed(t, u1, "c@example.com", domain.AccountDeleted)
	f.seed(t, u2, "d@example.com", domain.AccountNormal)

	n, err := f.svc.CountUserAccount(f.ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := f.svc.SelectUserAccountCountList(f.ctx, []int64{u1, u2, 99})
	require.NoError(t, err)
	assert.Equal(t, []domain.UserAccountCount{{UserID: u1, Count: 2}, {UserID: u2, Count: 1}}, counts)

	counts, err = f.svc.SelectUserAccountCountList(f.ctx, []int64{u1, u2}, domain.AccountDeleted)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserAccountCount{{UserID: u1, Count: 1}}, counts)
}

func TestAccountService_Insert(t *testing.T) {
	f := newAccountFixture(t, nil)

	// 可信流程绕过域名和配额校验
	acc := &domain.Account{UserID: 1, Email: "primary@elsewhere.org", Name: "primary"}
	require.NoError(t, f.svc.Insert(f.ctx, acc))
	assert.NotZero(t, acc.AccountID)

	err := f.svc.Insert(f.ctx, &domain.Account{UserID: 2, Email: "PRIMARY@elsewhere.org"})
	assert.ErrorIs(t, err, domain.ErrAccountRegistered)
}
