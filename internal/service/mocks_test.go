package service

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockVerifier 模拟人机验证
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockEmailPurger 模拟邮件级联删除
type MockEmailPurger struct {
	mock.Mock
}

func (m *MockEmailPurger) PurgeByAccountIDs(ctx context.Context, accountIDs []int64) error {
	args := m.Called(ctx, accountIDs)
	return args.Error(0)
}

func (m *MockEmailPurger) PurgeByUserIDs(ctx context.Context, userIDs []int64) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

// MockPurger 模拟清理执行者
type MockPurger struct {
	mock.Mock
}

func (m *MockPurger) PhysicsDeleteAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
