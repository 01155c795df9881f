package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailworker/backend/internal/storage"
)

// EmailService 邮件数据服务，负责账户清理时的级联删除
type EmailService struct {
	repo   storage.EmailRepository
	logger *zap.Logger
}

// NewEmailService 创建邮件服务
func NewEmailService(repo storage.EmailRepository, logger *zap.Logger) *EmailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailService{repo: repo, logger: logger}
}

// PurgeByAccountIDs 删除指定账户的附件和邮件
func (s *EmailService) PurgeByAccountIDs(ctx context.Context, accountIDs []int64) error {
	if len(accountIDs) == 0 {
		return nil
	}

	atts, err := s.repo.DeleteAttachmentsByAccountIDs(ctx, accountIDs)
	if err != nil {
		return fmt.Errorf("delete attachments: %w", err)
	}
	emails, err := s.repo.DeleteEmailsByAccountIDs(ctx, accountIDs)
	if err != nil {
		return fmt.Errorf("delete emails: %w", err)
	}

	s.logger.Debug("purged email data by accounts",
		zap.Int("accounts", len(accountIDs)),
		zap.Int64("emails", emails),
		zap.Int64("attachments", atts),
	)
	return nil
}

// PurgeByUserIDs 删除指定用户的附件和邮件
func (s *EmailService) PurgeByUserIDs(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	atts, err := s.repo.DeleteAttachmentsByUserIDs(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("delete attachments: %w", err)
	}
	emails, err := s.repo.DeleteEmailsByUserIDs(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("delete emails: %w", err)
	}

	s.logger.Debug("purged email data by users",
		zap.Int("users", len(userIDs)),
		zap.Int64("emails", emails),
		zap.Int64("attachments", atts),
	)
	return nil
}
