package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mailworker/backend/internal/monitoring"
)

// ErrPurgeRunning 已有清理任务在执行
var ErrPurgeRunning = errors.New("purge already running")

// Locker 清理任务互斥锁。获取成功返回释放函数；被占用时 ok 为 false。
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

// LocalLocker 进程内互斥锁，单实例部署时使用
type LocalLocker struct {
	mu sync.Mutex
}

// TryLock 实现 Locker
func (l *LocalLocker) TryLock(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

// Purger 执行一次完整的物理清理
type Purger interface {
	PhysicsDeleteAll(ctx context.Context) (int, error)
}

// PurgeJob 在互斥锁保护下执行已删除账户的物理清理，保证同一时刻只有一个清理者。
type PurgeJob struct {
	purger  Purger
	locker  Locker
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewPurgeJob 创建清理任务；locker 为 nil 时使用进程内锁
func NewPurgeJob(purger Purger, locker Locker, metrics *monitoring.Metrics, logger *zap.Logger) *PurgeJob {
	if locker == nil {
		locker = &LocalLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurgeJob{
		purger:  purger,
		locker:  locker,
		metrics: metrics,
		logger:  logger,
	}
}

// Run 执行一次清理，返回删除的账户数。锁被占用时返回 ErrPurgeRunning。
func (j *PurgeJob) Run(ctx context.Context) (int, error) {
	unlock, ok, err := j.locker.TryLock(ctx)
	if err != nil {
		j.metrics.RecordPurge("error", 0, 0)
		return 0, fmt.Errorf("acquire purge lock: %w", err)
	}
	if !ok {
		j.metrics.RecordPurge("busy", 0, 0)
		return 0, ErrPurgeRunning
	}
	defer unlock()

	start := time.Now()
	purged, err := j.purger.PhysicsDeleteAll(ctx)
	elapsed := time.Since(start)

	if err != nil {
		j.metrics.RecordPurge("error", purged, elapsed)
		j.logger.Error("purge failed",
			zap.Int("purged", purged),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return purged, err
	}

	j.metrics.RecordPurge("ok", purged, elapsed)
	j.logger.Info("purge finished",
		zap.Int("purged", purged),
		zap.Duration("elapsed", elapsed),
	)
	return purged, nil
}

// Schedule 按固定间隔执行清理，直到 ctx 取消。单次失败只记录日志。
func (j *PurgeJob) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				if errors.Is(err, ErrPurgeRunning) {
					j.logger.Info("purge skipped, another run holds the lock")
				}
			}
		}
	}
}
