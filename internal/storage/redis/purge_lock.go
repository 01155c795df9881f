package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPurgeLockKey 清理任务锁的默认键名
const DefaultPurgeLockKey = "mailworker:lock:account-purge"

// releaseScript 只有持有者才能释放锁
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript 只有持有者才能续期
var refreshScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// PurgeLock 基于 Redis SET NX 的跨实例互斥锁，保证同一时刻只有一个实例执行物理清理。
// 持有期间每 ttl/3 续期一次，清理耗时超过 ttl 也不会被其他实例抢占。
type PurgeLock struct {
	rdb goredis.UniversalClient
	key string
	ttl time.Duration
}

// NewPurgeLock 创建清理锁；ttl 只需覆盖进程异常退出后的锁残留时间
func NewPurgeLock(rdb goredis.UniversalClient, key string, ttl time.Duration) *PurgeLock {
	if key == "" {
		key = DefaultPurgeLockKey
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PurgeLock{rdb: rdb, key: key, ttl: ttl}
}

// TryLock 尝试获取锁。获取成功返回释放函数；锁被占用时返回 ok=false。
func (l *PurgeLock) TryLock(ctx context.Context) (unlock func(), ok bool, err error) {
	token := uuid.NewString()

	acquired, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire purge lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(token, stop, done)

	var once sync.Once
	unlock = func() {
		once.Do(func() {
			close(stop)
			<-done

			// 使用独立的上下文，调用方取消后仍能释放
			releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.rdb, []string{l.key}, token).Err()
		})
	}
	return unlock, true, nil
}

// keepAlive 定期续期，锁已不属于自己时退出
func (l *PurgeLock) keepAlive(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			owned, err := refreshScript.Run(ctx, l.rdb, []string{l.key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err == nil && owned == 0 {
				return
			}
		}
	}
}
