package cache

import (
	"sync"
	"time"
)

// LocalCache 进程内 TTL 缓存
//
// 用于缓存读多写少的数据（例如系统设置），条目过期后读取时惰性删除，
// 后台协程按 cleanupInterval 定期清理。
type LocalCache struct {
	mu      sync.RWMutex
	data    map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

const cleanupInterval = time.Minute

// NewLocalCache 创建本地缓存
//
// 参数:
//   - ttl: 默认过期时间
func NewLocalCache(ttl time.Duration) *LocalCache {
	c := &LocalCache{
		data: make(map[string]cacheEntry),
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// Get 获取缓存值
func (c *LocalCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		c.Delete(key)
		return nil, false
	}

	return entry.value, true
}

// Set 设置缓存值，ttl 为 0 时使用默认过期时间
func (c *LocalCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	c.data[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// Len 返回当前条目数（包含尚未清理的过期条目）
func (c *LocalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear 清空所有缓存
func (c *LocalCache) Clear() {
	c.mu.Lock()
	c.data = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Close 停止后台清理协程
func (c *LocalCache) Close() {
	c.stopped.Do(func() { close(c.stop) })
}

func (c *LocalCache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *LocalCache) removeExpired() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.data {
		if now.After(entry.expiresAt) {
			delete(c.data, key)
		}
	}
}
