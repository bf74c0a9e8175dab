package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// LocalCache 进程内 TTL 缓存
//
// 承载限流令牌桶这类单实例易失状态，
// 过期条目由后台协程定期回收。
type LocalCache struct {
	data    sync.Map
	size    int64
	maxSize int64
	ttl     time.Duration
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewLocalCache 创建本地缓存
//
// 参数:
//   - maxSize: 最大缓存条目数，超出后拒绝新键（已有键仍可更新）
//   - ttl: 默认过期时间
func NewLocalCache(maxSize int, ttl time.Duration) *LocalCache {
	cache := &LocalCache{
		maxSize: int64(maxSize),
		ttl:     ttl,
	}

	go cache.cleanupLoop()

	return cache
}

// Get 获取缓存值
func (c *LocalCache) Get(key string) (interface{}, bool) {
	val, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}

	entry := val.(*cacheEntry)

	if time.Now().After(entry.expiresAt) {
		c.remove(key)
		return nil, false
	}

	return entry.value, true
}

// Set 设置缓存值
//
// ttl 为 0 时使用默认过期时间。
func (c *LocalCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}

	entry := &cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	if _, loaded := c.data.Swap(key, entry); !loaded {
		if atomic.AddInt64(&c.size, 1) > c.maxSize {
			// 容量已满，放弃该新键
			c.remove(key)
		}
	}
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.remove(key)
}

// Len 当前条目数
func (c *LocalCache) Len() int {
	return int(atomic.LoadInt64(&c.size))
}

func (c *LocalCache) remove(key string) {
	if _, loaded := c.data.LoadAndDelete(key); loaded {
		atomic.AddInt64(&c.size, -1)
	}
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.data.Range(func(key, value interface{}) bool {
			entry := value.(*cacheEntry)
			if now.After(entry.expiresAt) {
				c.remove(key.(string))
			}
			return true
		})
	}
}
