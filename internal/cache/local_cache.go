package cache

import (
	"context"
	"sync"
	"time"
)

// Cache 带 TTL 的本地内存缓存。
//
// 用 sync.Map 实现无锁读取，过期条目由读取方惰性删除，
// 配合 Run 的定期清理兜底。适合缓存可以短暂失真的派生
// 数据（比如磁盘用量统计），不适合作为权威状态。
type Cache[V any] struct {
	data sync.Map
	ttl  time.Duration
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// New 创建缓存，ttl 是条目的默认存活时间。
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{ttl: ttl}
}

// Get 获取缓存值，过期条目视为不存在并顺手删除。
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.data.Load(key)
	if !ok {
		return zero, false
	}

	e := val.(*entry[V])
	if time.Now().After(e.expiresAt) {
		c.data.Delete(key)
		return zero, false
	}
	return e.value, true
}

// Set 写入缓存值，使用默认 TTL。
func (c *Cache[V]) Set(key string, value V) {
	c.data.Store(key, &entry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete 删除缓存值。
func (c *Cache[V]) Delete(key string) {
	c.data.Delete(key)
}

// Run 定期清理过期条目，直到 ctx 取消。
func (c *Cache[V]) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.data.Range(func(key, value any) bool {
				if now.After(value.(*entry[V]).expiresAt) {
					c.data.Delete(key)
				}
				return true
			})
		}
	}
}
