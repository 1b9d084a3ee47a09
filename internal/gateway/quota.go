package gateway

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDailyLimit 单个来源地址每个自然日允许的投递数。
const DefaultDailyLimit = 10

// Quota 按来源地址、按自然日计数的投递配额。
//
// 计数器惰性重置：不设定时器，下次访问时发现记录的日期
// 不是今天就换一个新计数器。增量用 CAS 完成，同一来源的
// 并发投递不会丢失计数。
type Quota struct {
	limit    int64
	counters sync.Map         // 来源地址 -> *dayCounter
	now      func() time.Time // 可注入时钟，便于测试跨日重置
}

type dayCounter struct {
	day   string // "2006-01-02"
	count int64  // 原子访问
}

// NewQuota 创建每日配额，limit <= 0 时使用默认值。
func NewQuota(limit int) *Quota {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Quota{
		limit: int64(limit),
		now:   time.Now,
	}
}

// Allow 尝试为来源地址记一次投递。
//
// 返回 false 表示当日配额已用完，此时计数保持不变——
// 被拒绝的尝试不消耗配额。
func (q *Quota) Allow(source string) bool {
	today := q.now().Format("2006-01-02")

	for {
		val, _ := q.counters.LoadOrStore(source, &dayCounter{day: today})
		c := val.(*dayCounter)

		// 过期的计数器直接丢弃换新；CompareAndDelete 保证
		// 只移除我们看到的那一个，不会误删并发者刚放进去的
		if c.day != today {
			q.counters.CompareAndDelete(source, val)
			continue
		}

		for {
			n := atomic.LoadInt64(&c.count)
			if n >= q.limit {
				return false
			}
			if atomic.CompareAndSwapInt64(&c.count, n, n+1) {
				return true
			}
		}
	}
}

// Used 返回来源地址今天已用的配额（监控用）。
func (q *Quota) Used(source string) int {
	val, ok := q.counters.Load(source)
	if !ok {
		return 0
	}
	c := val.(*dayCounter)
	if c.day != q.now().Format("2006-01-02") {
		return 0
	}
	return int(atomic.LoadInt64(&c.count))
}
