package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry 进程内会话注册表：token -> (principal, 过期时间)。
//
// 纯内存软状态，不持久化——进程重启等价于全员登出。
// 过期条目有两条清理路径：Validate 时惰性删除，以及
// Run 启动的周期性全量扫描（覆盖不再被访问的 token）。
type Registry struct {
	sessions      sync.Map // token -> *entry
	ttl           time.Duration
	sweepInterval time.Duration
	log           *zap.Logger
}

type entry struct {
	principal string
	expiresAt time.Time
}

// NewRegistry 创建会话注册表。
//
// 参数:
//   - ttl: 会话有效期
//   - sweepInterval: 周期清扫间隔
func NewRegistry(ttl, sweepInterval time.Duration, log *zap.Logger) *Registry {
	return &Registry{
		ttl:           ttl,
		sweepInterval: sweepInterval,
		log:           log,
	}
}

// Issue 为指定主体签发一个新会话，返回不可猜测的随机 token。
func (r *Registry) Issue(principal string) string {
	return r.IssueWithTTL(principal, r.ttl)
}

// IssueWithTTL 以自定义有效期签发会话（如"记住我"的长会话）。
func (r *Registry) IssueWithTTL(principal string, ttl time.Duration) string {
	token := newToken()
	r.sessions.Store(token, &entry{
		principal: principal,
		expiresAt: time.Now().Add(ttl),
	})
	return token
}

// Validate 校验 token 并返回其主体。
//
// token 不存在或已过期都返回 ok=false；过期条目在查到的
// 同时被删除（惰性过期）。
func (r *Registry) Validate(token string) (string, bool) {
	val, ok := r.sessions.Load(token)
	if !ok {
		return "", false
	}
	e := val.(*entry)
	if time.Now().After(e.expiresAt) {
		r.sessions.Delete(token)
		return "", false
	}
	return e.principal, true
}

// Revoke 撤销会话，重复撤销为空操作。
func (r *Registry) Revoke(token string) {
	r.sessions.Delete(token)
}

// Sweep 扫描并删除全部过期会话，返回删除数量。
func (r *Registry) Sweep() int {
	now := time.Now()
	removed := 0
	r.sessions.Range(func(key, value interface{}) bool {
		if now.After(value.(*entry).expiresAt) {
			r.sessions.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Run 周期性清扫过期会话，直到 ctx 取消。
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				r.log.Debug("expired sessions swept", zap.Int("count", removed))
			}
		}
	}
}

// newToken 生成 256 位随机 token（hex 编码）。
func newToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand 失败意味着运行环境已不可信，无法继续签发会话
		panic(err)
	}
	return hex.EncodeToString(buf)
}
