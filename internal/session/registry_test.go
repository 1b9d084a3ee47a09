package session

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(ttl time.Duration) *Registry {
	return NewRegistry(ttl, time.Minute, zap.NewNop())
}

// TestIssueAndValidate 测试签发与校验
func TestIssueAndValidate(t *testing.T) {
	t.Run("签发的会话可以校验", func(t *testing.T) {
		reg := newTestRegistry(time.Hour)
		token := reg.Issue("alice")
		require.NotEmpty(t, token)

		principal, ok := reg.Validate(token)
		assert.True(t, ok)
		assert.Equal(t, "alice", principal)
	})

	t.Run("token 不可预测且互不相同", func(t *testing.T) {
		reg := newTestRegistry(time.Hour)
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			token := reg.Issue("alice")
			assert.Len(t, token, 64)
			assert.False(t, seen[token], "duplicate token issued")
			seen[token] = true
		}
	})

	t.Run("未知 token 校验失败", func(t *testing.T) {
		reg := newTestRegistry(time.Hour)
		_, ok := reg.Validate("bogus-token")
		assert.False(t, ok)
	})

	t.Run("过期会话校验失败并被删除", func(t *testing.T) {
		reg := newTestRegistry(time.Hour)
		token := reg.IssueWithTTL("alice", -time.Second)

		_, ok := reg.Validate(token)
		assert.False(t, ok)

		// 惰性删除：条目已不在表里，清扫也不会再数到它
		assert.Equal(t, 0, reg.Sweep())
	})
}

// TestRevoke 测试会话撤销
func TestRevoke(t *testing.T) {
	reg := newTestRegistry(time.Hour)

	t.Run("撤销后立即失效", func(t *testing.T) {
		token := reg.Issue("alice")
		reg.Revoke(token)

		_, ok := reg.Validate(token)
		assert.False(t, ok)
	})

	t.Run("重复撤销为空操作", func(t *testing.T) {
		token := reg.Issue("bob")
		reg.Revoke(token)
		reg.Revoke(token)
	})

	t.Run("撤销一个会话不影响其他会话", func(t *testing.T) {
		t1 := reg.Issue("alice")
		t2 := reg.Issue("alice")
		reg.Revoke(t1)

		principal, ok := reg.Validate(t2)
		assert.True(t, ok)
		assert.Equal(t, "alice", principal)
	})
}

// TestSweep 测试周期清扫
func TestSweep(t *testing.T) {
	reg := newTestRegistry(time.Hour)

	reg.Issue("alive-1")
	reg.Issue("alive-2")
	reg.IssueWithTTL("dead-1", -time.Second)
	reg.IssueWithTTL("dead-2", -time.Second)

	removed := reg.Sweep()
	assert.Equal(t, 2, removed)

	// 第二次清扫无事可做
	assert.Equal(t, 0, reg.Sweep())
}

// TestConcurrentSessions 测试并发签发与校验
func TestConcurrentSessions(t *testing.T) {
	reg := newTestRegistry(time.Hour)

	var wg sync.WaitGroup
	tokens := make([]string, 50)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i] = reg.Issue("alice")
		}(i)
	}
	wg.Wait()

	for _, token := range tokens {
		principal, ok := reg.Validate(token)
		assert.True(t, ok)
		assert.Equal(t, "alice", principal)
	}
}
