package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMailTags 测试标签的集合语义
func TestMailTags(t *testing.T) {
	t.Run("添加标签成功", func(t *testing.T) {
		mail := &Mail{}
		mail.AddTag(TagUnread)
		assert.True(t, mail.HasTag(TagUnread))
		assert.Equal(t, []string{TagUnread}, mail.Tags)
	})

	t.Run("重复添加标签为空操作", func(t *testing.T) {
		mail := &Mail{}
		mail.AddTag(TagUnread)
		mail.AddTag(TagUnread)
		assert.Equal(t, []string{TagUnread}, mail.Tags)
	})

	t.Run("移除标签成功", func(t *testing.T) {
		mail := &Mail{Tags: []string{TagAnonymous, TagUnread}}
		mail.RemoveTag(TagUnread)
		assert.False(t, mail.HasTag(TagUnread))
		assert.True(t, mail.HasTag(TagAnonymous))
	})

	t.Run("移除不存在的标签为空操作", func(t *testing.T) {
		mail := &Mail{Tags: []string{TagAnonymous}}
		mail.RemoveTag(TagUnread)
		assert.Equal(t, []string{TagAnonymous}, mail.Tags)
	})
}

// TestMailClone 测试深拷贝的独立性
func TestMailClone(t *testing.T) {
	now := time.Now()
	deleted := now.Add(-time.Hour)
	original := &Mail{
		ID:      "mail-001",
		From:    "alice",
		To:      []string{"bob", "carol"},
		Date:    &now,
		Subject: "hello",
		Content: "body",
		Attachments: []AttachmentRef{
			{Filename: "report.pdf", Sha256: "abc"},
		},
		Tags:      []string{TagUnread},
		DeletedAt: &deleted,
	}

	t.Run("克隆保留全部字段", func(t *testing.T) {
		clone := original.Clone()
		require.NotNil(t, clone)
		assert.Equal(t, original.ID, clone.ID)
		assert.Equal(t, original.From, clone.From)
		assert.Equal(t, original.To, clone.To)
		assert.Equal(t, original.Subject, clone.Subject)
		assert.Equal(t, original.Content, clone.Content)
		assert.Equal(t, original.Attachments, clone.Attachments)
		assert.Equal(t, original.Tags, clone.Tags)
		require.NotNil(t, clone.Date)
		assert.True(t, original.Date.Equal(*clone.Date))
		require.NotNil(t, clone.DeletedAt)
		assert.True(t, original.DeletedAt.Equal(*clone.DeletedAt))
	})

	t.Run("修改克隆不影响原件", func(t *testing.T) {
		clone := original.Clone()

		clone.RemoveTag(TagUnread)
		clone.To[0] = "mallory"
		clone.Attachments[0].Filename = "changed"
		*clone.Date = now.Add(24 * time.Hour)

		assert.True(t, original.HasTag(TagUnread))
		assert.Equal(t, "bob", original.To[0])
		assert.Equal(t, "report.pdf", original.Attachments[0].Filename)
		assert.True(t, original.Date.Equal(now))
	})

	t.Run("修改原件不影响克隆", func(t *testing.T) {
		clone := original.Clone()
		original2 := original.Clone()

		original2.AddTag("extra")
		assert.False(t, clone.HasTag("extra"))
	})

	t.Run("空指针字段克隆为空", func(t *testing.T) {
		mail := &Mail{ID: "bare"}
		clone := mail.Clone()
		assert.Nil(t, clone.Date)
		assert.Nil(t, clone.DeletedAt)
		assert.Nil(t, clone.To)
		assert.Nil(t, clone.Tags)
	})
}
