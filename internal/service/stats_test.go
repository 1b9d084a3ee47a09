package service

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/storage/blob"
	"webmail/backend/internal/storage/filesystem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStatsService(t *testing.T) (*StatsService, *MailService, *blob.Store) {
	t.Helper()
	dataRoot := t.TempDir()
	records := filesystem.NewStore()
	log := zap.NewNop()

	mails, err := NewMailService(dataRoot, records, log)
	require.NoError(t, err)
	blobs, err := blob.NewStore(dataRoot)
	require.NoError(t, err)

	return NewStatsService(mails, records, blobs, log), mails, blobs
}

// TestComputeSize 测试磁盘用量统计
func TestComputeSize(t *testing.T) {
	t.Run("空邮箱用量为零", func(t *testing.T) {
		stats, mails, _ := setupStatsService(t)
		mustCreateMailbox(t, mails, "alice")

		usage, err := stats.ComputeSize("alice")
		require.NoError(t, err)
		assert.Equal(t, int64(0), usage.RecordBytes)
		assert.Equal(t, int64(0), usage.AttachmentBytes)
		assert.Equal(t, int64(0), usage.TotalBytes)
	})

	t.Run("记录字节数覆盖全部文件夹", func(t *testing.T) {
		stats, mails, _ := setupStatsService(t)
		mustCreateMailbox(t, mails, "alice")

		_, err := mails.SaveDraft("alice", &domain.Mail{Subject: "draft"})
		require.NoError(t, err)
		_, _, err = mails.Send(&domain.Mail{
			From: "alice", To: []string{"alice"}, Subject: "self", Content: "x",
		})
		require.NoError(t, err)

		usage, err := stats.ComputeSize("alice")
		require.NoError(t, err)
		// draft + inbox + outbox 三条记录
		assert.Greater(t, usage.RecordBytes, int64(0))
		assert.Equal(t, usage.RecordBytes+usage.AttachmentBytes, usage.TotalBytes)
	})

	t.Run("共享附件只计一次", func(t *testing.T) {
		stats, mails, blobs := setupStatsService(t)
		mustCreateMailbox(t, mails, "alice")

		content := []byte("shared attachment payload")
		digest, err := blobs.PutBytes(content)
		require.NoError(t, err)

		// 两封邮件引用同一个摘要，其中一封引用两次
		ref := domain.AttachmentRef{Filename: "a.bin", Sha256: digest}
		_, err = mails.SaveDraft("alice", &domain.Mail{
			Subject: "d1", Attachments: []domain.AttachmentRef{ref, ref},
		})
		require.NoError(t, err)
		_, err = mails.SaveDraft("alice", &domain.Mail{
			Subject: "d2", Attachments: []domain.AttachmentRef{ref},
		})
		require.NoError(t, err)

		usage, err := stats.ComputeSize("alice")
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), usage.AttachmentBytes)
	})

	t.Run("引用缺失的附件被跳过", func(t *testing.T) {
		stats, mails, _ := setupStatsService(t)
		mustCreateMailbox(t, mails, "alice")

		missing := "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
		_, err := mails.SaveDraft("alice", &domain.Mail{
			Subject: "dangling",
			Attachments: []domain.AttachmentRef{
				{Filename: "gone.bin", Sha256: missing},
			},
		})
		require.NoError(t, err)

		usage, err := stats.ComputeSize("alice")
		require.NoError(t, err)
		assert.Equal(t, int64(0), usage.AttachmentBytes)
	})

	t.Run("结果有缓存", func(t *testing.T) {
		stats, mails, _ := setupStatsService(t)
		mustCreateMailbox(t, mails, "alice")

		first, err := stats.ComputeSize("alice")
		require.NoError(t, err)

		// 缓存生效期间新增的记录不影响返回值
		_, err = mails.SaveDraft("alice", &domain.Mail{Subject: "after"})
		require.NoError(t, err)

		second, err := stats.ComputeSize("alice")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("非法用户名失败", func(t *testing.T) {
		stats, _, _ := setupStatsService(t)
		_, err := stats.ComputeSize("../escape")
		assert.ErrorIs(t, err, domain.ErrInvalidUsername)
	})
}

func TestComputeSizeSkipsUnreadable(t *testing.T) {
	stats, mails, _ := setupStatsService(t)
	mustCreateMailbox(t, mails, "alice")

	bad := mails.mailFile("alice", domain.FolderInbox, "corrupt")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o644))

	usage, err := stats.ComputeSize("alice")
	require.NoError(t, err)
	// 坏文件的字节数仍计入，但其附件引用无法解析
	assert.Greater(t, usage.RecordBytes, int64(0))
	assert.Equal(t, int64(0), usage.AttachmentBytes)
}
