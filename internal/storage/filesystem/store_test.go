package filesystem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"webmail/backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMail(id string) *domain.Mail {
	now := time.Now().Truncate(time.Second)
	return &domain.Mail{
		ID:      id,
		From:    "alice",
		To:      []string{"bob"},
		Date:    &now,
		Subject: "test subject",
		Content: "test content",
		Tags:    []string{domain.TagUnread},
	}
}

// TestWriteAndRead 测试记录的写入与读取
func TestWriteAndRead(t *testing.T) {
	store := NewStore()
	dir := t.TempDir()

	t.Run("写入后读回内容一致", func(t *testing.T) {
		mail := testMail("mail-001")
		path := filepath.Join(dir, "mail-001.json")

		err := store.Write(path, mail)
		require.NoError(t, err)

		got, err := store.Read(path)
		require.NoError(t, err)
		assert.Equal(t, mail.ID, got.ID)
		assert.Equal(t, mail.From, got.From)
		assert.Equal(t, mail.To, got.To)
		assert.Equal(t, mail.Subject, got.Subject)
		assert.Equal(t, mail.Content, got.Content)
		assert.Equal(t, mail.Tags, got.Tags)
		require.NotNil(t, got.Date)
		assert.True(t, mail.Date.Equal(*got.Date))
	})

	t.Run("写入自动创建父目录", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "deeper", "mail-002.json")
		err := store.Write(path, testMail("mail-002"))
		require.NoError(t, err)

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("同路径重复写入为覆盖", func(t *testing.T) {
		path := filepath.Join(dir, "mail-003.json")
		first := testMail("mail-003")
		require.NoError(t, store.Write(path, first))

		second := testMail("mail-003")
		second.Subject = "updated subject"
		require.NoError(t, store.Write(path, second))

		got, err := store.Read(path)
		require.NoError(t, err)
		assert.Equal(t, "updated subject", got.Subject)
	})

	t.Run("写入不留临时文件", func(t *testing.T) {
		path := filepath.Join(dir, "mail-004.json")
		require.NoError(t, store.Write(path, testMail("mail-004")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.True(t, e.IsDir() || filepath.Ext(e.Name()) == RecordExt,
				"unexpected file: %s", e.Name())
		}
	})

	t.Run("读取不存在的记录返回 ErrNotFound", func(t *testing.T) {
		_, err := store.Read(filepath.Join(dir, "missing.json"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("读取损坏的记录返回 ErrCorrupt", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := store.Read(path)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

// TestList 测试目录枚举
func TestList(t *testing.T) {
	store := NewStore()

	t.Run("按文件名升序返回全部记录", func(t *testing.T) {
		dir := t.TempDir()
		for _, id := range []string{"ccc", "aaa", "bbb"} {
			require.NoError(t, store.Write(filepath.Join(dir, id+".json"), testMail(id)))
		}

		paths, err := store.List(dir)
		require.NoError(t, err)
		require.Len(t, paths, 3)
		assert.Equal(t, filepath.Join(dir, "aaa.json"), paths[0])
		assert.Equal(t, filepath.Join(dir, "bbb.json"), paths[1])
		assert.Equal(t, filepath.Join(dir, "ccc.json"), paths[2])
	})

	t.Run("目录不存在返回空列表", func(t *testing.T) {
		paths, err := store.List(filepath.Join(t.TempDir(), "does-not-exist"))
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("排除临时文件和子目录", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, store.Write(filepath.Join(dir, "real.json"), testMail("real")))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "real.json.tmp123"), []byte("x"), 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.json"), 0o755))

		paths, err := store.List(dir)
		require.NoError(t, err)
		require.Len(t, paths, 1)
		assert.Equal(t, filepath.Join(dir, "real.json"), paths[0])
	})
}

// TestDelete 测试记录删除
func TestDelete(t *testing.T) {
	store := NewStore()
	dir := t.TempDir()

	t.Run("删除存在的记录", func(t *testing.T) {
		path := filepath.Join(dir, "doomed.json")
		require.NoError(t, store.Write(path, testMail("doomed")))

		require.NoError(t, store.Delete(path))

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("删除不存在的记录为空操作", func(t *testing.T) {
		err := store.Delete(filepath.Join(dir, "never-existed.json"))
		assert.NoError(t, err)
	})
}
