package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFolder(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Folder
		wantErr bool
	}{
		{"Parse inbox", "inbox", FolderInbox, false},
		{"Parse outbox", "outbox", FolderOutbox, false},
		{"Parse draft", "draft", FolderDraft, false},
		{"Parse trash", "trash", FolderTrash, false},
		{"Invalid - empty", "", "", true},
		{"Invalid - unknown name", "archive", "", true},
		{"Invalid - uppercase", "Inbox", "", true},
		{"Invalid - path traversal", "../inbox", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFolder(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFolder)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFolderPolicies(t *testing.T) {
	t.Run("只有回收站参与定期清除", func(t *testing.T) {
		assert.True(t, FolderTrash.PurgeEligible())
		assert.False(t, FolderInbox.PurgeEligible())
		assert.False(t, FolderOutbox.PurgeEligible())
		assert.False(t, FolderDraft.PurgeEligible())
	})

	t.Run("投递只能写入收件箱和发件箱", func(t *testing.T) {
		assert.True(t, FolderInbox.DeliveryTarget())
		assert.True(t, FolderOutbox.DeliveryTarget())
		assert.False(t, FolderDraft.DeliveryTarget())
		assert.False(t, FolderTrash.DeliveryTarget())
	})

	t.Run("目录名与枚举值一致", func(t *testing.T) {
		assert.Equal(t, "inbox", FolderInbox.DirName())
		assert.Equal(t, "trash", FolderTrash.DirName())
	})

	t.Run("Folders 覆盖全部文件夹", func(t *testing.T) {
		assert.Len(t, Folders, 4)
	})
}
