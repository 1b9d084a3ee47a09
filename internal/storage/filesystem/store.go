package filesystem

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"webmail/backend/internal/domain"
)

var (
	// ErrNotFound 表示指定路径没有邮件记录。
	ErrNotFound = errors.New("mail record not found")
	// ErrCorrupt 表示文件存在但无法解析为邮件记录。
	// 列表和清理场景下调用方通常选择跳过而不是中断。
	ErrCorrupt = errors.New("mail record corrupt")
)

// RecordExt 邮件记录文件扩展名。
const RecordExt = ".json"

// Store 负责单个邮件记录的持久化读写与目录枚举。
//
// 写入采用临时文件 + 原子改名：读者永远看不到半写状态，
// 崩溃最多留下一个无害的临时文件，原记录保持完整。
type Store struct{}

// NewStore 创建邮件记录存储。
func NewStore() *Store {
	return &Store{}
}

// Write 将邮件序列化为带缩进的 JSON 并原子落盘。
func (s *Store) Write(path string, mail *domain.Mail) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(mail, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mail: %w", err)
	}

	// 临时文件必须与目标同目录，跨文件系统的 rename 不是原子的
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to commit record: %w", err)
	}
	tmp = nil
	return nil
}

// Read 读出一条邮件记录。
//
// 文件缺失返回 ErrNotFound，内容不可解析返回 ErrCorrupt，
// 两者都可以用 errors.Is 判断。
func (s *Store) Read(path string) (*domain.Mail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var mail domain.Mail
	if err := json.Unmarshal(data, &mail); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, filepath.Base(path))
	}
	return &mail, nil
}

// List 返回目录下全部记录文件路径，按文件名升序。
//
// 目录不存在视为空文件夹，返回空切片而不是错误；
// 临时文件（不以 .json 结尾）被排除在枚举之外。
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), RecordExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Delete 删除一条记录，文件不存在时为空操作。
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
