package blob

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

var (
	// ErrNotFound 表示指定哈希的附件不存在。
	ErrNotFound = errors.New("attachment not found")
	// ErrInvalidDigest 表示哈希格式非法（防止把任意字符串拼进路径）。
	ErrInvalidDigest = errors.New("invalid digest")
)

// SHA-256 十六进制摘要：固定 64 位小写
var digestRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Store 内容寻址附件存储。
//
// 附件按内容的 SHA-256 摘要扁平存放于 attachments/{digest}，
// 相同字节只存一份：去重是结构性的（同内容 ⇒ 同键），与邮件无关。
// 不提供删除或孤儿回收，清除邮件后失去引用的附件会留在磁盘上
// （已知限制，见设计文档）。
type Store struct {
	dir string // attachments 根目录
}

// NewStore 创建附件存储，确保根目录存在。
func NewStore(dataRoot string) (*Store, error) {
	dir := filepath.Join(dataRoot, "attachments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachments directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir 返回附件根目录（供统计等只读用途）。
func (s *Store) Dir() string { return s.dir }

// Put 流式写入附件内容，返回其 SHA-256 摘要。
//
// 内容在写入临时文件的同时计算哈希，从不整体驻留内存。
// 目标路径已存在时直接复用（幂等）；两个并发调用者同时写入
// 相同内容时，后完成的 rename 覆盖的是字节相同的文件，结果一致。
func (s *Store) Put(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	digest := hex.EncodeToString(h.Sum(nil))
	target := filepath.Join(s.dir, digest)

	if _, statErr := os.Stat(target); statErr == nil {
		// 已存在相同内容，丢弃临时文件
		os.Remove(tmpPath)
		tmp = nil
		return digest, nil
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return "", fmt.Errorf("failed to store attachment: %w", err)
	}
	tmp = nil
	return digest, nil
}

// PutBytes 是 Put 的便捷形式。
func (s *Store) PutBytes(content []byte) (string, error) {
	return s.Put(bytes.NewReader(content))
}

// Open 按摘要打开附件内容，调用方负责关闭。
func (s *Store) Open(digest string) (io.ReadCloser, error) {
	path, err := s.resolve(digest)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return f, nil
}

// Get 按摘要读出完整内容。
func (s *Store) Get(digest string) ([]byte, error) {
	f, err := s.Open(digest)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return content, nil
}

// Size 返回已存附件的字节数。
func (s *Store) Size(digest string) (int64, error) {
	path, err := s.resolve(digest)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to stat attachment: %w", err)
	}
	return info.Size(), nil
}

// Exists 判断摘要对应的附件是否已存储。
func (s *Store) Exists(digest string) bool {
	path, err := s.resolve(digest)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// resolve 校验摘要格式后拼出存储路径。
func (s *Store) resolve(digest string) (string, error) {
	if !digestRegex.MatchString(digest) {
		return "", ErrInvalidDigest
	}
	return filepath.Join(s.dir, digest), nil
}
