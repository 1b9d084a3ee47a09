package auth

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/bcrypt"

	"webmail/backend/internal/domain"
)

var (
	// ErrInvalidPassword 密码不满足强度要求
	ErrInvalidPassword = errors.New("invalid password")
	// ErrUserExists 用户名已被占用
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRecoveryCode 恢复码不匹配
	ErrInvalidRecoveryCode = errors.New("invalid recovery code")
)

// userFile 凭证文件名，位于邮箱根目录下，与文件夹并列。
const userFile = "user.json"

// MailboxProvisioner 抽象邮箱的创建与定位，由邮件服务实现。
type MailboxProvisioner interface {
	CreateMailbox(username string) error
	MailboxExists(username string) (bool, error)
	UserRoot(username string) (string, error)
}

// Service 凭证服务：注册、登录、改密、恢复码重置。
//
// 凭证随邮箱一起存放在文件系统里（{邮箱根}/user.json），
// 没有独立的用户数据库。注册即开通邮箱。
type Service struct {
	mailboxes MailboxProvisioner
}

// NewService 创建凭证服务。
func NewService(mailboxes MailboxProvisioner) *Service {
	return &Service{mailboxes: mailboxes}
}

// Register 注册新用户并开通邮箱。
//
// 返回的 User 中包含明文恢复码，这是它唯一一次对外可见；
// 落盘的是恢复码的 bcrypt 哈希。
func (s *Service) Register(username, password string) (*domain.User, string, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, "", err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, "", err
	}

	if exists, err := s.mailboxes.MailboxExists(username); err != nil {
		return nil, "", err
	} else if exists {
		return nil, "", ErrUserExists
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	recoveryCode, err := newRecoveryCode()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate recovery code: %w", err)
	}
	recoveryHash, err := HashPassword(recoveryCode)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash recovery code: %w", err)
	}

	if err := s.mailboxes.CreateMailbox(username); err != nil {
		return nil, "", err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: passwordHash,
		RecoveryCode: recoveryHash,
		CreatedAt:    time.Now(),
	}
	if err := s.saveUser(user); err != nil {
		return nil, "", err
	}
	return user, recoveryCode, nil
}

// Login 校验用户名和密码，成功时更新最后登录时间。
func (s *Service) Login(username, password string) (*domain.User, error) {
	user, err := s.loadUser(username)
	if err != nil {
		return nil, err
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLoginAt = &now
	// 登录时间是尽力而为的记录，写失败不影响登录结果
	_ = s.saveUser(user)

	return user, nil
}

// GetUser 读取用户凭证记录。
func (s *Service) GetUser(username string) (*domain.User, error) {
	return s.loadUser(username)
}

// ChangePassword 校验旧密码后替换为新密码。
func (s *Service) ChangePassword(username, oldPassword, newPassword string) error {
	user, err := s.loadUser(username)
	if err != nil {
		return err
	}
	if !CheckPassword(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = newHash
	return s.saveUser(user)
}

// ResetPassword 用恢复码重置密码，并轮换出一个新的恢复码返回。
func (s *Service) ResetPassword(username, recoveryCode, newPassword string) (string, error) {
	user, err := s.loadUser(username)
	if err != nil {
		return "", err
	}
	if !CheckPassword(recoveryCode, user.RecoveryCode) {
		return "", ErrInvalidRecoveryCode
	}
	if err := ValidatePassword(newPassword); err != nil {
		return "", err
	}

	newHash, err := HashPassword(newPassword)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	nextCode, err := newRecoveryCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate recovery code: %w", err)
	}
	nextHash, err := HashPassword(nextCode)
	if err != nil {
		return "", fmt.Errorf("failed to hash recovery code: %w", err)
	}

	user.PasswordHash = newHash
	user.RecoveryCode = nextHash
	if err := s.saveUser(user); err != nil {
		return "", err
	}
	return nextCode, nil
}

// ========== 凭证文件读写 ==========

func (s *Service) userPath(username string) (string, error) {
	root, err := s.mailboxes.UserRoot(username)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, userFile), nil
}

func (s *Service) loadUser(username string) (*domain.User, error) {
	path, err := s.userPath(username)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to read user record: %w", err)
	}
	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user record: %w", err)
	}
	return &user, nil
}

// saveUser 原子写入凭证文件，崩溃不会留下半写的 user.json。
func (s *Service) saveUser(user *domain.User) error {
	path, err := s.userPath(user.Username)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user record: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, userFile+".tmp*")
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
		return fmt.Errorf("failed to write user record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync user record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to commit user record: %w", err)
	}
	tmp = nil
	return nil
}

// ========== 密码工具 ==========

// ValidatePassword 验证密码强度。
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: must be at least 8 characters", ErrInvalidPassword)
	}
	if len(password) > 72 {
		return fmt.Errorf("%w: must be at most 72 characters", ErrInvalidPassword)
	}
	return nil
}

// HashPassword 哈希密码。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否匹配。
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// recoveryCodeAlphabet 去掉了易混淆的 0/O/1/I。
const recoveryCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// newRecoveryCode 生成形如 XXXX-XXXX-XXXX 的恢复码。
func newRecoveryCode() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, 0, 14)
	for i, b := range buf {
		if i > 0 && i%4 == 0 {
			code = append(code, '-')
		}
		code = append(code, recoveryCodeAlphabet[int(b)%len(recoveryCodeAlphabet)])
	}
	return string(code), nil
}
