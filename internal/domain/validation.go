package domain

import (
	"errors"
	"regexp"
)

// 验证相关的错误定义
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooLong  = errors.New("username too long (max 50 chars)")
	ErrInvalidUsername  = errors.New("invalid username format")
)

// 用户名长度上限（同时也是邮箱目录名的长度上限）
const MaxUsernameLength = 50

// 用户名只允许字母、数字、点、下划线、连字符。
// 这同时排除了路径穿越（"/"、"\"、".." 无法整体匹配）和控制字符，
// 用户名会直接成为磁盘目录名，校验必须在任何 I/O 之前完成。
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateUsername 校验邮箱用户名。
//
// 返回 nil 表示该名称可以安全地用作 mailboxes/ 下的目录名。
func ValidateUsername(username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if len(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	// "." 和 ".." 能通过字符集校验，但作为目录名会逃出邮箱根目录
	if username == "." || username == ".." {
		return ErrInvalidUsername
	}
	return nil
}
