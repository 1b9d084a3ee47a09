package domain

import "time"

// User 是邮箱所有者的凭证记录，持久化为邮箱根目录下的 user.json。
// 核心引擎只通过用户名引用它，凭证验证由 auth 包负责。
type User struct {
	Username     string     `json:"username"`
	PasswordHash string     `json:"passwordHash"`
	RecoveryCode string     `json:"recoveryCode"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}
