package httptransport

import (
	"errors"

	"webmail/backend/internal/auth"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/service"
	"webmail/backend/internal/storage/blob"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = []struct {
	err error
	msg string
}{
	// 用户名校验错误
	{domain.ErrUsernameRequired, "用户名不能为空"},
	{domain.ErrUsernameTooLong, "用户名过长"},
	{domain.ErrInvalidUsername, "用户名格式无效"},

	// 邮件错误
	{service.ErrInvalidMail, "邮件缺少必填字段"},
	{service.ErrMailboxNotFound, "邮箱不存在"},
	{service.ErrMailNotFound, "邮件不存在"},
	{domain.ErrInvalidFolder, "文件夹不存在"},

	// 凭证错误
	{auth.ErrInvalidPassword, "密码不满足强度要求"},
	{auth.ErrUserExists, "用户名已被占用"},
	{auth.ErrUserNotFound, "用户不存在"},
	{auth.ErrInvalidCredentials, "用户名或密码错误"},
	{auth.ErrInvalidRecoveryCode, "恢复码无效"},

	// 附件错误
	{blob.ErrNotFound, "附件不存在"},
	{blob.ErrInvalidDigest, "附件摘要格式无效"},
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for _, entry := range errorMessages {
		if errors.Is(err, entry.err) {
			return entry.msg
		}
	}
	return err.Error()
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"

	MsgSendFailed      = "发送邮件失败"
	MsgDraftSaveFailed = "保存草稿失败"
	MsgMailListFailed  = "获取邮件列表失败"
	MsgMailNotFound    = "邮件不存在"
	MsgTrashFailed     = "移入回收站失败"
	MsgPurgeFailed     = "清理回收站失败"
	MsgUsageFailed     = "统计存储占用失败"

	MsgAttachmentUploadFailed = "上传附件失败"
	MsgAttachmentNotFound     = "附件不存在"

	MsgInternalError = "服务器内部错误，请稍后重试"
)
