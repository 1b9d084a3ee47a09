package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AttachmentPolicy 附件上传准入策略。
//
// 附件按内容寻址存储，服务端不解析文件内容，
// 准入只看声明的文件名和大小。
type AttachmentPolicy struct {
	maxSize           int64
	blockedExtensions map[string]bool
	maxFilenameLength int
}

// NewAttachmentPolicy 创建默认的附件准入策略。
func NewAttachmentPolicy(maxSize int64) *AttachmentPolicy {
	return &AttachmentPolicy{
		maxSize:           maxSize,
		maxFilenameLength: 255,
		blockedExtensions: map[string]bool{
			".exe": true,
			".bat": true,
			".cmd": true,
			".scr": true,
			".pif": true,
			".com": true,
			".vbs": true,
			".jar": true,
			".msi": true,
			".ps1": true,
		},
	}
}

// Check 校验上传的附件能否入库。
func (p *AttachmentPolicy) Check(filename string, size int64) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	if len(filename) > p.maxFilenameLength {
		return fmt.Errorf("filename too long")
	}
	// 文件名只是展示用的元数据，但不允许带路径
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("filename must not contain path separators")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if p.blockedExtensions[ext] {
		return fmt.Errorf("file type %s is not allowed", ext)
	}

	if p.maxSize > 0 && size > p.maxSize {
		return fmt.Errorf("file exceeds maximum size of %d bytes", p.maxSize)
	}
	return nil
}
