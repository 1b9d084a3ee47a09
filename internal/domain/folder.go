package domain

import "errors"

// ErrInvalidFolder 表示文件夹名称不在封闭枚举内。
var ErrInvalidFolder = errors.New("invalid folder")

// Folder 是邮箱下的固定文件夹枚举，值即磁盘目录名。
type Folder string

const (
	FolderInbox  Folder = "inbox"
	FolderOutbox Folder = "outbox"
	FolderDraft  Folder = "draft"
	FolderTrash  Folder = "trash"
)

// Folders 按固定顺序列出全部文件夹（用于创建邮箱和统计遍历）。
var Folders = []Folder{FolderInbox, FolderOutbox, FolderDraft, FolderTrash}

// folderPolicy 以数据形式表达文件夹间的规则差异，
// 避免为四个几乎相同的文件夹派生子类型。
type folderPolicy struct {
	// purgeEligible 表示该文件夹内的记录参与按期限的永久清除。
	purgeEligible bool
	// deliveryTarget 表示发送/投递可以直接写入该文件夹。
	deliveryTarget bool
}

var folderPolicies = map[Folder]folderPolicy{
	FolderInbox:  {deliveryTarget: true},
	FolderOutbox: {deliveryTarget: true},
	FolderDraft:  {},
	FolderTrash:  {purgeEligible: true},
}

// ParseFolder 校验并规范化文件夹名称。
func ParseFolder(name string) (Folder, error) {
	f := Folder(name)
	if _, ok := folderPolicies[f]; !ok {
		return "", ErrInvalidFolder
	}
	return f, nil
}

// DirName 返回磁盘目录名。
func (f Folder) DirName() string { return string(f) }

// PurgeEligible 返回该文件夹是否参与定期清除。
func (f Folder) PurgeEligible() bool { return folderPolicies[f].purgeEligible }

// DeliveryTarget 返回投递是否允许直接写入该文件夹。
func (f Folder) DeliveryTarget() bool { return folderPolicies[f].deliveryTarget }
