package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/storage/filesystem"
)

var (
	// ErrInvalidMail 表示邮件缺少必填字段（from/to），在任何 I/O 之前拒绝。
	ErrInvalidMail = errors.New("invalid mail")
	// ErrMailboxNotFound 表示邮箱（发件人或收件人）不存在。
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrMailNotFound 表示指定文件夹内没有该 ID 的邮件。
	ErrMailNotFound = errors.New("mail not found")
)

// MailService 封装邮箱生命周期的全部业务规则。
//
// 目录布局: {dataRoot}/mailboxes/{username}/{inbox|outbox|draft|trash}/{id}.json
// 每个文件夹独立一致，不提供跨邮箱事务。
type MailService struct {
	mailboxesRoot string
	records       *filesystem.Store
	log           *zap.Logger
}

// NewMailService 创建邮件业务服务，确保邮箱根目录存在。
func NewMailService(dataRoot string, records *filesystem.Store, log *zap.Logger) (*MailService, error) {
	root := filepath.Join(dataRoot, "mailboxes")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mailboxes root: %w", err)
	}
	return &MailService{
		mailboxesRoot: root,
		records:       records,
		log:           log,
	}, nil
}

// ========== 路径辅助 ==========

func (s *MailService) userRoot(username string) string {
	return filepath.Join(s.mailboxesRoot, username)
}

func (s *MailService) folderRoot(username string, folder domain.Folder) string {
	return filepath.Join(s.userRoot(username), folder.DirName())
}

func (s *MailService) mailFile(username string, folder domain.Folder, id string) string {
	return filepath.Join(s.folderRoot(username, folder), id+filesystem.RecordExt)
}

// UserRoot 返回邮箱根目录（供凭证服务存放 user.json）。
func (s *MailService) UserRoot(username string) (string, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return "", err
	}
	return s.userRoot(username), nil
}

// ========== 邮箱管理 ==========

// MailboxExists 判断邮箱是否已创建。
func (s *MailService) MailboxExists(username string) (bool, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return false, err
	}
	_, err := os.Stat(s.userRoot(username))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat mailbox: %w", err)
	}
	return true, nil
}

// CreateMailbox 创建邮箱及四个文件夹，幂等。
func (s *MailService) CreateMailbox(username string) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}
	for _, folder := range domain.Folders {
		if err := os.MkdirAll(s.folderRoot(username, folder), 0o755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", folder, err)
		}
	}
	return nil
}

// ListMailboxes 枚举全部已创建的邮箱用户名（用于定时清理回收站）。
func (s *MailService) ListMailboxes() ([]string, error) {
	entries, err := os.ReadDir(s.mailboxesRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// ========== 发送 ==========

// Send 发送一封邮件。
//
// 前置条件：from 已设置且邮箱存在，to 非空且每个收件人邮箱都存在。
// 效果：补齐 id 和 date，清空 deletedAt，写入发件人 OUTBOX，
// 然后为每个收件人写入一份带 "unread" 标签的独立深拷贝到其 INBOX。
//
// 收件人投递是尽力而为：单个收件人写入失败只记录日志并计入
// 返回的失败数，不会阻塞其他收件人，也不作为错误返回。
func (s *MailService) Send(mail *domain.Mail) (*domain.Mail, int, error) {
	if mail == nil || mail.From == "" {
		return nil, 0, fmt.Errorf("%w: from is required", ErrInvalidMail)
	}
	if len(mail.To) == 0 {
		return nil, 0, fmt.Errorf("%w: to is required", ErrInvalidMail)
	}

	if err := domain.ValidateUsername(mail.From); err != nil {
		return nil, 0, err
	}
	for _, rcpt := range mail.To {
		if err := domain.ValidateUsername(rcpt); err != nil {
			return nil, 0, err
		}
	}

	if exists, err := s.MailboxExists(mail.From); err != nil {
		return nil, 0, err
	} else if !exists {
		return nil, 0, fmt.Errorf("%w: sender %s", ErrMailboxNotFound, mail.From)
	}
	for _, rcpt := range mail.To {
		if exists, err := s.MailboxExists(rcpt); err != nil {
			return nil, 0, err
		} else if !exists {
			return nil, 0, fmt.Errorf("%w: recipient %s", ErrMailboxNotFound, rcpt)
		}
	}

	s.prepare(mail)

	// 发件人 OUTBOX：这一份失败则整个发送失败
	if err := s.records.Write(s.mailFile(mail.From, domain.FolderOutbox, mail.ID), mail); err != nil {
		return nil, 0, err
	}

	// 收件人 INBOX：每人一份独立深拷贝，互不共享可变状态
	delivered := 0
	for _, rcpt := range mail.To {
		rcptCopy := mail.Clone()
		rcptCopy.AddTag(domain.TagUnread)
		if err := s.records.Write(s.mailFile(rcpt, domain.FolderInbox, mail.ID), rcptCopy); err != nil {
			s.log.Error("failed to deliver mail to recipient",
				zap.String("mail_id", mail.ID),
				zap.String("recipient", rcpt),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	return mail, delivered, nil
}

// Deliver 将邮件直接写入收件人的 INBOX（匿名投递网关使用，
// 没有发件人邮箱，不经过 OUTBOX）。
func (s *MailService) Deliver(username string, mail *domain.Mail) error {
	if mail == nil {
		return fmt.Errorf("%w: mail is nil", ErrInvalidMail)
	}
	if exists, err := s.MailboxExists(username); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("%w: %s", ErrMailboxNotFound, username)
	}

	s.prepare(mail)
	return s.records.Write(s.mailFile(username, domain.FolderInbox, mail.ID), mail)
}

// SaveDraft 保存草稿到 DRAFT/{id}.json，同 id 重复保存为覆盖。
func (s *MailService) SaveDraft(username string, draft *domain.Mail) (*domain.Mail, error) {
	if draft == nil {
		return nil, fmt.Errorf("%w: draft is nil", ErrInvalidMail)
	}
	if exists, err := s.MailboxExists(username); err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("%w: %s", ErrMailboxNotFound, username)
	}

	s.prepare(draft)
	if err := s.records.Write(s.mailFile(username, domain.FolderDraft, draft.ID), draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// prepare 补齐首次持久化所需的字段。
func (s *MailService) prepare(mail *domain.Mail) {
	if mail.ID == "" {
		mail.ID = uuid.NewString()
	}
	if mail.Date == nil {
		now := time.Now()
		mail.Date = &now
	}
	mail.DeletedAt = nil
}

// ========== 查询 ==========

// ListMails 列出文件夹内全部可读邮件，按日期降序，无日期的排最后。
//
// 损坏的记录被静默跳过，单个坏文件不会让整个列表失败；
// 空文件夹或尚未创建的文件夹返回空列表。
func (s *MailService) ListMails(username string, folder domain.Folder) ([]*domain.Mail, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	paths, err := s.records.List(s.folderRoot(username, folder))
	if err != nil {
		return nil, err
	}

	mails := make([]*domain.Mail, 0, len(paths))
	for _, path := range paths {
		mail, err := s.records.Read(path)
		if err != nil {
			s.log.Warn("skipping unreadable mail record",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		mails = append(mails, mail)
	}

	sort.SliceStable(mails, func(i, j int) bool {
		a, b := mails[i].Date, mails[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return mails, nil
}

// ReadMail 读取一封邮件。
//
// 首次读取会移除 "unread" 标签并重写文件：阅读是一次有记录的
// 副作用。再次读取同一封邮件不会产生新的写入。
func (s *MailService) ReadMail(username string, folder domain.Folder, id string) (*domain.Mail, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	path := s.mailFile(username, folder, id)
	mail, err := s.records.Read(path)
	if err != nil {
		// 单条读取时，损坏等同于不存在
		if errors.Is(err, filesystem.ErrNotFound) || errors.Is(err, filesystem.ErrCorrupt) {
			return nil, fmt.Errorf("%w: %s", ErrMailNotFound, id)
		}
		return nil, err
	}

	if mail.HasTag(domain.TagUnread) {
		mail.RemoveTag(domain.TagUnread)
		if err := s.records.Write(path, mail); err != nil {
			return nil, err
		}
	}
	return mail, nil
}

// ========== 回收站 ==========

// MoveToTrash 把邮件移入回收站并记录 deletedAt。
//
// 源文件夹已是回收站时为空操作。写入顺序保证可恢复性：
// 先把带 deletedAt 的副本落盘到 TRASH，再删除源记录——
// 两步之间崩溃时邮件仍留在原文件夹，不会丢失。
func (s *MailService) MoveToTrash(username string, folder domain.Folder, id string) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}
	if folder == domain.FolderTrash {
		return nil
	}

	src := s.mailFile(username, folder, id)
	mail, err := s.records.Read(src)
	if err != nil {
		if errors.Is(err, filesystem.ErrNotFound) || errors.Is(err, filesystem.ErrCorrupt) {
			return fmt.Errorf("%w: %s", ErrMailNotFound, id)
		}
		return err
	}

	now := time.Now()
	mail.DeletedAt = &now

	if err := s.records.Write(s.mailFile(username, domain.FolderTrash, id), mail); err != nil {
		return err
	}
	return s.records.Delete(src)
}

// DefaultRetentionDays 回收站默认保留天数。
const DefaultRetentionDays = 30

// PurgeTrash 永久删除回收站中过期的邮件，返回删除数量。
//
// deletedAt + retentionDays 早于当前时间的记录被删除；
// 无法解析的记录视为不可恢复，在同一趟扫描中一并清除。
func (s *MailService) PurgeTrash(username string, retentionDays int) (int, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return 0, err
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	paths, err := s.records.List(s.folderRoot(username, domain.FolderTrash))
	if err != nil {
		return 0, err
	}

	now := time.Now()
	deleted := 0
	for _, path := range paths {
		mail, err := s.records.Read(path)
		if err != nil {
			// 回收站里的坏记录直接清除，不让它永远留在磁盘上
			if delErr := s.records.Delete(path); delErr != nil {
				s.log.Error("failed to delete corrupt trash record",
					zap.String("path", path),
					zap.Error(delErr),
				)
				continue
			}
			deleted++
			continue
		}

		if mail.DeletedAt == nil {
			continue
		}
		if mail.DeletedAt.AddDate(0, 0, retentionDays).Before(now) {
			if err := s.records.Delete(path); err != nil {
				s.log.Error("failed to purge trash record",
					zap.String("path", path),
					zap.Error(err),
				)
				continue
			}
			deleted++
		}
	}
	return deleted, nil
}
