package service

import (
	"os"
	"time"

	"go.uber.org/zap"

	"webmail/backend/internal/cache"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/storage/blob"
	"webmail/backend/internal/storage/filesystem"
)

// Usage 描述一个邮箱占用的磁盘空间。
type Usage struct {
	RecordBytes     int64 `json:"recordBytes"`     // 全部文件夹的记录文件大小之和
	AttachmentBytes int64 `json:"attachmentBytes"` // 去重后引用到的附件大小之和
	TotalBytes      int64 `json:"totalBytes"`
}

// StatsService 计算邮箱磁盘用量。
//
// 附件按摘要去重：同一个哈希被多封邮件引用、或在一封邮件里
// 被引用多次，都只计一次大小。
type StatsService struct {
	mails   *MailService
	records *filesystem.Store
	blobs   *blob.Store
	cached  *cache.Cache[*Usage]
	log     *zap.Logger
}

// usageCacheTTL 用量结果的缓存时间。统计要遍历整个邮箱目录树，
// 短暂的失真可以接受，反复全量扫描不行。
const usageCacheTTL = 30 * time.Second

// NewStatsService 创建用量统计服务。
func NewStatsService(mails *MailService, records *filesystem.Store, blobs *blob.Store, log *zap.Logger) *StatsService {
	return &StatsService{
		mails:   mails,
		records: records,
		blobs:   blobs,
		cached:  cache.New[*Usage](usageCacheTTL),
		log:     log,
	}
}

// ComputeSize 计算邮箱的总磁盘用量，结果有短暂缓存。
//
// 不可读的记录和已失去实体的附件引用被跳过（记日志），
// 不会让整个统计失败。
func (s *StatsService) ComputeSize(username string) (*Usage, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	if usage, ok := s.cached.Get(username); ok {
		return usage, nil
	}

	usage := &Usage{}
	seen := make(map[string]struct{})

	for _, folder := range domain.Folders {
		paths, err := s.records.List(s.mails.folderRoot(username, folder))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if info, err := os.Stat(path); err == nil {
				usage.RecordBytes += info.Size()
			}

			mail, err := s.records.Read(path)
			if err != nil {
				s.log.Warn("skipping unreadable record in size computation",
					zap.String("path", path),
					zap.Error(err),
				)
				continue
			}
			for _, ref := range mail.Attachments {
				if ref.Sha256 != "" {
					seen[ref.Sha256] = struct{}{}
				}
			}
		}
	}

	for digest := range seen {
		size, err := s.blobs.Size(digest)
		if err != nil {
			s.log.Warn("referenced attachment missing from store",
				zap.String("digest", digest),
				zap.Error(err),
			)
			continue
		}
		usage.AttachmentBytes += size
	}

	usage.TotalBytes = usage.RecordBytes + usage.AttachmentBytes
	s.cached.Set(username, usage)
	return usage, nil
}
