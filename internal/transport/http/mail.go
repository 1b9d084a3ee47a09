package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/middleware"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/service"
	"webmail/backend/internal/storage/blob"
	"webmail/backend/internal/websocket"
)

// MailHandler 处理邮件读写相关的 HTTP 请求
type MailHandler struct {
	mails   *service.MailService
	stats   *service.StatsService
	blobs   *blob.Store
	hub     *websocket.Hub
	metrics *monitoring.Metrics
	log     *zap.Logger

	retentionDays int
}

// NewMailHandler 创建邮件处理器。hub 可以为 nil。
func NewMailHandler(
	mails *service.MailService,
	stats *service.StatsService,
	blobs *blob.Store,
	hub *websocket.Hub,
	metrics *monitoring.Metrics,
	retentionDays int,
	log *zap.Logger,
) *MailHandler {
	return &MailHandler{
		mails:         mails,
		stats:         stats,
		blobs:         blobs,
		hub:           hub,
		metrics:       metrics,
		retentionDays: retentionDays,
		log:           log,
	}
}

type sendMailRequest struct {
	To          []string               `json:"to" binding:"required"`
	Subject     string                 `json:"subject"`
	Content     string                 `json:"content"`
	Attachments []domain.AttachmentRef `json:"attachments"`
}

type saveDraftRequest struct {
	ID          string                 `json:"id"` // 为空时新建，非空时覆盖
	To          []string               `json:"to"`
	Subject     string                 `json:"subject"`
	Content     string                 `json:"content"`
	Attachments []domain.AttachmentRef `json:"attachments"`
}

type sendMailResponse struct {
	Mail      *domain.Mail `json:"mail"`
	Delivered int          `json:"delivered"`
}

type mailListResponse struct {
	Items []*domain.Mail `json:"items"`
	Count int            `json:"count"`
}

// Send 发送邮件：落盘到发件箱并投递到每个收件人的收件箱。
func (h *MailHandler) Send(c *gin.Context) {
	var req sendMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	// 引用的附件必须已经上传过
	for _, ref := range req.Attachments {
		if !h.blobs.Exists(ref.Sha256) {
			BadRequest(c, MsgAttachmentNotFound)
			return
		}
	}

	username := c.GetString(middleware.ContextUsername)
	mail := &domain.Mail{
		From:        username,
		To:          req.To,
		Subject:     req.Subject,
		Content:     req.Content,
		Attachments: req.Attachments,
	}

	sent, delivered, err := h.mails.Send(mail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMail), errors.Is(err, domain.ErrInvalidUsername),
			errors.Is(err, domain.ErrUsernameRequired), errors.Is(err, domain.ErrUsernameTooLong):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrMailboxNotFound):
			NotFound(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to send mail",
				zap.String("from", username),
				zap.Error(err),
			)
			InternalError(c, MsgSendFailed)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.MailsSent.Inc()
		h.metrics.MailsDelivered.Add(float64(delivered))
	}
	if h.hub != nil {
		for _, rcpt := range sent.To {
			h.hub.NotifyNewMail(rcpt, sent)
		}
	}

	Created(c, sendMailResponse{Mail: sent, Delivered: delivered})
}

// SaveDraft 保存草稿，同 id 重复保存为覆盖。
func (h *MailHandler) SaveDraft(c *gin.Context) {
	var req saveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	username := c.GetString(middleware.ContextUsername)
	draft := &domain.Mail{
		ID:          req.ID,
		From:        username,
		To:          req.To,
		Subject:     req.Subject,
		Content:     req.Content,
		Attachments: req.Attachments,
	}

	saved, err := h.mails.SaveDraft(username, draft)
	if err != nil {
		if errors.Is(err, service.ErrMailboxNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to save draft",
			zap.String("username", username),
			zap.Error(err),
		)
		InternalError(c, MsgDraftSaveFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.DraftsSaved.Inc()
	}
	Created(c, saved)
}

// List 列出文件夹内的邮件，按日期降序。
func (h *MailHandler) List(c *gin.Context) {
	folder, err := domain.ParseFolder(c.Param("folder"))
	if err != nil {
		BadRequest(c, GetErrorMessage(err))
		return
	}

	username := c.GetString(middleware.ContextUsername)
	mails, err := h.mails.ListMails(username, folder)
	if err != nil {
		h.log.Error("failed to list mails",
			zap.String("username", username),
			zap.String("folder", string(folder)),
			zap.Error(err),
		)
		InternalError(c, MsgMailListFailed)
		return
	}

	Success(c, mailListResponse{Items: mails, Count: len(mails)})
}

// Read 读取一封邮件，首次读取会移除未读标签。
func (h *MailHandler) Read(c *gin.Context) {
	folder, err := domain.ParseFolder(c.Param("folder"))
	if err != nil {
		BadRequest(c, GetErrorMessage(err))
		return
	}

	username := c.GetString(middleware.ContextUsername)
	mail, err := h.mails.ReadMail(username, folder, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrMailNotFound) {
			NotFound(c, MsgMailNotFound)
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	if h.metrics != nil {
		h.metrics.MailsRead.Inc()
	}
	Success(c, mail)
}

// Trash 把邮件移入回收站。
func (h *MailHandler) Trash(c *gin.Context) {
	folder, err := domain.ParseFolder(c.Param("folder"))
	if err != nil {
		BadRequest(c, GetErrorMessage(err))
		return
	}

	username := c.GetString(middleware.ContextUsername)
	if err := h.mails.MoveToTrash(username, folder, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrMailNotFound) {
			NotFound(c, MsgMailNotFound)
			return
		}
		h.log.Error("failed to trash mail",
			zap.String("username", username),
			zap.Error(err),
		)
		InternalError(c, MsgTrashFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.MailsTrashed.Inc()
	}
	NoContent(c)
}

// PurgeTrash 立即清理当前用户回收站中的过期邮件。
func (h *MailHandler) PurgeTrash(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	deleted, err := h.mails.PurgeTrash(username, h.retentionDays)
	if err != nil {
		h.log.Error("failed to purge trash",
			zap.String("username", username),
			zap.Error(err),
		)
		InternalError(c, MsgPurgeFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.MailsPurged.Add(float64(deleted))
	}
	Success(c, gin.H{"purged": deleted})
}

// Usage 返回当前用户邮箱的存储占用。
func (h *MailHandler) Usage(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	usage, err := h.stats.ComputeSize(username)
	if err != nil {
		h.log.Error("failed to compute mailbox usage",
			zap.String("username", username),
			zap.Error(err),
		)
		InternalError(c, MsgUsageFailed)
		return
	}
	Success(c, usage)
}

// retentionPreview 暴露给前端展示回收站保留策略。
type retentionPreview struct {
	RetentionDays int       `json:"retentionDays"`
	Now           time.Time `json:"now"`
}

// Retention 返回回收站保留策略。
func (h *MailHandler) Retention(c *gin.Context) {
	Success(c, retentionPreview{
		RetentionDays: h.retentionDays,
		Now:           time.Now(),
	})
}
