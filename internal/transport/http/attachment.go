package httptransport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/security"
	"webmail/backend/internal/storage/blob"
)

// AttachmentHandler 处理附件上传下载
//
// 附件按内容寻址存放：上传返回 sha256 摘要，邮件通过摘要引用，
// 相同内容只存一份。
type AttachmentHandler struct {
	blobs   *blob.Store
	policy  *security.AttachmentPolicy
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewAttachmentHandler 创建附件处理器。
func NewAttachmentHandler(blobs *blob.Store, policy *security.AttachmentPolicy, metrics *monitoring.Metrics, log *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		blobs:   blobs,
		policy:  policy,
		metrics: metrics,
		log:     log,
	}
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Sha256   string `json:"sha256"`
	Size     int64  `json:"size"`
}

// Upload 接收 multipart 文件并写入内容寻址仓库。
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.policy.Check(fileHeader.Filename, fileHeader.Size); err != nil {
		BadRequest(c, err.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		InternalError(c, MsgAttachmentUploadFailed)
		return
	}
	defer file.Close()

	digest, err := h.blobs.Put(file)
	if err != nil {
		h.log.Error("failed to store attachment",
			zap.String("filename", fileHeader.Filename),
			zap.Error(err),
		)
		InternalError(c, MsgAttachmentUploadFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAttachmentSize(fileHeader.Size)
	}
	h.log.Info("attachment stored",
		zap.String("digest", digest),
		zap.Int64("size", fileHeader.Size),
	)

	Created(c, uploadResponse{
		Filename: fileHeader.Filename,
		Sha256:   digest,
		Size:     fileHeader.Size,
	})
}

// Download 按摘要下载附件内容。
func (h *AttachmentHandler) Download(c *gin.Context) {
	digest := c.Param("digest")

	size, err := h.blobs.Size(digest)
	if err != nil {
		switch {
		case errors.Is(err, blob.ErrInvalidDigest):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, blob.ErrNotFound):
			NotFound(c, MsgAttachmentNotFound)
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	reader, err := h.blobs.Open(digest)
	if err != nil {
		NotFound(c, MsgAttachmentNotFound)
		return
	}
	defer reader.Close()

	// 文件名由客户端从邮件记录里的 AttachmentRef 取，这里只给默认值
	filename := c.Query("filename")
	if filename == "" {
		filename = digest
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, size, "application/octet-stream", reader, nil)
}
