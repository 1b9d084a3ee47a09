package domain

import "time"

// TagUnread 是核心唯一识别的生命周期标签：
// 投递到收件箱时添加，首次阅读时移除。
const TagUnread = "unread"

// TagAnonymous 标记通过匿名投递网关进入系统的邮件。
const TagAnonymous = "anonymous"

// AttachmentRef 表示邮件对附件的引用。
// Filename 仅用于展示，Sha256 是内容寻址存储的键；
// 多封邮件（或同一封邮件的多个引用）可以共享同一个哈希。
type AttachmentRef struct {
	Filename string `json:"filename"`
	Sha256   string `json:"sha256"`
}

// Mail 表示一封以 JSON 文件形式落盘的邮件。
//
// 每个 Mail 实例独占地属于一个 (mailbox, folder) 位置；
// 发送操作会为每个收件人生成互相独立的深拷贝，之后各自演化
// （标签、已读状态互不影响）。
type Mail struct {
	ID          string          `json:"id"`
	From        string          `json:"from"`
	To          []string        `json:"to"`
	Date        *time.Time      `json:"date,omitempty"`
	Subject     string          `json:"subject"`
	Content     string          `json:"content"`
	Attachments []AttachmentRef `json:"attachments"`
	Tags        []string        `json:"tags"`
	// DeletedAt 仅在邮件位于回收站时非空，记录逻辑删除时间。
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// HasTag 判断邮件是否带有指定标签。
func (m *Mail) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag 添加标签（集合语义，重复添加为空操作）。
func (m *Mail) AddTag(tag string) {
	if m.HasTag(tag) {
		return
	}
	m.Tags = append(m.Tags, tag)
}

// RemoveTag 移除标签（不存在时为空操作）。
func (m *Mail) RemoveTag(tag string) {
	for i, t := range m.Tags {
		if t == tag {
			m.Tags = append(m.Tags[:i], m.Tags[i+1:]...)
			return
		}
	}
}

// Clone 返回完全独立的深拷贝。
//
// 收件人副本不得与原件或其他副本共享任何可变切片，
// 否则一个副本的标签变化会泄漏到其他副本。
func (m *Mail) Clone() *Mail {
	c := &Mail{
		ID:      m.ID,
		From:    m.From,
		Subject: m.Subject,
		Content: m.Content,
	}
	if m.To != nil {
		c.To = append([]string(nil), m.To...)
	}
	if m.Attachments != nil {
		c.Attachments = append([]AttachmentRef(nil), m.Attachments...)
	}
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	if m.Date != nil {
		d := *m.Date
		c.Date = &d
	}
	if m.DeletedAt != nil {
		d := *m.DeletedAt
		c.DeletedAt = &d
	}
	return c
}
