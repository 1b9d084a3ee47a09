package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/pool"
	"webmail/backend/internal/service"
)

// 数据报帧格式错误
var errMalformed = errors.New("malformed datagram")

// maxDatagramSize 单个数据报的读取上限。
const maxDatagramSize = 64 * 1024

// Notifier 新邮件通知接口（由 WebSocket Hub 实现，可选）。
type Notifier interface {
	NotifyNewMail(username string, mail *domain.Mail)
}

// Server 匿名投递网关：基于 UDP 的无认证收信通道。
//
// 线路格式为私有的三段换行分帧（收件人\n主题\n正文），
// 不是 SMTP。接受的邮件带 "anonymous" 标签直接投入收件人
// 的 INBOX，合成的发件人标识来自网络来源地址。
//
// 两层防护：
//  1. 进程级令牌桶（rate.Limiter）在解析前丢弃洪泛流量；
//  2. 按来源地址的每日配额（Quota）限制常规滥用。
type Server struct {
	addr     string
	mails    *service.MailService
	quota    *Quota
	limiter  *rate.Limiter
	workers  *pool.WorkerPool
	notifier Notifier
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// Config 网关配置。
type Config struct {
	BindAddr   string // UDP 监听地址，如 ":2525"
	DailyLimit int    // 每来源每日配额
	MaxRate    int    // 每秒处理的数据报上限（令牌桶速率与容量）
}

// NewServer 创建匿名投递网关。
func NewServer(cfg Config, mails *service.MailService, metrics *monitoring.Metrics, log *zap.Logger) *Server {
	maxRate := cfg.MaxRate
	if maxRate <= 0 {
		maxRate = 100
	}
	return &Server{
		addr:    cfg.BindAddr,
		mails:   mails,
		quota:   NewQuota(cfg.DailyLimit),
		limiter: rate.NewLimiter(rate.Limit(maxRate), maxRate),
		workers: pool.New(8, 4*maxRate, log),
		metrics: metrics,
		log:     log,
	}
}

// SetNotifier 设置新邮件通知接收方（可选）。
func (s *Server) SetNotifier(n Notifier) {
	s.notifier = n
}

// Run 监听 UDP 并处理数据报，直到 ctx 取消。
func (s *Server) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve gateway address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.log.Info("anonymous drop gateway listening", zap.String("address", s.addr))

	s.workers.Start(ctx)
	defer s.workers.Stop()

	// ctx 取消时关闭连接，让阻塞中的 ReadFromUDP 返回
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("gateway stopped")
				return nil
			}
			return fmt.Errorf("gateway read error: %w", err)
		}

		// 洪泛保护：令牌耗尽时静默丢弃，连拒绝响应都不发，
		// 避免被用作反射放大
		if !s.limiter.Allow() {
			if s.metrics != nil {
				s.metrics.GatewayDropped.Inc()
			}
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		source := *src
		if !s.workers.TrySubmit(func() { s.handle(conn, &source, payload) }) {
			// 协程池排满说明处理速度跟不上，丢弃而不是积压
			if s.metrics != nil {
				s.metrics.GatewayDropped.Inc()
			}
		}
	}
}

// handle 处理一个数据报并回送文本响应。
func (s *Server) handle(conn *net.UDPConn, src *net.UDPAddr, payload []byte) {
	resp := s.process(src, payload)
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.WriteToUDP([]byte(resp), src); err != nil {
		s.log.Warn("failed to send gateway response",
			zap.String("source", src.String()),
			zap.Error(err),
		)
	}
}

// process 执行校验、配额检查和投递，返回响应文本。
func (s *Server) process(src *net.UDPAddr, payload []byte) string {
	sourceIP := src.IP.String()

	recipient, subject, content, err := parseDatagram(payload)
	if err != nil {
		s.reject("malformed")
		return "ERR: invalid format, expected recipient\\nsubject\\ncontent"
	}

	exists, err := s.mails.MailboxExists(recipient)
	if err != nil || !exists {
		s.reject("unknown_recipient")
		return fmt.Sprintf("ERR: recipient %q not found", recipient)
	}

	// 配额检查放在合法性校验之后：废报文不消耗配额
	if !s.quota.Allow(sourceIP) {
		s.reject("quota_exceeded")
		s.log.Warn("daily quota exceeded",
			zap.String("source", sourceIP),
			zap.Int("limit", int(s.quota.limit)),
		)
		return fmt.Sprintf("ERR: daily limit of %d messages reached for this address", s.quota.limit)
	}

	now := time.Now()
	mail := &domain.Mail{
		From:    fmt.Sprintf("anonymous@%s:%d", sourceIP, src.Port),
		To:      []string{recipient},
		Date:    &now,
		Subject: subject,
		Content: content,
		Tags:    []string{domain.TagAnonymous, domain.TagUnread},
	}

	if err := s.mails.Deliver(recipient, mail); err != nil {
		s.reject("delivery_failed")
		s.log.Error("failed to deliver anonymous mail",
			zap.String("recipient", recipient),
			zap.Error(err),
		)
		return "ERR: delivery failed"
	}

	if s.metrics != nil {
		s.metrics.GatewayAccepted.Inc()
	}
	if s.notifier != nil {
		s.notifier.NotifyNewMail(recipient, mail)
	}

	s.log.Info("anonymous mail delivered",
		zap.String("source", src.String()),
		zap.String("recipient", recipient),
	)
	return fmt.Sprintf("OK: message delivered to %s", recipient)
}

func (s *Server) reject(reason string) {
	if s.metrics != nil {
		s.metrics.GatewayRejected.WithLabelValues(reason).Inc()
	}
}

// parseDatagram 按前两个换行把报文拆成收件人、主题、正文。
// 正文可以包含任意换行；不足三段视为格式错误。
func parseDatagram(payload []byte) (recipient, subject, content string, err error) {
	parts := strings.SplitN(string(payload), "\n", 3)
	if len(parts) < 3 {
		return "", "", "", errMalformed
	}
	recipient = strings.TrimSpace(parts[0])
	subject = strings.TrimSpace(parts[1])
	content = parts[2]
	if recipient == "" {
		return "", "", "", errMalformed
	}
	return recipient, subject, content, nil
}
