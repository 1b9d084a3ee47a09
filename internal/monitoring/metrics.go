package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 邮件指标
	MailsSent      prometheus.Counter
	MailsDelivered prometheus.Counter
	MailsRead      prometheus.Counter
	MailsTrashed   prometheus.Counter
	MailsPurged    prometheus.Counter
	DraftsSaved    prometheus.Counter

	// 网关指标
	GatewayAccepted prometheus.Counter
	GatewayRejected *prometheus.CounterVec
	GatewayDropped  prometheus.Counter

	// 附件指标
	AttachmentSize prometheus.Histogram

	// 用户与会话指标
	UsersRegistered prometheus.Counter
	SessionsActive  prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		// HTTP 请求指标
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		// 邮件指标
		MailsSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_mails_sent_total",
				Help: "Total number of mails sent",
			},
		),

		MailsDelivered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_mails_delivered_total",
				Help: "Total number of recipient copies delivered",
			},
		),

		MailsRead: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_mails_read_total",
				Help: "Total number of mails read",
			},
		),

		MailsTrashed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_mails_trashed_total",
				Help: "Total number of mails moved to trash",
			},
		),

		MailsPurged: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_mails_purged_total",
				Help: "Total number of mails purged from trash",
			},
		),

		DraftsSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_drafts_saved_total",
				Help: "Total number of drafts saved",
			},
		),

		// 网关指标
		GatewayAccepted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_gateway_accepted_total",
				Help: "Total number of anonymous messages accepted",
			},
		),

		GatewayRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmail_gateway_rejected_total",
				Help: "Total number of anonymous messages rejected",
			},
			[]string{"reason"},
		),

		GatewayDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_gateway_dropped_total",
				Help: "Total number of datagrams dropped by the flood limiter",
			},
		),

		// 附件指标
		AttachmentSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webmail_attachment_size_bytes",
				Help:    "Attachment size in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 2, 20),
			},
		),

		// 用户与会话指标
		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_users_registered_total",
				Help: "Total number of users registered",
			},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webmail_sessions_active",
				Help: "Number of active sessions",
			},
		),

		// 错误指标
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmail_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_panics_total",
				Help: "Total number of panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordAttachmentSize 记录附件大小
func (m *Metrics) RecordAttachmentSize(size int64) {
	m.AttachmentSize.Observe(float64(size))
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
