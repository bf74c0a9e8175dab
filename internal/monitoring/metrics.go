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

	// 投递指标
	DeliveriesSent  *prometheus.CounterVec // 按目标类型（user/group）
	DeliveriesRead  prometheus.Counter
	FolderMoves     *prometheus.CounterVec // 按文件夹种类
	FolderRestores  *prometheus.CounterVec
	PermanentPurges prometheus.Counter

	// 群组与草稿指标
	GroupsCreated prometheus.Counter
	GroupsDeleted prometheus.Counter
	DraftsCreated prometheus.Counter
	DraftsSent    prometheus.Counter

	// 用户指标
	UsersRegistered prometheus.Counter

	// WebSocket 指标
	WSConnections prometheus.Gauge
	WSEventsSent  prometheus.Counter

	// 后台清理指标
	OrphanMessagesSwept prometheus.Counter

	// 错误与限流指标
	ErrorsTotal     *prometheus.CounterVec
	PanicsTotal     prometheus.Counter
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标
//
// 全部通过 promauto 挂到默认注册表，进程内只能创建一次。
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intramail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intramail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		DeliveriesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intramail_deliveries_sent_total",
				Help: "Total number of deliveries sent",
			},
			[]string{"target"},
		),

		DeliveriesRead: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_deliveries_read_total",
				Help: "Total number of read status updates",
			},
		),

		FolderMoves: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intramail_folder_moves_total",
				Help: "Total number of deliveries filed into folders",
			},
			[]string{"kind"},
		),

		FolderRestores: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intramail_folder_restores_total",
				Help: "Total number of deliveries restored from folders",
			},
			[]string{"kind"},
		),

		PermanentPurges: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_permanent_purges_total",
				Help: "Total number of permanent deletions",
			},
		),

		GroupsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_groups_created_total",
				Help: "Total number of groups created",
			},
		),

		GroupsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_groups_deleted_total",
				Help: "Total number of groups deleted",
			},
		),

		DraftsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_drafts_created_total",
				Help: "Total number of drafts created",
			},
		),

		DraftsSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_drafts_sent_total",
				Help: "Total number of drafts promoted into deliveries",
			},
		),

		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_users_registered_total",
				Help: "Total number of users registered",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "intramail_websocket_connections",
				Help: "Number of active websocket connections",
			},
		),

		WSEventsSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_websocket_events_sent_total",
				Help: "Total number of websocket events pushed",
			},
		),

		OrphanMessagesSwept: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_orphan_messages_swept_total",
				Help: "Total number of orphaned messages removed by the sweeper",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intramail_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "intramail_panics_total",
				Help: "Total number of panics",
			},
		),

		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intramail_rate_limit_blocks_total",
				Help: "Total number of rate limit blocks",
			},
			[]string{"type"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDeliverySent 记录一次投递，target 为 user 或 group
func (m *Metrics) RecordDeliverySent(target string) {
	m.DeliveriesSent.WithLabelValues(target).Inc()
}

// RecordReadStatusUpdate 记录一次已读状态更新
func (m *Metrics) RecordReadStatusUpdate() {
	m.DeliveriesRead.Inc()
}

// RecordFolderMove 记录一次归档操作
func (m *Metrics) RecordFolderMove(kind string) {
	m.FolderMoves.WithLabelValues(kind).Inc()
}

// RecordFolderRestore 记录一次恢复操作
func (m *Metrics) RecordFolderRestore(kind string) {
	m.FolderRestores.WithLabelValues(kind).Inc()
}

// RecordPermanentPurge 记录一次彻底删除
func (m *Metrics) RecordPermanentPurge() {
	m.PermanentPurges.Inc()
}

// RecordGroupCreated 记录群组创建
func (m *Metrics) RecordGroupCreated() {
	m.GroupsCreated.Inc()
}

// RecordGroupDeleted 记录群组解散
func (m *Metrics) RecordGroupDeleted() {
	m.GroupsDeleted.Inc()
}

// RecordDraftCreated 记录草稿创建
func (m *Metrics) RecordDraftCreated() {
	m.DraftsCreated.Inc()
}

// RecordDraftSent 记录草稿发送
func (m *Metrics) RecordDraftSent() {
	m.DraftsSent.Inc()
}

// RecordUserRegistered 记录用户注册
func (m *Metrics) RecordUserRegistered() {
	m.UsersRegistered.Inc()
}

// RecordWSEvent 记录一次 WebSocket 事件推送
func (m *Metrics) RecordWSEvent() {
	m.WSEventsSent.Inc()
}

// RecordOrphansSwept 记录后台清理回收的孤儿内容数
func (m *Metrics) RecordOrphansSwept(count int) {
	m.OrphanMessagesSwept.Add(float64(count))
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
