package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"intramail/backend/internal/monitoring"
)

// MonitoringMiddleware 监控中间件
type MonitoringMiddleware struct {
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewMonitoringMiddleware 创建监控中间件
func NewMonitoringMiddleware(metrics *monitoring.Metrics, logger *zap.Logger) *MonitoringMiddleware {
	return &MonitoringMiddleware{
		metrics: metrics,
		logger:  logger,
	}
}

// HTTPMetrics HTTP 指标中间件
func (mm *MonitoringMiddleware) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := strconv.Itoa(c.Writer.Status())

		mm.metrics.RecordHTTPRequest(
			c.Request.Method,
			c.FullPath(),
			statusCode,
			duration,
		)

		if c.Writer.Status() >= 500 {
			mm.metrics.RecordError("http_error", "http")
		}
		if c.Writer.Status() == 429 {
			mm.metrics.RecordRateLimitBlock("http")
		}
	}
}

// BusinessMetrics 业务指标中间件
//
// 只统计成功（2xx）的写操作。
func (mm *MonitoringMiddleware) BusinessMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}

		switch c.FullPath() {
		case "/v1/emailTransfers":
			if c.Request.Method == "POST" {
				mm.metrics.RecordDeliverySent("direct")
			}
		case "/v1/emailTransfers/update_read_status":
			if c.Request.Method == "POST" {
				mm.metrics.RecordReadStatusUpdate()
			}
		case "/v1/groups":
			if c.Request.Method == "POST" {
				mm.metrics.RecordGroupCreated()
			}
		case "/v1/groups/:id":
			if c.Request.Method == "DELETE" {
				mm.metrics.RecordGroupDeleted()
			}
		case "/v1/drafts":
			if c.Request.Method == "POST" {
				mm.metrics.RecordDraftCreated()
			}
		case "/v1/drafts/:id/send":
			if c.Request.Method == "POST" {
				mm.metrics.RecordDraftSent()
			}
		case "/v1/auth/register":
			if c.Request.Method == "POST" {
				mm.metrics.RecordUserRegistered()
			}
		}
	}
}
