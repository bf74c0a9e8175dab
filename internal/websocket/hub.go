package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	jwtpkg "intramail/backend/internal/auth/jwt"
	"intramail/backend/internal/domain"
	"intramail/backend/internal/monitoring"
	"intramail/backend/internal/pool"
)

// EventType 定义WebSocket事件类型
type EventType string

const (
	EventDeliveryNew EventType = "delivery.new" // 新投递到达
	EventPing        EventType = "ping"
	EventPong        EventType = "pong"
)

// Event 定义推送给客户端的事件结构
type Event struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// deliveryEventData delivery.new 事件的数据载荷
type deliveryEventData struct {
	DeliveryID  string  `json:"deliveryId"`
	SenderID    string  `json:"senderId"`
	RecipientID *string `json:"recipientId,omitempty"`
	GroupID     *string `json:"groupId,omitempty"`
	Subject     string  `json:"subject"`
	SentAt      string  `json:"sentAt"`
}

// Client 代表一个WebSocket客户端连接
type Client struct {
	ID     string
	UserID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	log    *zap.Logger
}

// Hub 管理所有WebSocket连接，按用户分组
//
// 同一个用户可以有多个并发连接（多标签页、多设备），
// 投递事件推送到该用户的每一个连接。
type Hub struct {
	clients    map[string]map[string]*Client // userID -> clientID -> Client
	register   chan *Client
	unregister chan *Client

	mu             sync.RWMutex
	log            *zap.Logger
	allowedOrigins []string
	jwtManager     *jwtpkg.Manager
	pool           *pool.WorkerPool
	metrics        *monitoring.Metrics
}

// NewHub 创建WebSocket Hub
//
// workers 用于群组投递的通知扇出，可以为 nil（降级为同步推送）。
// metrics 可以为 nil（不记录指标）。
func NewHub(allowedOrigins []string, jwtManager *jwtpkg.Manager, workers *pool.WorkerPool, metrics *monitoring.Metrics, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return &Hub{
		clients:        make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		log:            log,
		allowedOrigins: allowedOrigins,
		jwtManager:     jwtManager,
		pool:           workers,
		metrics:        metrics,
	}
}

// Run 启动Hub
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[string]*Client)
			}
			h.clients[client.UserID][client.ID] = client
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.WSConnections.Inc()
			}
			h.log.Info("client registered",
				zap.String("client_id", client.ID),
				zap.String("user_id", client.UserID),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.UserID]; ok {
				if _, exists := conns[client.ID]; exists {
					delete(conns, client.ID)
					if len(conns) == 0 {
						delete(h.clients, client.UserID)
					}
					close(client.send)

					if h.metrics != nil {
						h.metrics.WSConnections.Dec()
					}
					h.log.Info("client unregistered", zap.String("client_id", client.ID))
				}
			}
			h.mu.Unlock()

		case <-ticker.C:
			h.pingAllClients()
		}
	}
}

// NotifyNewDelivery 向收件方用户推送 delivery.new 事件
//
// 实现 service.DeliveryNotifier。群组投递的扇出提交到协程池，
// 不阻塞发送请求的处理路径。
func (h *Hub) NotifyNewDelivery(userIDs []string, delivery *domain.Delivery) {
	subject := ""
	if delivery.Message != nil {
		subject = delivery.Message.Subject
	}

	data, err := json.Marshal(deliveryEventData{
		DeliveryID:  delivery.ID,
		SenderID:    delivery.SenderID,
		RecipientID: delivery.RecipientID,
		GroupID:     delivery.GroupID,
		Subject:     subject,
		SentAt:      delivery.SentAt.Format(time.RFC3339),
	})
	if err != nil {
		h.log.Error("failed to marshal delivery event", zap.Error(err))
		return
	}

	payload, err := json.Marshal(Event{
		Type:      EventDeliveryNew,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.log.Error("failed to marshal event", zap.Error(err))
		return
	}

	task := func() {
		for _, userID := range userIDs {
			h.sendToUser(userID, payload)
		}
	}

	if h.pool != nil && h.pool.TrySubmit(task) {
		return
	}
	task()
}

// sendToUser 把事件发给该用户的所有连接
func (h *Hub) sendToUser(userID string, payload []byte) {
	h.mu.RLock()
	conns := h.clients[userID]
	clients := make([]*Client, 0, len(conns))
	for _, client := range conns {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- payload:
			if h.metrics != nil {
				h.metrics.RecordWSEvent()
			}
		default:
			// 客户端阻塞，跳过
			h.log.Warn("client channel blocked, skipping", zap.String("client_id", client.ID))
		}
	}
}

// pingAllClients 向所有客户端发送ping
func (h *Hub) pingAllClients() {
	payload, err := json.Marshal(Event{
		Type:      EventPing,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.clients {
		for _, client := range conns {
			select {
			case client.send <- payload:
			default:
			}
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conns := range h.clients {
		for _, client := range conns {
			close(client.send)
		}
	}
	h.clients = make(map[string]map[string]*Client)
}

// authenticate 从握手请求中解析并验证用户身份
func (h *Hub) authenticate(c *gin.Context) (string, error) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
	}

	if token == "" {
		return "", errors.New("missing authentication token")
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		return "", err
	}

	return claims.UserID, nil
}

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				// 没有 Origin 视为同源请求
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}
			return false
		},
	}
}

// HandleWebSocket 处理WebSocket连接
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		userID, err := hub.authenticate(c)
		if err != nil {
			hub.log.Warn("websocket authentication failed",
				zap.Error(err),
				zap.String("remote_addr", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"detail": "需要登录认证"},
			})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
			)
			return
		}

		client := &Client{
			ID:     uuid.NewString(),
			UserID: userID,
			conn:   conn,
			send:   make(chan []byte, 256),
			hub:    hub,
			log:    hub.log,
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// readPump 处理客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var event Event
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("websocket error", zap.Error(err))
			}
			break
		}

		// 客户端只会发心跳，其他类型一律忽略
		if event.Type == EventPong {
			c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.WriteMessage(websocket.TextMessage, payload)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
