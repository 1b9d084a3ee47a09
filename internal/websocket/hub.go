package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/session"
)

// MessageType 定义 WebSocket 消息类型
type MessageType string

const (
	MessageTypeNewMail MessageType = "new_mail"
	MessageTypePing    MessageType = "ping"
	MessageTypePong    MessageType = "pong"
)

// Message 定义 WebSocket 消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMailData 新邮件通知数据
type NewMailData struct {
	MailID  string `json:"mailId"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Preview string `json:"preview,omitempty"`
	Date    string `json:"date"`
}

// Client 代表一个已认证的 WebSocket 客户端连接。
// 每个连接绑定到一个用户名，只接收自己邮箱的通知。
type Client struct {
	id       string
	username string
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
}

// Hub 管理所有 WebSocket 连接，按用户名分发新邮件通知。
type Hub struct {
	clients    map[string]map[string]*Client // username -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *notification
	mu         sync.RWMutex

	sessions       *session.Registry
	allowedOrigins []string
	log            *zap.Logger
}

type notification struct {
	username string
	message  *Message
}

// NewHub 创建 WebSocket Hub。
func NewHub(sessions *session.Registry, allowedOrigins []string, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Hub{
		clients:        make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *notification, 256),
		sessions:       sessions,
		allowedOrigins: allowedOrigins,
		log:            log,
	}
}

// Run 启动 Hub 的事件循环，直到 ctx 取消。
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.username] == nil {
				h.clients[client.username] = make(map[string]*Client)
			}
			h.clients[client.username][client.id] = client
			h.mu.Unlock()
			h.log.Info("websocket client connected",
				zap.String("username", client.username),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if peers, ok := h.clients[client.username]; ok {
				if _, ok := peers[client.id]; ok {
					delete(peers, client.id)
					if len(peers) == 0 {
						delete(h.clients, client.username)
					}
					close(client.send)
				}
			}
			h.mu.Unlock()

		case n := <-h.broadcast:
			h.deliver(n.username, n.message)

		case <-ticker.C:
			h.pingAll()
		}
	}
}

// NotifyNewMail 向某个用户的所有连接推送新邮件通知。
func (h *Hub) NotifyNewMail(username string, mail *domain.Mail) {
	preview := mail.Content
	if len(preview) > 100 {
		preview = preview[:100]
	}

	date := ""
	if mail.Date != nil {
		date = mail.Date.Format(time.RFC3339)
	}

	data, err := json.Marshal(NewMailData{
		MailID:  mail.ID,
		From:    mail.From,
		Subject: mail.Subject,
		Preview: preview,
		Date:    date,
	})
	if err != nil {
		h.log.Error("failed to marshal new mail notification", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- &notification{
		username: username,
		message: &Message{
			Type:      MessageTypeNewMail,
			Data:      data,
			Timestamp: time.Now(),
		},
	}:
	default:
		// 通知通道塞满时丢弃，不阻塞投递路径
		h.log.Warn("notification channel full, dropping",
			zap.String("username", username),
		)
	}
}

func (h *Hub) deliver(username string, msg *Message) {
	h.mu.RLock()
	peers := h.clients[username]
	h.mu.RUnlock()

	if len(peers) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, client := range peers {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *Hub) pingAll() {
	data, err := json.Marshal(&Message{Type: MessageTypePing, Timestamp: time.Now()})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, peers := range h.clients {
		for _, client := range peers {
			select {
			case client.send <- data:
			default:
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, peers := range h.clients {
		for _, client := range peers {
			close(client.send)
		}
	}
	h.clients = make(map[string]map[string]*Client)
}

// newUpgrader 创建带 Origin 验证的升级器。
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
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

// HandleWebSocket 处理 WebSocket 连接，会话令牌通过
// ?token= 参数或 Authorization 头携带。
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := newUpgrader(hub.allowedOrigins)

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}

		username, ok := hub.sessions.Validate(token)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
			)
			return
		}

		client := &Client{
			id:       uuid.NewString(),
			username: username,
			conn:     conn,
			send:     make(chan []byte, 256),
			hub:      hub,
		}
		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// readPump 读取客户端消息，目前只处理 pong 续期。
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
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if msg.Type == MessageTypePong {
			c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}

// writePump 把 send 通道里的消息写给客户端。
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
