package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType 消息类型
type MessageType string

const (
	PredictionEvent MessageType = "prediction_event"
	TrainingEvent   MessageType = "training_event"
	ModelReloaded   MessageType = "model_reloaded"
	SystemStatus    MessageType = "system_status"
	HeartbeatEvent  MessageType = "heartbeat"
)

// Message 监控消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Client WebSocket客户端
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	clientID string
}

// Hub WebSocket中心，向所有已连接客户端广播事件
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc

	messagesSent int64
	startTime    time.Time
}

// Stats 监控统计
type Stats struct {
	ConnectedClients int           `json:"connected_clients"`
	MessagesSent     int64         `json:"messages_sent"`
	Uptime           time.Duration `json:"uptime"`
}

// NewHub 创建WebSocket中心
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 生产环境应收紧origin检查
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Start 启动事件循环，直到Stop被调用
func (h *Hub) Start() {
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("monitor client connected",
				zap.String("client", client.clientID), zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("monitor client disconnected",
				zap.String("client", client.clientID), zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					atomic.AddInt64(&h.messagesSent, 1)
				default:
					// 发送缓冲满，丢弃该客户端
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-heartbeat.C:
			h.Publish(HeartbeatEvent, h.Stats())
		}
	}
}

// Stop 关闭中心并断开所有客户端
func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
		delete(h.clients, client)
	}
}

// Publish 序列化并广播一条事件消息
func (h *Hub) Publish(msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("monitor payload marshal failed", zap.Error(err))
		return
	}
	msg := Message{Type: msgType, Timestamp: time.Now(), Data: data}
	encoded, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- encoded:
	default:
		// 广播缓冲满时丢弃，监控事件允许丢失
	}
}

// Stats 返回当前统计
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	connected := len(h.clients)
	h.mu.RUnlock()
	return Stats{
		ConnectedClients: connected,
		MessagesSent:     atomic.LoadInt64(&h.messagesSent),
		Uptime:           time.Since(h.startTime),
	}
}

// HandleWebSocket 升级HTTP连接并注册客户端
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 64),
		clientID: fmt.Sprintf("%s-%d", r.RemoteAddr, time.Now().UnixNano()),
	}

	h.register <- client
	go client.writePump()
	go client.readPump(h)
}

// writePump 将待发送消息写入连接
func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump 读取客户端消息，仅用于感知断开
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
