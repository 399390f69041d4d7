package broadcast

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Client 一个已连接的仪表盘订阅者。
// Send 缓冲写满视为客户端迟滞，直接剔除（发布方永不阻塞）。
type Client struct {
	hub  *Hub
	send chan []byte
}

// Send 返回待发送消息通道（由写泵消费）
func (c *Client) Send() <-chan []byte { return c.send }

// Hub 维护实时订阅者集合并向全体广播。
// 订阅者集合可并发增删且容忍竞争：漏发一条消息不是错误。
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

// Register 注册一个新订阅者并返回其客户端句柄
func (h *Hub) Register(sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	client := &Client{hub: h, send: make(chan []byte, sendBuffer)}
	h.register <- client
	return client
}

// Unregister 移除订阅者（对发布方非阻塞，重复调用安全）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast 向所有订阅者投递一条消息（尽力而为）
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		// 广播队列满：丢弃，实时通道不是持久化通道
		h.logger.Warn("Broadcast queue full, dropping message")
	}
}

// SubscriberCount 当前订阅者数量
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run 运行广播循环直到 ctx 取消
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("Subscriber registered",
				zap.Int("subscribers", h.SubscriberCount()),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 订阅者写缓冲已满：剔除，避免拖慢其他订阅者
					h.logger.Debug("Subscriber send buffer full, removing")
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}
