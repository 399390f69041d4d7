package broadcast

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ServeConn 把一条 WebSocket 连接接入 Hub：
// 注册订阅者、启动写泵，并在读泵退出时注销。
// 该函数托管连接的生命周期，调用方不应再操作 conn。
func ServeConn(hub *Hub, conn *websocket.Conn, logger *zap.Logger) {
	client := hub.Register(64)

	go writePump(conn, client, logger)
	go readPump(hub, conn, client)
}

// writePump 把 Hub 投递的消息写入连接，并定期发送 ping 保活
func writePump(conn *websocket.Conn, client *Client, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 已关闭该订阅者
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("Failed to write websocket message", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 消费入站帧以驱动 pong 处理，连接断开时注销订阅者。
// 遥测通道是单向的，入站数据一律丢弃。
func readPump(hub *Hub, conn *websocket.Conn, client *Client) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
