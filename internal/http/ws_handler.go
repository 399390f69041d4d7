package httpapi

import (
	"net/http"

	"floodwatch-telemetry/internal/broadcast"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler 实时遥测 WebSocket 入口
type WSHandler struct {
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler 创建 WebSocket Handler
func NewWSHandler(hub *broadcast.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 仪表盘与引擎不同源部署
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Subscribe GET /ws/telemetry
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	broadcast.ServeConn(h.hub, conn, h.logger)
}
