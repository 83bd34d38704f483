package types

import (
	"github.com/palemoky/party-games/internal/protocol"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	IsMaintenanceMode() bool
	GetOnlineCount() int
	// Broadcast 发给所有在线连接
	Broadcast(msg *protocol.Message)
	GetClientByID(id string) ClientInterface
}

// ClientInterface 定义客户端接口
type ClientInterface interface {
	GetID() string
	GetIP() string
	GetRoom() string
	SetRoom(roomID string)
	SendMessage(msg *protocol.Message)
	Close()
}
