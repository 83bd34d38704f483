package server

import "github.com/palemoky/party-games/internal/protocol"

// GetOnlineCount 获取在线连接数（按需调用）
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Broadcast 广播消息给所有连接
func (s *Server) Broadcast(msg *protocol.Message) {
	for _, client := range s.snapshotClients() {
		client.SendMessage(msg)
	}
}

// BroadcastToLobby 广播消息给不在房间内的连接
func (s *Server) BroadcastToLobby(msg *protocol.Message) {
	for _, client := range s.snapshotClients() {
		if client.GetRoom() == "" {
			client.SendMessage(msg)
		}
	}
}

// snapshotClients 复制连接列表，发送时不持有锁
func (s *Server) snapshotClients() []*Client {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}
