package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/types"
)

// handleWebSocket 处理 WebSocket 连接，?codec=proto 时使用二进制帧
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// 获取真实客户端IP
	clientIP := GetClientIP(r)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Printf("🔧 维护模式，拒绝新连接: %s", clientIP)
		http.Error(w, "Server is under maintenance, please try again later",
			http.StatusServiceUnavailable)
		return
	}

	// 连接数限制检查，信号量在连接注销时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Printf("🚫 达到最大连接数限制 (%d), IP: %s", s.maxConnections, clientIP)
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}
	registered := false
	defer func() {
		if !registered {
			<-s.semaphore
		}
	}()

	// IP 过滤检查
	if !s.ipFilter.IsAllowed(clientIP) {
		log.Printf("🚫 IP %s 被过滤器拒绝", clientIP)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// 来源验证
	if !s.originChecker.Check(r) {
		log.Printf("🚫 来源验证失败: %s (IP: %s)", r.Header.Get("Origin"), clientIP)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	// 速率限制检查
	if !s.rateLimiter.Allow(clientIP) {
		log.Printf("🚫 IP %s 请求过于频繁", clientIP)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	format := codec.ParseFormat(r.URL.Query().Get("codec"))
	client := NewClient(s, conn, clientIP, format)
	s.registerClient(client)
	registered = true

	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		ConnectionID: client.ID,
	}))
	s.handler.SendRoomList(client)

	log.Printf("✅ 连接 %s 已建立 (IP: %s)", client.ID, clientIP)

	// 启动客户端读写协程
	go client.ReadPump()
	go client.WritePump()
}

// healthStatus 健康检查响应
type healthStatus struct {
	Status      string `json:"status"`
	Online      int    `json:"online"`
	Rooms       int    `json:"rooms"`
	ActiveGames int    `json:"activeGames"`
	Redis       bool   `json:"redis"`
	Maintenance bool   `json:"maintenance"`
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:      "ok",
		Online:      s.GetOnlineCount(),
		Rooms:       s.roomManager.Count(),
		ActiveGames: s.roomManager.ActiveGamesCount(),
		Redis:       s.redis != nil,
		Maintenance: s.IsMaintenanceMode(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端并释放连接名额
func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	_, ok := s.clients[client.ID]
	if ok {
		delete(s.clients, client.ID)
	}
	s.clientsMu.Unlock()

	if ok {
		<-s.semaphore
		log.Printf("❌ 连接 %s 已断开", client.ID)
	}
}

// GetClientByID 按连接 ID 查找客户端，找不到时返回 nil 接口
func (s *Server) GetClientByID(id string) types.ClientInterface {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	if c, ok := s.clients[id]; ok {
		return c
	}
	return nil
}
