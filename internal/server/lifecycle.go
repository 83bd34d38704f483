package server

import (
	"context"
	"log"
	"runtime"
	"time"

	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

const httpShutdownTimeout = 5 * time.Second

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		log.Printf("📊 [监控] 在线: %d | 房间: %d (进行中 %d) | Goroutines: %d | 活跃连接: %d/%d | 内存: %.2f MB",
			s.GetOnlineCount(),
			s.roomManager.Count(),
			s.roomManager.ActiveGamesCount(),
			runtime.NumGoroutine(),
			len(s.semaphore),
			s.maxConnections,
			float64(m.Alloc)/1024/1024)
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接和加入房间，进行中的对局不受影响
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	s.Broadcast(codec.NewToast(protocol.ToastWarning, "👷🏻‍♂️ 服务器即将维护，暂停加入房间"))
	log.Println("🔧 进入维护模式：停止新连接和加入房间")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 进入维护模式，等待进行中的对局结束（最多 timeout）后关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.config.Game.ShutdownCheckIntervalDuration())
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		activeGames := s.roomManager.ActiveGamesCount()
		if activeGames == 0 {
			log.Println("✅ 所有对局已结束")
			break
		}
		log.Printf("⏳ 等待 %d 个房间结束...", activeGames)
		<-ticker.C
	}

	if activeGames := s.roomManager.ActiveGamesCount(); activeGames > 0 {
		log.Printf("⚠️ 超时，仍有 %d 个房间进行中，强制关闭（快照保留，重启后恢复）", activeGames)
	}

	s.BroadcastToLobby(codec.NewToast(protocol.ToastWarning, "🚧 服务器即将停机维护！"))
	s.Shutdown()
}

// Shutdown 关闭服务器，多次调用只执行一次
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(s.shutdown)
}

func (s *Server) shutdown() {
	if s.sweepCancel != nil {
		s.sweepCancel()
	}

	// 先停倒计时和房间队列，保存中的快照写完后再断开连接
	s.timers.StopAll()
	s.roomManager.Close()

	for _, client := range s.snapshotClients() {
		client.Close()
	}

	if err := s.history.Close(); err != nil {
		log.Printf("⚠️ 关闭对局记录失败: %v", err)
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	s.rateLimiter.Stop()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("⚠️ HTTP 服务关闭失败: %v", err)
		}
	}

	log.Println("服务器已关闭")
}
