package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/party-games/internal/config"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/game/timer"
	"github.com/palemoky/party-games/internal/server/handler"
	"github.com/palemoky/party-games/internal/server/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 来源在升级前已由 originChecker 校验
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	// 压缩会对CPU和内存造成压力，只有在大文件压缩才有收益，大量小消息反而是负优化
	EnableCompression: false,
}

// Server WebSocket 服务器
type Server struct {
	config      *config.Config
	redis       *redis.Client // 纯内存模式下为 nil
	roomManager *room.RoomManager
	timers      *timer.Coordinator
	leaderboard *storage.Leaderboard
	history     *storage.HistoryStore // 未配置时为 nil
	clients     map[string]*Client
	clientsMu   sync.RWMutex
	handler     *handler.Handler

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter
	ipFilter       *IPFilter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	httpServer   *http.Server
	sweepCancel  context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer 创建服务器实例。Redis 不可用且未要求必须连接时以纯内存模式运行
func NewServer(cfg *config.Config, catalog *game.Catalog) (*Server, error) {
	rdb, err := connectRedis(cfg.Redis)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:      cfg,
		redis:       rdb,
		leaderboard: storage.NewLeaderboard(rdb),
		clients:     make(map[string]*Client),
		// 初始化安全组件
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond),
		ipFilter:       NewIPFilter(),
		// 初始化连接控制
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}

	if cfg.History.Path != "" {
		s.history = openHistory(cfg.History.Path)
	}

	// store 必须是真正的 nil 接口，纯内存模式下房间管理器才会跳过持久化
	var store room.Store
	if rdb != nil {
		store = storage.NewRedisStore(rdb, cfg.Game.SnapshotTTLDuration())
	}
	s.roomManager = room.NewRoomManager(catalog, room.Options{
		Store:        store,
		CleanupGrace: cfg.Game.RoomCleanupDelayDuration(),
	})
	s.timers = timer.NewCoordinator(s.roomManager, cfg.Game.TickIntervalDuration())

	// 初始化消息处理器
	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:       s,
		RoomManager:  s.roomManager,
		Timers:       s.timers,
		Leaderboard:  s.leaderboard,
		History:      s.history,
		CleanupGrace: cfg.Game.CleanupGraceDuration(),
		DefaultGame:  cfg.Game.DefaultGame,
	})

	log.Printf("🔒 安全配置: 连接限制=%d/s, 消息限制=%d/s, 最大连接数=%d",
		cfg.Security.RateLimit.MaxPerSecond, cfg.Security.MessageLimit.MaxPerSecond, cfg.Server.MaxConnections)
	log.Printf("🎲 已注册游戏: %v", catalog.IDs())

	return s, nil
}

func connectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		if cfg.Required {
			return nil, fmt.Errorf("redis 连接失败: %w", err)
		}
		log.Printf("⚠️ Redis 连接失败，以纯内存模式运行（房间不会持久化，排行榜不可用）: %v", err)
		return nil, nil
	}
	return rdb, nil
}

// openHistory 打开对局记录库，失败时只记录日志，不影响游戏
func openHistory(path string) *storage.HistoryStore {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("⚠️ 创建对局记录目录失败: %v", err)
			return nil
		}
	}
	hs, err := storage.NewHistoryStore(path)
	if err != nil {
		log.Printf("⚠️ 打开对局记录失败: %v", err)
		return nil
	}
	return hs
}

// Mux 服务器的路由
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Restore 从 Redis 恢复上次运行时的房间
func (s *Server) Restore(ctx context.Context) (int, error) {
	return s.roomManager.Restore(ctx)
}

// Start 启动服务器，阻塞直到关闭
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	// 启动监控和空闲房间清理
	go s.monitorStats()
	ctx, cancel := context.WithCancel(context.Background())
	s.sweepCancel = cancel
	go s.roomManager.RunSweeper(ctx,
		s.config.Game.SweepIntervalDuration(),
		s.config.Game.IdleTimeoutDuration(),
		s.handler.NotifyIdle,
		s.handler.OnRoomsSwept,
	)

	log.Printf("🚀 服务器启动在 ws://%s/ws (CPU核心数: %d)", addr, runtime.NumCPU())
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
