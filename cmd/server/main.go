package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/palemoky/party-games/internal/config"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/pictomania"
	"github.com/palemoky/party-games/internal/game/take6"
	"github.com/palemoky/party-games/internal/game/uno"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
	}

	if err := logger.Init(cfg.Log.File); err != nil {
		log.Printf("初始化日志文件失败，只输出到终端: %v", err)
	}
	defer logger.Close()

	catalog := game.NewCatalog(
		pictomania.New(nil),
		uno.New(),
		take6.New(),
	)

	// 创建服务器
	srv, err := server.NewServer(cfg, catalog)
	if err != nil {
		log.Fatalf("创建服务器失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := srv.Restore(ctx); err != nil {
		log.Printf("⚠️ 恢复房间失败: %v", err)
	}
	cancel()

	// 优雅关闭：第一次信号等待对局结束，第二次立即退出
	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("正在关闭服务器，等待进行中的对局结束...")
		go func() {
			<-quit
			log.Println("再次收到信号，立即关闭")
			srv.Shutdown()
		}()
		srv.GracefulShutdown(cfg.Game.ShutdownTimeoutDuration())
	}()

	log.Println("🎮 派对游戏服务器启动中...")
	if err := srv.Start(); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
}
