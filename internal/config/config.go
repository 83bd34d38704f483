package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 1780
	defaultMaxConnections = 10000
	defaultRedisAddr      = "localhost:6379"

	defaultCleanupGrace          = 30   // 秒
	defaultIdleTimeout           = 5    // 分钟
	defaultSweepInterval         = 60   // 秒
	defaultSnapshotTTL           = 24   // 小时
	defaultTickIntervalMs        = 1000 // 毫秒
	defaultShutdownTimeout       = 30   // 分钟
	defaultShutdownCheckInterval = 10   // 秒
	defaultRoomCleanupDelay      = 60   // 秒
	defaultGame                  = "pictomania"

	defaultMaxPerSecond        = 10
	defaultMaxPerMinute        = 60
	defaultBanDuration         = 60 // 秒
	defaultMessageMaxPerSecond = 60 // 画布笔画是高频消息

	defaultHistoryPath = "data/history.db"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
	History  HistoryConfig  `yaml:"history"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host" env:"SERVER_HOST"`
	Port           int    `yaml:"port" env:"SERVER_PORT"`
	MaxConnections int    `yaml:"max_connections" env:"SERVER_MAX_CONNECTIONS"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	// Required 为 true 时连不上 Redis 直接退出，否则只在内存中保存房间
	Required bool `yaml:"required" env:"REDIS_REQUIRED"`
}

// GameConfig 房间与对局配置
type GameConfig struct {
	CleanupGrace          int    `yaml:"cleanup_grace" env:"GAME_CLEANUP_GRACE"`                     // 全员掉线后的保留时间（秒）
	IdleTimeout           int    `yaml:"idle_timeout" env:"GAME_IDLE_TIMEOUT"`                       // 房间无活动超时（分钟）
	SweepInterval         int    `yaml:"sweep_interval" env:"GAME_SWEEP_INTERVAL"`                   // 空闲扫描间隔（秒）
	SnapshotTTL           int    `yaml:"snapshot_ttl" env:"GAME_SNAPSHOT_TTL"`                       // 房间快照过期时间（小时）
	TickIntervalMs        int    `yaml:"tick_interval_ms" env:"GAME_TICK_INTERVAL_MS"`               // 倒计时跳动间隔（毫秒）
	ShutdownTimeout       int    `yaml:"shutdown_timeout" env:"GAME_SHUTDOWN_TIMEOUT"`               // 优雅关闭最长等待（分钟）
	ShutdownCheckInterval int    `yaml:"shutdown_check_interval" env:"GAME_SHUTDOWN_CHECK_INTERVAL"` // 关闭时检查对局的间隔（秒）
	RoomCleanupDelay      int    `yaml:"room_cleanup_delay" env:"GAME_ROOM_CLEANUP_DELAY"`           // 重启恢复的房间等待重连的时间（秒）
	DefaultGame           string `yaml:"default_game" env:"GAME_DEFAULT_GAME"`
}

// CleanupGraceDuration 全员掉线后的保留时长
func (c *GameConfig) CleanupGraceDuration() time.Duration {
	return time.Duration(c.CleanupGrace) * time.Second
}

// IdleTimeoutDuration 房间无活动超时时长
func (c *GameConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Minute
}

// SweepIntervalDuration 空闲扫描间隔
func (c *GameConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// SnapshotTTLDuration 快照过期时长
func (c *GameConfig) SnapshotTTLDuration() time.Duration {
	return time.Duration(c.SnapshotTTL) * time.Hour
}

// TickIntervalDuration 倒计时跳动间隔
func (c *GameConfig) TickIntervalDuration() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// ShutdownTimeoutDuration 优雅关闭最长等待
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Minute
}

// ShutdownCheckIntervalDuration 关闭时检查对局的间隔
func (c *GameConfig) ShutdownCheckIntervalDuration() time.Duration {
	return time.Duration(c.ShutdownCheckInterval) * time.Second
}

// RoomCleanupDelayDuration 恢复的房间等待重连的时长
func (c *GameConfig) RoomCleanupDelayDuration() time.Duration {
	return time.Duration(c.RoomCleanupDelay) * time.Second
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins" env:"SECURITY_ALLOWED_ORIGINS" envSeparator:","`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 连接速率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second" env:"SECURITY_RATE_MAX_PER_SECOND"`
	MaxPerMinute int `yaml:"max_per_minute" env:"SECURITY_RATE_MAX_PER_MINUTE"`
	BanDuration  int `yaml:"ban_duration" env:"SECURITY_RATE_BAN_DURATION"` // 秒
}

// BanDurationTime 封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// MessageLimitConfig 已连接客户端的消息速率限制
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second" env:"SECURITY_MESSAGE_MAX_PER_SECOND"`
}

// HistoryConfig 对局记录（sqlite），Path 为空时不记录
type HistoryConfig struct {
	Path string `yaml:"path" env:"HISTORY_PATH"`
}

// LogConfig 日志配置，File 为空时只输出到终端
type LogConfig struct {
	File string `yaml:"file" env:"LOG_FILE"`
}

// Load 加载配置文件，环境变量覆盖文件中的值，最后补齐默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default 返回默认配置，同样会读取环境变量
func Default() *Config {
	cfg := &Config{
		History: HistoryConfig{Path: defaultHistoryPath},
	}
	_ = env.Parse(cfg)
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	setDefault(&cfg.Server.Host, defaultHost)
	setDefault(&cfg.Server.Port, defaultPort)
	setDefault(&cfg.Server.MaxConnections, defaultMaxConnections)
	setDefault(&cfg.Redis.Addr, defaultRedisAddr)

	g := &cfg.Game
	setDefault(&g.CleanupGrace, defaultCleanupGrace)
	setDefault(&g.IdleTimeout, defaultIdleTimeout)
	setDefault(&g.SweepInterval, defaultSweepInterval)
	setDefault(&g.SnapshotTTL, defaultSnapshotTTL)
	setDefault(&g.TickIntervalMs, defaultTickIntervalMs)
	setDefault(&g.ShutdownTimeout, defaultShutdownTimeout)
	setDefault(&g.ShutdownCheckInterval, defaultShutdownCheckInterval)
	setDefault(&g.RoomCleanupDelay, defaultRoomCleanupDelay)
	setDefault(&g.DefaultGame, defaultGame)

	s := &cfg.Security
	if len(s.AllowedOrigins) == 0 {
		s.AllowedOrigins = []string{"*"}
	}
	setDefault(&s.RateLimit.MaxPerSecond, defaultMaxPerSecond)
	setDefault(&s.RateLimit.MaxPerMinute, defaultMaxPerMinute)
	setDefault(&s.RateLimit.BanDuration, defaultBanDuration)
	setDefault(&s.MessageLimit.MaxPerSecond, defaultMessageMaxPerSecond)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
