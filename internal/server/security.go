package server

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter 按 IP 限制建立连接的频率，超限后封禁一段时间
type RateLimiter struct {
	requests map[string]*clientRate
	mu       sync.Mutex

	maxPerSecond int
	maxPerMinute int
	banDuration  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type clientRate struct {
	secondCount int
	minuteCount int
	lastSecond  time.Time
	lastMinute  time.Time
	bannedUntil time.Time
}

// NewRateLimiter 创建速率限制器，并启动过期记录的清理
func NewRateLimiter(maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests:     make(map[string]*clientRate),
		maxPerSecond: maxPerSecond,
		maxPerMinute: maxPerMinute,
		banDuration:  banDuration,
		stop:         make(chan struct{}),
	}
	go rl.cleanupLoop(5 * time.Minute)
	return rl
}

// Allow 检查是否允许该 IP 建立连接
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rate, ok := rl.requests[ip]
	if !ok {
		rl.requests[ip] = &clientRate{secondCount: 1, minuteCount: 1, lastSecond: now, lastMinute: now}
		return true
	}

	if now.Before(rate.bannedUntil) {
		return false
	}
	if now.Sub(rate.lastSecond) >= time.Second {
		rate.secondCount = 0
		rate.lastSecond = now
	}
	if now.Sub(rate.lastMinute) >= time.Minute {
		rate.minuteCount = 0
		rate.lastMinute = now
	}

	rate.secondCount++
	rate.minuteCount++
	if rate.secondCount > rl.maxPerSecond || rate.minuteCount > rl.maxPerMinute {
		rate.bannedUntil = now.Add(rl.banDuration)
		log.Printf("⚠️ IP %s 连接过于频繁，封禁 %v", ip, rl.banDuration)
		return false
	}
	return true
}

// IsBanned IP 是否处于封禁中
func (rl *RateLimiter) IsBanned(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rate, ok := rl.requests[ip]
	return ok && time.Now().Before(rate.bannedUntil)
}

// Stop 停止清理协程
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.purge(10 * time.Minute)
		}
	}
}

// purge 删除超过 idle 没有请求且未被封禁的记录
func (rl *RateLimiter) purge(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	for ip, rate := range rl.requests {
		if now.Sub(rate.lastMinute) > idle && now.After(rate.bannedUntil) {
			delete(rl.requests, ip)
		}
	}
}

// OriginChecker 来源白名单，包含 "*" 时全部放行
type OriginChecker struct {
	allowed  map[string]bool
	allowAll bool
}

// NewOriginChecker 创建来源验证器
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{allowed: make(map[string]bool)}
	for _, origin := range origins {
		if origin == "*" {
			oc.allowAll = true
			return oc
		}
		oc.allowed[strings.ToLower(strings.TrimSpace(origin))] = true
	}
	return oc
}

// Check 检查请求来源，没有 Origin 头的请求（同源或本地客户端）放行
func (oc *OriginChecker) Check(r *http.Request) bool {
	if oc.allowAll {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return oc.allowed[strings.ToLower(origin)]
}

// IPFilter IP 黑白名单，黑名单优先
type IPFilter struct {
	whitelist map[string]bool
	blacklist map[string]bool
	mu        sync.RWMutex
}

// NewIPFilter 创建 IP 过滤器
func NewIPFilter() *IPFilter {
	return &IPFilter{
		whitelist: make(map[string]bool),
		blacklist: make(map[string]bool),
	}
}

func (f *IPFilter) AddToWhitelist(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whitelist[ip] = true
}

func (f *IPFilter) AddToBlacklist(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blacklist[ip] = true
}

func (f *IPFilter) RemoveFromBlacklist(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blacklist, ip)
}

// IsAllowed 白名单非空时只放行白名单内的 IP
func (f *IPFilter) IsAllowed(ip string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.blacklist[ip] {
		return false
	}
	return len(f.whitelist) == 0 || f.whitelist[ip]
}

// GetClientIP 获取客户端真实 IP，优先使用代理头
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// MessageRateLimiter 已连接客户端的消息速率限制
type MessageRateLimiter struct {
	limits map[string]*messageRate
	mu     sync.Mutex

	maxPerSecond     int
	warningThreshold int
}

type messageRate struct {
	count     int
	lastReset time.Time
	warnings  int
}

// NewMessageRateLimiter 创建消息速率限制器，超过一半配额时开始警告
func NewMessageRateLimiter(maxPerSecond int) *MessageRateLimiter {
	return &MessageRateLimiter{
		limits:           make(map[string]*messageRate),
		maxPerSecond:     maxPerSecond,
		warningThreshold: maxPerSecond / 2,
	}
}

// AllowMessage 检查是否允许这条消息，warning 表示接近或超过限制
func (ml *MessageRateLimiter) AllowMessage(clientID string) (allowed bool, warning bool) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := time.Now()
	rate, ok := ml.limits[clientID]
	if !ok {
		ml.limits[clientID] = &messageRate{count: 1, lastReset: now}
		return true, false
	}

	if now.Sub(rate.lastReset) >= time.Second {
		rate.count = 1
		rate.lastReset = now
		return true, false
	}

	rate.count++
	if rate.count > ml.maxPerSecond {
		rate.warnings++
		return false, true
	}
	return true, rate.count > ml.warningThreshold
}

// GetWarningCount 超限次数
func (ml *MessageRateLimiter) GetWarningCount(clientID string) int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if rate, ok := ml.limits[clientID]; ok {
		return rate.warnings
	}
	return 0
}

// ClearRateLimit 连接断开时清除记录
func (ml *MessageRateLimiter) ClearRateLimit(clientID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.limits, clientID)
}
