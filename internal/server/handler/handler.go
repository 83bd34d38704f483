// Package handler 把客户端消息分发到房间队列，并负责房间快照的推送。
package handler

import (
	"log"
	"time"

	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/game/timer"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/server/storage"
	"github.com/palemoky/party-games/internal/types"
)

const (
	defaultCleanupGrace = 30 * time.Second
	defaultGameType     = "pictomania"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server      types.ServerInterface
	RoomManager *room.RoomManager
	Timers      *timer.Coordinator
	Leaderboard *storage.Leaderboard  // 可为 nil
	History     *storage.HistoryStore // 可为 nil

	CleanupGrace time.Duration // 全员掉线后保留房间的时间
	DefaultGame  string        // join_room 未指定游戏时使用
}

// Handler 消息处理器
type Handler struct {
	server       types.ServerInterface
	rooms        *room.RoomManager
	catalog      *game.Catalog
	timers       *timer.Coordinator
	leaderboard  *storage.Leaderboard
	history      *storage.HistoryStore
	cleanupGrace time.Duration
	defaultGame  string

	handlers map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器，并把自己注册为倒计时的消息出口
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		server:       deps.Server,
		rooms:        deps.RoomManager,
		catalog:      deps.RoomManager.Catalog(),
		timers:       deps.Timers,
		leaderboard:  deps.Leaderboard,
		history:      deps.History,
		cleanupGrace: deps.CleanupGrace,
		defaultGame:  deps.DefaultGame,
	}
	if h.cleanupGrace <= 0 {
		h.cleanupGrace = defaultCleanupGrace
	}
	if h.defaultGame == "" {
		h.defaultGame = defaultGameType
	}
	if h.timers != nil {
		h.timers.SetPublisher(h)
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing:             h.handlePing,
		protocol.MsgValidateUsername: h.handleValidateUsername,

		// 房间操作
		protocol.MsgJoinRoom:  h.handleJoinRoom,
		protocol.MsgLeaveRoom: h.handleLeaveRoom,

		// 游戏操作
		protocol.MsgGameAction: h.handleGameAction,

		// 画布中继
		protocol.MsgDraw:        h.handleDraw,
		protocol.MsgClearCanvas: h.handleClearCanvas,

		// 信息查询
		protocol.MsgGetRoomList:    func(c types.ClientInterface, _ *protocol.Message) { h.SendRoomList(c) },
		protocol.MsgGetLeaderboard: h.handleGetLeaderboard,
		protocol.MsgGetHistory:     h.handleGetHistory,
	}

	// 旧版客户端直接用动作名作为消息类型
	for _, action := range protocol.LegacyActions {
		h.handlers[protocol.MessageType(action)] = func(c types.ClientInterface, msg *protocol.Message) {
			h.dispatchAction(c, action, msg.Payload)
		}
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	log.Printf("⚠️ 未知消息类型: '%s' (来自连接: %s)", msg.Type, client.GetID())
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}
