package game

import (
	"encoding/json"

	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

// Info 游戏元信息
type Info struct {
	ID         string
	Name       string
	Icon       string
	MaxPlayers int
}

// JoinOptions 创建房间时客户端可携带的设置
type JoinOptions struct {
	DrawTime int
}

// Outbox 模块向客户端发消息的出口，由会话层实现
type Outbox interface {
	// Send 私发给某个连接
	Send(playerID string, msg *protocol.Message)
	// Broadcast 发给房间内所有在线玩家
	Broadcast(msg *protocol.Message)
}

// Toast 私发提示
func Toast(out Outbox, playerID, kind, text string) {
	out.Send(playerID, codec.NewToast(kind, text))
}

// ToastAll 给全房间发提示
func ToastAll(out Outbox, kind, text string) {
	out.Broadcast(codec.NewToast(kind, text))
}

// Outcome 动作处理结果类型
type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeChanged
	OutcomeRejected
)

// Result 动作处理结果
type Result struct {
	Outcome Outcome
	Err     error
}

// Changed 状态有变化，需要广播快照并持久化
func Changed() Result { return Result{Outcome: OutcomeChanged} }

// Unchanged 已处理，没有可观察的变化
func Unchanged() Result { return Result{Outcome: OutcomeUnchanged} }

// Reject 校验失败，错误只发给操作者，房间状态保持不变
func Reject(err error) Result { return Result{Outcome: OutcomeRejected, Err: err} }

// Handler 游戏动作处理函数，只在房间队列中调用
type Handler func(out Outbox, r *Room, sender string, data json.RawMessage) Result

// Module 可插拔的游戏模块
type Module interface {
	Info() Info

	// NewSettings 根据加入参数生成房间设置
	NewSettings(opts JoinOptions) any
	// InitPlayer 给新玩家挂载模块私有状态
	InitPlayer(p *Player)
	// Handlers 动作名到处理函数的映射
	Handlers() map[string]Handler

	// ViewState 发给 viewerID 的游戏公共状态
	ViewState(r *Room, viewerID string) any
	// ViewPlayer 玩家的游戏部分，reveal 为 false 时只能包含公开信息
	ViewPlayer(r *Room, p *Player, reveal bool) any

	DecodeSettings(data json.RawMessage) (any, error)
	// Serialize 把模块状态（房间级和玩家级）编码为纯数据
	Serialize(r *Room) (json.RawMessage, error)
	// Deserialize 从 Serialize 的结果重建模块状态
	Deserialize(r *Room, data json.RawMessage) error
}

// Starter 阶段从非 playing 进入 playing 时调用
type Starter interface {
	OnStart(out Outbox, r *Room)
}

// TimeoutHandler 倒计时归零时调用
type TimeoutHandler interface {
	OnTimeout(out Outbox, r *Room) Result
}

// Reconnector 玩家换了连接 ID 后调用，模块必须改写所有引用 oldID 的地方
type Reconnector interface {
	OnReconnect(out Outbox, r *Room, oldID, newID string)
}

// Leaver 玩家主动离开（已从 Players 中移除）后调用，房间非空时才会触发
type Leaver interface {
	OnLeave(out Outbox, r *Room, playerID string) Result
}

// Disconnector 玩家掉线（已标记 Disconnected）后调用
type Disconnector interface {
	OnDisconnect(out Outbox, r *Room, playerID string) Result
}

// Ranker 自定义胜者判定，默认取最高分
type Ranker interface {
	Winner(r *Room) *Player
}

// Winner 返回对局胜者
func Winner(mod Module, r *Room) *Player {
	if ranker, ok := mod.(Ranker); ok {
		return ranker.Winner(r)
	}
	var best *Player
	for _, p := range r.Players {
		if best == nil || p.Score > best.Score {
			best = p
		}
	}
	return best
}
