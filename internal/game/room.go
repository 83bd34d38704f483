// Package game 定义房间数据模型与游戏模块契约。
//
// 一个房间同一时间只由一个 Module 驱动，模块只通过传入的 *Room 读写状态，
// 房间之间没有共享的可变数据。
package game

import (
	"strings"
	"time"
)

// Phase 房间阶段，游戏模块可以扩展自己的取值
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhasePlaying    Phase = "playing"
	PhaseRoundEnded Phase = "round_ended"
	PhaseGameOver   Phase = "game_over"
)

// Reveals 该阶段是否对所有人公开秘密信息
func (p Phase) Reveals() bool {
	return p == PhaseRoundEnded || p == PhaseGameOver
}

// Player 房间中的玩家
type Player struct {
	ID            string // 当前连接 ID，每次重连都会变化
	AnchorID      string // 客户端生成的稳定身份，加入后不可变
	Username      string
	Color         string
	Score         int
	Disconnected  bool
	IsDoneDrawing bool

	// State 由游戏模块在 InitPlayer 中挂载，只有该模块读写
	State any
}

// Room 房间的全部状态，只在房间自己的事件队列里被访问
type Room struct {
	ID           string
	GameType     string
	Phase        Phase
	Players      []*Player
	Settings     any // 游戏模块定义的设置
	State        any // 游戏模块独占的状态
	TimeLeft     int // 剩余秒数
	LastActivity time.Time
	CreatedAt    time.Time
}

// NewRoom 创建处于等待阶段的空房间
func NewRoom(id, gameType string, settings any) *Room {
	now := time.Now()
	return &Room{
		ID:           id,
		GameType:     gameType,
		Phase:        PhaseWaiting,
		Players:      make([]*Player, 0, 6),
		Settings:     settings,
		LastActivity: now,
		CreatedAt:    now,
	}
}

// Player 按连接 ID 查找玩家
func (r *Room) Player(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerByAnchor 按稳定身份查找玩家
func (r *Room) PlayerByAnchor(anchorID string) *Player {
	if anchorID == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.AnchorID == anchorID {
			return p
		}
	}
	return nil
}

// Host 房主（第一个加入的玩家）
func (r *Room) Host() *Player {
	if len(r.Players) == 0 {
		return nil
	}
	return r.Players[0]
}

// PlayerIDs 按座位顺序返回连接 ID
func (r *Room) PlayerIDs() []string {
	ids := make([]string, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ID
	}
	return ids
}

// RemoveByAnchor 移除玩家，返回被移除的玩家
func (r *Room) RemoveByAnchor(anchorID string) *Player {
	for i, p := range r.Players {
		if p.AnchorID == anchorID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return p
		}
	}
	return nil
}

// ConnectedCount 在线玩家数
func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.Disconnected {
			n++
		}
	}
	return n
}

// AllDisconnected 房间里的玩家是否全部掉线（空房间也算）
func (r *Room) AllDisconnected() bool {
	return r.ConnectedCount() == 0
}

// HasActiveName 是否有在线玩家使用该昵称（不区分大小写）
func (r *Room) HasActiveName(username string) bool {
	for _, p := range r.Players {
		if !p.Disconnected && strings.EqualFold(p.Username, username) {
			return true
		}
	}
	return false
}

// TakenColors 已被占用的颜色
func (r *Room) TakenColors() []string {
	colors := make([]string, len(r.Players))
	for i, p := range r.Players {
		colors[i] = p.Color
	}
	return colors
}

// Touch 刷新活跃时间
func (r *Room) Touch() {
	r.LastActivity = time.Now()
}
