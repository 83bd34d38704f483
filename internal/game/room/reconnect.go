package room

import (
	"log"

	"github.com/palemoky/party-games/internal/game"
)

// Bind 把按 anchorID 找到的玩家绑定到新的连接 ID，必须在房间队列里调用。
// 找不到玩家时返回 ok=false，调用方按新玩家处理。
func Bind(out game.Outbox, mod game.Module, r *game.Room, anchorID, newID string) (oldID string, ok bool) {
	p := r.PlayerByAnchor(anchorID)
	if p == nil {
		return "", false
	}

	oldID = p.ID
	p.ID = newID
	p.Disconnected = false

	if oldID != newID {
		if rc, ok := mod.(game.Reconnector); ok {
			rc.OnReconnect(out, r, oldID, newID)
		}
	}

	log.Printf("📶 玩家 %s 重连到房间 %s (%s -> %s)", p.Username, r.ID, oldID, newID)
	return oldID, true
}
