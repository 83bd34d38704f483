package handler

import (
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

// roomOutbox 把模块的消息投递到房间内玩家的连接，只在房间队列里使用
type roomOutbox struct {
	h    *Handler
	room *game.Room
}

func (o roomOutbox) Send(playerID string, msg *protocol.Message) {
	if c := o.h.server.GetClientByID(playerID); c != nil {
		c.SendMessage(msg)
	}
}

func (o roomOutbox) Broadcast(msg *protocol.Message) {
	for _, p := range o.room.Players {
		if !p.Disconnected {
			o.Send(p.ID, msg)
		}
	}
}

// Outbox 房间的消息出口
func (h *Handler) Outbox(r *game.Room) game.Outbox {
	return roomOutbox{h: h, room: r}
}

// Publish 给每个在线玩家推送按其视角过滤的快照，并持久化房间
func (h *Handler) Publish(r *game.Room) {
	mod, ok := h.catalog.Get(r.GameType)
	if !ok {
		return
	}
	out := h.Outbox(r)
	for _, p := range r.Players {
		if p.Disconnected {
			continue
		}
		out.Send(p.ID, codec.MustNewMessage(protocol.MsgRoomData, h.buildRoomData(mod, r, p.ID)))
	}
	h.rooms.Save(r)
}

// buildRoomData 生成 viewerID 看到的房间快照：秘密信息只给本人，揭晓阶段给所有人
func (h *Handler) buildRoomData(mod game.Module, r *game.Room, viewerID string) *protocol.RoomDataPayload {
	reveal := r.Phase.Reveals()
	data := &protocol.RoomDataPayload{
		ID:        r.ID,
		GameType:  r.GameType,
		GameName:  mod.Info().Name,
		Phase:     string(r.Phase),
		TimeLeft:  r.TimeLeft,
		Settings:  r.Settings,
		GameState: mod.ViewState(r, viewerID),
		Players:   make([]protocol.PlayerView, 0, len(r.Players)),
	}
	for _, p := range r.Players {
		data.Players = append(data.Players, protocol.PlayerView{
			ID:            p.ID,
			AnchorID:      p.AnchorID,
			Username:      p.Username,
			Color:         p.Color,
			Score:         p.Score,
			IsDoneDrawing: p.IsDoneDrawing,
			Disconnected:  p.Disconnected,
			Game:          mod.ViewPlayer(r, p, reveal || p.ID == viewerID),
		})
	}
	return data
}
