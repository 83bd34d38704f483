package handler

import (
	"encoding/json"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/types"
)

// handleDraw 笔画原样转发给房间内其他人，附上发送者
func (h *Handler) handleDraw(client types.ClientInterface, msg *protocol.Message) {
	stroke := map[string]json.RawMessage{}
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &stroke); err != nil {
			client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			return
		}
	}
	sender := client.GetID()
	stroke["playerId"], _ = json.Marshal(sender)
	out, err := codec.NewMessage(protocol.MsgDraw, stroke)
	if err != nil {
		return
	}

	h.relay(client, func(r *game.Room) {
		for _, p := range r.Players {
			if p.ID != sender && !p.Disconnected {
				h.Outbox(r).Send(p.ID, out)
			}
		}
	})
}

// handleClearCanvas 通知房间内所有人（包括自己）清空该玩家的画布
func (h *Handler) handleClearCanvas(client types.ClientInterface, _ *protocol.Message) {
	out := codec.MustNewMessage(protocol.MsgClearCanvas, protocol.ClearCanvasPayload{PlayerID: client.GetID()})
	h.relay(client, func(r *game.Room) {
		h.Outbox(r).Broadcast(out)
	})
}

// relay 在发送者所在房间的队列里异步转发，不等待也不推送快照
func (h *Handler) relay(client types.ClientInterface, send func(r *game.Room)) {
	rm := h.rooms.Get(client.GetRoom())
	if rm == nil {
		h.sendError(client, apperrors.ErrNotInRoom)
		return
	}

	sender := client.GetID()
	rm.Submit(func(r *game.Room) {
		if r.Player(sender) == nil {
			return
		}
		r.Touch()
		send(r)
	})
}
