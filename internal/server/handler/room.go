package handler

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/types"
)

// runInRoom 同步执行房间任务，玩家数、在线数或阶段变化时广播房间列表
func (h *Handler) runInRoom(rm *room.Room, job room.Job) error {
	before := rm.Summary()
	if err := rm.Do(job); err != nil {
		return err
	}
	after := rm.Summary()
	if before.Phase != after.Phase || before.PlayerCount != after.PlayerCount ||
		before.ConnectedCount != after.ConnectedCount {
		h.BroadcastRoomList()
	}
	return nil
}

// handleJoinRoom 加入房间，房间不存在时按 gameType 创建；anchorId 已在房间中时视为重连
func (h *Handler) handleJoinRoom(client types.ClientInterface, msg *protocol.Message) {
	if h.server.IsMaintenanceMode() {
		h.sendError(client, apperrors.ErrMaintenance)
		return
	}

	payload, err := codec.ParsePayload[protocol.JoinRoomPayload](msg)
	if err != nil || payload.RoomID == "" || payload.AnchorID == "" {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	if payload.GameType == "" {
		payload.GameType = h.defaultGame
	}

	// 换房间时先离开原来的房间
	if current := client.GetRoom(); current != "" && current != payload.RoomID {
		h.leave(client, current, "")
	}

	var settings any
	if mod, ok := h.catalog.Get(payload.GameType); ok {
		settings = mod.NewSettings(game.JoinOptions{DrawTime: payload.DrawTime})
	}
	rm, err := h.rooms.Create(payload.RoomID, payload.GameType, settings)
	if err != nil {
		h.sendError(client, err)
		return
	}

	err = h.runInRoom(rm, func(r *game.Room) {
		if h.joinInRoom(client, r, payload) {
			client.SetRoom(r.ID)
			h.rooms.CancelCleanup(r.ID)
		}
	})
	if err != nil {
		h.sendError(client, apperrors.ErrRoomNotFound)
	}
}

// joinInRoom 在房间队列里执行：重连则重新绑定连接，否则作为新玩家加入
func (h *Handler) joinInRoom(client types.ClientInterface, r *game.Room, payload *protocol.JoinRoomPayload) bool {
	mod, ok := h.catalog.Get(r.GameType)
	if !ok {
		h.sendError(client, apperrors.ErrUnknownGame)
		return false
	}
	out := h.Outbox(r)

	// 一个连接只能占一个座位，换身份要先离开
	if cur := r.Player(client.GetID()); cur != nil && cur.AnchorID != payload.AnchorID {
		client.SendMessage(codec.NewToast(protocol.ToastError, apperrors.ErrAlreadySeated.Message))
		return false
	}

	if _, rebound := room.Bind(out, mod, r, payload.AnchorID, client.GetID()); rebound {
		if r.Phase == game.PhasePlaying && r.TimeLeft > 0 && h.timers != nil {
			h.timers.Start(r.ID)
		}
		r.Touch()
		h.Publish(r)
		return true
	}

	if len(r.Players) >= mod.Info().MaxPlayers {
		client.SendMessage(codec.NewToast(protocol.ToastError, apperrors.ErrRoomFull.Message))
		return false
	}
	if r.Phase != game.PhaseWaiting {
		client.SendMessage(codec.NewToast(protocol.ToastError, apperrors.ErrGameStarted.Message))
		return false
	}

	username := payload.Username
	if username == "" {
		username = "玩家" + shortID(payload.AnchorID)
	}
	p := &game.Player{
		ID:       client.GetID(),
		AnchorID: payload.AnchorID,
		Username: username,
		Color:    game.PickColor(r, payload.Color),
	}
	mod.InitPlayer(p)
	r.Players = append(r.Players, p)
	r.Touch()

	log.Printf("👤 玩家 %s 加入房间 %s (%d/%d)", p.Username, r.ID, len(r.Players), mod.Info().MaxPlayers)
	h.Publish(r)
	return true
}

// handleLeaveRoom 主动离开房间
func (h *Handler) handleLeaveRoom(client types.ClientInterface, msg *protocol.Message) {
	roomID := client.GetRoom()
	anchorID := ""
	if payload, err := codec.ParsePayload[protocol.LeaveRoomPayload](msg); err == nil {
		if payload.RoomID != "" {
			roomID = payload.RoomID
		}
		anchorID = payload.AnchorID
	}
	if roomID == "" {
		return
	}
	h.leave(client, roomID, anchorID)
}

// leave 把玩家移出房间，房间空了就删除，剩下的人全部掉线则安排清理。
// 连接本身在座时以座位的 anchorId 为准；不在座时只能移走已掉线的座位
func (h *Handler) leave(client types.ClientInterface, roomID, anchorID string) {
	if client.GetRoom() == roomID {
		client.SetRoom("")
	}
	rm := h.rooms.Get(roomID)
	if rm == nil {
		return
	}

	empty, abandoned := false, false
	_ = h.runInRoom(rm, func(r *game.Room) {
		if p := r.Player(client.GetID()); p != nil {
			anchorID = p.AnchorID
		} else if p := r.PlayerByAnchor(anchorID); p == nil || !p.Disconnected {
			return
		}
		p := r.RemoveByAnchor(anchorID)
		if p == nil {
			return
		}
		log.Printf("🚪 玩家 %s 离开房间 %s", p.Username, r.ID)

		if len(r.Players) == 0 {
			empty = true
			return
		}

		mod, ok := h.catalog.Get(r.GameType)
		if !ok {
			return
		}
		if leaver, ok := mod.(game.Leaver); ok {
			if res := leaver.OnLeave(h.Outbox(r), r, p.ID); res.Outcome == game.OutcomeChanged && h.timers != nil {
				h.timers.Rearm(r)
			}
		}
		r.Touch()
		h.Publish(r)
		abandoned = r.AllDisconnected()
	})

	switch {
	case empty:
		h.rooms.Delete(roomID)
		h.BroadcastRoomList()
	case abandoned:
		h.scheduleCleanup(roomID)
	}
}

// HandleDisconnect 连接断开：玩家只标记为掉线，全员掉线后安排清理
func (h *Handler) HandleDisconnect(client types.ClientInterface) {
	roomID := client.GetRoom()
	if roomID == "" {
		return
	}
	rm := h.rooms.Get(roomID)
	if rm == nil {
		return
	}

	abandoned := false
	_ = h.runInRoom(rm, func(r *game.Room) {
		// 已经被新连接接管时不处理
		p := r.Player(client.GetID())
		if p == nil {
			return
		}
		p.Disconnected = true
		log.Printf("📴 玩家 %s 从房间 %s 掉线", p.Username, r.ID)

		if mod, ok := h.catalog.Get(r.GameType); ok {
			if d, ok := mod.(game.Disconnector); ok {
				if res := d.OnDisconnect(h.Outbox(r), r, p.ID); res.Outcome == game.OutcomeChanged && h.timers != nil {
					h.timers.Rearm(r)
				}
			}
		}
		h.Publish(r)
		abandoned = r.AllDisconnected()
	})

	if abandoned {
		h.scheduleCleanup(roomID)
	}
}

// scheduleCleanup 宽限期后仍无人在线则删除房间
func (h *Handler) scheduleCleanup(roomID string) {
	h.rooms.ScheduleCleanup(roomID, h.cleanupGrace, func() {
		if h.rooms.DeleteIfAbandoned(roomID) {
			h.BroadcastRoomList()
		}
	})
}

// handleValidateUsername 昵称被任意房间的在线玩家占用时无效，不区分大小写
func (h *Handler) handleValidateUsername(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.ValidateUsernamePayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	result := protocol.ValidateUsernameResult{Valid: true}
	name := strings.TrimSpace(payload.Username)
	switch {
	case name == "":
		result = protocol.ValidateUsernameResult{Message: "昵称不能为空"}
	case h.usernameTaken(name):
		result = protocol.ValidateUsernameResult{Message: protocol.ErrorMessages[protocol.ErrCodeUsernameTaken]}
	}
	client.SendMessage(codec.NewReply(msg.ID, protocol.MsgValidateUsernameResult, result))
}

func (h *Handler) usernameTaken(name string) bool {
	for _, rm := range h.rooms.List() {
		for _, active := range rm.Summary().ActiveNames {
			if strings.EqualFold(active, name) {
				return true
			}
		}
	}
	return false
}

// roomList 所有房间的列表项，读取的是各房间的摘要
func (h *Handler) roomList() []protocol.RoomListItem {
	rooms := h.rooms.List()
	items := make([]protocol.RoomListItem, 0, len(rooms))
	for _, rm := range rooms {
		sum := rm.Summary()
		item := protocol.RoomListItem{
			ID:          sum.ID,
			GameType:    sum.GameType,
			GameName:    h.catalog.Name(sum.GameType),
			PlayerCount: sum.PlayerCount,
			MaxPlayers:  h.catalog.MaxPlayers(sum.GameType),
			Phase:       string(sum.Phase),
			TakenColors: sum.TakenColors,
		}
		if item.TakenColors == nil {
			item.TakenColors = []string{}
		}
		if len(sum.Settings) > 0 {
			item.Settings = json.RawMessage(sum.Settings)
		}
		items = append(items, item)
	}
	return items
}

// SendRoomList 给单个连接发送房间列表
func (h *Handler) SendRoomList(client types.ClientInterface) {
	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomList, h.roomList()))
}

// BroadcastRoomList 给所有连接广播房间列表
func (h *Handler) BroadcastRoomList() {
	h.server.Broadcast(codec.MustNewMessage(protocol.MsgRoomList, h.roomList()))
}

// NotifyIdle 空闲房间被清理前在房间队列里调用，提醒仍在线的玩家
func (h *Handler) NotifyIdle(r *game.Room) {
	game.ToastAll(h.Outbox(r), protocol.ToastWarning, "⌛ 房间长时间无活动，已自动解散")
	for _, p := range r.Players {
		if c := h.server.GetClientByID(p.ID); c != nil && c.GetRoom() == r.ID {
			c.SetRoom("")
		}
	}
}

// OnRoomsSwept 空闲扫描删除房间后调用
func (h *Handler) OnRoomsSwept(removed []string) {
	log.Printf("🧹 已清理 %d 个空闲房间", len(removed))
	h.BroadcastRoomList()
}

func shortID(id string) string {
	if len(id) > 4 {
		return id[:4]
	}
	return id
}
