package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/server/storage"
	"github.com/palemoky/party-games/internal/types"
)

const recordTimeout = 5 * time.Second

var errInternal = apperrors.New(protocol.ErrCodeUnknown, "服务器内部错误")

// handleGameAction 统一信封 game_action{action, data}
func (h *Handler) handleGameAction(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.GameActionPayload](msg)
	if err != nil || payload.Action == "" {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}
	h.dispatchAction(client, payload.Action, payload.Data)
}

// dispatchAction 在发送者所在房间的队列里执行游戏动作
func (h *Handler) dispatchAction(client types.ClientInterface, action string, data json.RawMessage) {
	rm := h.rooms.Get(client.GetRoom())
	if rm == nil {
		h.sendError(client, apperrors.ErrNotInRoom)
		return
	}

	sender := client.GetID()
	err := h.runInRoom(rm, func(r *game.Room) {
		if r.Player(sender) == nil {
			h.sendError(client, apperrors.ErrNotInRoom)
			return
		}
		mod, ok := h.catalog.Get(r.GameType)
		if !ok {
			h.sendError(client, apperrors.ErrUnknownGame)
			return
		}

		prev := r.Phase
		res := h.invoke(mod, r, sender, action, data)
		h.applyResult(mod, r, prev, sender, res)
	})
	if err != nil {
		h.sendError(client, apperrors.ErrRoomNotFound)
	}
}

// invoke 调用模块的动作处理函数，panic 视为拒绝
func (h *Handler) invoke(mod game.Module, r *game.Room, sender, action string, data json.RawMessage) (res game.Result) {
	handler, ok := mod.Handlers()[action]
	if !ok {
		return game.Reject(apperrors.ErrUnknownAction)
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.LogPanic(rec)
			log.Printf("💥 房间 %s 处理动作 %s 时崩溃", r.ID, action)
			res = game.Reject(errInternal)
		}
	}()
	return handler(h.Outbox(r), r, sender, data)
}

// applyResult 根据动作结果决定推送、持久化和倒计时
func (h *Handler) applyResult(mod game.Module, r *game.Room, prev game.Phase, sender string, res game.Result) {
	switch res.Outcome {
	case game.OutcomeRejected:
		h.rejectTo(r, sender, res.Err)
		return
	case game.OutcomeUnchanged:
		r.Touch()
		return
	}

	r.Touch()
	if h.timers != nil {
		h.timers.Rearm(r)
	}
	h.Publish(r)

	if prev != game.PhasePlaying && r.Phase == game.PhasePlaying {
		if starter, ok := mod.(game.Starter); ok {
			starter.OnStart(h.Outbox(r), r)
		}
	}
	if prev != game.PhaseGameOver && r.Phase == game.PhaseGameOver {
		h.recordMatch(mod, r)
	}
}

// rejectTo 把校验失败私发给操作者，以错误提示的形式
func (h *Handler) rejectTo(r *game.Room, playerID string, err error) {
	game.Toast(h.Outbox(r), playerID, protocol.ToastError, errorText(err))
}

// sendError 在房间队列之外直接回复错误
func (h *Handler) sendError(client types.ClientInterface, err error) {
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(codec.NewErrorMessageWithText(gameErr.Code, gameErr.Message))
		return
	}
	client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeUnknown, err.Error()))
}

func errorText(err error) string {
	if err == nil {
		return protocol.ErrorMessages[protocol.ErrCodeUnknown]
	}
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		return gameErr.Message
	}
	return err.Error()
}

// recordMatch 整场结束后写入排行榜和对局记录，在后台进行，失败只记录日志
func (h *Handler) recordMatch(mod game.Module, r *game.Room) {
	if h.leaderboard == nil && h.history == nil {
		return
	}

	winner := game.Winner(mod, r)
	players := make([]storage.MatchPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, storage.MatchPlayer{
			AnchorID: p.AnchorID,
			Username: p.Username,
			Score:    p.Score,
			IsWinner: winner != nil && p.AnchorID == winner.AnchorID,
		})
	}
	rec := &storage.MatchRecord{
		RoomID:   r.ID,
		GameType: r.GameType,
		Players:  players,
	}
	if winner != nil {
		rec.Winner = winner.Username
		log.Printf("🏆 房间 %s 对局结束，胜者 %s (%d 分)", r.ID, winner.Username, winner.Score)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := h.leaderboard.RecordResult(ctx, rec.GameType, rec.Players); err != nil {
			log.Printf("⚠️ 房间 %s 更新排行榜失败: %v", rec.RoomID, err)
		}
		if err := h.history.RecordMatch(ctx, rec); err != nil {
			log.Printf("⚠️ 房间 %s 保存对局记录失败: %v", rec.RoomID, err)
		}
	}()
}

func formatPlayers(players []storage.MatchPlayer) []string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, fmt.Sprintf("%s(%d)", p.Username, p.Score))
	}
	return names
}
