package handler

import (
	"context"
	"time"

	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
	"github.com/palemoky/party-games/internal/types"
)

const (
	queryTimeout = 3 * time.Second

	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 50
	defaultHistoryLimit     = 20
	maxHistoryLimit         = 100
)

// handlePing 心跳，立即回复 pong
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) {
	var clientTS int64
	if payload, err := codec.ParsePayload[protocol.PingPayload](msg); err == nil {
		clientTS = payload.Timestamp
	}
	client.SendMessage(codec.NewReply(msg.ID, protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: clientTS,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// --- 排行榜与对局记录 ---

// handleGetLeaderboard 获取某个游戏的总排行榜
func (h *Handler) handleGetLeaderboard(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.GetLeaderboardPayload](msg)
	if err != nil {
		payload = &protocol.GetLeaderboardPayload{}
	}
	if payload.GameType == "" {
		payload.GameType = h.defaultGame
	}
	if payload.Limit <= 0 || payload.Limit > maxLeaderboardLimit {
		payload.Limit = defaultLeaderboardLimit
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	entries, err := h.leaderboard.GetLeaderboard(ctx, payload.GameType, payload.Limit, false)
	if err != nil {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeUnknown, "获取排行榜失败"))
		return
	}

	result := protocol.LeaderboardResultPayload{
		GameType: payload.GameType,
		Entries:  make([]protocol.LeaderboardEntry, 0, len(entries)),
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, protocol.LeaderboardEntry{
			Rank:     e.Rank,
			AnchorID: e.AnchorID,
			Username: e.PlayerName,
			Score:    e.Score,
			Wins:     e.Wins,
			WinRate:  e.WinRate,
		})
	}
	client.SendMessage(codec.NewReply(msg.ID, protocol.MsgLeaderboardResult, result))
}

// handleGetHistory 最近的对局记录
func (h *Handler) handleGetHistory(client types.ClientInterface, msg *protocol.Message) {
	limit := defaultHistoryLimit
	if payload, err := codec.ParsePayload[protocol.GetHistoryPayload](msg); err == nil &&
		payload.Limit > 0 && payload.Limit <= maxHistoryLimit {
		limit = payload.Limit
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	records, err := h.history.Recent(ctx, limit)
	if err != nil {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeUnknown, "获取对局记录失败"))
		return
	}

	result := protocol.HistoryResultPayload{Records: make([]protocol.MatchRecord, 0, len(records))}
	for _, rec := range records {
		result.Records = append(result.Records, protocol.MatchRecord{
			ID:         rec.ID,
			RoomID:     rec.RoomID,
			GameType:   rec.GameType,
			GameName:   h.catalog.Name(rec.GameType),
			WinnerName: rec.Winner,
			Players:    formatPlayers(rec.Players),
			FinishedAt: rec.PlayedAt.UnixMilli(),
		})
	}
	client.SendMessage(codec.NewReply(msg.ID, protocol.MsgHistoryResult, result))
}
