package room

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/server/storage"
)

// Snapshot 把房间编码为可持久化的纯数据，必须在房间队列里调用
func Snapshot(mod game.Module, r *game.Room) (*storage.RoomData, error) {
	data := &storage.RoomData{
		ID:           r.ID,
		GameType:     r.GameType,
		Phase:        string(r.Phase),
		Players:      make([]storage.PlayerData, 0, len(r.Players)),
		TimeLeft:     r.TimeLeft,
		LastActivity: r.LastActivity.Unix(),
		CreatedAt:    r.CreatedAt.Unix(),
	}

	for _, p := range r.Players {
		data.Players = append(data.Players, storage.PlayerData{
			ID:            p.ID,
			AnchorID:      p.AnchorID,
			Username:      p.Username,
			Color:         p.Color,
			Score:         p.Score,
			Disconnected:  p.Disconnected,
			IsDoneDrawing: p.IsDoneDrawing,
		})
	}

	if r.Settings != nil {
		settings, err := json.Marshal(r.Settings)
		if err != nil {
			return nil, fmt.Errorf("encode settings of room %s: %w", r.ID, err)
		}
		data.Settings = settings
	}

	gameData, err := mod.Serialize(r)
	if err != nil {
		return nil, fmt.Errorf("encode game state of room %s: %w", r.ID, err)
	}
	data.GameData = gameData
	return data, nil
}

// Rehydrate 从快照重建房间，模块负责重建自己的引擎对象
func Rehydrate(mod game.Module, data *storage.RoomData) (*game.Room, error) {
	settings, err := mod.DecodeSettings(data.Settings)
	if err != nil {
		return nil, err
	}

	r := game.NewRoom(data.ID, data.GameType, settings)
	if data.Phase != "" {
		r.Phase = game.Phase(data.Phase)
	}
	r.TimeLeft = data.TimeLeft
	if data.LastActivity > 0 {
		r.LastActivity = time.Unix(data.LastActivity, 0)
	}
	if data.CreatedAt > 0 {
		r.CreatedAt = time.Unix(data.CreatedAt, 0)
	}

	for _, pd := range data.Players {
		p := &game.Player{
			ID:            pd.ID,
			AnchorID:      pd.AnchorID,
			Username:      pd.Username,
			Color:         pd.Color,
			Score:         pd.Score,
			Disconnected:  pd.Disconnected,
			IsDoneDrawing: pd.IsDoneDrawing,
		}
		mod.InitPlayer(p)
		p.Score = pd.Score
		p.IsDoneDrawing = pd.IsDoneDrawing
		r.Players = append(r.Players, p)
	}

	if err := mod.Deserialize(r, data.GameData); err != nil {
		return nil, err
	}
	return r, nil
}
