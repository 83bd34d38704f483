package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const historySchema = `CREATE TABLE IF NOT EXISTS game_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id TEXT NOT NULL,
	game_type TEXT NOT NULL,
	winner TEXT,
	players_json TEXT NOT NULL,
	played_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_game_history_played_at ON game_history(played_at);`

// MatchRecord 一局对局记录
type MatchRecord struct {
	ID       int64         `json:"id"`
	RoomID   string        `json:"roomId"`
	GameType string        `json:"gameType"`
	Winner   string        `json:"winner"`
	Players  []MatchPlayer `json:"players"`
	PlayedAt time.Time     `json:"playedAt"`
}

// HistoryStore 基于 sqlite 的对局记录
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore 打开（必要时创建）数据库
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开对局数据库失败: %w", err)
	}
	// sqlite 同一时间只允许一个写者
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("初始化对局表失败: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close 关闭数据库
func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordMatch 写入一局记录
func (s *HistoryStore) RecordMatch(ctx context.Context, rec *MatchRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return fmt.Errorf("序列化对局玩家失败: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO game_history(room_id, game_type, winner, players_json) VALUES(?, ?, ?, ?)",
		rec.RoomID, rec.GameType, rec.Winner, string(players))
	if err != nil {
		return fmt.Errorf("写入对局记录失败: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// Recent 最近的对局，按时间倒序
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]*MatchRecord, error) {
	if s == nil || s.db == nil {
		return []*MatchRecord{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, room_id, game_type, winner, players_json, played_at FROM game_history ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("查询对局记录失败: %w", err)
	}
	defer rows.Close()

	records := make([]*MatchRecord, 0, limit)
	for rows.Next() {
		var (
			rec     MatchRecord
			winner  sql.NullString
			players string
		)
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.GameType, &winner, &players, &rec.PlayedAt); err != nil {
			return nil, fmt.Errorf("读取对局记录失败: %w", err)
		}
		rec.Winner = winner.String
		if err := json.Unmarshal([]byte(players), &rec.Players); err != nil {
			return nil, fmt.Errorf("解析对局玩家失败: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
