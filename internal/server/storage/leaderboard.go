package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key
	playerStatsKey    = "player:stats:"
	leaderboardKey    = "leaderboard:"
	weeklyLeaderboard = "leaderboard:weekly:"

	weeklyExpiration = 8 * 24 * time.Hour
)

// 积分规则
const (
	WinPoints  = 30
	LosePoints = -10

	// 连胜加成
	StreakBonus3  = 5
	StreakBonus5  = 10
	StreakBonus10 = 20
)

// PlayerStats 玩家在某个游戏里的统计，存为 Redis hash
type PlayerStats struct {
	AnchorID   string `redis:"anchor_id" json:"anchorId"`
	PlayerName string `redis:"player_name" json:"playerName"`

	TotalGames int `redis:"total_games" json:"totalGames"`
	Wins       int `redis:"wins" json:"wins"`
	Losses     int `redis:"losses" json:"losses"`
	Score      int `redis:"score" json:"score"` // 排行积分

	CurrentStreak int `redis:"current_streak" json:"currentStreak"` // 正数为连胜，负数为连败
	MaxWinStreak  int `redis:"max_win_streak" json:"maxWinStreak"`

	LastPlayedAt int64 `redis:"last_played_at" json:"lastPlayedAt"`
	CreatedAt    int64 `redis:"created_at" json:"createdAt"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	AnchorID   string  `json:"anchorId"`
	PlayerName string  `json:"playerName"`
	Score      int     `json:"score"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"winRate"`
}

// MatchPlayer 一局结束时的玩家
type MatchPlayer struct {
	AnchorID string `json:"anchorId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	IsWinner bool   `json:"isWinner"`
}

// Leaderboard 按游戏类型分开的排行榜，client 为 nil 时为空操作
type Leaderboard struct {
	redis *redis.Client
}

// NewLeaderboard 创建排行榜
func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{redis: client}
}

func (lb *Leaderboard) enabled() bool {
	return lb != nil && lb.redis != nil
}

func statsKey(gameType, anchorID string) string {
	return playerStatsKey + gameType + ":" + anchorID
}

func weeklyKey(gameType string, now time.Time) string {
	year, week := now.ISOWeek()
	return fmt.Sprintf("%s%s:%d-W%02d", weeklyLeaderboard, gameType, year, week)
}

// GetPlayerStats 获取玩家统计，没有记录时返回 nil, nil
func (lb *Leaderboard) GetPlayerStats(ctx context.Context, gameType, anchorID string) (*PlayerStats, error) {
	if !lb.enabled() {
		return nil, nil
	}
	res := lb.redis.HGetAll(ctx, statsKey(gameType, anchorID))
	fields, err := res.Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var stats PlayerStats
	if err := res.Scan(&stats); err != nil {
		return nil, fmt.Errorf("解析玩家统计失败: %w", err)
	}
	return &stats, nil
}

// updateWinLossStats 更新胜负统计和连胜/连败
func updateWinLossStats(stats *PlayerStats, isWinner bool) {
	if isWinner {
		stats.Wins++
		stats.CurrentStreak = max(1, stats.CurrentStreak+1)
	} else {
		stats.Losses++
		stats.CurrentStreak = min(-1, stats.CurrentStreak-1)
	}

	if stats.CurrentStreak > stats.MaxWinStreak {
		stats.MaxWinStreak = stats.CurrentStreak
	}
}

// calculateStreakBonus 计算连胜加成
func calculateStreakBonus(streak int) int {
	switch {
	case streak >= 10:
		return StreakBonus10
	case streak >= 5:
		return StreakBonus5
	case streak >= 3:
		return StreakBonus3
	default:
		return 0
	}
}

// RecordResult 记录一局的结果
func (lb *Leaderboard) RecordResult(ctx context.Context, gameType string, players []MatchPlayer) error {
	if !lb.enabled() {
		return nil
	}
	now := time.Now()

	for _, p := range players {
		if p.AnchorID == "" {
			continue
		}
		stats, err := lb.GetPlayerStats(ctx, gameType, p.AnchorID)
		if err != nil {
			return err
		}
		if stats == nil {
			stats = &PlayerStats{AnchorID: p.AnchorID, CreatedAt: now.Unix()}
		}

		stats.PlayerName = p.Username
		stats.TotalGames++
		stats.LastPlayedAt = now.Unix()
		updateWinLossStats(stats, p.IsWinner)

		change := LosePoints
		if p.IsWinner {
			change = WinPoints + calculateStreakBonus(stats.CurrentStreak)
		}
		stats.Score = max(0, stats.Score+change)

		if err := lb.savePlayerStats(ctx, gameType, stats, now); err != nil {
			return err
		}
	}
	return nil
}

func (lb *Leaderboard) savePlayerStats(ctx context.Context, gameType string, stats *PlayerStats, now time.Time) error {
	member := redis.Z{Score: float64(stats.Score), Member: stats.AnchorID}
	weekly := weeklyKey(gameType, now)

	_, err := lb.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, statsKey(gameType, stats.AnchorID), stats)
		pipe.ZAdd(ctx, leaderboardKey+gameType, member)
		pipe.ZAdd(ctx, weekly, member)
		pipe.Expire(ctx, weekly, weeklyExpiration)
		return nil
	})
	if err != nil {
		return fmt.Errorf("更新排行榜失败: %w", err)
	}
	return nil
}

// GetLeaderboard 获取排行榜（从高到低），weekly 为 true 时取本周榜
func (lb *Leaderboard) GetLeaderboard(ctx context.Context, gameType string, limit int, weekly bool) ([]*LeaderboardEntry, error) {
	if !lb.enabled() {
		return []*LeaderboardEntry{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	key := leaderboardKey + gameType
	if weekly {
		key = weeklyKey(gameType, time.Now())
	}

	results, err := lb.redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*LeaderboardEntry, 0, len(results))
	for i, result := range results {
		anchorID, _ := result.Member.(string)

		stats, err := lb.GetPlayerStats(ctx, gameType, anchorID)
		if err != nil || stats == nil {
			continue
		}

		winRate := 0.0
		if stats.TotalGames > 0 {
			winRate = float64(stats.Wins) / float64(stats.TotalGames) * 100
		}

		entries = append(entries, &LeaderboardEntry{
			Rank:       i + 1,
			AnchorID:   anchorID,
			PlayerName: stats.PlayerName,
			Score:      int(result.Score),
			Wins:       stats.Wins,
			WinRate:    winRate,
		})
	}
	return entries, nil
}

// GetPlayerRank 获取玩家排名，未上榜返回 -1
func (lb *Leaderboard) GetPlayerRank(ctx context.Context, gameType, anchorID string) (int64, error) {
	if !lb.enabled() {
		return -1, nil
	}
	rank, err := lb.redis.ZRevRank(ctx, leaderboardKey+gameType, anchorID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil // 未上榜
		}
		return -1, err
	}
	return rank + 1, nil // Redis 排名从 0 开始
}
