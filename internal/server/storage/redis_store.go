package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	roomKeyPrefix = "room:"

	// DefaultRoomExpiration 房间快照默认过期时间
	DefaultRoomExpiration = 24 * time.Hour
)

// RoomData 房间快照（用于 Redis 序列化）
type RoomData struct {
	ID           string          `json:"id"`
	GameType     string          `json:"gameType"`
	Phase        string          `json:"phase"`
	Players      []PlayerData    `json:"players"`
	TimeLeft     int             `json:"timeLeft"`
	LastActivity int64           `json:"lastActivity"`
	CreatedAt    int64           `json:"createdAt"`
	Settings     json.RawMessage `json:"settings,omitempty"`
	GameData     json.RawMessage `json:"gameData,omitempty"` // 由游戏模块 Serialize 生成
}

// PlayerData 玩家数据，模块私有状态在 GameData 里
type PlayerData struct {
	ID            string `json:"id"`
	AnchorID      string `json:"anchorId"`
	Username      string `json:"username"`
	Color         string `json:"color"`
	Score         int    `json:"score"`
	Disconnected  bool   `json:"disconnected"`
	IsDoneDrawing bool   `json:"isDoneDrawing"`
}

// RedisStore Redis 存储，client 为 nil 时所有操作都是空操作（纯内存模式）
type RedisStore struct {
	client     *redis.Client
	expiration time.Duration
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client, expiration time.Duration) *RedisStore {
	if expiration <= 0 {
		expiration = DefaultRoomExpiration
	}
	return &RedisStore{client: client, expiration: expiration}
}

// IsEnabled 是否连接了 Redis
func (rs *RedisStore) IsEnabled() bool {
	return rs != nil && rs.client != nil
}

// --- 房间存储 ---

// SaveRoom 保存房间快照
func (rs *RedisStore) SaveRoom(ctx context.Context, roomID string, data *RoomData) error {
	if !rs.IsEnabled() || data == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化房间数据失败: %w", err)
	}

	if err := rs.client.Set(ctx, roomKeyPrefix+roomID, jsonData, rs.expiration).Err(); err != nil {
		return fmt.Errorf("保存房间 %s 失败: %w", roomID, err)
	}
	return nil
}

// LoadRoom 加载房间快照，不存在时返回 nil, nil
func (rs *RedisStore) LoadRoom(ctx context.Context, roomID string) (*RoomData, error) {
	if !rs.IsEnabled() {
		return nil, nil
	}
	data, err := rs.client.Get(ctx, roomKeyPrefix+roomID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 房间不存在
		}
		return nil, fmt.Errorf("读取房间 %s 失败: %w", roomID, err)
	}

	var roomData RoomData
	if err := json.Unmarshal(data, &roomData); err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}
	return &roomData, nil
}

// DeleteRoom 删除房间快照
func (rs *RedisStore) DeleteRoom(ctx context.Context, roomID string) error {
	if !rs.IsEnabled() {
		return nil
	}
	if err := rs.client.Del(ctx, roomKeyPrefix+roomID).Err(); err != nil {
		return fmt.Errorf("删除房间 %s 失败: %w", roomID, err)
	}
	return nil
}

// GetAllRoomIDs 获取所有房间号
func (rs *RedisStore) GetAllRoomIDs(ctx context.Context) ([]string, error) {
	if !rs.IsEnabled() {
		return nil, nil
	}
	keys, err := rs.client.Keys(ctx, roomKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(keys))
	for i, key := range keys {
		ids[i] = strings.TrimPrefix(key, roomKeyPrefix)
	}
	return ids, nil
}

// LoadAllRooms 加载所有房间快照，损坏的条目记录日志后跳过
func (rs *RedisStore) LoadAllRooms(ctx context.Context) ([]*RoomData, error) {
	if !rs.IsEnabled() {
		return nil, nil
	}
	keys, err := rs.client.Keys(ctx, roomKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("列出房间失败: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := rs.client.Pipeline()
	results := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		results[i] = pipe.Get(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("批量读取房间失败: %w", err)
	}

	rooms := make([]*RoomData, 0, len(keys))
	for i, result := range results {
		raw, err := result.Bytes()
		if err != nil {
			continue
		}
		var data RoomData
		if err := json.Unmarshal(raw, &data); err != nil {
			log.Printf("⚠️ 跳过损坏的房间快照 %s: %v", keys[i], err)
			continue
		}
		rooms = append(rooms, &data)
	}
	return rooms, nil
}

// SetRoomExpiration 设置房间过期时间
func (rs *RedisStore) SetRoomExpiration(ctx context.Context, roomID string, expiration time.Duration) error {
	if !rs.IsEnabled() {
		return nil
	}
	return rs.client.Expire(ctx, roomKeyPrefix+roomID, expiration).Err()
}
