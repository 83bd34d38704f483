// Package room 管理房间注册表：每个房间一个串行事件队列，负责清理和快照持久化。
package room

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/server/storage"
)

const defaultSaveTimeout = 5 * time.Second

// Store 房间快照存储
type Store interface {
	SaveRoom(ctx context.Context, roomID string, data *storage.RoomData) error
	DeleteRoom(ctx context.Context, roomID string) error
	LoadAllRooms(ctx context.Context) ([]*storage.RoomData, error)
}

// Options 房间管理器配置
type Options struct {
	Store        Store         // 为 nil 时只在内存中保存
	SaveTimeout  time.Duration // 单次持久化超时
	CleanupGrace time.Duration // 恢复的房间无人重连时的保留时间
	InboxSize    int
}

// RoomManager 房间管理器，只用锁保护房间表，房间状态都在各自的队列里
type RoomManager struct {
	catalog *game.Catalog
	opts    Options

	rooms map[string]*Room
	mu    sync.RWMutex

	onStop func(roomID string)
	wg     sync.WaitGroup // 进行中的持久化
}

// NewRoomManager 创建房间管理器
func NewRoomManager(catalog *game.Catalog, opts Options) *RoomManager {
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = defaultSaveTimeout
	}
	if opts.CleanupGrace <= 0 {
		opts.CleanupGrace = 30 * time.Second
	}
	return &RoomManager{
		catalog: catalog,
		opts:    opts,
		rooms:   make(map[string]*Room),
	}
}

// SetStopHook 房间删除时调用（用于停止倒计时）
func (rm *RoomManager) SetStopHook(fn func(roomID string)) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.onStop = fn
}

// Catalog 已注册的游戏模块
func (rm *RoomManager) Catalog() *game.Catalog {
	return rm.catalog
}

// Create 创建房间，已存在时直接返回原房间并忽略新的设置
func (rm *RoomManager) Create(id, gameType string, settings any) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if existing, ok := rm.rooms[id]; ok {
		return existing, nil
	}

	mod, ok := rm.catalog.Get(gameType)
	if !ok {
		return nil, apperrors.ErrUnknownGame
	}
	if settings == nil {
		settings = mod.NewSettings(game.JoinOptions{})
	}

	r := newRoom(game.NewRoom(id, gameType, settings), rm.opts.InboxSize)
	rm.rooms[id] = r

	log.Printf("🏠 房间 %s 已创建，游戏 %s", id, rm.catalog.Name(gameType))
	return r, nil
}

// Get 查找房间
func (rm *RoomManager) Get(id string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[id]
}

// List 全部房间，按房间号排序
func (rm *RoomManager) List() []*Room {
	rm.mu.RLock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		rooms = append(rooms, r)
	}
	rm.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

// Count 房间数量
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// ActiveGamesCount 进行中的对局数量
func (rm *RoomManager) ActiveGamesCount() int {
	count := 0
	for _, r := range rm.List() {
		if r.Summary().Phase == game.PhasePlaying {
			count++
		}
	}
	return count
}

// Save 持久化房间快照，必须在房间队列里调用。快照立即编码，写入在后台进行，失败只记录日志
func (rm *RoomManager) Save(r *game.Room) {
	if rm.opts.Store == nil {
		return
	}
	owner := rm.Get(r.ID)
	if owner == nil || owner.deleted.Load() {
		return
	}
	mod, ok := rm.catalog.Get(r.GameType)
	if !ok {
		return
	}

	data, err := Snapshot(mod, r)
	if err != nil {
		log.Printf("⚠️ 房间 %s 快照编码失败: %v", r.ID, err)
		return
	}
	seq := owner.saveSeq.Add(1)

	rm.wg.Add(1)
	go func() {
		defer rm.wg.Done()
		owner.persistMu.Lock()
		defer owner.persistMu.Unlock()

		// 已删除或有更新的快照写入过
		if owner.deleted.Load() || seq <= owner.savedSeq {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), rm.opts.SaveTimeout)
		defer cancel()
		if err := rm.opts.Store.SaveRoom(ctx, data.ID, data); err != nil {
			log.Printf("⚠️ 保存房间 %s 失败: %v", data.ID, err)
			return
		}
		owner.savedSeq = seq
	}()
}

// Delete 删除房间：取消清理定时器、停止倒计时、关闭队列，再从存储中删除
func (rm *RoomManager) Delete(id string) {
	rm.mu.Lock()
	r, ok := rm.rooms[id]
	if ok {
		delete(rm.rooms, id)
	}
	onStop := rm.onStop
	rm.mu.Unlock()
	if !ok {
		return
	}

	r.deleted.Store(true)
	r.cancelCleanup()
	if onStop != nil {
		onStop(id)
	}
	r.close()

	if rm.opts.Store != nil {
		rm.wg.Add(1)
		go func() {
			defer rm.wg.Done()
			r.persistMu.Lock()
			defer r.persistMu.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), rm.opts.SaveTimeout)
			defer cancel()
			if err := rm.opts.Store.DeleteRoom(ctx, id); err != nil {
				log.Printf("⚠️ 删除房间 %s 快照失败: %v", id, err)
			}
		}()
	}

	log.Printf("🏠 房间 %s 已解散", id)
}

// Touch 刷新房间活跃时间
func (rm *RoomManager) Touch(id string) {
	if r := rm.Get(id); r != nil {
		r.Submit(func(s *game.Room) { s.Touch() })
	}
}

// Flush 等待进行中的持久化完成
func (rm *RoomManager) Flush() {
	rm.wg.Wait()
}

// Close 停止所有房间队列和定时器，快照保留在存储中以便重启后恢复
func (rm *RoomManager) Close() {
	rm.mu.Lock()
	rooms := rm.rooms
	rm.rooms = make(map[string]*Room)
	onStop := rm.onStop
	rm.mu.Unlock()

	for id, r := range rooms {
		r.cancelCleanup()
		if onStop != nil {
			onStop(id)
		}
		r.close()
	}
	rm.Flush()
	log.Printf("🏠 房间管理器已关闭，共 %d 个房间", len(rooms))
}
