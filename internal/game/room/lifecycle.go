package room

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/palemoky/party-games/internal/game"
)

// ScheduleCleanup 安排房间在 delay 后执行 onFire，会替换已有的清理任务
func (rm *RoomManager) ScheduleCleanup(id string, delay time.Duration, onFire func()) {
	r := rm.Get(id)
	if r == nil {
		return
	}

	r.cleanupMu.Lock()
	defer r.cleanupMu.Unlock()

	if r.cleanupTimer != nil {
		r.cleanupTimer.Stop()
	}
	r.cleanupGen++
	gen := r.cleanupGen
	r.cleanupTimer = time.AfterFunc(delay, func() {
		r.cleanupMu.Lock()
		stale := gen != r.cleanupGen
		if !stale {
			r.cleanupTimer = nil
		}
		r.cleanupMu.Unlock()
		if !stale {
			onFire()
		}
	})
}

// CancelCleanup 取消房间的清理任务
func (rm *RoomManager) CancelCleanup(id string) {
	if r := rm.Get(id); r != nil {
		r.cancelCleanup()
	}
}

func (r *Room) cancelCleanup() {
	r.cleanupMu.Lock()
	defer r.cleanupMu.Unlock()
	if r.cleanupTimer != nil {
		r.cleanupTimer.Stop()
		r.cleanupTimer = nil
	}
	r.cleanupGen++
}

// CleanupPending 是否有待执行的清理任务
func (r *Room) CleanupPending() bool {
	r.cleanupMu.Lock()
	defer r.cleanupMu.Unlock()
	return r.cleanupTimer != nil
}

// DeleteIfAbandoned 在房间队列里确认所有人都已掉线后再删除
func (rm *RoomManager) DeleteIfAbandoned(id string) bool {
	r := rm.Get(id)
	if r == nil {
		return false
	}
	abandoned := false
	if err := r.Do(func(s *game.Room) { abandoned = s.AllDisconnected() }); err != nil {
		return false
	}
	if abandoned {
		log.Printf("🧹 房间 %s 所有玩家已断开连接，清理房间", id)
		rm.Delete(id)
	}
	return abandoned
}

// SweepIdle 删除超过 idleTimeout 没有活动的房间。notify 在删除前于房间队列里调用，返回被删除的房间号
func (rm *RoomManager) SweepIdle(idleTimeout time.Duration, notify func(r *game.Room)) []string {
	now := time.Now()
	var removed []string

	for _, r := range rm.List() {
		if now.Sub(r.Summary().LastActivity) <= idleTimeout {
			continue
		}
		idle := false
		err := r.Do(func(s *game.Room) {
			if now.Sub(s.LastActivity) <= idleTimeout {
				return
			}
			idle = true
			if notify != nil {
				notify(s)
			}
		})
		if err != nil || !idle {
			continue
		}
		log.Printf("🏠 房间 %s 超时已清理", r.ID)
		rm.Delete(r.ID)
		removed = append(removed, r.ID)
	}
	return removed
}

// RunSweeper 周期性清理空闲房间，直到 ctx 结束
func (rm *RoomManager) RunSweeper(ctx context.Context, interval, idleTimeout time.Duration, notify func(r *game.Room), after func(removed []string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := rm.SweepIdle(idleTimeout, notify)
			if len(removed) > 0 && after != nil {
				after(removed)
			}
		}
	}
}

// Restore 从存储加载所有房间，玩家全部标记为掉线，宽限期内无人重连则删除
func (rm *RoomManager) Restore(ctx context.Context) (int, error) {
	if rm.opts.Store == nil {
		return 0, nil
	}
	snapshots, err := rm.opts.Store.LoadAllRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("load rooms: %w", err)
	}

	restored := 0
	for _, data := range snapshots {
		mod, ok := rm.catalog.Get(data.GameType)
		if !ok {
			log.Printf("⚠️ 跳过未知游戏类型的房间 %s (%s)", data.ID, data.GameType)
			continue
		}
		state, err := Rehydrate(mod, data)
		if err != nil {
			log.Printf("⚠️ 恢复房间 %s 失败: %v", data.ID, err)
			continue
		}
		for _, p := range state.Players {
			p.Disconnected = true
		}

		rm.mu.Lock()
		if _, exists := rm.rooms[state.ID]; exists {
			rm.mu.Unlock()
			continue
		}
		rm.rooms[state.ID] = newRoom(state, rm.opts.InboxSize)
		rm.mu.Unlock()

		id := state.ID
		rm.ScheduleCleanup(id, rm.opts.CleanupGrace, func() { rm.DeleteIfAbandoned(id) })
		restored++
	}

	if restored > 0 {
		log.Printf("♻️ 已从存储恢复 %d 个房间", restored)
	}
	return restored, nil
}
