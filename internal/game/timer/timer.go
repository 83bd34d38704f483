// Package timer 驱动房间倒计时，每个房间至多一个，所有的递减和超时都在房间队列里执行。
package timer

import (
	"log"
	"sync"
	"time"

	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/room"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

// DefaultInterval 默认每秒一跳
const DefaultInterval = time.Second

// Publisher 会话层提供的出口
type Publisher interface {
	// Outbox 房间的消息出口
	Outbox(r *game.Room) game.Outbox
	// Publish 推送按观察者过滤的快照并持久化，在房间队列里调用
	Publish(r *game.Room)
}

type countdown struct {
	gen  uint64
	stop chan struct{}
}

// Coordinator 倒计时协调器
type Coordinator struct {
	rooms    *room.RoomManager
	interval time.Duration

	mu        sync.Mutex
	publisher Publisher
	running   map[string]*countdown
	gen       uint64
}

// NewCoordinator 创建协调器，interval <= 0 时使用 DefaultInterval
func NewCoordinator(rooms *room.RoomManager, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Coordinator{
		rooms:    rooms,
		interval: interval,
		running:  make(map[string]*countdown),
	}
	rooms.SetStopHook(c.Stop)
	return c
}

// SetPublisher 设置消息出口
func (c *Coordinator) SetPublisher(p Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publisher = p
}

func (c *Coordinator) getPublisher() Publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publisher
}

// Start 开始倒计时，已在运行时什么也不做
func (c *Coordinator) Start(roomID string) {
	c.mu.Lock()
	if _, ok := c.running[roomID]; ok {
		c.mu.Unlock()
		return
	}
	c.gen++
	cd := &countdown{gen: c.gen, stop: make(chan struct{})}
	c.running[roomID] = cd
	c.mu.Unlock()

	go c.run(roomID, cd)
}

// Stop 停止倒计时，可重复调用
func (c *Coordinator) Stop(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cd, ok := c.running[roomID]; ok {
		close(cd.stop)
		delete(c.running, roomID)
	}
}

// StopAll 停止所有倒计时
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cd := range c.running {
		close(cd.stop)
		delete(c.running, id)
	}
}

// Running 房间是否有倒计时在运行
func (c *Coordinator) Running(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.running[roomID]
	return ok
}

// Rearm 动作处理后调用：playing 且还有剩余时间则开始倒计时，否则停止
func (c *Coordinator) Rearm(r *game.Room) {
	if r.Phase == game.PhasePlaying && r.TimeLeft > 0 {
		c.Start(r.ID)
	} else {
		c.Stop(r.ID)
	}
}

// stopGen 只停止指定代的倒计时
func (c *Coordinator) stopGen(roomID string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cd, ok := c.running[roomID]; ok && cd.gen == gen {
		close(cd.stop)
		delete(c.running, roomID)
	}
}

func (c *Coordinator) current(roomID string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cd, ok := c.running[roomID]
	return ok && cd.gen == gen
}

func (c *Coordinator) run(roomID string, cd *countdown) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cd.stop:
			return
		case <-ticker.C:
			rm := c.rooms.Get(roomID)
			if rm == nil || !rm.Submit(func(r *game.Room) { c.tick(r, cd.gen) }) {
				c.stopGen(roomID, cd.gen)
				return
			}
		}
	}
}

// tick 在房间队列里执行，停止之前排进队列的跳动会被代号检查忽略
func (c *Coordinator) tick(r *game.Room, gen uint64) {
	if !c.current(r.ID, gen) {
		return
	}
	if r.TimeLeft <= 0 {
		c.stopGen(r.ID, gen)
		return
	}

	pub := c.getPublisher()
	r.TimeLeft--
	if pub != nil {
		pub.Outbox(r).Broadcast(codec.MustNewMessage(protocol.MsgTimerUpdate, protocol.TimerUpdatePayload{
			SecondsLeft: r.TimeLeft,
		}))
	}
	if r.TimeLeft > 0 {
		return
	}

	c.stopGen(r.ID, gen)
	c.expire(r, pub)
}

func (c *Coordinator) expire(r *game.Room, pub Publisher) {
	if pub == nil {
		return
	}
	out := pub.Outbox(r)

	mod, ok := c.rooms.Catalog().Get(r.GameType)
	if !ok {
		return
	}
	if th, ok := mod.(game.TimeoutHandler); ok {
		res := th.OnTimeout(out, r)
		if res.Outcome == game.OutcomeChanged {
			pub.Publish(r)
			c.Rearm(r)
		}
		return
	}

	for _, p := range r.Players {
		p.IsDoneDrawing = true
	}
	pub.Publish(r)
	game.ToastAll(out, protocol.ToastWarning, "⏰ 时间到！")
	log.Printf("⏰ 房间 %s 倒计时结束", r.ID)
}
