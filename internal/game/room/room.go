package room

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/logger"
)

// ErrRoomClosed 房间已关闭，任务被丢弃
var ErrRoomClosed = errors.New("room closed")

const defaultInboxSize = 256

// Job 在房间事件队列中执行的任务，只有它能读写 *game.Room
type Job func(r *game.Room)

// envelope 队列中的任务，done 在任务执行并刷新摘要后关闭
type envelope struct {
	job  Job
	done chan struct{}
}

// Summary 房间的只读摘要，每个任务执行后刷新，供跨房间读取（房间列表、昵称校验）
type Summary struct {
	ID             string
	GameType       string
	Phase          game.Phase
	PlayerCount    int
	ConnectedCount int
	TakenColors    []string
	ActiveNames    []string
	Settings       json.RawMessage
	LastActivity   time.Time
}

// Room 一个房间的事件队列，所有事件串行执行
type Room struct {
	ID       string
	GameType string

	state   *game.Room
	inbox   chan envelope
	done    chan struct{}
	once    sync.Once
	summary atomic.Pointer[Summary]

	// 清理定时器
	cleanupMu    sync.Mutex
	cleanupTimer *time.Timer
	cleanupGen   uint64

	// 持久化顺序
	persistMu sync.Mutex
	saveSeq   atomic.Uint64
	savedSeq  uint64
	deleted   atomic.Bool
}

func newRoom(state *game.Room, inboxSize int) *Room {
	if inboxSize <= 0 {
		inboxSize = defaultInboxSize
	}
	r := &Room{
		ID:       state.ID,
		GameType: state.GameType,
		state:    state,
		inbox:    make(chan envelope, inboxSize),
		done:     make(chan struct{}),
	}
	r.refreshSummary()
	go r.loop()
	return r
}

func (r *Room) loop() {
	for {
		select {
		case <-r.done:
			return
		case env := <-r.inbox:
			r.run(env)
		}
	}
}

func (r *Room) run(env envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.LogPanic(rec)
		}
		r.refreshSummary()
		if env.done != nil {
			close(env.done)
		}
	}()
	env.job(r.state)
}

func (r *Room) refreshSummary() {
	s := r.state
	sum := &Summary{
		ID:             s.ID,
		GameType:       s.GameType,
		Phase:          s.Phase,
		PlayerCount:    len(s.Players),
		ConnectedCount: s.ConnectedCount(),
		TakenColors:    s.TakenColors(),
		LastActivity:   s.LastActivity,
	}
	for _, p := range s.Players {
		if !p.Disconnected {
			sum.ActiveNames = append(sum.ActiveNames, p.Username)
		}
	}
	if s.Settings != nil {
		if raw, err := json.Marshal(s.Settings); err == nil {
			sum.Settings = raw
		}
	}
	r.summary.Store(sum)
}

// Summary 最近一次任务执行后的摘要
func (r *Room) Summary() *Summary {
	return r.summary.Load()
}

// Submit 把任务放入队列，房间已关闭时返回 false
func (r *Room) Submit(job Job) bool {
	return r.enqueue(envelope{job: job})
}

func (r *Room) enqueue(env envelope) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case <-r.done:
		return false
	case r.inbox <- env:
		return true
	}
}

// Do 提交任务并等待执行完成（包括摘要刷新）。不能在本房间自己的任务里调用
func (r *Room) Do(job Job) error {
	finished := make(chan struct{})
	var started atomic.Bool
	wrapped := func(s *game.Room) {
		started.Store(true)
		job(s)
	}
	if !r.enqueue(envelope{job: wrapped, done: finished}) {
		return ErrRoomClosed
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		// 任务已经开始执行时会跑完
		if started.Load() {
			<-finished
			return nil
		}
		select {
		case <-finished:
			return nil
		default:
			return ErrRoomClosed
		}
	}
}

// Closed 房间是否已关闭
func (r *Room) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// close 停止事件循环，正在执行的任务会跑完，之后的任务被丢弃
func (r *Room) close() {
	r.once.Do(func() { close(r.done) })
}
