//go:build !production

package game

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/party-games/internal/protocol"
)

// SentMessage 记录的一条出站消息，To 为空表示广播
type SentMessage struct {
	To  string
	Msg *protocol.Message
}

// RecordingOutbox 记录所有出站消息的 Outbox
type RecordingOutbox struct {
	mu   sync.Mutex
	sent []SentMessage
}

func (o *RecordingOutbox) Send(playerID string, msg *protocol.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, SentMessage{To: playerID, Msg: msg})
}

func (o *RecordingOutbox) Broadcast(msg *protocol.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, SentMessage{Msg: msg})
}

// Messages 返回已记录消息的副本
func (o *RecordingOutbox) Messages() []SentMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]SentMessage, len(o.sent))
	copy(out, o.sent)
	return out
}

// OfType 过滤出指定类型的消息
func (o *RecordingOutbox) OfType(t protocol.MessageType) []SentMessage {
	var out []SentMessage
	for _, m := range o.Messages() {
		if m.Msg.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// Reset 清空记录
func (o *RecordingOutbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = nil
}

// MockOutbox Outbox mock
type MockOutbox struct {
	mock.Mock
}

func (m *MockOutbox) Send(playerID string, msg *protocol.Message) {
	m.Called(playerID, msg)
}

func (m *MockOutbox) Broadcast(msg *protocol.Message) {
	m.Called(msg)
}

// SeatPlayers 测试用：按顺序创建玩家，ID 与 AnchorID 相同
func SeatPlayers(r *Room, mod Module, ids ...string) {
	for _, id := range ids {
		p := &Player{ID: id, AnchorID: id, Username: id, Color: PickColor(r, "")}
		if mod != nil {
			mod.InitPlayer(p)
		}
		r.Players = append(r.Players, p)
	}
}
