//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/party-games/internal/protocol"
)

// MockClient 实现 types.ClientInterface 的 mock
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetIP() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetRoom() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetRoom(roomID string) {
	m.Called(roomID)
}

func (m *MockClient) SendMessage(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockClient) Close() {
	m.Called()
}

// SimpleClient 记录收到的消息的客户端，不使用 testify（用于不需要断言调用的测试），并发安全
type SimpleClient struct {
	ID string
	IP string

	mu       sync.Mutex
	roomID   string
	messages []*protocol.Message
	closed   bool
}

// NewSimpleClient 创建客户端
func NewSimpleClient(id string) *SimpleClient {
	return &SimpleClient{ID: id, IP: "127.0.0.1"}
}

func (c *SimpleClient) GetID() string { return c.ID }
func (c *SimpleClient) GetIP() string { return c.IP }

func (c *SimpleClient) GetRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *SimpleClient) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

func (c *SimpleClient) SendMessage(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *SimpleClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed 是否调用过 Close
func (c *SimpleClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Messages 已收到消息的副本
func (c *SimpleClient) Messages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*protocol.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// OfType 指定类型的消息
func (c *SimpleClient) OfType(t protocol.MessageType) []*protocol.Message {
	var out []*protocol.Message
	for _, m := range c.Messages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// Last 指定类型的最后一条消息，没有时返回 nil
func (c *SimpleClient) Last(t protocol.MessageType) *protocol.Message {
	msgs := c.OfType(t)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// Reset 清空已收到的消息
func (c *SimpleClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
