//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/types"
)

// MockServer 实现 types.ServerInterface 的 mock
type MockServer struct {
	mock.Mock
}

func (m *MockServer) IsMaintenanceMode() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockServer) GetOnlineCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockServer) Broadcast(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockServer) GetClientByID(id string) types.ClientInterface {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(types.ClientInterface)
}

// SimpleServer 内存中的连接表，Broadcast 发给所有已注册的客户端
type SimpleServer struct {
	mu          sync.RWMutex
	clients     map[string]*SimpleClient
	maintenance bool
}

// NewSimpleServer 创建服务器并注册给定客户端
func NewSimpleServer(clients ...*SimpleClient) *SimpleServer {
	s := &SimpleServer{clients: make(map[string]*SimpleClient)}
	for _, c := range clients {
		s.Add(c)
	}
	return s
}

// Add 注册客户端
func (s *SimpleServer) Add(c *SimpleClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

// Remove 注销客户端
func (s *SimpleServer) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

// SetMaintenance 切换维护模式
func (s *SimpleServer) SetMaintenance(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenance = on
}

func (s *SimpleServer) IsMaintenanceMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maintenance
}

func (s *SimpleServer) GetOnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *SimpleServer) Broadcast(msg *protocol.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		c.SendMessage(msg)
	}
}

func (s *SimpleServer) GetClientByID(id string) types.ClientInterface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.clients[id]; ok {
		return c
	}
	return nil
}
