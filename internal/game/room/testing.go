//go:build !production

package room

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/party-games/internal/server/storage"
)

// MockStore 房间快照存储 mock
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveRoom(ctx context.Context, roomID string, data *storage.RoomData) error {
	args := m.Called(ctx, roomID, data)
	return args.Error(0)
}

func (m *MockStore) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockStore) LoadAllRooms(ctx context.Context) ([]*storage.RoomData, error) {
	args := m.Called(ctx)
	rooms, _ := args.Get(0).([]*storage.RoomData)
	return rooms, args.Error(1)
}
