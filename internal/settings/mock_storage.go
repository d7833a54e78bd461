package settings

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of Storage for testing.
type MockStorage struct {
	mock.Mock
}

// Read is a mock implementation of Storage.Read.
func (m *MockStorage) Read(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// Write is a mock implementation of Storage.Write.
func (m *MockStorage) Write(ctx context.Context, data []byte) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}
