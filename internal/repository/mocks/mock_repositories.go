package mocks

import (
	"context"
	"time"

	"dropapi/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Store(ctx context.Context, rec *model.FileRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockFileRepository) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

type MockAliasRepository struct {
	mock.Mock
}

func (m *MockAliasRepository) Store(ctx context.Context, code, fileID string) error {
	args := m.Called(ctx, code, fileID)
	return args.Error(0)
}

func (m *MockAliasRepository) Resolve(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

type MockRateLimitRepository struct {
	mock.Mock
}

func (m *MockRateLimitRepository) Hit(ctx context.Context, key string, window time.Duration, max int) (bool, error) {
	args := m.Called(ctx, key, window, max)
	return args.Bool(0), args.Error(1)
}
