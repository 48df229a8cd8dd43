package mocks

import (
	"context"
	"io"

	"dropapi/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockDropService struct {
	mock.Mock
}

func (m *MockDropService) Upload(ctx context.Context, r io.Reader, filename, contentType, clientIP string) (*model.UploadResult, error) {
	args := m.Called(ctx, r, filename, contentType, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadResult), args.Error(1)
}

func (m *MockDropService) Download(ctx context.Context, idOrCode string) (*model.FileRecord, io.ReadCloser, error) {
	args := m.Called(ctx, idOrCode)
	var rec *model.FileRecord
	if args.Get(0) != nil {
		rec = args.Get(0).(*model.FileRecord)
	}
	var rc io.ReadCloser
	if args.Get(1) != nil {
		rc = args.Get(1).(io.ReadCloser)
	}
	return rec, rc, args.Error(2)
}

func (m *MockDropService) Health(ctx context.Context) *model.HealthStatus {
	args := m.Called(ctx)
	return args.Get(0).(*model.HealthStatus)
}
