package backend

import (
	"context"

	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of Client.
//
// Example usage:
//
//	m := new(MockClient)
//	m.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "general", UnreadCount: 2}}, nil)
//	counts, err := m.GetUnreadCounts(ctx)
//	m.AssertExpectations(t)
type MockClient struct {
	mock.Mock
}

var _ Client = (*MockClient)(nil)

// GetUnreadCounts returns the configured entries.
func (m *MockClient) GetUnreadCounts(ctx context.Context) ([]domain.ChannelUnread, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]domain.ChannelUnread)
	return entries, args.Error(1)
}

// GetUnreadCountForChannel returns the configured entry.
func (m *MockClient) GetUnreadCountForChannel(ctx context.Context, channelID string) (domain.ChannelUnread, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).(domain.ChannelUnread), args.Error(1)
}

// UploadFile returns the configured result. Progress is not reported;
// use Run on the expectation to drive onProgress.
func (m *MockClient) UploadFile(ctx context.Context, file domain.RawFile, dest domain.Destination, onProgress func(float64)) (domain.UploadedFile, error) {
	args := m.Called(ctx, file, dest, onProgress)
	return args.Get(0).(domain.UploadedFile), args.Error(1)
}

// DeleteFile returns the configured error.
func (m *MockClient) DeleteFile(ctx context.Context, serverFileID string) error {
	args := m.Called(ctx, serverFileID)
	return args.Error(0)
}

// CreateMessage returns the configured record.
func (m *MockClient) CreateMessage(ctx context.Context, channelID string, payload domain.MessagePayload) (domain.MessageRecord, error) {
	args := m.Called(ctx, channelID, payload)
	return args.Get(0).(domain.MessageRecord), args.Error(1)
}
