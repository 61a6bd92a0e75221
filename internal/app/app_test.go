package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/status"
	"github.com/cristianoliveira/chat-intray/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func quietColors(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	colors.SetOutput(&out, &out)
	t.Cleanup(func() { colors.SetOutput(nil, nil) })
	return &out
}

type mockStatusClient struct {
	mock.Mock
}

func (m *mockStatusClient) GetUnreadCounts(ctx context.Context) ([]domain.ChannelUnread, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]domain.ChannelUnread)
	return entries, args.Error(1)
}

type mockUploads struct {
	mock.Mock
}

func (m *mockUploads) Attach(ctx context.Context, channelID string, raws []domain.RawFile) []string {
	args := m.Called(ctx, channelID, raws)
	return args.Get(0).([]string)
}

func (m *mockUploads) Wait() { m.Called() }

func (m *mockUploads) Files(channelID string) []domain.QueuedFile {
	args := m.Called(channelID)
	return args.Get(0).([]domain.QueuedFile)
}

func (m *mockUploads) Remove(ctx context.Context, channelID, id string) error {
	return m.Called(ctx, channelID, id).Error(0)
}

func (m *mockUploads) Send(ctx context.Context, channelID string) error {
	return m.Called(ctx, channelID).Error(0)
}

func TestUseCaseConstructorsPanicOnNil(t *testing.T) {
	require.PanicsWithValue(t, "NewStatusUseCase: client dependency cannot be nil", func() { NewStatusUseCase(nil) })
	require.PanicsWithValue(t, "NewAttachUseCase: client dependency cannot be nil", func() { NewAttachUseCase(nil) })
	require.PanicsWithValue(t, "NewFilesUseCase: client dependency cannot be nil", func() { NewFilesUseCase(nil) })
	require.PanicsWithValue(t, "NewRemoveUseCase: client dependency cannot be nil", func() { NewRemoveUseCase(nil) })
	require.PanicsWithValue(t, "NewSendUseCase: client dependency cannot be nil", func() { NewSendUseCase(nil) })
	require.PanicsWithValue(t, "NewWatchUseCase: client dependency cannot be nil", func() { NewWatchUseCase(nil, "") })
}

func TestDetermineStatusFormat(t *testing.T) {
	assert.Equal(t, "compact", DetermineStatusFormat("", "", false))
	assert.Equal(t, "json", DetermineStatusFormat("compact", "json", false))
	assert.Equal(t, "count-only", DetermineStatusFormat("count-only", "json", true))
}

func TestStatusExecute(t *testing.T) {
	client := &mockStatusClient{}
	client.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{
		{ChannelID: "c1", ChannelName: "general", UnreadCount: 2},
		{ChannelID: "c2", ChannelName: "random", UnreadCount: 1},
	}, nil)

	var out bytes.Buffer
	require.NoError(t, NewStatusUseCase(client).Execute(context.Background(), "compact", &out))
	assert.Equal(t, "[3] general:2,random:1\n", out.String())
}

func TestStatusExecuteBackendError(t *testing.T) {
	client := &mockStatusClient{}
	client.On("GetUnreadCounts", mock.Anything).Return(nil, errors.New("offline"))

	err := NewStatusUseCase(client).Execute(context.Background(), "compact", io.Discard)
	require.EqualError(t, err, "status: offline")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestAttachUploadsOpenedFiles(t *testing.T) {
	quietColors(t)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "hello")
	b := writeFile(t, dir, "b.txt", "world!")

	client := &mockUploads{}
	client.On("Attach", mock.Anything, "general", mock.MatchedBy(func(raws []domain.RawFile) bool {
		return len(raws) == 2 && raws[0].Name == "a.txt" && raws[0].Size == 5 && raws[1].Name == "b.txt"
	})).Return([]string{"id-a", "id-b"})
	client.On("Wait").Return()
	client.On("Files", "general").Return([]domain.QueuedFile{
		{ID: "old", Status: domain.StatusUploaded, ServerFileID: "s0"},
		{ID: "id-a", Status: domain.StatusUploaded, ServerFileID: "s1"},
		{ID: "id-b", Status: domain.StatusError, Error: "too large"},
	})

	files, err := NewAttachUseCase(client).Execute(context.Background(), "general", []string{a, b, filepath.Join(dir, "missing.txt")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadsFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.Len(t, files, 2)
	assert.Equal(t, "id-a", files[0].ID)
	assert.Equal(t, "id-b", files[1].ID)
	client.AssertExpectations(t)
}

func TestAttachWithoutUsableFiles(t *testing.T) {
	client := &mockUploads{}
	_, err := NewAttachUseCase(client).Execute(context.Background(), "general", []string{t.TempDir()})
	require.ErrorContains(t, err, "is a directory")

	_, err = NewAttachUseCase(client).Execute(context.Background(), "general", nil)
	require.EqualError(t, err, "attach: no files given")
	client.AssertNotCalled(t, "Attach", mock.Anything, mock.Anything, mock.Anything)
}

func TestFilesExecute(t *testing.T) {
	quietColors(t)
	client := &mockUploads{}
	client.On("Files", "general").Return([]domain.QueuedFile{
		{ID: "a1", FileName: "a.txt", Status: domain.StatusUploaded, ServerFileID: "s1"},
	})
	client.On("Files", "empty").Return([]domain.QueuedFile{})

	var out bytes.Buffer
	require.NoError(t, NewFilesUseCase(client).Execute("general", "simple", &out))
	assert.Equal(t, "a1 uploaded a.txt\n", out.String())

	out.Reset()
	require.NoError(t, NewFilesUseCase(client).Execute("empty", "json", &out))
	assert.Equal(t, "[]\n", out.String())

	require.Error(t, NewFilesUseCase(client).Execute("general", "yaml", &out))
}

func TestRemoveReportsDeleteFailureAsWarning(t *testing.T) {
	out := quietColors(t)
	client := &mockUploads{}
	client.On("Remove", mock.Anything, "general", "a1").Return(errors.New("delete server file s1: 500"))
	client.On("Remove", mock.Anything, "", "a1").Return(upload.ErrEmptyChannel)

	require.NoError(t, NewRemoveUseCase(client).Execute(context.Background(), "general", "a1"))
	assert.Contains(t, out.String(), "removed locally")

	err := NewRemoveUseCase(client).Execute(context.Background(), "", "a1")
	assert.ErrorIs(t, err, upload.ErrEmptyChannel)
}

func TestSendExecute(t *testing.T) {
	out := quietColors(t)
	client := &mockUploads{}
	client.On("Files", "general").Return([]domain.QueuedFile{
		{ID: "a1", Status: domain.StatusUploaded, ServerFileID: "s1"},
		{ID: "a2", Status: domain.StatusError},
	})
	client.On("Send", mock.Anything, "general").Return(nil).Once()
	client.On("Send", mock.Anything, "general").Return(errors.New("boom"))

	require.NoError(t, NewSendUseCase(client).Execute(context.Background(), "general"))
	assert.Contains(t, out.String(), "Sent 1 file(s) to general")
	require.EqualError(t, NewSendUseCase(client).Execute(context.Background(), "general"), "send: boom")
}

func TestSendNothingUploaded(t *testing.T) {
	quietColors(t)
	client := &mockUploads{}
	client.On("Files", "general").Return([]domain.QueuedFile{})

	require.NoError(t, NewSendUseCase(client).Execute(context.Background(), "general"))
	client.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

type fakeWatch struct {
	visible []bool
	read    []string
	unread  []string
	summary status.Summary
}

func (f *fakeWatch) SetVisible(_ context.Context, v bool) { f.visible = append(f.visible, v) }
func (f *fakeWatch) MarkChannelRead(ch string)            { f.read = append(f.read, ch) }
func (f *fakeWatch) MarkChannelManuallyUnread(ch string)  { f.unread = append(f.unread, ch) }
func (f *fakeWatch) Summary() status.Summary              { return f.summary }

func TestWatchServe(t *testing.T) {
	client := &fakeWatch{summary: status.Summary{
		Entries: []domain.ChannelUnread{{ChannelID: "general", UnreadCount: 2}},
		Manual:  []string{"design"},
	}}
	input := strings.Join([]string{"blur", "", "read general", "UNREAD design", "read", "status", "dance", "focus"}, "\n")

	var out bytes.Buffer
	require.NoError(t, NewWatchUseCase(client, "count-only").Serve(context.Background(), strings.NewReader(input), &out))

	assert.Equal(t, []bool{false, true}, client.visible)
	assert.Equal(t, []string{"general"}, client.read)
	assert.Equal(t, []string{"design"}, client.unread)
	assert.Equal(t, "read requires a channel id\n3\nunknown command: dance\n", out.String())
}

func TestWatchServeStopsOnCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWatchUseCase(&fakeWatch{}, "").Serve(ctx, r, io.Discard) }()

	cancel()
	require.NoError(t, <-done)
}

func TestWatchInvalidFormat(t *testing.T) {
	err := NewWatchUseCase(&fakeWatch{}, "{{nope}}").Handle(context.Background(), "status", io.Discard)
	require.Error(t, err)
}
