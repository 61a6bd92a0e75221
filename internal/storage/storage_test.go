package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/storage/sqlite"
	"github.com/stretchr/testify/require"
)

func TestFileKVPutGetDelete(t *testing.T) {
	kv, err := NewFileKV(filepath.Join(t.TempDir(), "kv"))
	require.NoError(t, err)

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Put("a/b", []byte("value")))
	value, ok, err := kv.Get("a/b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value", string(value))

	info, err := os.Stat(filepath.Join(kv.Dir(), "a%2Fb.json"))
	require.NoError(t, err)
	require.Equal(t, FileModeFile, info.Mode().Perm())

	require.NoError(t, kv.Delete("a/b"))
	require.NoError(t, kv.Delete("a/b"))
	_, ok, err = kv.Get("a/b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileKVRejectsEmptyKey(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	require.ErrorIs(t, kv.Put("", []byte("x")), ErrInvalidKey)
	_, _, err = kv.Get("")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestFileKVKeysSkipsLocksAndTempFiles(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.Put("uploaded-files-b", []byte("1")))
	require.NoError(t, kv.Put("uploaded-files-a", []byte("1")))
	require.NoError(t, kv.Put("other", []byte("1")))
	require.NoError(t, os.Mkdir(filepath.Join(kv.Dir(), "stale.json.lock"), FileModeDir))
	require.NoError(t, os.WriteFile(filepath.Join(kv.Dir(), ".tmp-123"), []byte("x"), FileModeFile))

	keys, err := kv.Keys("uploaded-files-")
	require.NoError(t, err)
	require.Equal(t, []string{"uploaded-files-a", "uploaded-files-b"}, keys)
}

func TestLockIsExclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "x.lock")
	first := NewLock(dir)
	require.NoError(t, first.Acquire())

	second := NewLock(dir)
	second.timeout = 50 * time.Millisecond
	require.ErrorIs(t, second.Acquire(), ErrLockTimeout)

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestNewForBackend(t *testing.T) {
	tmp := t.TempDir()

	kv, err := NewForBackend("json", tmp)
	require.NoError(t, err)
	require.IsType(t, &FileKV{}, kv)
	require.NoError(t, kv.Close())

	kv, err = NewForBackend("SQLite", tmp)
	require.NoError(t, err)
	require.IsType(t, &sqlite.KV{}, kv)
	require.NoError(t, kv.Close())
	require.FileExists(t, filepath.Join(tmp, dbFileName))

	_, err = NewForBackend("json", " ")
	require.Error(t, err)
}

func TestNewForBackendUnknownFallsBackToJSON(t *testing.T) {
	colors.SetOutput(nil, &discard{})
	t.Cleanup(func() { colors.SetOutput(nil, nil) })

	kv, err := NewForBackend("postgres", t.TempDir())
	require.NoError(t, err)
	require.IsType(t, &FileKV{}, kv)
}

func TestNewFromConfigUsesStateDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("CHAT_INTRAY_STATE_DIR", filepath.Join(tmp, "state"))
	config.Load()

	kv, err := NewFromConfig()
	require.NoError(t, err)
	defer kv.Close()
	require.Equal(t, filepath.Join(tmp, "state", kvDirName), kv.(*FileKV).Dir())
}

func TestUploadedFilesRoundTripAcrossBackends(t *testing.T) {
	files := []domain.QueuedFile{
		{ID: "f1", ChannelID: "general", FileName: "a.png", SizeBytes: 10, EnqueuedAtMillis: 1, Status: domain.StatusUploaded, ProgressPercent: 100, ServerFileID: "s1", ServerFileURL: "/files/s1"},
		{ID: "f2", ChannelID: "general", FileName: "b.txt", SizeBytes: 3, EnqueuedAtMillis: 2, Status: domain.StatusUploaded, ProgressPercent: 100, ServerFileID: "s2", ServerFileURL: "/files/s2"},
	}

	for _, backend := range []string{BackendJSON, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			kv, err := NewForBackend(backend, t.TempDir())
			require.NoError(t, err)
			defer kv.Close()
			uploaded := NewUploadedFiles(kv)

			loaded, err := uploaded.Load("general")
			require.NoError(t, err)
			require.Empty(t, loaded)

			require.NoError(t, uploaded.Save("general", files))
			loaded, err = uploaded.Load("general")
			require.NoError(t, err)
			require.Equal(t, files, loaded)

			raw, ok, err := kv.Get("uploaded-files-general")
			require.NoError(t, err)
			require.True(t, ok)
			require.Contains(t, string(raw), `"s1"`)

			channels, err := uploaded.Channels()
			require.NoError(t, err)
			require.Equal(t, []string{"general"}, channels)

			require.NoError(t, uploaded.Save("general", nil))
			_, ok, err = kv.Get("uploaded-files-general")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestUploadedFilesSurviveNewStoreInstance(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")
	first, err := NewFileKV(dir)
	require.NoError(t, err)
	file := domain.QueuedFile{ID: "f1", ChannelID: "c1", FileName: "a", Status: domain.StatusUploaded, ProgressPercent: 100, ServerFileID: "s1"}
	require.NoError(t, NewUploadedFiles(first).Save("c1", []domain.QueuedFile{file}))
	require.NoError(t, first.Close())

	second, err := NewFileKV(dir)
	require.NoError(t, err)
	loaded, err := NewUploadedFiles(second).Load("c1")
	require.NoError(t, err)
	require.Equal(t, []domain.QueuedFile{file}, loaded)
}

func TestUploadedFilesCorruptValue(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.Put(UploadedKey("c1"), []byte("{not json")))
	_, err = NewUploadedFiles(kv).Load("c1")
	require.Error(t, err)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
