package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cristianoliveira/chat-intray/internal/backend"
	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/hooks"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/metrics"
	"github.com/cristianoliveira/chat-intray/internal/notification"
	"github.com/cristianoliveira/chat-intray/internal/session"
	"github.com/cristianoliveira/chat-intray/internal/storage"
	"github.com/cristianoliveira/chat-intray/internal/title"
	"github.com/cristianoliveira/chat-intray/internal/tmux"
	"github.com/cristianoliveira/chat-intray/internal/upload"
	"github.com/cristianoliveira/chat-intray/internal/version"
)

// runtime builds the process-wide collaborators on first use, after the
// root command has loaded configuration.
type runtime struct {
	mu     sync.Mutex
	client *backend.HTTPClient
	kv     storage.KV
	queue  *upload.Queue
}

var appRuntime = &runtime{}

func (r *runtime) Version() string {
	return version.String()
}

func (r *runtime) backend() *backend.HTTPClient {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		r.client = backend.NewFromConfig()
	}
	return r.client
}

func (r *runtime) store() (*storage.UploadedFiles, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.kv == nil {
		kv, err := storage.NewFromConfig()
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		r.kv = kv
	}
	return storage.NewUploadedFiles(r.kv), nil
}

func (r *runtime) uploads() (*upload.Queue, error) {
	store, err := r.store()
	if err != nil {
		return nil, err
	}
	client := r.backend()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queue == nil {
		st := session.SettingsFromConfig()
		r.queue = upload.NewQueue(client, client, store, upload.Options{
			MaxConcurrent: st.MaxConcurrent,
			Folder:        st.UploadFolder,
		})
	}
	return r.queue, nil
}

// newSession wires a live session with the configured title sink and cue.
func (r *runtime) newSession(out io.Writer, m metrics.Recorder) (*session.Session, *hooks.Runner, error) {
	store, err := r.store()
	if err != nil {
		return nil, nil, err
	}
	runner := hooks.NewRunner(hooks.OptionsFromConfig(), logging.GetGlobal())
	if err := runner.Init(); err != nil {
		colors.Warning(err.Error())
	}
	s := session.New(session.Options{
		Settings: session.SettingsFromConfig(),
		Backend:  r.backend(),
		Store:    store,
		Sink:     titleSink(config.Get("title_sink", "terminal"), out),
		Player:   notification.NewCue(runner, out, config.GetBool("cue_bell", true), logging.GetGlobal()),
		Metrics:  m,
	})
	return s, runner, nil
}

func titleSink(kind string, out io.Writer) title.Sink {
	switch kind {
	case "tmux":
		if !tmux.InsideTmux() {
			colors.Warning("title_sink is tmux but not running inside tmux; titles disabled")
			return title.Discard
		}
		return title.NewTmuxSink(tmux.NewDefaultClient(), config.Get("tmux_title_option", "@chat_intray_title"))
	case "none":
		return title.Discard
	default:
		return title.NewTerminalSink(out)
	}
}

// Close waits for uploads and releases storage.
func (r *runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queue != nil {
		r.queue.Close()
		r.queue = nil
	}
	if r.kv != nil {
		if err := r.kv.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close storage: %v\n", err)
		}
		r.kv = nil
	}
}
