package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/stretchr/testify/assert"
)

type recordingHooks struct {
	points []string
	envs   []map[string]string
	err    error
}

func (r *recordingHooks) Run(_ context.Context, hookPoint string, env map[string]string) error {
	r.points = append(r.points, hookPoint)
	r.envs = append(r.envs, env)
	return r.err
}

func sampleEvent() domain.UnreadEvent {
	return domain.UnreadEvent{
		ChannelID:             "general",
		ChannelName:           "General",
		SentBy:                "bob@example.com",
		LastMessageSenderName: "Bob",
		LastMessageTimestamp:  "2026-03-01 09:00:00",
		LastMessageDetails:    `{"content":"lunch?"}`,
	}
}

func TestEnv(t *testing.T) {
	env := Env(sampleEvent())
	assert.Equal(t, map[string]string{
		"CHANNEL_ID":        "general",
		"CHANNEL_NAME":      "General",
		"SENDER":            "Bob",
		"IS_DIRECT_MESSAGE": "false",
		"MESSAGE_TIMESTAMP": "2026-03-01 09:00:00",
		"MESSAGE_PREVIEW":   "lunch?",
	}, env)
}

func TestCueRingsBellAndRunsHooks(t *testing.T) {
	hooks := &recordingHooks{}
	var out bytes.Buffer
	c := NewCue(hooks, &out, true, nil)

	c.Cue(context.Background(), sampleEvent())

	assert.Equal(t, "\a", out.String())
	assert.Equal(t, []string{HookPoint}, hooks.points)
	assert.Equal(t, "general", hooks.envs[0]["CHANNEL_ID"])
}

func TestCueWithoutBell(t *testing.T) {
	var out bytes.Buffer
	c := NewCue(nil, &out, false, nil)
	c.Cue(context.Background(), sampleEvent())
	assert.Empty(t, out.String())
}

func TestCueSwallowsHookErrors(t *testing.T) {
	hooks := &recordingHooks{err: errors.New("abort")}
	c := NewCue(hooks, nil, true, nil)
	assert.NotPanics(t, func() { c.Cue(context.Background(), sampleEvent()) })
	assert.Len(t, hooks.points, 1)
}

func TestPlayerFunc(t *testing.T) {
	var got string
	var p Player = PlayerFunc(func(_ context.Context, evt domain.UnreadEvent) { got = evt.ChannelID })
	p.Cue(context.Background(), sampleEvent())
	assert.Equal(t, "general", got)
}
