package events

import (
	json "github.com/goccy/go-json"
)

// Envelope is the frame exchanged over the event stream.
type Envelope struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

const (
	// OpUnreadChannelCountUpdated carries a domain.UnreadEvent.
	OpUnreadChannelCountUpdated = "unread_channel_count_updated"
	// OpHeartbeat is sent by the client to keep the stream alive.
	OpHeartbeat = "heartbeat"
	// OpHeartbeatAck is the server's reply to a heartbeat.
	OpHeartbeatAck = "heartbeat_ack"
)
