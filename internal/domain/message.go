package domain

// MessageTypeFile marks a message that carries one attachment.
const MessageTypeFile = "File"

// MessagePayload is the body of a message creation request.
type MessagePayload struct {
	ClientID    string `json:"client_id,omitempty"`
	Content     string `json:"content,omitempty"`
	MessageType string `json:"message_type"`
	FileID      string `json:"file_id,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
	FileName    string `json:"file_name,omitempty"`
}

// FileMessage builds the payload that posts an uploaded file to its channel.
func FileMessage(f QueuedFile) MessagePayload {
	return MessagePayload{
		ClientID:    f.ID,
		MessageType: MessageTypeFile,
		FileID:      f.ServerFileID,
		FileURL:     f.ServerFileURL,
		FileName:    f.FileName,
	}
}

// MessageRecord is the message the backend created.
type MessageRecord struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channel_id"`
	Owner       string `json:"owner,omitempty"`
	MessageType string `json:"message_type"`
	FileURL     string `json:"file_url,omitempty"`
	Creation    string `json:"creation,omitempty"`
}
