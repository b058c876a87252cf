package core

import "time"

// MessageType tags the kind of content a message carries.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypePhoto    MessageType = "photo"
	MessageTypeVideo    MessageType = "video"
	MessageTypeDocument MessageType = "document"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeOther    MessageType = "other"
)

// MessageTypes lists every valid message type tag.
var MessageTypes = []MessageType{
	MessageTypeText,
	MessageTypePhoto,
	MessageTypeVideo,
	MessageTypeDocument,
	MessageTypeSticker,
	MessageTypeOther,
}

// Message is a single archived Telegram message.
// The (ChatID, ID) pair is unique. Embedding is nil until the backfill
// pipeline (or inline ingestion enrichment) attaches one; rows are never
// deleted by this system.
type Message struct {
	ID     int64
	ChatID int64
	Type   MessageType

	// Text is the message text or media caption. Empty for pure media.
	Text string

	// Embedding is the semantic vector for Text. Nil until computed.
	Embedding []float32

	// Optional linkage to other messages.
	ReplyToID         *int64
	ForwardFromChatID *int64
	ForwardFromMsgID  *int64

	Views    int
	Forwards int

	Date       time.Time // When the message was sent on Telegram
	InsertedAt time.Time // When the row was first archived
}

// HasText reports whether the message carries embeddable text content.
// Whitespace-only text does not count.
func (m *Message) HasText() bool {
	for _, r := range m.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// Chat is a Telegram chat known to the archive.
type Chat struct {
	ID   int64
	Name string
	Type string // private, group, supergroup, channel

	LastMessage  string // Preview of the most recent message
	LastAt       time.Time
	SyncedAt     time.Time
	MessageCount int

	// FolderID groups the chat into a Folder. Nil when unfiled.
	FolderID *int64
}

// Folder groups chats for display.
type Folder struct {
	ID    int64
	Title string
	Emoji string
}

// SyncState is the per-chat ingestion high-water mark.
type SyncState struct {
	ChatID        int64
	LastMessageID int64
	SyncedAt      time.Time
}

// SearchResult pairs a message with its similarity score (1 - cosine
// distance against the query embedding).
type SearchResult struct {
	Message *Message
	Score   float32
}
