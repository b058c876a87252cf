package storage

import (
	"context"
	"time"

	"github.com/tgvault/tgvault/core"
)

// MessageKey identifies a message row by its (chat, message) pair.
type MessageKey struct {
	ChatID int64
	ID     int64
}

// BackfillFilter selects messages eligible for embedding backfill:
// rows with a null embedding, optionally scoped to a single chat.
type BackfillFilter struct {
	// ChatID restricts eligibility to one chat when non-nil.
	ChatID *int64

	// After is an in-run keyset cursor. When non-nil, only rows ordered
	// strictly after (ChatID, ID) are returned, so a run never fetches the
	// same row twice even if a failed batch leaves its embeddings null.
	After *MessageKey
}

// SearchFilter constrains a similarity search.
type SearchFilter struct {
	ChatID *int64
	Type   *core.MessageType
	From   *time.Time
	To     *time.Time

	// Limit caps the number of results. Zero means DefaultSearchLimit.
	Limit  int
	Offset int
}

// DefaultSearchLimit is applied when SearchFilter.Limit is zero.
const DefaultSearchLimit = 10

// MessageRepository provides operations for archived messages.
// Implementations must be thread-safe and support concurrent access.
type MessageRepository interface {
	// InsertMessages inserts messages with insert-or-skip-on-conflict
	// semantics keyed by (chat_id, id): re-inserting an already-seen
	// message is a no-op, not an error. Returns the number of rows
	// actually inserted.
	InsertMessages(ctx context.Context, msgs ...*core.Message) (int, error)

	// GetMessage retrieves a single message.
	// Returns ErrNotFound if the row doesn't exist.
	GetMessage(ctx context.Context, chatID, msgID int64) (*core.Message, error)

	// ListMessages returns messages for a chat using keyset pagination:
	// rows with id < beforeID, newest first, up to limit. beforeID <= 0
	// means "from the latest".
	ListMessages(ctx context.Context, chatID, beforeID int64, limit int) ([]*core.Message, error)

	// CountMissingEmbeddings counts rows matching the backfill filter.
	// The cursor field of the filter is ignored for counting.
	CountMissingEmbeddings(ctx context.Context, filter BackfillFilter) (int, error)

	// MissingEmbeddings fetches up to limit rows with a null embedding,
	// ordered by (chat_id, id) so the filter cursor is stable.
	MissingEmbeddings(ctx context.Context, filter BackfillFilter, limit int) ([]*core.Message, error)

	// UpdateEmbedding attaches an embedding to a message. Idempotent:
	// writing the same vector twice converges to the same row state.
	// Returns ErrNotFound if the row doesn't exist.
	UpdateEmbedding(ctx context.Context, chatID, msgID int64, vector []float32) error

	// SearchSimilar returns messages ordered by descending cosine
	// similarity (1 - cosine distance) to the query embedding. Rows with
	// a null embedding are excluded; all supplied filters apply.
	SearchSimilar(ctx context.Context, embedding []float32, filter SearchFilter) ([]*core.SearchResult, error)
}

// ChatRepository provides operations for chats.
type ChatRepository interface {
	// UpsertChat creates the chat if absent, otherwise overwrites its
	// mutable fields (name, type, preview, counts, timestamps, folder).
	UpsertChat(ctx context.Context, chat *core.Chat) error

	// GetChat retrieves a chat by id.
	// Returns ErrNotFound if the chat doesn't exist.
	GetChat(ctx context.Context, id int64) (*core.Chat, error)

	// ListChats returns all chats ordered by most recent activity.
	ListChats(ctx context.Context) ([]*core.Chat, error)
}

// FolderRepository provides operations for chat folders.
type FolderRepository interface {
	// UpsertFolder creates the folder if absent, otherwise overwrites
	// title and emoji.
	UpsertFolder(ctx context.Context, folder *core.Folder) error

	// ListFolders returns all folders ordered by id.
	ListFolders(ctx context.Context) ([]*core.Folder, error)
}

// SyncStateRepository tracks per-chat ingestion high-water marks.
type SyncStateRepository interface {
	// GetSyncState returns the sync state for a chat.
	// Returns ErrNotFound if the chat has never been synced.
	GetSyncState(ctx context.Context, chatID int64) (*core.SyncState, error)

	// SetSyncState upserts the sync state for a chat.
	SetSyncState(ctx context.Context, state *core.SyncState) error
}

// Store aggregates every repository plus lifecycle management.
type Store interface {
	MessageRepository
	ChatRepository
	FolderRepository
	SyncStateRepository

	// Close closes the storage backend and releases resources.
	Close() error
}
