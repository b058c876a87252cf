package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/storage"
)

// UpsertChat creates the chat or overwrites its mutable fields.
func (s *Store) UpsertChat(ctx context.Context, chat *core.Chat) error {
	if err := core.ValidateChat(chat); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO chats (id, name, type, last_message, last_at, synced_at, message_count, folder_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	type = excluded.type,
	last_message = excluded.last_message,
	last_at = excluded.last_at,
	synced_at = excluded.synced_at,
	message_count = excluded.message_count,
	folder_id = excluded.folder_id`,
		chat.ID, chat.Name, chat.Type, chat.LastMessage,
		nullTime(chat.LastAt), nullTime(chat.SyncedAt), chat.MessageCount, chat.FolderID)
	return err
}

// GetChat retrieves a chat by id.
func (s *Store) GetChat(ctx context.Context, id int64) (*core.Chat, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, name, type, last_message, last_at, synced_at, message_count, folder_id
FROM chats WHERE id = $1`, id)

	chat, err := scanChat(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return chat, err
}

// ListChats returns all chats, most recently active first.
func (s *Store) ListChats(ctx context.Context) ([]*core.Chat, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, name, type, last_message, last_at, synced_at, message_count, folder_id
FROM chats
ORDER BY last_at DESC NULLS LAST, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*core.Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// UpsertFolder creates the folder or overwrites title and emoji.
func (s *Store) UpsertFolder(ctx context.Context, folder *core.Folder) error {
	if err := core.ValidateFolder(folder); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO folders (id, title, emoji)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	emoji = excluded.emoji`,
		folder.ID, folder.Title, folder.Emoji)
	return err
}

// ListFolders returns all folders ordered by id.
func (s *Store) ListFolders(ctx context.Context) ([]*core.Folder, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, emoji FROM folders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*core.Folder
	for rows.Next() {
		var f core.Folder
		if err := rows.Scan(&f.ID, &f.Title, &f.Emoji); err != nil {
			return nil, err
		}
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}

// GetSyncState returns the ingestion high-water mark for a chat.
func (s *Store) GetSyncState(ctx context.Context, chatID int64) (*core.SyncState, error) {
	var st core.SyncState
	err := s.pool.QueryRow(ctx, `
SELECT chat_id, last_message_id, synced_at FROM sync_state WHERE chat_id = $1`, chatID).
		Scan(&st.ChatID, &st.LastMessageID, &st.SyncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SetSyncState upserts the ingestion high-water mark for a chat.
func (s *Store) SetSyncState(ctx context.Context, state *core.SyncState) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO sync_state (chat_id, last_message_id, synced_at)
VALUES ($1, $2, $3)
ON CONFLICT (chat_id) DO UPDATE SET
	last_message_id = excluded.last_message_id,
	synced_at = excluded.synced_at`,
		state.ChatID, state.LastMessageID, state.SyncedAt)
	return err
}

func scanChat(row pgx.Row) (*core.Chat, error) {
	var (
		chat     core.Chat
		lastAt   *time.Time
		syncedAt *time.Time
	)
	err := row.Scan(&chat.ID, &chat.Name, &chat.Type, &chat.LastMessage,
		&lastAt, &syncedAt, &chat.MessageCount, &chat.FolderID)
	if err != nil {
		return nil, err
	}
	if lastAt != nil {
		chat.LastAt = *lastAt
	}
	if syncedAt != nil {
		chat.SyncedAt = *syncedAt
	}
	return &chat, nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
