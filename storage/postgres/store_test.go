package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/storage"
)

// Tests in this file need a real Postgres with pgvector. Set
// TGVAULT_TEST_DATABASE_URL to run them; they are skipped otherwise.
func setupStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TGVAULT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TGVAULT_TEST_DATABASE_URL not set")
	}

	s, err := Open(context.Background(), url, WithDimensions(3))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = s.pool.Exec(ctx, `TRUNCATE messages, chats, folders, sync_state`)
		_ = s.Close()
	})

	ctx := context.Background()
	_, err = s.pool.Exec(ctx, `TRUNCATE messages, chats, folders, sync_state`)
	require.NoError(t, err)

	return s
}

func testMessage(chatID, id int64, text string) *core.Message {
	return &core.Message{
		ID:     id,
		ChatID: chatID,
		Type:   core.MessageTypeText,
		Text:   text,
		Date:   time.Now().Add(-time.Hour),
	}
}

func TestInsertMessages_ConflictSkip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	inserted, err := s.InsertMessages(ctx, testMessage(100, 1, "first"))
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// Same key again: no-op, no error.
	inserted, err = s.InsertMessages(ctx, testMessage(100, 1, "changed"))
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	msg, err := s.GetMessage(ctx, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, "first", msg.Text, "duplicate insert must not overwrite")
}

func TestMissingEmbeddings_FilterAndCursor(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.InsertMessages(ctx,
		testMessage(100, 1, "a"),
		testMessage(100, 2, "b"),
		testMessage(200, 1, "c"),
	)
	require.NoError(t, err)

	count, err := s.CountMissingEmbeddings(ctx, storage.BackfillFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	chatID := int64(100)
	count, err = s.CountMissingEmbeddings(ctx, storage.BackfillFilter{ChatID: &chatID})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Cursor skips past rows already seen this run.
	rows, err := s.MissingEmbeddings(ctx, storage.BackfillFilter{
		After: &storage.MessageKey{ChatID: 100, ID: 1},
	}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].ID)

	// Updating an embedding removes the row from eligibility.
	require.NoError(t, s.UpdateEmbedding(ctx, 100, 1, []float32{1, 0, 0}))
	count, err = s.CountMissingEmbeddings(ctx, storage.BackfillFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpdateEmbedding_Errors(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.UpdateEmbedding(ctx, 1, 1, []float32{1, 0})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	err = s.UpdateEmbedding(ctx, 1, 1, []float32{1, 0, 0})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearchSimilar(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	msgs := []*core.Message{
		testMessage(100, 1, "about cats"),
		testMessage(100, 2, "about dogs"),
		testMessage(200, 3, "about birds"),
		testMessage(200, 4, "no embedding yet"),
	}
	_, err := s.InsertMessages(ctx, msgs...)
	require.NoError(t, err)

	require.NoError(t, s.UpdateEmbedding(ctx, 100, 1, []float32{1, 0, 0}))
	require.NoError(t, s.UpdateEmbedding(ctx, 100, 2, []float32{0.9, 0.1, 0}))
	require.NoError(t, s.UpdateEmbedding(ctx, 200, 3, []float32{0, 1, 0}))

	results, err := s.SearchSimilar(ctx, []float32{1, 0, 0}, storage.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, results, 3, "null-embedding row must be excluded")

	assert.Equal(t, int64(1), results[0].Message.ID)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score,
			"results must be ordered by descending similarity")
	}

	chatID := int64(100)
	results, err = s.SearchSimilar(ctx, []float32{1, 0, 0}, storage.SearchFilter{ChatID: &chatID})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, chatID, r.Message.ChatID)
	}
}

func TestUpsertChatAndFolder(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	folder := &core.Folder{ID: 1, Title: "Work", Emoji: "💼"}
	require.NoError(t, s.UpsertFolder(ctx, folder))

	folderID := folder.ID
	chat := &core.Chat{ID: 100, Name: "Team", Type: "group", FolderID: &folderID}
	require.NoError(t, s.UpsertChat(ctx, chat))

	chat.Name = "Team (renamed)"
	chat.MessageCount = 7
	require.NoError(t, s.UpsertChat(ctx, chat))

	got, err := s.GetChat(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Team (renamed)", got.Name)
	assert.Equal(t, 7, got.MessageCount)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, int64(1), *got.FolderID)

	folder.Title = "Work stuff"
	require.NoError(t, s.UpsertFolder(ctx, folder))
	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "Work stuff", folders[0].Title)
}

func TestSyncState(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.GetSyncState(ctx, 100)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.SetSyncState(ctx, &core.SyncState{ChatID: 100, LastMessageID: 42, SyncedAt: now}))
	require.NoError(t, s.SetSyncState(ctx, &core.SyncState{ChatID: 100, LastMessageID: 50, SyncedAt: now}))

	st, err := s.GetSyncState(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(50), st.LastMessageID)
}
