package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgvault/tgvault/ai/mock"
	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/search"
	"github.com/tgvault/tgvault/storage/memory"
)

func setupServer(t *testing.T) (*memory.Store, *Server) {
	t.Helper()

	store := memory.NewStore()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	searcher, err := search.NewSearcher(store, embedder)
	require.NoError(t, err)

	srv, err := NewServer(store, searcher)
	require.NoError(t, err)
	return store, srv
}

func seedMessages(t *testing.T, store *memory.Store) {
	t.Helper()

	ctx := context.Background()
	date := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertChat(ctx, &core.Chat{
		ID: 100, Name: "gophers", Type: "supergroup",
		LastMessage: "close match", LastAt: date, MessageCount: 3,
	}))

	msgs := []*core.Message{
		{ID: 1, ChatID: 100, Type: core.MessageTypeText, Text: "close match", Date: date, Embedding: []float32{1, 0, 0}},
		{ID: 2, ChatID: 100, Type: core.MessageTypeText, Text: "far match", Date: date.Add(time.Minute), Embedding: []float32{0, 1, 0}},
		{ID: 3, ChatID: 100, Type: core.MessageTypeText, Text: "not embedded", Date: date.Add(2 * time.Minute)},
	}
	_, err := store.InsertMessages(ctx, msgs...)
	require.NoError(t, err)
}

func doRequest(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	store := memory.NewStore()
	searcher, err := search.NewSearcher(store, mock.NewMockEmbedder())
	require.NoError(t, err)

	t.Run("valid configuration", func(t *testing.T) {
		srv, err := NewServer(store, searcher, WithAddr(":9999"))
		require.NoError(t, err)
		assert.NotNil(t, srv)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewServer(nil, searcher)
		assert.ErrorIs(t, err, ErrStoreRequired)
	})

	t.Run("nil searcher", func(t *testing.T) {
		_, err := NewServer(store, nil)
		assert.ErrorIs(t, err, ErrSearcherRequired)
	})
}

func TestHealthz(t *testing.T) {
	_, srv := setupServer(t)

	rec := doRequest(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSearchEndpoint(t *testing.T) {
	store, srv := setupServer(t)
	seedMessages(t, store)

	rec := doRequest(t, srv, "/api/search?q=close+match")
	require.Equal(t, http.StatusOK, rec.Code)

	var results []searchResultJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2, "unembedded rows are excluded")

	assert.Equal(t, int64(1), results[0].Message.ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearchEndpoint_MissingQuery(t *testing.T) {
	_, srv := setupServer(t)

	rec := doRequest(t, srv, "/api/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoint_Filters(t *testing.T) {
	store, srv := setupServer(t)
	seedMessages(t, store)

	t.Run("chat filter excludes other chats", func(t *testing.T) {
		rec := doRequest(t, srv, "/api/search?q=match&chat_id=999")
		require.Equal(t, http.StatusOK, rec.Code)

		var results []searchResultJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		assert.Empty(t, results)
	})

	t.Run("invalid chat_id", func(t *testing.T) {
		rec := doRequest(t, srv, "/api/search?q=match&chat_id=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid type", func(t *testing.T) {
		rec := doRequest(t, srv, "/api/search?q=match&type=bogus")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid from", func(t *testing.T) {
		rec := doRequest(t, srv, "/api/search?q=match&from=yesterday")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("limit caps results", func(t *testing.T) {
		rec := doRequest(t, srv, "/api/search?q=match&limit=1")
		require.Equal(t, http.StatusOK, rec.Code)

		var results []searchResultJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		assert.Len(t, results, 1)
	})
}

func TestChatsEndpoint(t *testing.T) {
	store, srv := setupServer(t)
	seedMessages(t, store)

	rec := doRequest(t, srv, "/api/chats")
	require.Equal(t, http.StatusOK, rec.Code)

	var chats []chatJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chats))
	require.Len(t, chats, 1)
	assert.Equal(t, "gophers", chats[0].Name)
	assert.Equal(t, 3, chats[0].MessageCount)
}

func TestChatMessagesEndpoint(t *testing.T) {
	store, srv := setupServer(t)
	seedMessages(t, store)

	rec := doRequest(t, srv, "/api/chats/100/messages")
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []messageJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 3)
	// Newest first.
	assert.Equal(t, int64(3), msgs[0].ID)

	t.Run("before pagination", func(t *testing.T) {
		rec := doRequest(t, srv, "/api/chats/100/messages?before=3")
		require.Equal(t, http.StatusOK, rec.Code)

		var page []messageJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Len(t, page, 2)
		assert.Equal(t, int64(2), page[0].ID)
	})

	t.Run("invalid chat id", func(t *testing.T) {
		rec := doRequest(t, srv, "/api/chats/abc/messages")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFoldersEndpoint(t *testing.T) {
	store, srv := setupServer(t)
	require.NoError(t, store.UpsertFolder(context.Background(), &core.Folder{ID: 1, Title: "Work", Emoji: "W"}))

	rec := doRequest(t, srv, "/api/folders")
	require.Equal(t, http.StatusOK, rec.Code)

	var folders []folderJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &folders))
	require.Len(t, folders, 1)
	assert.Equal(t, "Work", folders[0].Title)
}

func TestCORS(t *testing.T) {
	_, srv := setupServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chats", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
