package backfill

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgvault/tgvault/ai/mock"
	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/storage"
	"github.com/tgvault/tgvault/storage/memory"
)

// countingStore wraps the in-memory store to observe fetches and inject
// write failures.
type countingStore struct {
	*memory.Store
	fetches     int
	failUpdates bool
}

func (c *countingStore) MissingEmbeddings(ctx context.Context, filter storage.BackfillFilter, limit int) ([]*core.Message, error) {
	c.fetches++
	return c.Store.MissingEmbeddings(ctx, filter, limit)
}

func (c *countingStore) UpdateEmbedding(ctx context.Context, chatID, msgID int64, vector []float32) error {
	if c.failUpdates {
		return errors.New("write failed")
	}
	return c.Store.UpdateEmbedding(ctx, chatID, msgID, vector)
}

func newTestStore(t *testing.T, n int) *countingStore {
	t.Helper()

	s := &countingStore{Store: memory.NewStore()}
	msgs := make([]*core.Message, n)
	for i := 0; i < n; i++ {
		msgs[i] = &core.Message{
			ID:     int64(i + 1),
			ChatID: 100,
			Type:   core.MessageTypeText,
			Text:   fmt.Sprintf("message %d", i+1),
			Date:   time.Now().Add(-time.Hour),
		}
	}
	_, err := s.InsertMessages(context.Background(), msgs...)
	require.NoError(t, err)
	return s
}

func newTestEmbedder() *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.Dimensions = 3
	return e
}

func TestBackfiller_Run(t *testing.T) {
	store := newTestStore(t, 10)
	embedder := newTestEmbedder()

	var buf bytes.Buffer
	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 3, ReportInterval: 3}, &buf)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 10, stats.Processed)
	assert.Equal(t, 10, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.Skipped)

	// Every row now carries an embedding.
	count, err := store.CountMissingEmbeddings(context.Background(), storage.BackfillFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.Contains(t, buf.String(), "Backfill complete")
}

func TestBackfiller_ExactFetchIterations(t *testing.T) {
	// total=250 with batchSize=100 must fetch exactly 3 times (100,100,50).
	store := newTestStore(t, 250)
	embedder := newTestEmbedder()

	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 100}, nil)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, store.fetches)
	assert.Equal(t, 250, stats.Processed)
	assert.Equal(t, 250, stats.Succeeded)
}

func TestBackfiller_NoEligibleRows(t *testing.T) {
	store := &countingStore{Store: memory.NewStore()}
	embedder := newTestEmbedder()

	var buf bytes.Buffer
	b, err := NewBackfiller(store, embedder, nil, &buf)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.Processed)
	assert.Equal(t, 0, store.fetches, "no fetch should happen when nothing is eligible")
	assert.Equal(t, 0, embedder.CallCount())
	assert.Contains(t, buf.String(), "No messages need embeddings")
}

func TestBackfiller_Idempotence(t *testing.T) {
	store := newTestStore(t, 25)
	embedder := newTestEmbedder()

	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 10}, nil)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, stats.Succeeded)

	// Second run finds nothing eligible and never calls the provider.
	embedder.Reset()
	stats, err = b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.Processed)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestBackfiller_ProviderFailure(t *testing.T) {
	store := newTestStore(t, 7)
	embedder := newTestEmbedder()
	providerErr := errors.New("provider down")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, providerErr
	}

	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 7}, nil)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(context.Background())
	require.NoError(t, err, "per-batch provider failure is recoverable")

	assert.Equal(t, 7, stats.Processed, "progress advances by the batch size")
	assert.Equal(t, 7, stats.Failed, "failed increases by the same amount")
	assert.Equal(t, 0, stats.Succeeded)

	// No partial writes: every embedding is still null.
	count, err := store.CountMissingEmbeddings(context.Background(), storage.BackfillFilter{})
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestBackfiller_ProviderFailure_Terminates(t *testing.T) {
	// With the provider permanently down the loop must still terminate in
	// ceil(total/batchSize) fetches.
	store := newTestStore(t, 250)
	embedder := newTestEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}

	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 100}, nil)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, store.fetches)
	assert.Equal(t, 250, stats.Processed)
	assert.Equal(t, 250, stats.Failed)
}

func TestBackfiller_WriteFailure(t *testing.T) {
	store := newTestStore(t, 5)
	store.failUpdates = true
	embedder := newTestEmbedder()

	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 5}, nil)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(context.Background())
	require.NoError(t, err, "per-batch write failure is recoverable")

	assert.Equal(t, 5, stats.Processed)
	assert.Equal(t, 5, stats.Failed)
	assert.Equal(t, 0, stats.Succeeded)
}

func TestBackfiller_SkipsEmptyContent(t *testing.T) {
	store := &countingStore{Store: memory.NewStore()}
	ctx := context.Background()

	msgs := []*core.Message{
		{ID: 1, ChatID: 100, Type: core.MessageTypeText, Text: "real content", Date: time.Now().Add(-time.Hour)},
		{ID: 2, ChatID: 100, Type: core.MessageTypePhoto, Text: "", Date: time.Now().Add(-time.Hour)},
		{ID: 3, ChatID: 100, Type: core.MessageTypeText, Text: "  ", Date: time.Now().Add(-time.Hour)},
	}
	_, err := store.InsertMessages(ctx, msgs...)
	require.NoError(t, err)

	embedder := newTestEmbedder()
	var sent []string
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		sent = append(sent, texts...)
		result := make([][]float32, len(texts))
		for i := range texts {
			result[i] = []float32{1, 0, 0}
		}
		return result, nil
	}

	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 10}, nil)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(ctx)
	require.NoError(t, err, "empty content is not an error")

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, []string{"real content"}, sent, "blank rows never reach the provider")
}

func TestBackfiller_AllEmptyBatchAdvances(t *testing.T) {
	store := &countingStore{Store: memory.NewStore()}
	ctx := context.Background()

	_, err := store.InsertMessages(ctx,
		&core.Message{ID: 1, ChatID: 100, Type: core.MessageTypePhoto, Date: time.Now().Add(-time.Hour)},
		&core.Message{ID: 2, ChatID: 100, Type: core.MessageTypeSticker, Date: time.Now().Add(-time.Hour)},
	)
	require.NoError(t, err)

	embedder := newTestEmbedder()
	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 10}, nil)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, embedder.CallCount(), "no provider call for an all-blank batch")
}

func TestBackfiller_ChatScope(t *testing.T) {
	store := &countingStore{Store: memory.NewStore()}
	ctx := context.Background()

	_, err := store.InsertMessages(ctx,
		&core.Message{ID: 1, ChatID: 100, Type: core.MessageTypeText, Text: "in scope", Date: time.Now().Add(-time.Hour)},
		&core.Message{ID: 2, ChatID: 200, Type: core.MessageTypeText, Text: "out of scope", Date: time.Now().Add(-time.Hour)},
	)
	require.NoError(t, err)

	chatID := int64(100)
	embedder := newTestEmbedder()
	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 10, ChatID: &chatID}, nil)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)

	// The other chat's message is untouched.
	other := int64(200)
	count, err := store.CountMissingEmbeddings(ctx, storage.BackfillFilter{ChatID: &other})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBackfiller_Accounting(t *testing.T) {
	// Mixed batches: some blank rows, one failing batch. The identity
	// processed == succeeded + failed + skipped must hold throughout.
	store := &countingStore{Store: memory.NewStore()}
	ctx := context.Background()

	var msgs []*core.Message
	for i := 1; i <= 20; i++ {
		text := fmt.Sprintf("message %d", i)
		if i%5 == 0 {
			text = ""
		}
		msgs = append(msgs, &core.Message{
			ID: int64(i), ChatID: 100, Type: core.MessageTypeText,
			Text: text, Date: time.Now().Add(-time.Hour),
		})
	}
	_, err := store.InsertMessages(ctx, msgs...)
	require.NoError(t, err)

	calls := 0
	embedder := newTestEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("transient outage")
		}
		result := make([][]float32, len(texts))
		for i := range texts {
			result[i] = []float32{1, 0, 0}
		}
		return result, nil
	}

	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 5}, nil)
	require.NoError(t, err)
	defer b.Release()

	stats, err := b.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 20, stats.Processed)
	assert.Equal(t, stats.Processed, stats.Succeeded+stats.Failed+stats.Skipped)
	assert.Equal(t, 4, stats.Skipped)
	assert.Equal(t, 4, stats.Failed, "one batch of 4 valid rows failed")
	assert.Equal(t, 12, stats.Succeeded)
}

func TestBackfiller_ContextCancellation(t *testing.T) {
	store := newTestStore(t, 50)
	embedder := newTestEmbedder()

	ctx, cancel := context.WithCancel(context.Background())
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		cancel() // Cancel mid-run; the loop must notice between batches.
		result := make([][]float32, len(texts))
		for i := range texts {
			result[i] = []float32{1, 0, 0}
		}
		return result, nil
	}

	b, err := NewBackfiller(store, embedder, &Config{BatchSize: 10}, nil)
	require.NoError(t, err)
	defer b.Release()

	_, err = b.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBackfiller_Validation(t *testing.T) {
	embedder := newTestEmbedder()

	_, err := NewBackfiller(nil, embedder, nil, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewBackfiller(memory.NewStore(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestNewBackfiller_DefaultsApplied(t *testing.T) {
	b, err := NewBackfiller(memory.NewStore(), newTestEmbedder(), &Config{}, nil)
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, DefaultBatchSize, b.config.BatchSize)
	assert.Equal(t, DefaultWriteConcurrency, b.config.WriteConcurrency)
}
