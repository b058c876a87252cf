package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/tgvault/tgvault/core"
	"github.com/tgvault/tgvault/storage"
)

const messageColumns = `id, chat_id, type, text, embedding, reply_to_id,
	forward_from_chat_id, forward_from_msg_id, views, forwards, date, inserted_at`

// InsertMessages inserts messages with ON CONFLICT DO NOTHING semantics.
// Rows are validated at the boundary; a duplicate (chat_id, id) is a
// silent no-op. Returns the number of rows actually inserted.
func (s *Store) InsertMessages(ctx context.Context, msgs ...*core.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, msg := range msgs {
		if err := core.ValidateMessage(msg); err != nil {
			return 0, err
		}

		var embedding *pgvector.Vector
		if msg.Embedding != nil {
			if len(msg.Embedding) != s.dims {
				return 0, fmt.Errorf("%w: got %d, want %d",
					storage.ErrDimensionMismatch, len(msg.Embedding), s.dims)
			}
			v := pgvector.NewVector(msg.Embedding)
			embedding = &v
		}

		batch.Queue(`
INSERT INTO messages (id, chat_id, type, text, embedding, reply_to_id,
	forward_from_chat_id, forward_from_msg_id, views, forwards, date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (chat_id, id) DO NOTHING`,
			msg.ID, msg.ChatID, string(msg.Type), msg.Text, embedding,
			msg.ReplyToID, msg.ForwardFromChatID, msg.ForwardFromMsgID,
			msg.Views, msg.Forwards, msg.Date)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range msgs {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert message: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// GetMessage retrieves a single message by its (chat, message) pair.
func (s *Store) GetMessage(ctx context.Context, chatID, msgID int64) (*core.Message, error) {
	row := s.pool.QueryRow(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE chat_id = $1 AND id = $2`, chatID, msgID)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return msg, err
}

// ListMessages returns messages for a chat, newest first, using keyset
// pagination on the message id.
func (s *Store) ListMessages(ctx context.Context, chatID, beforeID int64, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeID <= 0 {
		beforeID = int64(1)<<62 - 1
	}

	rows, err := s.pool.Query(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE chat_id = $1 AND id < $2
ORDER BY id DESC
LIMIT $3`, chatID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// CountMissingEmbeddings counts rows with a null embedding, optionally
// scoped to a chat. The filter cursor does not apply to counting.
func (s *Store) CountMissingEmbeddings(ctx context.Context, filter storage.BackfillFilter) (int, error) {
	query := `SELECT count(*) FROM messages WHERE embedding IS NULL`
	args := []any{}
	if filter.ChatID != nil {
		query += ` AND chat_id = $1`
		args = append(args, *filter.ChatID)
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MissingEmbeddings fetches up to limit eligible rows ordered by
// (chat_id, id) so the filter cursor advances deterministically.
func (s *Store) MissingEmbeddings(ctx context.Context, filter storage.BackfillFilter, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	query := `
SELECT ` + messageColumns + `
FROM messages
WHERE embedding IS NULL`
	args := []any{}

	if filter.ChatID != nil {
		args = append(args, *filter.ChatID)
		query += fmt.Sprintf(` AND chat_id = $%d`, len(args))
	}
	if filter.After != nil {
		args = append(args, filter.After.ChatID, filter.After.ID)
		query += fmt.Sprintf(` AND (chat_id, id) > ($%d, $%d)`, len(args)-1, len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY chat_id, id LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// UpdateEmbedding attaches an embedding to a message. Writing the same
// vector again overwrites it with identical content, so repeated runs
// converge.
func (s *Store) UpdateEmbedding(ctx context.Context, chatID, msgID int64, vector []float32) error {
	if len(vector) != s.dims {
		return fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(vector), s.dims)
	}

	tag, err := s.pool.Exec(ctx, `
UPDATE messages SET embedding = $1 WHERE chat_id = $2 AND id = $3`,
		pgvector.NewVector(vector), chatID, msgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SearchSimilar runs a filtered cosine similarity query. pgvector's <=>
// operator is cosine distance; similarity is reported as 1 - distance.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, filter storage.SearchFilter) ([]*core.SearchResult, error) {
	if len(embedding) != s.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(embedding), s.dims)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: negative limit or offset", storage.ErrInvalidQuery)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = storage.DefaultSearchLimit
	}

	query := `
SELECT ` + messageColumns + `, 1 - (embedding <=> $1) AS score
FROM messages
WHERE embedding IS NOT NULL`
	args := []any{pgvector.NewVector(embedding)}

	if filter.ChatID != nil {
		args = append(args, *filter.ChatID)
		query += fmt.Sprintf(` AND chat_id = $%d`, len(args))
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(` AND date <= $%d`, len(args))
	}

	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*core.SearchResult
	for rows.Next() {
		msg, score, err := scanMessageWithScore(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, &core.SearchResult{Message: msg, Score: score})
	}
	return results, rows.Err()
}

func scanMessages(rows pgx.Rows) ([]*core.Message, error) {
	var msgs []*core.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func scanMessage(row pgx.Row) (*core.Message, error) {
	var (
		msg       core.Message
		msgType   string
		embedding *pgvector.Vector
	)
	err := row.Scan(&msg.ID, &msg.ChatID, &msgType, &msg.Text, &embedding,
		&msg.ReplyToID, &msg.ForwardFromChatID, &msg.ForwardFromMsgID,
		&msg.Views, &msg.Forwards, &msg.Date, &msg.InsertedAt)
	if err != nil {
		return nil, err
	}
	msg.Type = core.MessageType(msgType)
	if embedding != nil {
		msg.Embedding = embedding.Slice()
	}
	return &msg, nil
}

func scanMessageWithScore(row pgx.Row) (*core.Message, float32, error) {
	var (
		msg       core.Message
		msgType   string
		embedding *pgvector.Vector
		score     float32
	)
	err := row.Scan(&msg.ID, &msg.ChatID, &msgType, &msg.Text, &embedding,
		&msg.ReplyToID, &msg.ForwardFromChatID, &msg.ForwardFromMsgID,
		&msg.Views, &msg.Forwards, &msg.Date, &msg.InsertedAt, &score)
	if err != nil {
		return nil, 0, err
	}
	msg.Type = core.MessageType(msgType)
	if embedding != nil {
		msg.Embedding = embedding.Slice()
	}
	return &msg, score, nil
}
