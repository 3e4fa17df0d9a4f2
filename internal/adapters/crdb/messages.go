package crdb

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/stallworks/marketplace/internal/domain"
)

// SaveMessage commits the message row and its broadcast outbox record in one
// transaction, so every committed insert eventually reaches the broker.
func (r *Repository) SaveMessage(ctx context.Context, m domain.Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := r.InsertMessage(ctx, tx, m); err != nil {
			return err
		}
		return r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:        m.ID,
			MessageID: m.ID,
			Payload:   payload,
			DedupeKey: m.ID.String(),
		})
	})
}

func (r *Repository) InsertMessage(ctx context.Context, tx pgx.Tx, m domain.Message) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.SenderID, m.ReceiverID, m.Body, m.CreatedAt)
	return err
}

// ConversationHistory returns every message between the two participants of
// the key, ascending by commit order. Re-invocation returns the full history
// again; no cursor state is kept.
func (r *Repository) ConversationHistory(ctx context.Context, key domain.ConversationKey) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, receiver_id, body, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`, key.Low, key.High)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
