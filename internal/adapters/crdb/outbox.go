package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRecord is a message-insert event waiting to be broadcast. Inserted in
// the same transaction as the message row so the broker stream never misses a
// committed insert.
type OutboxRecord struct {
	ID          uuid.UUID
	MessageID   uuid.UUID
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
	Status      string // NEW, PUBLISHED
	DedupeKey   string
}

func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO message_outbox (id, message_id, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, 'NEW', $4)
	`, record.ID, record.MessageID, record.Payload, record.DedupeKey)
	return err
}

func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, message_id, payload_json, created_at, published_at, status, dedupe_key
		FROM message_outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.MessageID, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE message_outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}
