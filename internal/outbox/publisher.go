package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stallworks/marketplace/internal/adapters/crdb"
	"github.com/stallworks/marketplace/internal/adapters/rabbit"
	"github.com/stallworks/marketplace/internal/observability"
)

// Publisher drains the message outbox into the broadcast exchange. It is the
// only component allowed to retry publishes; the core itself never does.
type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			records, err := p.repo.GetUnpublishedOutbox(ctx, 50)
			if err != nil {
				p.logger.Error("failed to read outbox", err)
				continue
			}
			for _, rec := range records {
				if err := p.publishWithRetry(ctx, rec); err != nil {
					p.logger.Error("failed to publish outbox record", err)
					continue
				}
				if err := p.repo.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
					p.logger.Error("failed to mark outbox record published", err)
				}
			}
		}
	}
}

func (p *Publisher) publishWithRetry(ctx context.Context, rec crdb.OutboxRecord) error {
	msg := amqp.Publishing{
		MessageId:   rec.DedupeKey,
		ContentType: "application/json",
		Body:        rec.Payload,
	}

	var err error
	for i := 0; i < 3; i++ {
		err = p.rabbitPub.Publish(ctx, msg)
		if err == nil {
			return nil
		}
		observability.OutboxPublishRetries.Inc()
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
