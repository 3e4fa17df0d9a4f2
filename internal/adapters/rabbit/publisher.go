package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the single fanout exchange carrying every message insert
// system-wide. There is no per-conversation topic; consumers filter.
const Exchange = "marketplace.messages"

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(Exchange, "fanout", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx, Exchange, "", false, false, msg)
}
