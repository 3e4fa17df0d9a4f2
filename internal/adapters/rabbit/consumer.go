package rabbit

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stallworks/marketplace/internal/domain"
)

// Consumer reads the global broadcast stream. Each consumer gets its own
// exclusive auto-delete queue bound to the fanout exchange, so every open
// subscription sees every insert and the queue disappears when the channel
// closes.
type Consumer struct {
	conn *amqp.Connection
}

func NewConsumer(conn *amqp.Connection) *Consumer {
	return &Consumer{conn: conn}
}

// Subscribe opens a broadcast feed of message-insert events. The returned
// cancel func closes the underlying channel, which stops the feed and drops
// the queue. The events channel is closed once the feed stops.
func (c *Consumer) Subscribe(ctx context.Context) (<-chan domain.Message, func(), error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, nil, err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}
	if err := ch.QueueBind(q.Name, "", Exchange, false, nil); err != nil {
		ch.Close()
		return nil, nil, err
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}

	events := make(chan domain.Message)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var m domain.Message
				if err := json.Unmarshal(d.Body, &m); err != nil {
					continue
				}
				select {
				case events <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cancel := func() { ch.Close() }
	return events, cancel, nil
}
