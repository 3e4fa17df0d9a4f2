package conversation

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stallworks/marketplace/internal/domain"
	"github.com/stallworks/marketplace/internal/observability"
)

// Store is the slice of the record store the conversation layer needs.
type Store interface {
	SaveMessage(ctx context.Context, m domain.Message) error
	ConversationHistory(ctx context.Context, key domain.ConversationKey) ([]domain.Message, error)
}

// Broker is the global message-insert broadcast. The feed carries every insert
// system-wide; filtering down to one conversation happens here, behind the
// Subscribe boundary, so a partitioned broker could replace this without
// touching callers.
type Broker interface {
	Subscribe(ctx context.Context) (<-chan domain.Message, func(), error)
}

type Service struct {
	store  Store
	broker Broker
	logger observability.Logger
}

func NewService(store Store, broker Broker, logger observability.Logger) *Service {
	return &Service{store: store, broker: broker, logger: logger}
}

// History returns the full persisted conversation between a and b, ascending
// by store commit order.
func (s *Service) History(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error) {
	return s.store.ConversationHistory(ctx, domain.NewConversationKey(a, b))
}

// Send validates and persists one message. Delivery is the store commit; there
// is no retry here — the caller decides whether to re-issue.
func (s *Service) Send(ctx context.Context, actor domain.Actor, receiverID uuid.UUID, body string) (*domain.Message, error) {
	m, err := domain.NewMessage(actor.ID, receiverID, body)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveMessage(ctx, m); err != nil {
		return nil, err
	}
	observability.MessagesSent.Inc()
	return &m, nil
}

// Subscription is a live feed of one conversation's new messages. Close stops
// the feed synchronously: once it returns, nothing more is delivered on C.
type Subscription struct {
	ch     chan domain.Message
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) C() <-chan domain.Message {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe attaches to the broker's broadcast stream and yields only the
// messages belonging to the (a, b) conversation. Everything else on the
// stream is received and discarded.
func (s *Service) Subscribe(ctx context.Context, a, b uuid.UUID) (*Subscription, error) {
	key := domain.NewConversationKey(a, b)

	subCtx, cancel := context.WithCancel(ctx)
	events, release, err := s.broker.Subscribe(subCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		ch:     make(chan domain.Message),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	observability.OpenSubscriptions.Inc()

	go func() {
		defer func() {
			release()
			close(sub.ch)
			close(sub.done)
			observability.OpenSubscriptions.Dec()
		}()
		for {
			select {
			case <-subCtx.Done():
				return
			case m, ok := <-events:
				if !ok {
					return
				}
				if !key.Matches(m) {
					continue
				}
				select {
				case sub.ch <- m:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return sub, nil
}
