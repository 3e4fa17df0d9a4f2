package domain

import (
	"bytes"

	"github.com/google/uuid"
)

// ConversationKey identifies a two-party chat. The pair is unordered:
// NewConversationKey(a, b) == NewConversationKey(b, a).
type ConversationKey struct {
	Low  uuid.UUID
	High uuid.UUID
}

func NewConversationKey(a, b uuid.UUID) ConversationKey {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return ConversationKey{Low: a, High: b}
}

// Matches reports whether the message belongs to this conversation.
func (k ConversationKey) Matches(m Message) bool {
	return NewConversationKey(m.SenderID, m.ReceiverID) == k
}

func (k ConversationKey) String() string {
	return k.Low.String() + ":" + k.High.String()
}
