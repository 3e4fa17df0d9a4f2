package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewMessage validates the body and builds a message for insertion. Incidental
// whitespace is trimmed; an empty result is rejected before anything is
// persisted.
func NewMessage(senderID, receiverID uuid.UUID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrInvalidInput
	}
	if senderID == receiverID {
		return Message{}, ErrInvalidInput
	}
	return Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
