package entity

import (
	"time"

	"github.com/google/uuid"
)

// Message is one exchanged unit in a conversation. Rows are append-only:
// a message is never mutated after creation, only marked deleted.
type Message struct {
	Id               uuid.UUID
	ConversationId   string
	Timestamp        time.Time
	Body             string
	SenderUrn        string
	ReceiverUrn      string
	SenderName       string
	ReceiverName     string
	MessageKind      string // text | image | code
	ConversationKind string // chat | rag
	Metadata         map[string]string
	IsDeleted        bool
	IsRead           bool
	Priority         int
}
