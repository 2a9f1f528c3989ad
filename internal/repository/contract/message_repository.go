package contract

import (
	"context"

	"talkback-be/internal/entity"
)

// MessageRepository is the durable message log. The store is append-only and
// partitioned by conversation id; natural ordering within a partition is by
// timestamp descending.
type MessageRepository interface {
	// Append persists the message, assigning the server timestamp, and
	// returns the stored record.
	Append(ctx context.Context, message *entity.Message) (*entity.Message, error)

	// FetchByParticipant returns the messages where the participant is
	// sender or receiver, each row at most once even when it is both,
	// optionally filtered by conversation kind, sorted by timestamp
	// descending.
	FetchByParticipant(ctx context.Context, participantUrn string, conversationKind string) ([]*entity.Message, error)

	FetchByConversation(ctx context.Context, conversationId string, conversationKind string) ([]*entity.Message, error)

	// DeleteByConversation removes all rows for the partition. Deletion is
	// best-effort cleanup: it reports false on failure instead of an error.
	DeleteByConversation(ctx context.Context, conversationId string) bool
}
