package events

import (
	"time"

	"talkback-be/internal/entity"
)

const (
	EventMessageStored       = "MESSAGE_STORED"
	EventConversationDeleted = "CONVERSATION_DELETED"
	EventIndexBuilt          = "INDEX_BUILT"
)

// NewMessageStored is emitted after a message is appended to the durable log.
func NewMessageStored(msg *entity.Message) Event {
	return BaseEvent{
		Type: EventMessageStored,
		Data: map[string]interface{}{
			"message_id":        msg.Id.String(),
			"conversation_id":   msg.ConversationId,
			"sender_urn":        msg.SenderUrn,
			"receiver_urn":      msg.ReceiverUrn,
			"message_kind":      msg.MessageKind,
			"conversation_kind": msg.ConversationKind,
		},
		OccurredAt: time.Now(),
	}
}

// NewConversationDeleted is emitted after a conversation's log is removed.
func NewConversationDeleted(conversationId string, deleted bool) Event {
	return BaseEvent{
		Type: EventConversationDeleted,
		Data: map[string]interface{}{
			"conversation_id": conversationId,
			"deleted":         deleted,
		},
		OccurredAt: time.Now(),
	}
}

// NewIndexBuilt is emitted after a document ingest extends a knowledge index.
func NewIndexBuilt(sessionId, conversationId, source string, totalChunks int) Event {
	return BaseEvent{
		Type: EventIndexBuilt,
		Data: map[string]interface{}{
			"session_id":      sessionId,
			"conversation_id": conversationId,
			"source":          source,
			"total_chunks":    totalChunks,
		},
		OccurredAt: time.Now(),
	}
}
