package dto

import (
	"time"

	"github.com/google/uuid"
)

// InboundEnvelope is the client frame received over the websocket. Fields
// beyond the event discriminator are optional and validated per event kind
// by the receive loop.
type InboundEnvelope struct {
	Event          string `json:"event" validate:"required"`
	Type           string `json:"type,omitempty"`
	Task           string `json:"task,omitempty"`
	ChatUrn        string `json:"chat_urn,omitempty"`
	ChatName       string `json:"chat_name,omitempty"`
	ChatType       string `json:"chat_type,omitempty"`
	Text           string `json:"text,omitempty"`
	AudioBase64    string `json:"audio_base64,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	FileBase64     string `json:"file_base64,omitempty"`
	MessageId      string `json:"message_id,omitempty"`
	ConversationId string `json:"conversation_id,omitempty"`
}

// MessageRecord is the wire form of one persisted chat message, pushed to
// connected clients and returned by the history endpoints.
type MessageRecord struct {
	Id               uuid.UUID         `json:"id"`
	ConversationId   string            `json:"conversation_id"`
	Timestamp        time.Time         `json:"timestamp"`
	Body             string            `json:"body"`
	SenderUrn        string            `json:"sender_urn"`
	ReceiverUrn      string            `json:"receiver_urn"`
	SenderName       string            `json:"sender_name"`
	ReceiverName     string            `json:"receiver_name"`
	MessageKind      string            `json:"message_kind"`
	ConversationKind string            `json:"conversation_kind"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	IsRead           bool              `json:"is_read"`
	Priority         int               `json:"priority"`
}

// OutboundFrame wraps pushed message records with an event discriminator so
// the client can route frames the same way the server routes inbound ones.
type OutboundFrame struct {
	Event    string          `json:"event"`
	Messages []MessageRecord `json:"messages"`
}

type ConversationHistoryResponse struct {
	ConversationId string          `json:"conversation_id"`
	Messages       []MessageRecord `json:"messages"`
}

type DeleteConversationResponse struct {
	ConversationId string `json:"conversation_id"`
	Deleted        bool   `json:"deleted"`
}
