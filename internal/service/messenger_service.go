package service

import (
	"context"

	"talkback-be/internal/constant"
	"talkback-be/internal/dto"
	"talkback-be/internal/entity"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/repository/contract"
	"talkback-be/internal/websocket"
	"talkback-be/pkg/events"
	"talkback-be/pkg/nats"
)

// IMessengerService persists messages to the durable log and pushes the
// stored records to the owning session's connection. All pipeline services
// route their side effects through it so persistence ordering and push
// semantics stay in one place.
type IMessengerService interface {
	Record(ctx context.Context, msg *entity.Message) (*entity.Message, error)
	Push(sessionId string, msgs ...*entity.Message) bool
	RecordAndPush(ctx context.Context, sessionId string, msg *entity.Message) (*entity.Message, error)
}

type messengerService struct {
	messages  contract.MessageRepository
	registry  *websocket.Registry
	publisher *nats.Publisher
	logger    logger.ILogger
}

func NewMessengerService(
	messages contract.MessageRepository,
	registry *websocket.Registry,
	publisher *nats.Publisher,
	log logger.ILogger,
) IMessengerService {
	return &messengerService{
		messages:  messages,
		registry:  registry,
		publisher: publisher,
		logger:    log,
	}
}

func (s *messengerService) Record(ctx context.Context, msg *entity.Message) (*entity.Message, error) {
	stored, err := s.messages.Append(ctx, msg)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		// Best-effort bus notification. The chat pipeline never depends on it.
		if err := s.publisher.Publish(ctx, events.NewMessageStored(stored)); err != nil {
			s.logger.Warn("Messenger", "Failed to publish message event", map[string]interface{}{
				"message_id": stored.Id.String(),
				"error":      err.Error(),
			})
		}
	}
	return stored, nil
}

// Push delivers the stored records to the session as one message frame.
// Delivery is best-effort: a disconnected session loses the frame but the
// records stay in the log and are served by the history endpoint.
func (s *messengerService) Push(sessionId string, msgs ...*entity.Message) bool {
	records := make([]dto.MessageRecord, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		records = append(records, toRecord(msg))
	}
	if len(records) == 0 {
		return false
	}

	return s.registry.PushJSON(sessionId, dto.OutboundFrame{
		Event:    constant.EventMessage,
		Messages: records,
	})
}

func (s *messengerService) RecordAndPush(ctx context.Context, sessionId string, msg *entity.Message) (*entity.Message, error) {
	stored, err := s.Record(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.Push(sessionId, stored)
	return stored, nil
}

func toRecord(msg *entity.Message) dto.MessageRecord {
	return dto.MessageRecord{
		Id:               msg.Id,
		ConversationId:   msg.ConversationId,
		Timestamp:        msg.Timestamp,
		Body:             msg.Body,
		SenderUrn:        msg.SenderUrn,
		ReceiverUrn:      msg.ReceiverUrn,
		SenderName:       msg.SenderName,
		ReceiverName:     msg.ReceiverName,
		MessageKind:      msg.MessageKind,
		ConversationKind: msg.ConversationKind,
		Metadata:         msg.Metadata,
		IsRead:           msg.IsRead,
		Priority:         msg.Priority,
	}
}
