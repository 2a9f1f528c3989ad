package mapper

import (
	"talkback-be/internal/entity"
	"talkback-be/internal/model"

	"gorm.io/datatypes"
)

type MessageMapper struct{}

func NewMessageMapper() *MessageMapper {
	return &MessageMapper{}
}

func (m *MessageMapper) ToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}

	metadata := make(map[string]string, len(msg.Metadata))
	for k, v := range msg.Metadata {
		if s, ok := v.(string); ok {
			metadata[k] = s
		}
	}

	return &entity.Message{
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
		Metadata:         metadata,
		IsDeleted:        msg.IsDeleted,
		IsRead:           msg.IsRead,
		Priority:         msg.Priority,
	}
}

func (m *MessageMapper) ToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}

	metadata := make(datatypes.JSONMap, len(msg.Metadata))
	for k, v := range msg.Metadata {
		metadata[k] = v
	}

	return &model.Message{
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
		Metadata:         metadata,
		IsDeleted:        msg.IsDeleted,
		IsRead:           msg.IsRead,
		Priority:         msg.Priority,
	}
}
