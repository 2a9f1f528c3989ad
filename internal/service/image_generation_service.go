package service

import (
	"context"
	"encoding/base64"

	"talkback-be/internal/constant"
	"talkback-be/internal/entity"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/websocket"
	"talkback-be/pkg/imagery"
)

// IImageGenerationService turns a text prompt into an image. The raw bytes
// are pushed to the session as a binary frame; the log records the exchange
// with the prompt kept in metadata.
type IImageGenerationService interface {
	Generate(ctx context.Context, req ChatRequest) error
}

type imageGenerationService struct {
	messenger     IMessengerService
	registry      *websocket.Registry
	generator     imagery.Generator
	assistantUrn  string
	assistantName string
	logger        logger.ILogger
}

func NewImageGenerationService(
	messenger IMessengerService,
	registry *websocket.Registry,
	generator imagery.Generator,
	assistantUrn string,
	assistantName string,
	log logger.ILogger,
) IImageGenerationService {
	return &imageGenerationService{
		messenger:     messenger,
		registry:      registry,
		generator:     generator,
		assistantUrn:  assistantUrn,
		assistantName: assistantName,
		logger:        log,
	}
}

func (s *imageGenerationService) Generate(ctx context.Context, req ChatRequest) error {
	human := &entity.Message{
		ConversationId:   req.ConversationId,
		Body:             req.Text,
		SenderUrn:        req.PeerUrn,
		ReceiverUrn:      s.assistantUrn,
		SenderName:       req.PeerName,
		ReceiverName:     s.assistantName,
		MessageKind:      constant.MessageKindText,
		ConversationKind: req.ConversationKind,
	}
	stored, err := s.messenger.Record(ctx, human)
	if err != nil {
		return err
	}

	image, genErr := s.generator.Generate(ctx, req.Text)

	reply := &entity.Message{
		ConversationId:   req.ConversationId,
		SenderUrn:        s.assistantUrn,
		ReceiverUrn:      req.PeerUrn,
		SenderName:       s.assistantName,
		ReceiverName:     req.PeerName,
		ConversationKind: req.ConversationKind,
	}
	if genErr != nil {
		s.logger.Error("ImageGeneration", "Image synthesis failed", map[string]interface{}{
			"error": genErr.Error(),
		})
		reply.Body = constant.ImageGenerationFailedMessage
		reply.MessageKind = constant.MessageKindText
	} else {
		reply.Body = base64.StdEncoding.EncodeToString(image)
		reply.MessageKind = constant.MessageKindImage
		reply.Metadata = map[string]string{"prompt": req.Text}
	}

	storedReply, err := s.messenger.Record(ctx, reply)
	if err != nil {
		return err
	}

	s.messenger.Push(req.SessionId, stored, storedReply)
	if genErr == nil {
		s.registry.PushBytes(req.SessionId, image)
	}
	return nil
}
