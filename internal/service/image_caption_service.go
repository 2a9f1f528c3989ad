package service

import (
	"context"
	"errors"
	"fmt"

	"talkback-be/internal/constant"
	"talkback-be/internal/entity"
	"talkback-be/internal/pkg/logger"
	"talkback-be/pkg/imagery"
	"talkback-be/pkg/llm"
	"talkback-be/pkg/utils"
)

// IImageCaptionService answers a question about an uploaded image. The image
// is captioned first; the caption serves as the model's only visual context.
type IImageCaptionService interface {
	Describe(ctx context.Context, req ImageRequest) error
}

type imageCaptionService struct {
	messenger     IMessengerService
	captioner     imagery.Captioner
	llmProvider   llm.LLMProvider
	cleanup       ICleanupService
	tempDir       string
	assistantUrn  string
	assistantName string
	logger        logger.ILogger
}

func NewImageCaptionService(
	messenger IMessengerService,
	captioner imagery.Captioner,
	llmProvider llm.LLMProvider,
	cleanup ICleanupService,
	tempDir string,
	assistantUrn string,
	assistantName string,
	log logger.ILogger,
) IImageCaptionService {
	return &imageCaptionService{
		messenger:     messenger,
		captioner:     captioner,
		llmProvider:   llmProvider,
		cleanup:       cleanup,
		tempDir:       tempDir,
		assistantUrn:  assistantUrn,
		assistantName: assistantName,
		logger:        log,
	}
}

func (s *imageCaptionService) Describe(ctx context.Context, req ImageRequest) error {
	path, err := utils.SaveBase64ToTempFile(s.tempDir, req.ConversationId, "png", req.ImageBase64)
	if err != nil {
		return fmt.Errorf("decode inbound image: %w", err)
	}
	// The temp file must not outlive the request regardless of outcome.
	defer s.cleanup.Schedule(path)

	caption, err := s.captioner.Caption(ctx, path)
	if err != nil {
		return fmt.Errorf("caption image: %w", err)
	}

	question := req.Question
	if question == "" {
		question = "Describe this image."
	}

	human := &entity.Message{
		ConversationId:   req.ConversationId,
		Body:             question,
		SenderUrn:        req.PeerUrn,
		ReceiverUrn:      s.assistantUrn,
		SenderName:       req.PeerName,
		ReceiverName:     s.assistantName,
		MessageKind:      constant.MessageKindImage,
		ConversationKind: constant.ConversationKindChat,
		Metadata:         map[string]string{"caption": caption},
	}
	stored, err := s.messenger.Record(ctx, human)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("An image is described as follows: %s\n\nAnswer the question about it. Question: %s", caption, question)
	reply, err := s.llmProvider.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("ImageCaption", "Model call failed", map[string]interface{}{
			"error": err.Error(),
		})
		reply = constant.GenerationFailedMessage
		if errors.Is(err, llm.ErrRateLimited) {
			reply = constant.QuotaExceededMessage
		}
	} else {
		reply = utils.CleanModelOutput(reply)
	}

	assistant := &entity.Message{
		ConversationId:   req.ConversationId,
		Body:             reply,
		SenderUrn:        s.assistantUrn,
		ReceiverUrn:      req.PeerUrn,
		SenderName:       s.assistantName,
		ReceiverName:     req.PeerName,
		MessageKind:      constant.MessageKindText,
		ConversationKind: constant.ConversationKindChat,
	}
	storedReply, err := s.messenger.Record(ctx, assistant)
	if err != nil {
		return err
	}

	s.messenger.Push(req.SessionId, stored, storedReply)
	return nil
}
