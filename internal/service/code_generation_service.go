package service

import (
	"context"
	"errors"

	"talkback-be/internal/cache"
	"talkback-be/internal/constant"
	"talkback-be/internal/entity"
	"talkback-be/internal/pkg/logger"
	"talkback-be/pkg/llm"
	"talkback-be/pkg/utils"
)

// ICodeGenerationService answers a coding request. The model reply is split
// into fenced code blocks; each block is persisted as its own code message
// carrying the detected language, with any surrounding prose kept as text.
type ICodeGenerationService interface {
	Generate(ctx context.Context, req ChatRequest) error
}

type codeGenerationService struct {
	messenger     IMessengerService
	contextCache  *cache.ContextCache
	llmProvider   llm.LLMProvider
	assistantUrn  string
	assistantName string
	logger        logger.ILogger
}

func NewCodeGenerationService(
	messenger IMessengerService,
	contextCache *cache.ContextCache,
	llmProvider llm.LLMProvider,
	assistantUrn string,
	assistantName string,
	log logger.ILogger,
) ICodeGenerationService {
	return &codeGenerationService{
		messenger:     messenger,
		contextCache:  contextCache,
		llmProvider:   llmProvider,
		assistantUrn:  assistantUrn,
		assistantName: assistantName,
		logger:        log,
	}
}

func (s *codeGenerationService) Generate(ctx context.Context, req ChatRequest) error {
	turns, err := s.contextCache.Ensure(ctx, req.ConversationId)
	if err != nil {
		return err
	}

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
	s.appendTurn(ctx, req.ConversationId, cache.Turn{Role: constant.TurnRoleHuman, Content: req.Text})

	history := make([]llm.Message, 0, len(turns)+2)
	history = append(history, llm.Message{Role: "system", Content: constant.CodingAssistantInstruction})
	for _, turn := range turns {
		history = append(history, llm.Message{Role: toLLMRole(turn.Role), Content: turn.Content})
	}
	history = append(history, llm.Message{Role: "user", Content: req.Text})

	reply, err := s.llmProvider.Chat(ctx, history)
	if err != nil {
		s.logger.Error("CodeGeneration", "Model call failed", map[string]interface{}{
			"error": err.Error(),
		})
		body := constant.GenerationFailedMessage
		if errors.Is(err, llm.ErrRateLimited) {
			body = constant.QuotaExceededMessage
		}
		apology, recordErr := s.messenger.Record(ctx, s.assistantMessage(req, body, constant.MessageKindText, nil))
		if recordErr != nil {
			return recordErr
		}
		s.appendTurn(ctx, req.ConversationId, cache.Turn{Role: constant.TurnRoleAssistant, Content: body})
		s.messenger.Push(req.SessionId, stored, apology)
		return nil
	}

	blocks := utils.ExtractCodeBlocks(reply)
	replies := make([]*entity.Message, 0, len(blocks)+1)
	if len(blocks) == 0 {
		replies = append(replies, s.assistantMessage(req, utils.CleanModelOutput(reply), constant.MessageKindText, nil))
	}
	for _, block := range blocks {
		replies = append(replies, s.assistantMessage(req, block.Code, constant.MessageKindCode, map[string]string{
			"language": block.Language,
		}))
	}

	pushed := make([]*entity.Message, 0, len(replies)+1)
	pushed = append(pushed, stored)
	for _, msg := range replies {
		storedReply, err := s.messenger.Record(ctx, msg)
		if err != nil {
			return err
		}
		pushed = append(pushed, storedReply)
	}

	// The cached context keeps the raw reply so follow-up questions can
	// reference the code the model just produced.
	s.appendTurn(ctx, req.ConversationId, cache.Turn{Role: constant.TurnRoleAssistant, Content: reply})
	s.messenger.Push(req.SessionId, pushed...)
	return nil
}

func (s *codeGenerationService) assistantMessage(req ChatRequest, body, kind string, metadata map[string]string) *entity.Message {
	return &entity.Message{
		ConversationId:   req.ConversationId,
		Body:             body,
		SenderUrn:        s.assistantUrn,
		ReceiverUrn:      req.PeerUrn,
		SenderName:       s.assistantName,
		ReceiverName:     req.PeerName,
		MessageKind:      kind,
		ConversationKind: req.ConversationKind,
		Metadata:         metadata,
	}
}

func (s *codeGenerationService) appendTurn(ctx context.Context, conversationId string, turn cache.Turn) {
	if err := s.contextCache.AppendAndStore(ctx, conversationId, turn); err != nil {
		s.logger.Warn("CodeGeneration", "Failed to append turn to context", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
	}
}
