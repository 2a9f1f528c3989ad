package service

import (
	"context"
	"errors"
	"io"

	"talkback-be/internal/cache"
	"talkback-be/internal/constant"
	"talkback-be/internal/entity"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/websocket"
	"talkback-be/pkg/llm"
	"talkback-be/pkg/speech"
	"talkback-be/pkg/utils"
)

// ITextGenerationService answers a text utterance: it persists the human
// turn, assembles the rolling context, generates a reply, persists and
// pushes it, then streams a spoken rendition of the reply best-effort.
type ITextGenerationService interface {
	Generate(ctx context.Context, req ChatRequest) error
}

type textGenerationService struct {
	messenger     IMessengerService
	registry      *websocket.Registry
	contextCache  *cache.ContextCache
	llmProvider   llm.LLMProvider
	synthesizer   speech.Synthesizer
	assistantUrn  string
	assistantName string
	logger        logger.ILogger
}

func NewTextGenerationService(
	messenger IMessengerService,
	registry *websocket.Registry,
	contextCache *cache.ContextCache,
	llmProvider llm.LLMProvider,
	synthesizer speech.Synthesizer,
	assistantUrn string,
	assistantName string,
	log logger.ILogger,
) ITextGenerationService {
	return &textGenerationService{
		messenger:     messenger,
		registry:      registry,
		contextCache:  contextCache,
		llmProvider:   llmProvider,
		synthesizer:   synthesizer,
		assistantUrn:  assistantUrn,
		assistantName: assistantName,
		logger:        log,
	}
}

func (s *textGenerationService) Generate(ctx context.Context, req ChatRequest) error {
	// Context must exist before the new turn is appended so the rebuild,
	// if one happens, replays only history prior to this utterance.
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

	reply, degraded := s.complete(ctx, turns, req.Text)

	assistant := &entity.Message{
		ConversationId:   req.ConversationId,
		Body:             reply,
		SenderUrn:        s.assistantUrn,
		ReceiverUrn:      req.PeerUrn,
		SenderName:       s.assistantName,
		ReceiverName:     req.PeerName,
		MessageKind:      constant.MessageKindText,
		ConversationKind: req.ConversationKind,
	}
	storedReply, err := s.messenger.Record(ctx, assistant)
	if err != nil {
		return err
	}
	s.appendTurn(ctx, req.ConversationId, cache.Turn{Role: constant.TurnRoleAssistant, Content: reply})

	s.messenger.Push(req.SessionId, stored, storedReply)

	if !degraded {
		s.speak(ctx, req.SessionId, reply)
	}
	return nil
}

// complete runs the model over the assembled context. Capability exhaustion
// and other generation failures degrade to fixed apology replies so that a
// reply message is always produced for a well-formed request.
func (s *textGenerationService) complete(ctx context.Context, turns []cache.Turn, text string) (string, bool) {
	history := make([]llm.Message, 0, len(turns)+2)
	history = append(history, llm.Message{Role: "system", Content: constant.BriefAnswerInstruction})
	for _, turn := range turns {
		history = append(history, llm.Message{Role: toLLMRole(turn.Role), Content: turn.Content})
	}
	history = append(history, llm.Message{Role: "user", Content: text})

	reply, err := s.llmProvider.Chat(ctx, history)
	if err != nil {
		s.logger.Error("TextGeneration", "Model call failed", map[string]interface{}{
			"error": err.Error(),
		})
		if errors.Is(err, llm.ErrRateLimited) {
			return constant.QuotaExceededMessage, true
		}
		return constant.GenerationFailedMessage, true
	}
	return utils.CleanModelOutput(reply), false
}

func (s *textGenerationService) appendTurn(ctx context.Context, conversationId string, turn cache.Turn) {
	if err := s.contextCache.AppendAndStore(ctx, conversationId, turn); err != nil {
		// Tolerated: the next cache miss rebuilds the context from the log.
		s.logger.Warn("TextGeneration", "Failed to append turn to context", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
	}
}

// speak streams synthesized audio for the reply to the session. A streaming
// failure falls back to one whole-buffer synthesis; both paths are
// best-effort and never fail the pipeline.
func (s *textGenerationService) speak(ctx context.Context, sessionId, text string) {
	if s.synthesizer == nil {
		return
	}

	stream, err := s.synthesizer.SynthesizeStream(ctx, text)
	if err == nil {
		defer stream.Close()
		buf := make([]byte, 32*1024)
		for {
			n, readErr := stream.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !s.pushAudio(sessionId, chunk) {
					return
				}
			}
			if readErr == io.EOF {
				return
			}
			if readErr != nil {
				err = readErr
				break
			}
		}
	}

	s.logger.Warn("TextGeneration", "Streaming synthesis failed, retrying whole", map[string]interface{}{
		"error": err.Error(),
	})
	audio, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		s.logger.Warn("TextGeneration", "Speech synthesis failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	s.pushAudio(sessionId, audio)
}

func (s *textGenerationService) pushAudio(sessionId string, data []byte) bool {
	return s.registry.PushBytes(sessionId, data)
}

func toLLMRole(turnRole string) string {
	if turnRole == constant.TurnRoleAssistant {
		return "assistant"
	}
	return "user"
}
