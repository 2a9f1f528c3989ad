package service

import (
	"context"
	"errors"
	"fmt"

	"talkback-be/internal/constant"
	"talkback-be/internal/entity"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/vectorstore"
	"talkback-be/pkg/events"
	"talkback-be/pkg/llm"
	"talkback-be/pkg/nats"
	"talkback-be/pkg/utils"
)

// IRagService manages the per-conversation knowledge index and answers
// questions against it. A query without an index degrades to a fixed
// instruction to upload a document first; it never errors.
type IRagService interface {
	Ingest(ctx context.Context, req DocumentRequest) error
	Query(ctx context.Context, req ChatRequest) error
}

type ragService struct {
	messenger     IMessengerService
	store         *vectorstore.Store
	llmProvider   llm.LLMProvider
	cleanup       ICleanupService
	publisher     *nats.Publisher
	tempDir       string
	chunkSize     int
	chunkOverlap  int
	assistantUrn  string
	assistantName string
	logger        logger.ILogger
}

func NewRagService(
	messenger IMessengerService,
	store *vectorstore.Store,
	llmProvider llm.LLMProvider,
	cleanup ICleanupService,
	publisher *nats.Publisher,
	tempDir string,
	chunkSize int,
	chunkOverlap int,
	assistantUrn string,
	assistantName string,
	log logger.ILogger,
) IRagService {
	return &ragService{
		messenger:     messenger,
		store:         store,
		llmProvider:   llmProvider,
		cleanup:       cleanup,
		publisher:     publisher,
		tempDir:       tempDir,
		chunkSize:     chunkSize,
		chunkOverlap:  chunkOverlap,
		assistantUrn:  assistantUrn,
		assistantName: assistantName,
		logger:        log,
	}
}

// Ingest extracts the uploaded document and builds or extends the
// conversation's knowledge index. Unlike generation, indexing failures
// propagate: a client must know its document was not indexed.
func (s *ragService) Ingest(ctx context.Context, req DocumentRequest) error {
	path, err := utils.SaveBase64ToTempFile(s.tempDir, req.ConversationId, "pdf", req.FileBase64)
	if err != nil {
		return fmt.Errorf("decode uploaded document: %w", err)
	}
	defer s.cleanup.Schedule(path)

	pages, err := utils.ExtractPDFPages(path)
	if err != nil {
		return fmt.Errorf("extract document %q: %w", req.FileName, err)
	}

	total, err := s.store.Ingest(ctx, req.SessionId, req.ConversationId, req.FileName, pages, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewIndexBuilt(req.SessionId, req.ConversationId, req.FileName, total)); err != nil {
			s.logger.Warn("Rag", "Failed to publish index event", map[string]interface{}{
				"conversation_id": req.ConversationId,
				"error":           err.Error(),
			})
		}
	}

	ack := &entity.Message{
		ConversationId:   req.ConversationId,
		Body:             fmt.Sprintf("Document %q indexed. You can now ask questions about it.", req.FileName),
		SenderUrn:        s.assistantUrn,
		ReceiverUrn:      req.PeerUrn,
		SenderName:       s.assistantName,
		ReceiverName:     req.PeerName,
		MessageKind:      constant.MessageKindText,
		ConversationKind: constant.ConversationKindRag,
		Metadata:         map[string]string{"source": req.FileName},
	}
	if _, err := s.messenger.RecordAndPush(ctx, req.SessionId, ack); err != nil {
		return err
	}
	return nil
}

func (s *ragService) Query(ctx context.Context, req ChatRequest) error {
	human := &entity.Message{
		ConversationId:   req.ConversationId,
		Body:             req.Text,
		SenderUrn:        req.PeerUrn,
		ReceiverUrn:      s.assistantUrn,
		SenderName:       req.PeerName,
		ReceiverName:     s.assistantName,
		MessageKind:      constant.MessageKindText,
		ConversationKind: constant.ConversationKindRag,
	}
	stored, err := s.messenger.Record(ctx, human)
	if err != nil {
		return err
	}

	reply, err := s.answer(ctx, req)
	if err != nil {
		return err
	}

	assistant := &entity.Message{
		ConversationId:   req.ConversationId,
		Body:             reply,
		SenderUrn:        s.assistantUrn,
		ReceiverUrn:      req.PeerUrn,
		SenderName:       s.assistantName,
		ReceiverName:     req.PeerName,
		MessageKind:      constant.MessageKindText,
		ConversationKind: constant.ConversationKindRag,
	}
	storedReply, err := s.messenger.Record(ctx, assistant)
	if err != nil {
		return err
	}

	s.messenger.Push(req.SessionId, stored, storedReply)
	return nil
}

func (s *ragService) answer(ctx context.Context, req ChatRequest) (string, error) {
	hits, err := s.store.Query(ctx, req.SessionId, req.ConversationId, req.Text)
	if errors.Is(err, vectorstore.ErrIndexNotBuilt) {
		return constant.RagIndexMissingMessage, nil
	}
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(constant.RagPromptTemplate, vectorstore.FormatContext(hits), req.Text)
	reply, err := s.llmProvider.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("Rag", "Model call failed", map[string]interface{}{
			"conversation_id": req.ConversationId,
			"error":           err.Error(),
		})
		if errors.Is(err, llm.ErrRateLimited) {
			return constant.QuotaExceededMessage, nil
		}
		return constant.GenerationFailedMessage, nil
	}
	return utils.CleanModelOutput(reply), nil
}
