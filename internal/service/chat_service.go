package service

import (
	"context"

	"talkback-be/internal/cache"
	"talkback-be/internal/dto"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/repository/contract"
	"talkback-be/internal/vectorstore"
	"talkback-be/pkg/events"
	"talkback-be/pkg/nats"
)

// IChatService serves conversation history and deletion over HTTP. History
// reads come straight from the durable log; deletion clears the log row set,
// the cached context and the knowledge index for the conversation.
type IChatService interface {
	History(ctx context.Context, conversationId, conversationKind string) (*dto.ConversationHistoryResponse, error)
	HistoryByParticipant(ctx context.Context, participantUrn, conversationKind string) ([]dto.ConversationHistoryResponse, error)
	Delete(ctx context.Context, sessionId, conversationId string) *dto.DeleteConversationResponse
}

type chatService struct {
	messages     contract.MessageRepository
	contextCache *cache.ContextCache
	store        *vectorstore.Store
	publisher    *nats.Publisher
	logger       logger.ILogger
}

func NewChatService(
	messages contract.MessageRepository,
	contextCache *cache.ContextCache,
	store *vectorstore.Store,
	publisher *nats.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		messages:     messages,
		contextCache: contextCache,
		store:        store,
		publisher:    publisher,
		logger:       log,
	}
}

func (s *chatService) History(ctx context.Context, conversationId, conversationKind string) (*dto.ConversationHistoryResponse, error) {
	messages, err := s.messages.FetchByConversation(ctx, conversationId, conversationKind)
	if err != nil {
		return nil, err
	}

	records := make([]dto.MessageRecord, 0, len(messages))
	for _, msg := range messages {
		records = append(records, toRecord(msg))
	}
	return &dto.ConversationHistoryResponse{
		ConversationId: conversationId,
		Messages:       records,
	}, nil
}

// HistoryByParticipant returns the participant's messages grouped per
// conversation, preserving the timestamp-descending order inside each group.
// Each conversation encountered gets its context cache warmed so a follow-up
// utterance skips the rebuild-from-log path.
func (s *chatService) HistoryByParticipant(ctx context.Context, participantUrn, conversationKind string) ([]dto.ConversationHistoryResponse, error) {
	messages, err := s.messages.FetchByParticipant(ctx, participantUrn, conversationKind)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	grouped := make(map[string][]dto.MessageRecord)
	for _, msg := range messages {
		if _, seen := grouped[msg.ConversationId]; !seen {
			order = append(order, msg.ConversationId)
		}
		grouped[msg.ConversationId] = append(grouped[msg.ConversationId], toRecord(msg))
	}

	conversations := make([]dto.ConversationHistoryResponse, 0, len(order))
	for _, conversationId := range order {
		if _, err := s.contextCache.Ensure(ctx, conversationId); err != nil {
			s.logger.Warn("Chat", "Failed to warm cached context", map[string]interface{}{
				"conversation_id": conversationId,
				"error":           err.Error(),
			})
		}
		conversations = append(conversations, dto.ConversationHistoryResponse{
			ConversationId: conversationId,
			Messages:       grouped[conversationId],
		})
	}
	return conversations, nil
}

// Delete removes the conversation's log partition and its derived state.
// The log is authoritative: cache and index removal failures are logged and
// tolerated since both rebuild or report absence safely afterwards.
func (s *chatService) Delete(ctx context.Context, sessionId, conversationId string) *dto.DeleteConversationResponse {
	deleted := s.messages.DeleteByConversation(ctx, conversationId)

	if err := s.contextCache.Clear(ctx, conversationId); err != nil {
		s.logger.Warn("Chat", "Failed to clear cached context", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
	}
	if err := s.store.Drop(sessionId, conversationId); err != nil {
		s.logger.Warn("Chat", "Failed to drop knowledge index", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewConversationDeleted(conversationId, deleted)); err != nil {
			s.logger.Warn("Chat", "Failed to publish delete event", map[string]interface{}{
				"conversation_id": conversationId,
				"error":           err.Error(),
			})
		}
	}

	return &dto.DeleteConversationResponse{
		ConversationId: conversationId,
		Deleted:        deleted,
	}
}
