package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"talkback-be/internal/constant"
	"talkback-be/internal/entity"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/repository/contract"
)

// Turn is one role-tagged utterance in the rolling context used for
// generation.
type Turn struct {
	Role    string `json:"role"` // "human" | "assistant"
	Content string `json:"content"`
}

// ContextCache holds the rolling conversation context per conversation id.
// If present, the cached turns are a projection of the durable message log;
// on miss the context is rebuilt by replaying the log (read-through).
type ContextCache struct {
	store        Store
	messages     contract.MessageRepository
	assistantUrn string
	ttl          time.Duration
	logger       logger.ILogger
}

func NewContextCache(
	store Store,
	messages contract.MessageRepository,
	assistantUrn string,
	ttl time.Duration,
	log logger.ILogger,
) *ContextCache {
	return &ContextCache{
		store:        store,
		messages:     messages,
		assistantUrn: assistantUrn,
		ttl:          ttl,
		logger:       log,
	}
}

func (c *ContextCache) Get(ctx context.Context, conversationId string) ([]Turn, bool, error) {
	raw, found, err := c.store.Get(ctx, c.key(conversationId))
	if err != nil {
		return nil, false, fmt.Errorf("context cache get: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached context: %w", err)
	}
	return turns, true, nil
}

func (c *ContextCache) Set(ctx context.Context, conversationId string, turns []Turn) error {
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	if err := c.store.Set(ctx, c.key(conversationId), raw, c.ttl); err != nil {
		return fmt.Errorf("context cache set: %w", err)
	}
	return nil
}

// Ensure returns the cached context, rebuilding it from the message log on a
// miss. Rebuild replays the conversation's text messages in chronological
// order, tagging each turn by comparing the sender to the assistant identity.
func (c *ContextCache) Ensure(ctx context.Context, conversationId string) ([]Turn, error) {
	turns, found, err := c.Get(ctx, conversationId)
	if err != nil {
		c.logger.Warn("ContextCache", "Cache read failed, rebuilding from log", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
	} else if found {
		return turns, nil
	}

	turns, err = c.Rebuild(ctx, conversationId)
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, conversationId, turns); err != nil {
		// Acceptable-but-logged inconsistency: the next read rebuilds again.
		c.logger.Warn("ContextCache", "Failed to store rebuilt context", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
	}
	return turns, nil
}

// Rebuild projects the durable log into turns without touching the store.
func (c *ContextCache) Rebuild(ctx context.Context, conversationId string) ([]Turn, error) {
	messages, err := c.messages.FetchByConversation(ctx, conversationId, "")
	if err != nil {
		return nil, fmt.Errorf("rebuild context from log: %w", err)
	}

	// Log ordering is timestamp descending; replay needs chronological order.
	turns := make([]Turn, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.MessageKind != constant.MessageKindText {
			continue
		}
		turns = append(turns, c.toTurn(msg))
	}
	return turns, nil
}

// AppendAndStore adds one turn to the cached context and writes it back. The
// caller appends the matching message to the durable log in the same logical
// step; a lost update between the two is tolerated and healed on next rebuild.
func (c *ContextCache) AppendAndStore(ctx context.Context, conversationId string, turn Turn) error {
	turns, found, err := c.Get(ctx, conversationId)
	if err != nil || !found {
		turns, err = c.Rebuild(ctx, conversationId)
		if err != nil {
			return err
		}
		return c.Set(ctx, conversationId, turns)
	}
	return c.Set(ctx, conversationId, append(turns, turn))
}

func (c *ContextCache) Clear(ctx context.Context, conversationId string) error {
	return c.store.Delete(ctx, c.key(conversationId))
}

func (c *ContextCache) toTurn(msg *entity.Message) Turn {
	role := constant.TurnRoleHuman
	if msg.SenderUrn == c.assistantUrn {
		role = constant.TurnRoleAssistant
	}
	return Turn{Role: role, Content: msg.Body}
}

func (c *ContextCache) key(conversationId string) string {
	return fmt.Sprintf("chat:context:%s", conversationId)
}
