package service

import (
	"context"
	"testing"

	"talkback-be/internal/constant"
	"talkback-be/internal/entity"
	"talkback-be/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatFixture(t *testing.T) (*testFixture, IChatService, *vectorstore.Store) {
	t.Helper()
	fx := newFixture(t, "urn:assistant")
	store := vectorstore.NewStore(t.TempDir(), flatEmbedder{}, 6, fx.logger)
	svc := NewChatService(fx.repo, fx.contextCache, store, nil, fx.logger)
	return fx, svc, store
}

func seedMessage(t *testing.T, fx *testFixture, conversationId, sender, receiver, body string) {
	t.Helper()
	_, err := fx.repo.Append(context.Background(), &entity.Message{
		ConversationId:   conversationId,
		Body:             body,
		SenderUrn:        sender,
		ReceiverUrn:      receiver,
		MessageKind:      constant.MessageKindText,
		ConversationKind: constant.ConversationKindChat,
	})
	require.NoError(t, err)
}

func TestHistoryReturnsConversationNewestFirst(t *testing.T) {
	fx, svc, _ := newChatFixture(t)

	seedMessage(t, fx, "conv-1", "urn:user", "urn:assistant", "hello")
	seedMessage(t, fx, "conv-1", "urn:assistant", "urn:user", "hi")
	seedMessage(t, fx, "conv-2", "urn:user", "urn:assistant", "other thread")

	res, err := svc.History(context.Background(), "conv-1", "")
	require.NoError(t, err)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, "hi", res.Messages[0].Body)
	assert.Equal(t, "hello", res.Messages[1].Body)
}

func TestHistoryByParticipantGroupsPerConversation(t *testing.T) {
	fx, svc, _ := newChatFixture(t)

	seedMessage(t, fx, "conv-1", "urn:user", "urn:assistant", "first thread")
	seedMessage(t, fx, "conv-2", "urn:user", "urn:assistant", "second thread")
	seedMessage(t, fx, "conv-1", "urn:assistant", "urn:user", "reply")

	conversations, err := svc.HistoryByParticipant(context.Background(), "urn:user", "")
	require.NoError(t, err)

	require.Len(t, conversations, 2)
	byId := map[string]int{}
	for _, conv := range conversations {
		byId[conv.ConversationId] = len(conv.Messages)
	}
	assert.Equal(t, 2, byId["conv-1"])
	assert.Equal(t, 1, byId["conv-2"])
}

func TestHistoryByParticipantListsSelfMessageOnce(t *testing.T) {
	fx, svc, _ := newChatFixture(t)

	seedMessage(t, fx, "conv-1", "urn:user", "urn:user", "note to self")

	conversations, err := svc.HistoryByParticipant(context.Background(), "urn:user", "")
	require.NoError(t, err)

	require.Len(t, conversations, 1)
	assert.Len(t, conversations[0].Messages, 1)
}

func TestHistoryByParticipantWarmsContextPerConversation(t *testing.T) {
	fx, svc, _ := newChatFixture(t)
	ctx := context.Background()

	seedMessage(t, fx, "conv-1", "urn:user", "urn:assistant", "first thread")
	seedMessage(t, fx, "conv-2", "urn:user", "urn:assistant", "second thread")

	_, err := svc.HistoryByParticipant(ctx, "urn:user", "")
	require.NoError(t, err)

	for _, conversationId := range []string{"conv-1", "conv-2"} {
		turns, found, err := fx.contextCache.Get(ctx, conversationId)
		require.NoError(t, err)
		assert.True(t, found, "context for %s should be cached after fetch", conversationId)
		require.Len(t, turns, 1)
	}
}

func TestDeleteRemovesLogContextAndIndex(t *testing.T) {
	fx, svc, store := newChatFixture(t)
	ctx := context.Background()

	seedMessage(t, fx, "conv-1", "urn:user", "urn:assistant", "hello")
	_, err := fx.contextCache.Ensure(ctx, "conv-1")
	require.NoError(t, err)
	_, err = store.Ingest(ctx, "session-1", "conv-1", "doc.pdf", []string{"facts"}, 1000, 200)
	require.NoError(t, err)

	res := svc.Delete(ctx, "session-1", "conv-1")

	assert.True(t, res.Deleted)
	assert.Empty(t, fx.repo.messages)
	_, found, err := fx.contextCache.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, store.Exists("session-1", "conv-1"))
}

func TestDeleteIsIdempotent(t *testing.T) {
	_, svc, _ := newChatFixture(t)
	ctx := context.Background()

	first := svc.Delete(ctx, "session-1", "conv-1")
	second := svc.Delete(ctx, "session-1", "conv-1")

	assert.True(t, first.Deleted)
	assert.True(t, second.Deleted)
}
