package cache

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"talkback-be/internal/constant"
	"talkback-be/internal/entity"
	"talkback-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assistantUrn = "urn:assistant"

// fakeMessageLog is an in-memory stand-in for the durable log, returning
// messages in timestamp-descending order like the real repository.
type fakeMessageLog struct {
	messages []*entity.Message
}

func (f *fakeMessageLog) Append(_ context.Context, msg *entity.Message) (*entity.Message, error) {
	msg.Id = uuid.New()
	msg.Timestamp = time.Now().Add(time.Duration(len(f.messages)) * time.Millisecond)
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeMessageLog) FetchByParticipant(_ context.Context, urn, kind string) ([]*entity.Message, error) {
	return nil, nil
}

func (f *fakeMessageLog) FetchByConversation(_ context.Context, conversationId, kind string) ([]*entity.Message, error) {
	var out []*entity.Message
	for _, msg := range f.messages {
		if msg.ConversationId == conversationId {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (f *fakeMessageLog) DeleteByConversation(_ context.Context, conversationId string) bool {
	kept := f.messages[:0]
	for _, msg := range f.messages {
		if msg.ConversationId != conversationId {
			kept = append(kept, msg)
		}
	}
	f.messages = kept
	return true
}

func newTestCache(t *testing.T) (*ContextCache, *fakeMessageLog) {
	t.Helper()
	log := logger.NewZapLogger(filepath.Join(t.TempDir(), "test.log"), false)
	repo := &fakeMessageLog{}
	return NewContextCache(NewMemoryStore(), repo, assistantUrn, 0, log), repo
}

func appendText(t *testing.T, repo *fakeMessageLog, conversationId, sender, body string) {
	t.Helper()
	_, err := repo.Append(context.Background(), &entity.Message{
		ConversationId: conversationId,
		Body:           body,
		SenderUrn:      sender,
		MessageKind:    constant.MessageKindText,
	})
	require.NoError(t, err)
}

func TestEnsureRebuildsFromLogOnMiss(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	appendText(t, repo, "conv-1", "urn:user", "hello")
	appendText(t, repo, "conv-1", assistantUrn, "hi there")
	appendText(t, repo, "conv-1", "urn:user", "how are you")

	turns, err := cache.Ensure(ctx, "conv-1")
	require.NoError(t, err)

	assert.Equal(t, []Turn{
		{Role: constant.TurnRoleHuman, Content: "hello"},
		{Role: constant.TurnRoleAssistant, Content: "hi there"},
		{Role: constant.TurnRoleHuman, Content: "how are you"},
	}, turns)

	// The rebuilt context must now be served from the store.
	_, found, err := cache.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRebuildSkipsNonTextMessages(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	appendText(t, repo, "conv-1", "urn:user", "draw me a cat")
	_, err := repo.Append(ctx, &entity.Message{
		ConversationId: "conv-1",
		Body:           "base64-image-bytes",
		SenderUrn:      assistantUrn,
		MessageKind:    constant.MessageKindImage,
	})
	require.NoError(t, err)

	turns, err := cache.Rebuild(ctx, "conv-1")
	require.NoError(t, err)

	require.Len(t, turns, 1)
	assert.Equal(t, "draw me a cat", turns[0].Content)
}

func TestAppendAndStoreExtendsCachedContext(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	appendText(t, repo, "conv-1", "urn:user", "hello")
	_, err := cache.Ensure(ctx, "conv-1")
	require.NoError(t, err)

	require.NoError(t, cache.AppendAndStore(ctx, "conv-1", Turn{Role: constant.TurnRoleAssistant, Content: "hi"}))

	turns, found, err := cache.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []Turn{
		{Role: constant.TurnRoleHuman, Content: "hello"},
		{Role: constant.TurnRoleAssistant, Content: "hi"},
	}, turns)
}

func TestAppendAndStoreOnMissRebuildsInstead(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	appendText(t, repo, "conv-1", "urn:user", "hello")
	appendText(t, repo, "conv-1", assistantUrn, "hi")

	// No prior Ensure: the append sees a miss and rebuilds from the log,
	// which already contains both turns.
	require.NoError(t, cache.AppendAndStore(ctx, "conv-1", Turn{Role: constant.TurnRoleAssistant, Content: "hi"}))

	turns, found, err := cache.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, turns, 2)
}

func TestClearedContextRebuildsFromLog(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	appendText(t, repo, "conv-1", "urn:user", "hello")
	_, err := cache.Ensure(ctx, "conv-1")
	require.NoError(t, err)

	require.NoError(t, cache.Clear(ctx, "conv-1"))

	_, found, err := cache.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, found)

	// Round-trip property: replaying the log reproduces the context.
	turns, err := cache.Ensure(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Content)
}

func TestConversationsAreIsolated(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	appendText(t, repo, "conv-1", "urn:user", "first thread")
	appendText(t, repo, "conv-2", "urn:user", "second thread")

	turns1, err := cache.Ensure(ctx, "conv-1")
	require.NoError(t, err)
	turns2, err := cache.Ensure(ctx, "conv-2")
	require.NoError(t, err)

	require.Len(t, turns1, 1)
	require.Len(t, turns2, 1)
	assert.Equal(t, "first thread", turns1[0].Content)
	assert.Equal(t, "second thread", turns2[0].Content)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	raw, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), raw)

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
