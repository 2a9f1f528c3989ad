package service

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"talkback-be/internal/cache"
	"talkback-be/internal/entity"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/websocket"
	"talkback-be/pkg/llm"

	"github.com/google/uuid"
)

// fakeMessageLog is the in-memory durable log used across the service tests.
type fakeMessageLog struct {
	messages []*entity.Message
}

func (f *fakeMessageLog) Append(_ context.Context, msg *entity.Message) (*entity.Message, error) {
	stored := *msg
	stored.Id = uuid.New()
	stored.Timestamp = time.Now().Add(time.Duration(len(f.messages)) * time.Millisecond)
	f.messages = append(f.messages, &stored)
	return &stored, nil
}

func (f *fakeMessageLog) FetchByParticipant(_ context.Context, urn, kind string) ([]*entity.Message, error) {
	var out []*entity.Message
	for _, msg := range f.messages {
		if msg.SenderUrn != urn && msg.ReceiverUrn != urn {
			continue
		}
		if kind != "" && msg.ConversationKind != kind {
			continue
		}
		out = append(out, msg)
	}
	sortDesc(out)
	return out, nil
}

func (f *fakeMessageLog) FetchByConversation(_ context.Context, conversationId, kind string) ([]*entity.Message, error) {
	var out []*entity.Message
	for _, msg := range f.messages {
		if msg.ConversationId != conversationId {
			continue
		}
		if kind != "" && msg.ConversationKind != kind {
			continue
		}
		out = append(out, msg)
	}
	sortDesc(out)
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

func sortDesc(messages []*entity.Message) {
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
}

// fakeLLM returns a canned reply, or the configured error, and keeps the
// last history it was handed.
type fakeLLM struct {
	reply       string
	err         error
	lastHistory []llm.Message
	lastPrompt  string
}

func (f *fakeLLM) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	f.lastHistory = history
	return f.reply, f.err
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

// fakeCleanup records scheduled paths instead of deleting them.
type fakeCleanup struct {
	scheduled []string
}

func (f *fakeCleanup) Schedule(path string) {
	f.scheduled = append(f.scheduled, path)
}

func (f *fakeCleanup) Consume(_ context.Context) error {
	return nil
}

type testFixture struct {
	repo         *fakeMessageLog
	registry     *websocket.Registry
	messenger    IMessengerService
	contextCache *cache.ContextCache
	logger       logger.ILogger
}

func newFixture(t *testing.T, assistantUrn string) *testFixture {
	t.Helper()
	log := logger.NewZapLogger(filepath.Join(t.TempDir(), "test.log"), false)
	repo := &fakeMessageLog{}
	registry := websocket.NewRegistry(log)
	return &testFixture{
		repo:         repo,
		registry:     registry,
		messenger:    NewMessengerService(repo, registry, nil, log),
		contextCache: cache.NewContextCache(cache.NewMemoryStore(), repo, assistantUrn, 0, log),
		logger:       log,
	}
}
