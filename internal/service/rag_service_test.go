package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"talkback-be/internal/constant"
	"talkback-be/internal/vectorstore"
	"talkback-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatEmbedder struct{}

func (flatEmbedder) Generate(_ context.Context, _ string, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newRagFixture(t *testing.T) (*testFixture, IRagService, *vectorstore.Store, *fakeLLM, *fakeCleanup) {
	t.Helper()
	fx := newFixture(t, "urn:assistant")
	store := vectorstore.NewStore(t.TempDir(), flatEmbedder{}, 6, fx.logger)
	model := &fakeLLM{reply: "grounded answer"}
	cleanup := &fakeCleanup{}
	svc := NewRagService(
		fx.messenger, store, model, cleanup, nil,
		t.TempDir(), 1000, 200,
		"urn:assistant", "Talkback", fx.logger,
	)
	return fx, svc, store, model, cleanup
}

func ragReq(text string) ChatRequest {
	return ChatRequest{
		SessionId:        "session-1",
		ConversationId:   "conv-1",
		PeerUrn:          "urn:user",
		PeerName:         "User",
		ConversationKind: constant.ConversationKindRag,
		Text:             text,
	}
}

func TestQueryWithoutIndexReturnsFallback(t *testing.T) {
	fx, svc, _, model, _ := newRagFixture(t)

	require.NoError(t, svc.Query(context.Background(), ragReq("what does the doc say")))

	require.Len(t, fx.repo.messages, 2)
	assert.Equal(t, constant.RagIndexMissingMessage, fx.repo.messages[1].Body)
	// No retrieval means no generation either.
	assert.Empty(t, model.lastPrompt)
}

func TestQueryWithIndexGeneratesFromRetrievedContext(t *testing.T) {
	fx, svc, store, model, _ := newRagFixture(t)
	ctx := context.Background()

	_, err := store.Ingest(ctx, "session-1", "conv-1", "manual.pdf",
		[]string{"the widget requires 9 volts"}, 1000, 200)
	require.NoError(t, err)

	require.NoError(t, svc.Query(ctx, ragReq("what voltage does the widget need")))

	require.Len(t, fx.repo.messages, 2)
	assert.Equal(t, "grounded answer", fx.repo.messages[1].Body)
	assert.Contains(t, model.lastPrompt, "the widget requires 9 volts")
	assert.Contains(t, model.lastPrompt, "what voltage does the widget need")
}

func TestQueryRateLimitDegradesToApology(t *testing.T) {
	fx, svc, store, model, _ := newRagFixture(t)
	ctx := context.Background()

	_, err := store.Ingest(ctx, "session-1", "conv-1", "manual.pdf", []string{"facts"}, 1000, 200)
	require.NoError(t, err)
	model.err = llm.ErrRateLimited

	require.NoError(t, svc.Query(ctx, ragReq("question")))

	require.Len(t, fx.repo.messages, 2)
	assert.Equal(t, constant.QuotaExceededMessage, fx.repo.messages[1].Body)
}

func TestIngestRejectsUndecodableDocument(t *testing.T) {
	fx, svc, _, _, _ := newRagFixture(t)

	err := svc.Ingest(context.Background(), DocumentRequest{
		SessionId:      "session-1",
		ConversationId: "conv-1",
		FileName:       "broken.pdf",
		FileBase64:     "%%% not base64 %%%",
	})

	assert.Error(t, err)
	assert.Empty(t, fx.repo.messages)
}

func TestIngestFailureSchedulesTempCleanup(t *testing.T) {
	fx, svc, _, _, cleanup := newRagFixture(t)

	// Valid base64, but not a parsable PDF: extraction must fail and the
	// decoded temp file must still be scheduled for removal.
	err := svc.Ingest(context.Background(), DocumentRequest{
		SessionId:      "session-1",
		ConversationId: "conv-1",
		FileName:       "junk.pdf",
		FileBase64:     base64.StdEncoding.EncodeToString([]byte("plain text, not a pdf")),
	})

	assert.Error(t, err)
	assert.Empty(t, fx.repo.messages)
	require.Len(t, cleanup.scheduled, 1)
	assert.True(t, strings.HasSuffix(cleanup.scheduled[0], ".pdf"))
}
