package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"talkback-be/internal/constant"
	"talkback-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTextGenService(fx *testFixture, model *fakeLLM) ITextGenerationService {
	return NewTextGenerationService(
		fx.messenger, fx.registry, fx.contextCache, model, nil,
		"urn:assistant", "Talkback", fx.logger,
	)
}

// fakeSynthesizer counts calls to both delivery strategies. Its stream
// fails with readErr on the first read; streamErr fails stream creation.
type fakeSynthesizer struct {
	streamErr   error
	readErr     error
	streamCalls int
	wholeCalls  int
}

func (f *fakeSynthesizer) SynthesizeStream(_ context.Context, _ string) (io.ReadCloser, error) {
	f.streamCalls++
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return &failingStream{err: f.readErr}, nil
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	f.wholeCalls++
	return []byte("audio-bytes"), nil
}

type failingStream struct{ err error }

func (s *failingStream) Read(_ []byte) (int, error) { return 0, s.err }
func (s *failingStream) Close() error               { return nil }

func chatReq(text string) ChatRequest {
	return ChatRequest{
		SessionId:        "session-1",
		ConversationId:   "conv-1",
		PeerUrn:          "urn:user",
		PeerName:         "User",
		ConversationKind: constant.ConversationKindChat,
		Text:             text,
	}
}

func TestGeneratePersistsBothTurns(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{reply: "Hi, how can I help?"}
	svc := newTextGenService(fx, model)

	require.NoError(t, svc.Generate(context.Background(), chatReq("hello")))

	require.Len(t, fx.repo.messages, 2)
	assert.Equal(t, "hello", fx.repo.messages[0].Body)
	assert.Equal(t, "urn:user", fx.repo.messages[0].SenderUrn)
	assert.Equal(t, "Hi, how can I help?", fx.repo.messages[1].Body)
	assert.Equal(t, "urn:assistant", fx.repo.messages[1].SenderUrn)
}

func TestGenerateFeedsPriorContextToModel(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{reply: "answer"}
	svc := newTextGenService(fx, model)
	ctx := context.Background()

	require.NoError(t, svc.Generate(ctx, chatReq("first question")))
	require.NoError(t, svc.Generate(ctx, chatReq("second question")))

	// system + first exchange + new utterance
	require.Len(t, model.lastHistory, 4)
	assert.Equal(t, "system", model.lastHistory[0].Role)
	assert.Equal(t, constant.BriefAnswerInstruction, model.lastHistory[0].Content)
	assert.Equal(t, "first question", model.lastHistory[1].Content)
	assert.Equal(t, "assistant", model.lastHistory[2].Role)
	assert.Equal(t, "second question", model.lastHistory[3].Content)
}

func TestGenerateRateLimitDegradesToApology(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{err: llm.ErrRateLimited}
	svc := newTextGenService(fx, model)

	require.NoError(t, svc.Generate(context.Background(), chatReq("hello")))

	require.Len(t, fx.repo.messages, 2)
	assert.Equal(t, constant.QuotaExceededMessage, fx.repo.messages[1].Body)
}

func TestGenerateOtherFailureDegradesToGenericApology(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{err: context.DeadlineExceeded}
	svc := newTextGenService(fx, model)

	require.NoError(t, svc.Generate(context.Background(), chatReq("hello")))

	require.Len(t, fx.repo.messages, 2)
	assert.Equal(t, constant.GenerationFailedMessage, fx.repo.messages[1].Body)
}

func TestSpeakFallsBackToWholeSynthesisOnStreamReadError(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{reply: "spoken reply"}
	synth := &fakeSynthesizer{readErr: errors.New("connection reset")}
	svc := NewTextGenerationService(
		fx.messenger, fx.registry, fx.contextCache, model, synth,
		"urn:assistant", "Talkback", fx.logger,
	)

	require.NoError(t, svc.Generate(context.Background(), chatReq("hello")))

	assert.Equal(t, 1, synth.streamCalls)
	assert.Equal(t, 1, synth.wholeCalls, "read failure should retry with whole-buffer synthesis")
}

func TestSpeakFallsBackWhenStreamCannotBeOpened(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{reply: "spoken reply"}
	synth := &fakeSynthesizer{streamErr: errors.New("service unavailable")}
	svc := NewTextGenerationService(
		fx.messenger, fx.registry, fx.contextCache, model, synth,
		"urn:assistant", "Talkback", fx.logger,
	)

	require.NoError(t, svc.Generate(context.Background(), chatReq("hello")))

	assert.Equal(t, 1, synth.streamCalls)
	assert.Equal(t, 1, synth.wholeCalls)
}

func TestSpeakIsSkippedForDegradedReplies(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{err: llm.ErrRateLimited}
	synth := &fakeSynthesizer{}
	svc := NewTextGenerationService(
		fx.messenger, fx.registry, fx.contextCache, model, synth,
		"urn:assistant", "Talkback", fx.logger,
	)

	require.NoError(t, svc.Generate(context.Background(), chatReq("hello")))

	assert.Zero(t, synth.streamCalls)
	assert.Zero(t, synth.wholeCalls)
}

func TestGenerateUpdatesCachedContext(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{reply: "reply"}
	svc := newTextGenService(fx, model)
	ctx := context.Background()

	require.NoError(t, svc.Generate(ctx, chatReq("hello")))

	turns, found, err := fx.contextCache.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, turns, 2)
	assert.Equal(t, constant.TurnRoleHuman, turns[0].Role)
	assert.Equal(t, constant.TurnRoleAssistant, turns[1].Role)
}
