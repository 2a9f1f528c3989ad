package event

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"talkback-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	return NewRouter(logger.NewZapLogger(filepath.Join(t.TempDir(), "test.log"), false))
}

func TestDispatchFirstMatchWins(t *testing.T) {
	router := newTestRouter(t)

	var hit string
	router.Register(`^message/text/rag/query$`, func(_ context.Context, _ Payload) (Result, error) {
		hit = "rag"
		return nil, nil
	})
	router.Register(`^message/text/.*$`, func(_ context.Context, _ Payload) (Result, error) {
		hit = "generic"
		return nil, nil
	})

	_, err := router.Dispatch(context.Background(), "message/text/rag/query", Payload{})

	require.NoError(t, err)
	assert.Equal(t, "rag", hit)
}

func TestDispatchMergesNamedCaptures(t *testing.T) {
	router := newTestRouter(t)

	var got string
	router.Register(`^message/text/(?P<task>\w+)$`, func(_ context.Context, payload Payload) (Result, error) {
		got = payload.String("task")
		return nil, nil
	})

	_, err := router.Dispatch(context.Background(), "message/text/code_generation", Payload{"session_id": "s-1"})

	require.NoError(t, err)
	assert.Equal(t, "code_generation", got)
}

func TestDispatchDoesNotMutateCallerPayload(t *testing.T) {
	router := newTestRouter(t)
	router.Register(`^message/text/(?P<task>\w+)$`, func(_ context.Context, _ Payload) (Result, error) {
		return nil, nil
	})

	payload := Payload{"session_id": "s-1"}
	_, err := router.Dispatch(context.Background(), "message/text/text_generation", payload)

	require.NoError(t, err)
	_, leaked := payload["task"]
	assert.False(t, leaked)
}

func TestDispatchUnknownEventIsNoOp(t *testing.T) {
	router := newTestRouter(t)
	router.Register(`^message/text/text_generation$`, func(_ context.Context, _ Payload) (Result, error) {
		t.Fatal("handler must not run")
		return nil, nil
	})

	result, err := router.Dispatch(context.Background(), "message/video/unknown", Payload{})

	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	router := newTestRouter(t)
	router.Register(`^boom$`, func(_ context.Context, _ Payload) (Result, error) {
		panic("handler exploded")
	})

	result, err := router.Dispatch(context.Background(), "boom", Payload{})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler exploded")
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	router := newTestRouter(t)
	wantErr := errors.New("pipeline failed")
	router.Register(`^fail$`, func(_ context.Context, _ Payload) (Result, error) {
		return nil, wantErr
	})

	_, err := router.Dispatch(context.Background(), "fail", Payload{})

	assert.ErrorIs(t, err, wantErr)
}

func TestRegisterNilHandlerPanics(t *testing.T) {
	router := newTestRouter(t)

	assert.Panics(t, func() {
		router.Register(`^x$`, nil)
	})
}

func TestPayloadAccessors(t *testing.T) {
	payload := Payload{"text": "hello", "count": 3}

	assert.Equal(t, "hello", payload.String("text"))
	assert.Equal(t, "", payload.String("count"))
	assert.Equal(t, "", payload.String("missing"))
}
