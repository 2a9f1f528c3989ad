package service

import (
	"context"
	"testing"

	"talkback-be/internal/constant"
	"talkback-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodeGenService(fx *testFixture, model *fakeLLM) ICodeGenerationService {
	return NewCodeGenerationService(
		fx.messenger, fx.contextCache, model,
		"urn:assistant", "Talkback", fx.logger,
	)
}

func TestCodeGenerationPersistsEachBlockWithLanguage(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{reply: "Here you go:\n```go\nfunc main() {}\n```\nand a helper:\n```python\nprint(1)\n```"}
	svc := newCodeGenService(fx, model)

	require.NoError(t, svc.Generate(context.Background(), chatReq("write main in go and python")))

	require.Len(t, fx.repo.messages, 3)
	assert.Equal(t, constant.MessageKindText, fx.repo.messages[0].MessageKind)

	first := fx.repo.messages[1]
	assert.Equal(t, constant.MessageKindCode, first.MessageKind)
	assert.Equal(t, "go", first.Metadata["language"])
	assert.Contains(t, first.Body, "func main()")

	second := fx.repo.messages[2]
	assert.Equal(t, constant.MessageKindCode, second.MessageKind)
	assert.Equal(t, "python", second.Metadata["language"])
}

func TestCodeGenerationWithoutFencesFallsBackToText(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{reply: "You don't need code for that, just use the CLI."}
	svc := newCodeGenService(fx, model)

	require.NoError(t, svc.Generate(context.Background(), chatReq("how do I do this")))

	require.Len(t, fx.repo.messages, 2)
	assert.Equal(t, constant.MessageKindText, fx.repo.messages[1].MessageKind)
}

func TestCodeGenerationRateLimitDegradesToApology(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{err: llm.ErrRateLimited}
	svc := newCodeGenService(fx, model)

	require.NoError(t, svc.Generate(context.Background(), chatReq("write code")))

	require.Len(t, fx.repo.messages, 2)
	assert.Equal(t, constant.QuotaExceededMessage, fx.repo.messages[1].Body)
	assert.Equal(t, constant.MessageKindText, fx.repo.messages[1].MessageKind)
}

func TestCodeGenerationUsesCodingInstruction(t *testing.T) {
	fx := newFixture(t, "urn:assistant")
	model := &fakeLLM{reply: "```go\npackage main\n```"}
	svc := newCodeGenService(fx, model)

	require.NoError(t, svc.Generate(context.Background(), chatReq("scaffold a package")))

	require.NotEmpty(t, model.lastHistory)
	assert.Equal(t, "system", model.lastHistory[0].Role)
	assert.Equal(t, constant.CodingAssistantInstruction, model.lastHistory[0].Content)
}
