package handler

import (
	"context"
	"strings"

	"talkback-be/internal/cache"
	"talkback-be/internal/constant"
	"talkback-be/internal/event"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/service"
)

// PipelineHandler binds realtime event routes to the pipeline services. One
// handler per route; the payload carries the validated envelope fields plus
// any captures merged in by the router.
type PipelineHandler struct {
	textGen      service.ITextGenerationService
	codeGen      service.ICodeGenerationService
	imageGen     service.IImageGenerationService
	imageCaption service.IImageCaptionService
	speechToText service.ISpeechToTextService
	rag          service.IRagService
	contextCache *cache.ContextCache
	logger       logger.ILogger
}

func NewPipelineHandler(
	textGen service.ITextGenerationService,
	codeGen service.ICodeGenerationService,
	imageGen service.IImageGenerationService,
	imageCaption service.IImageCaptionService,
	speechToText service.ISpeechToTextService,
	rag service.IRagService,
	contextCache *cache.ContextCache,
	log logger.ILogger,
) *PipelineHandler {
	return &PipelineHandler{
		textGen:      textGen,
		codeGen:      codeGen,
		imageGen:     imageGen,
		imageCaption: imageCaption,
		speechToText: speechToText,
		rag:          rag,
		contextCache: contextCache,
		logger:       log,
	}
}

// RegisterRoutes installs the route table. Order matters: the rag routes
// must precede the generic text route so "message/text/rag/..." never falls
// through to plain text generation.
func (h *PipelineHandler) RegisterRoutes(router *event.Router) {
	router.Register(`^message/text/rag/build$`, h.RagBuild)
	router.Register(`^message/text/rag/query$`, h.RagQuery)
	router.Register(`^message/text/text_generation$`, h.TextGeneration)
	router.Register(`^message/text/image_generation$`, h.ImageGeneration)
	router.Register(`^message/text/code_generation$`, h.CodeGeneration)
	router.Register(`^message/audio/infer$`, h.AudioInfer)
	router.Register(`^message/image/captioning$`, h.ImageCaption)
	router.Register(`^clear$`, h.Clear)
	router.Register(`^acknowledgement$`, h.Acknowledge)
}

func (h *PipelineHandler) TextGeneration(ctx context.Context, payload event.Payload) (event.Result, error) {
	return nil, h.textGen.Generate(ctx, chatRequest(payload, constant.ConversationKindChat))
}

func (h *PipelineHandler) CodeGeneration(ctx context.Context, payload event.Payload) (event.Result, error) {
	return nil, h.codeGen.Generate(ctx, chatRequest(payload, constant.ConversationKindChat))
}

func (h *PipelineHandler) ImageGeneration(ctx context.Context, payload event.Payload) (event.Result, error) {
	return nil, h.imageGen.Generate(ctx, chatRequest(payload, constant.ConversationKindChat))
}

func (h *PipelineHandler) ImageCaption(ctx context.Context, payload event.Payload) (event.Result, error) {
	return nil, h.imageCaption.Describe(ctx, service.ImageRequest{
		SessionId:      payload.String("session_id"),
		ConversationId: payload.String("conversation_id"),
		PeerUrn:        payload.String("chat_urn"),
		PeerName:       payload.String("chat_name"),
		ImageBase64:    payload.String("file_base64"),
		Question:       payload.String("text"),
	})
}

// AudioInfer transcribes the inbound frame and hands the transcript back to
// the caller, which selects and dispatches the follow-up pipeline.
func (h *PipelineHandler) AudioInfer(ctx context.Context, payload event.Payload) (event.Result, error) {
	transcript, err := h.speechToText.Transcribe(ctx, service.AudioRequest{
		SessionId:      payload.String("session_id"),
		ConversationId: payload.String("conversation_id"),
		AudioBase64:    payload.String("audio_base64"),
	})
	if err != nil {
		return nil, err
	}
	return event.Result{"transcript": transcript}, nil
}

func (h *PipelineHandler) RagBuild(ctx context.Context, payload event.Payload) (event.Result, error) {
	return nil, h.rag.Ingest(ctx, service.DocumentRequest{
		SessionId:      payload.String("session_id"),
		ConversationId: payload.String("conversation_id"),
		PeerUrn:        payload.String("chat_urn"),
		PeerName:       payload.String("chat_name"),
		FileName:       payload.String("file_name"),
		FileBase64:     payload.String("file_base64"),
	})
}

func (h *PipelineHandler) RagQuery(ctx context.Context, payload event.Payload) (event.Result, error) {
	return nil, h.rag.Query(ctx, chatRequest(payload, constant.ConversationKindRag))
}

func (h *PipelineHandler) Clear(ctx context.Context, payload event.Payload) (event.Result, error) {
	return nil, h.contextCache.Clear(ctx, payload.String("conversation_id"))
}

func (h *PipelineHandler) Acknowledge(_ context.Context, payload event.Payload) (event.Result, error) {
	h.logger.Info("Pipeline", "Client acknowledgement", map[string]interface{}{
		"session_id": payload.String("session_id"),
		"message_id": payload.String("message_id"),
	})
	return nil, nil
}

// SelectSpokenTask picks the generation pipeline for a transcript. A spoken
// request that mentions an image routes to synthesis, everything else to
// plain text generation.
func SelectSpokenTask(transcript string) string {
	if strings.Contains(strings.ToLower(transcript), "image") {
		return constant.TaskImageGeneration
	}
	return constant.TaskTextGeneration
}

func chatRequest(payload event.Payload, kind string) service.ChatRequest {
	return service.ChatRequest{
		SessionId:        payload.String("session_id"),
		ConversationId:   payload.String("conversation_id"),
		PeerUrn:          payload.String("chat_urn"),
		PeerName:         payload.String("chat_name"),
		ConversationKind: kind,
		Text:             payload.String("text"),
	}
}
