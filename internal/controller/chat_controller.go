package controller

import (
	"encoding/base64"
	"io"

	"talkback-be/internal/pkg/serverutils"
	"talkback-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	History(ctx *fiber.Ctx) error
	ParticipantHistory(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	BuildIndex(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	ragService  service.IRagService
}

func NewChatController(chatService service.IChatService, ragService service.IRagService) IChatController {
	return &chatController{
		chatService: chatService,
		ragService:  ragService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Get("history/:conversation_id", c.History)
	h.Get("participant/:urn/history", c.ParticipantHistory)
	h.Delete(":session_id/:conversation_id", c.Delete)
	h.Post("rag/build/:session_id/:chat_urn", c.BuildIndex)
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	conversationId := ctx.Params("conversation_id")
	kind := ctx.Query("kind")

	res, err := c.chatService.History(ctx.Context(), conversationId, kind)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success fetch conversation history", res))
}

func (c *chatController) ParticipantHistory(ctx *fiber.Ctx) error {
	urn := ctx.Params("urn")
	kind := ctx.Query("kind")

	res, err := c.chatService.HistoryByParticipant(ctx.Context(), urn, kind)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success fetch participant history", res))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("session_id")
	conversationId := ctx.Params("conversation_id")

	res := c.chatService.Delete(ctx.Context(), sessionId, conversationId)

	return ctx.JSON(serverutils.SuccessResponse("Success delete conversation", res))
}

// BuildIndex ingests an uploaded document into the conversation's knowledge
// index. Indexing failures surface as explicit HTTP errors, unlike the
// conversational pipelines which degrade to apology messages.
func (c *chatController) BuildIndex(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("session_id")
	chatUrn := ctx.Params("chat_urn")

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing document file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable document file")
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable document file")
	}

	err = c.ragService.Ingest(ctx.Context(), service.DocumentRequest{
		SessionId:      sessionId,
		ConversationId: chatUrn,
		PeerUrn:        chatUrn,
		PeerName:       ctx.FormValue("chat_name"),
		FileName:       fileHeader.Filename,
		FileBase64:     base64.StdEncoding.EncodeToString(raw),
	})
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success build knowledge index", fiber.Map{
		"session_id": sessionId,
		"chat_urn":   chatUrn,
		"file_name":  fileHeader.Filename,
	}))
}
