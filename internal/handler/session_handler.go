package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"talkback-be/internal/constant"
	"talkback-be/internal/dto"
	"talkback-be/internal/event"
	"talkback-be/internal/pkg/logger"
	"talkback-be/internal/pkg/serverutils"
	internalWS "talkback-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionHandler owns the realtime endpoint: it upgrades the connection,
// registers it under the session id, and runs the receive loop. One loop per
// connection; each inbound event is processed fully before the next read, so
// responses to a single client follow the order its events arrived.
type SessionHandler struct {
	registry *internalWS.Registry
	router   *event.Router
	logger   logger.ILogger
}

func NewSessionHandler(registry *internalWS.Registry, router *event.Router, log logger.ILogger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		router:   router,
		logger:   log,
	}
}

func (h *SessionHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/:session_id", h.ServeWs)
}

func (h *SessionHandler) ServeWs(c *fiber.Ctx) error {
	sessionId := c.Params("session_id")
	if sessionId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing session id")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("Session", "WebSocket session started", map[string]interface{}{
			"session_id": sessionId,
		})
		h.serve(conn, sessionId)
		h.logger.Info("Session", "WebSocket session ended", map[string]interface{}{
			"session_id": sessionId,
		})
	})(c)
}

// serve runs until the connection drops. A disconnect only removes the
// registry entry; in-flight work for the session completes and its pushes
// fail silently against the absent handle.
func (h *SessionHandler) serve(conn *websocket.Conn, sessionId string) {
	h.registry.Add(sessionId, conn)
	defer h.registry.Remove(sessionId)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug("Session", "Connection closed", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
			return
		}

		var envelope dto.InboundEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			h.logger.Warn("Session", "Discarding malformed frame", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
			continue
		}
		if err := serverutils.ValidateRequest(envelope); err != nil {
			h.logger.Warn("Session", "Discarding invalid envelope", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
			continue
		}

		h.handleEnvelope(context.Background(), sessionId, envelope)
	}
}

// handleEnvelope assembles the event name from the envelope and dispatches
// it. Handler failures are logged and dropped here; nothing a single event
// does may take down the receive loop.
func (h *SessionHandler) handleEnvelope(ctx context.Context, sessionId string, envelope dto.InboundEnvelope) {
	payload := payloadFrom(sessionId, envelope)

	switch envelope.Event {
	case constant.EventMessage:
		h.handleMessage(ctx, sessionId, envelope, payload)
	case constant.EventClear, constant.EventAcknowledgement:
		h.dispatch(ctx, sessionId, envelope.Event, payload)
	default:
		h.logger.Debug("Session", "Ignoring unknown event", map[string]interface{}{
			"session_id": sessionId,
			"event":      envelope.Event,
		})
	}
}

func (h *SessionHandler) handleMessage(ctx context.Context, sessionId string, envelope dto.InboundEnvelope, payload event.Payload) {
	if envelope.ChatType == constant.ConversationKindRag {
		h.dispatch(ctx, sessionId, fmt.Sprintf("message/%s/%s/%s", envelope.Type, envelope.ChatType, envelope.Task), payload)
		return
	}

	switch envelope.Type {
	case "text":
		task := envelope.Task
		if task == "" {
			task = constant.TaskTextGeneration
		}
		h.dispatch(ctx, sessionId, fmt.Sprintf("message/text/%s", task), payload)

	case "image":
		h.dispatch(ctx, sessionId, "message/image/captioning", payload)

	case "audio":
		result := h.dispatch(ctx, sessionId, "message/audio/infer", payload)
		transcript, _ := result["transcript"].(string)
		if transcript == "" {
			return
		}
		followUp := payload.Merge(map[string]string{"text": transcript})
		h.dispatch(ctx, sessionId, fmt.Sprintf("message/text/%s", SelectSpokenTask(transcript)), followUp)

	default:
		h.logger.Debug("Session", "Ignoring unknown message type", map[string]interface{}{
			"session_id": sessionId,
			"type":       envelope.Type,
		})
	}
}

func (h *SessionHandler) dispatch(ctx context.Context, sessionId, eventName string, payload event.Payload) event.Result {
	h.logger.Debug("Session", "Dispatching event", map[string]interface{}{
		"session_id": sessionId,
		"event":      eventName,
	})

	result, err := h.router.Dispatch(ctx, eventName, payload)
	if err != nil {
		h.logger.Error("Session", "Event handling failed", map[string]interface{}{
			"session_id": sessionId,
			"event":      eventName,
			"error":      err.Error(),
		})
		return nil
	}
	return result
}

func payloadFrom(sessionId string, envelope dto.InboundEnvelope) event.Payload {
	conversationId := envelope.ConversationId
	if conversationId == "" {
		conversationId = envelope.ChatUrn
	}
	return event.Payload{
		"session_id":      sessionId,
		"conversation_id": conversationId,
		"chat_urn":        envelope.ChatUrn,
		"chat_name":       envelope.ChatName,
		"chat_type":       envelope.ChatType,
		"text":            envelope.Text,
		"audio_base64":    envelope.AudioBase64,
		"file_name":       envelope.FileName,
		"file_base64":     envelope.FileBase64,
		"message_id":      envelope.MessageId,
	}
}
