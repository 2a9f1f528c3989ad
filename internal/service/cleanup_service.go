package service

import (
	"context"
	"encoding/json"

	"talkback-be/internal/pkg/logger"
	"talkback-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ICleanupService removes residual temp files left behind by the audio,
// image and document pipelines. Scheduling is fire-and-forget: the pipeline
// publishes the path and moves on, the consumer deletes it out of band.
type ICleanupService interface {
	Schedule(path string)
	Consume(ctx context.Context) error
}

type cleanupPayload struct {
	Path string `json:"path"`
}

type cleanupService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	logger    logger.ILogger
}

func NewCleanupService(pubSub *gochannel.GoChannel, topicName string, log logger.ILogger) ICleanupService {
	return &cleanupService{
		pubSub:    pubSub,
		topicName: topicName,
		logger:    log,
	}
}

func (cs *cleanupService) Schedule(path string) {
	if path == "" {
		return
	}

	payload, err := json.Marshal(cleanupPayload{Path: path})
	if err != nil {
		cs.logger.Error("Cleanup", "Failed to marshal cleanup payload", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := cs.pubSub.Publish(cs.topicName, msg); err != nil {
		// Deletion still happens on the synchronous fallback path; a missed
		// schedule only delays it.
		cs.logger.Warn("Cleanup", "Failed to schedule file cleanup", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		if removeErr := utils.RemoveFileIfExists(path); removeErr != nil {
			cs.logger.Warn("Cleanup", "Fallback removal failed", map[string]interface{}{
				"path":  path,
				"error": removeErr.Error(),
			})
		}
	}
}

func (cs *cleanupService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *cleanupService) processMessage(msg *message.Message) {
	var payload cleanupPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Cleanup", "Failed to unmarshal cleanup message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	if err := utils.RemoveFileIfExists(payload.Path); err != nil {
		cs.logger.Warn("Cleanup", "Failed to remove residual file", map[string]interface{}{
			"path":  payload.Path,
			"error": err.Error(),
		})
		msg.Nack()
		return
	}

	cs.logger.Debug("Cleanup", "Residual file removed", map[string]interface{}{
		"path": payload.Path,
	})
	msg.Ack()
}
